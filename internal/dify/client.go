package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout = 60 * time.Second
	responseMode   = "blocking"
)

// Config holds the connection settings of a completion app.
type Config struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
	User    string // end-user identifier sent with every request
}

// Client calls a completion app in blocking mode. Inputs are passed as named
// variables so the prompt template lives on the service side.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates cfg and builds a client. An empty User gets a random
// per-process identifier.
func NewClient(cfg Config) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIKey == "" {
		return nil, errors.New("invalid configuration: API key is required")
	}
	if cfg.APIURL == "" {
		return nil, errors.New("invalid configuration: API URL is required")
	}
	if cfg.User == "" {
		cfg.User = "srt-line-translator-" + uuid.NewString()
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// User returns the end-user identifier sent with requests.
func (c *Client) User() string {
	return c.cfg.User
}

// Complete sends inputs and returns the answer text.
func (c *Client) Complete(ctx context.Context, inputs map[string]string) (string, error) {
	payload, err := json.Marshal(CompletionRequest{
		Inputs:       inputs,
		ResponseMode: responseMode,
		User:         c.cfg.User,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/completion-messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return "", fmt.Errorf("request timed out: %w", err)
		}
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = string(body)
		}
		apiErr.StatusCode = resp.StatusCode
		return "", apiErr
	}

	var completion CompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return completion.Answer, nil
}

package llm

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

	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

const completionsPath = "/chat/completions"

// Options configures a Client for an OpenAI compatible endpoint (OpenRouter,
// OpenAI, local gateways). Value ranges are checked by config.Validate.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxTokens of 0 leaves the limit to the model
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	// AppName is sent as X-Title for gateway dashboards
	AppName string
}

// Client sends blocking chat completions. Safe for concurrent use.
type Client struct {
	opts       Options
	endpoint   string
	httpClient *http.Client
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("chat client: base URL is required")
	}
	if opts.Model == "" {
		return nil, errors.New("chat client: model is required")
	}
	return &Client{
		opts:       opts,
		endpoint:   base + completionsPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Chat sends an optional system prompt and one user message and returns the
// content of the first choice.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	messages := make([]Message, 0, 2)
	if system != "" {
		messages = append(messages, Message{Role: "system", Content: system})
	}
	messages = append(messages, Message{Role: "user", Content: user})

	resp, err := c.complete(ctx, ChatRequest{
		Model:       c.opts.Model,
		Messages:    messages,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	if resp.Usage != nil {
		log.Debug("Chat completion used %d tokens (%d prompt, %d completion)",
			resp.Usage.TotalTokens, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) complete(ctx context.Context, body ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.opts.AppName != "" {
		req.Header.Set("X-Title", c.opts.AppName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var out ChatResponse
	parseErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := out.Error
		if parseErr != nil || apiErr == nil || apiErr.Message == "" {
			apiErr = &APIError{Message: string(data)}
		}
		apiErr.StatusCode = resp.StatusCode
		return nil, apiErr
	}
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse response: %w", parseErr)
	}
	if out.Error != nil && out.Error.Message != "" {
		out.Error.StatusCode = resp.StatusCode
		return nil, out.Error
	}
	return &out, nil
}

package dify

import (
	"fmt"
	"strings"
)

// CompletionRequest is the body of POST /completion-messages
type CompletionRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
}

// CompletionResponse is the blocking-mode answer
type CompletionResponse struct {
	Event     string `json:"event"`
	MessageID string `json:"message_id"`
	Mode      string `json:"mode"`
	Answer    string `json:"answer"`
	CreatedAt int64  `json:"created_at"`
}

// APIError is the error body returned by the service
type APIError struct {
	StatusCode int    `json:"status"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "no message"
	}
	return fmt.Sprintf("completion API error: status %d, code %q: %s", e.StatusCode, e.Code, msg)
}

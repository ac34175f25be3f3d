package translator

import (
	"context"
	"fmt"
)

type chatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// ChatTranslator translates through an OpenAI compatible chat completion API.
// The four request values travel as a JSON user message.
type ChatTranslator struct {
	client chatClient
}

// NewChatTranslator creates a translator backed by client (usually *llm.Client)
func NewChatTranslator(client chatClient) *ChatTranslator {
	return &ChatTranslator{client: client}
}

func (t *ChatTranslator) Translate(ctx context.Context, req Request) (string, error) {
	userMessage, err := buildUserMessage(req)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	content, err := t.client.Chat(ctx, buildSystemPrompt(req.SourceLang, req.TargetLang), userMessage)
	if err != nil {
		return "", fmt.Errorf("chat translation failed: %w", err)
	}
	return cleanModelOutput(content), nil
}

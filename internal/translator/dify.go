package translator

import (
	"context"
	"fmt"
)

type completer interface {
	Complete(ctx context.Context, inputs map[string]string) (string, error)
}

// CompletionTranslator sends query, lang, above and below as named inputs to a
// completion app (usually *dify.Client) whose prompt template is configured
// on the service side.
type CompletionTranslator struct {
	client completer
}

func NewCompletionTranslator(client completer) *CompletionTranslator {
	return &CompletionTranslator{client: client}
}

func (t *CompletionTranslator) Translate(ctx context.Context, req Request) (string, error) {
	answer, err := t.client.Complete(ctx, inputsOf(req))
	if err != nil {
		return "", fmt.Errorf("completion translation failed: %w", err)
	}
	return answer, nil
}

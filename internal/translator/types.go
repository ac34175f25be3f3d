package translator

import (
	"context"
)

// Request carries one entry and its neighbors. Above and Below are the
// original, untranslated text of the previous and next entries; empty at the
// edges of the file.
type Request struct {
	Text       string
	Above      string
	Below      string
	SourceLang string // human readable, may be empty
	TargetLang string // human readable, e.g. "Chinese"
}

// Translator performs one remote translation call.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, req Request) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

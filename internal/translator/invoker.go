package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 3 * time.Second
)

// ErrEmptyTranslation is returned when the service answers with no text for a
// non-empty entry.
var ErrEmptyTranslation = errors.New("service returned an empty translation")

// OutcomeKind tags the result of a single attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of one translation attempt.
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// Attempt performs one call and classifies it. Cancellation of ctx is fatal,
// every other failure is retryable. Successful text is normalized to a form
// that survives an SRT round trip.
func Attempt(ctx context.Context, t Translator, req Request) Outcome {
	text, err := t.Translate(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %v", ctxErr, err)
			}
			return Outcome{Kind: OutcomeFatal, Err: err}
		}
		return Outcome{Kind: OutcomeRetryable, Err: err}
	}

	text = subtitle.CleanText(text)
	if text == "" && subtitle.CleanText(req.Text) != "" {
		return Outcome{Kind: OutcomeRetryable, Err: ErrEmptyTranslation}
	}
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// ExhaustedError is returned when every attempt for one entry failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("translation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Result describes a finished invocation.
type Result struct {
	Text          string
	Attempts      int
	PassedThrough bool
}

// Invoker wraps a Translator with a bounded, fixed-delay retry policy. Retry
// state is scoped to a single Invoke call.
type Invoker struct {
	translator  Translator
	maxRetries  int
	delay       time.Duration
	skipMarkers bool
	sleep       func(ctx context.Context, d time.Duration) error
}

// InvokerOption customizes the invoker.
type InvokerOption func(*Invoker)

// WithMaxRetries sets how many additional attempts follow a failed one.
func WithMaxRetries(n int) InvokerOption {
	return func(inv *Invoker) {
		if n >= 0 {
			inv.maxRetries = n
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) InvokerOption {
	return func(inv *Invoker) {
		if d >= 0 {
			inv.delay = d
		}
	}
}

// WithSkipMarkers toggles the pass-through of blank and marker-only entries.
func WithSkipMarkers(skip bool) InvokerOption {
	return func(inv *Invoker) {
		inv.skipMarkers = skip
	}
}

// WithSleeper overrides how retry pauses are performed (useful for tests).
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) InvokerOption {
	return func(inv *Invoker) {
		if sleep != nil {
			inv.sleep = sleep
		}
	}
}

func NewInvoker(t Translator, opts ...InvokerOption) *Invoker {
	inv := &Invoker{
		translator:  t,
		maxRetries:  DefaultMaxRetries,
		delay:       DefaultRetryDelay,
		skipMarkers: true,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// MaxAttempts is the number of calls made for an entry that keeps failing.
func (inv *Invoker) MaxAttempts() int {
	return inv.maxRetries + 1
}

// Invoke translates one entry. After MaxAttempts failed calls it returns an
// *ExhaustedError; a fatal outcome stops immediately.
func (inv *Invoker) Invoke(ctx context.Context, req Request) (Result, error) {
	if inv.skipMarkers && ShouldPassThrough(req.Text) {
		return Result{Text: subtitle.CleanText(req.Text), PassedThrough: true}, nil
	}

	attempts := inv.MaxAttempts()
	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome := Attempt(ctx, inv.translator, req)
		switch outcome.Kind {
		case OutcomeSuccess:
			return Result{Text: outcome.Text, Attempts: attempt}, nil
		case OutcomeFatal:
			return Result{Attempts: attempt}, outcome.Err
		}

		last = outcome.Err
		if attempt == attempts {
			break
		}
		log.Warn("Translation attempt %d/%d failed, retrying in %s: %v", attempt, attempts, inv.delay, last)
		if err := inv.sleep(ctx, inv.delay); err != nil {
			return Result{Attempts: attempt}, err
		}
	}

	return Result{Attempts: attempts}, &ExhaustedError{Attempts: attempts, Last: last}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

type ErrorType int

const (
	ErrSourceParse ErrorType = iota
	ErrCheckpointRead
	ErrServiceCall
	ErrFatalTranslation
	ErrCheckpointWrite
	ErrOutputWrite
	ErrCleanup
	ErrValidation
	ErrConfig
	ErrUnknown
)

// PipelineError is the typed error returned by a pipeline run
type PipelineError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *PipelineError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrSourceParse:
		return "SourceParse"
	case ErrCheckpointRead:
		return "CheckpointRead"
	case ErrServiceCall:
		return "ServiceCall"
	case ErrFatalTranslation:
		return "FatalTranslation"
	case ErrCheckpointWrite:
		return "CheckpointWrite"
	case ErrOutputWrite:
		return "OutputWrite"
	case ErrCleanup:
		return "Cleanup"
	case ErrValidation:
		return "Validation"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *PipelineError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err with advice. It reports false for errors that are not a *PipelineError.
func (h *DefaultErrorHandler) Handle(err error) bool {
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(pErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *PipelineError) string {
	switch err.Type {
	case ErrSourceParse:
		return "Please check the source path and fix the subtitle file at the reported line; only SRT files are supported"
	case ErrCheckpointRead:
		return "The checkpoint does not match the source file; delete the .temp checkpoint next to the output to start over"
	case ErrServiceCall:
		return "Please check the API key, the service URL and network connectivity"
	case ErrFatalTranslation:
		return "Completed entries are saved in the checkpoint; run the same command again to resume from the failed entry"
	case ErrCheckpointWrite:
		return "Please ensure the output directory is writable and no other run is translating to the same output"
	case ErrOutputWrite:
		return "The checkpoint was kept; fix the output directory permissions and run again to write the result without new service calls"
	case ErrCleanup:
		return "The translation was written; the leftover checkpoint file can be deleted by hand"
	case ErrValidation:
		return "Please verify input parameters are correct; source and destination paths cannot be empty"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *PipelineError {
	return NewErrorWithCause(errorType, message, err)
}

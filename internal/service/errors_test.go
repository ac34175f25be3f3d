package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineError_Error(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(cause, ErrOutputWrite, "failed to write").
		WithContext("output", "movie.zh.srt").
		WithContext("checkpoint", "movie.zh.srt.temp")

	assert.Equal(t,
		"[OutputWrite] failed to write | context: checkpoint=movie.zh.srt.temp, output=movie.zh.srt | cause: disk full",
		err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestIsErrorType(t *testing.T) {
	err := fmt.Errorf("run: %w", NewError(ErrFatalTranslation, "entry 3 could not be translated"))

	assert.True(t, IsErrorType(err, ErrFatalTranslation))
	assert.False(t, IsErrorType(err, ErrServiceCall))
	assert.False(t, IsErrorType(errors.New("plain"), ErrUnknown))
	assert.False(t, IsErrorType(nil, ErrUnknown))
}

func TestErrorType_String(t *testing.T) {
	names := map[ErrorType]string{
		ErrSourceParse:      "SourceParse",
		ErrCheckpointRead:   "CheckpointRead",
		ErrServiceCall:      "ServiceCall",
		ErrFatalTranslation: "FatalTranslation",
		ErrCheckpointWrite:  "CheckpointWrite",
		ErrOutputWrite:      "OutputWrite",
		ErrCleanup:          "Cleanup",
		ErrValidation:       "Validation",
		ErrConfig:           "Config",
		ErrUnknown:          "Unknown",
		ErrorType(99):       "Unknown",
	}
	for typ, want := range names {
		assert.Equal(t, want, typ.String())
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	handler := NewDefaultErrorHandler()

	assert.True(t, handler.Handle(fmt.Errorf("wrapped: %w", NewError(ErrConfig, "bad"))))
	assert.False(t, handler.Handle(errors.New("plain")))

	for typ := ErrSourceParse; typ <= ErrUnknown; typ++ {
		assert.NotEmpty(t, handler.GetAdvice(NewError(typ, "x")), typ.String())
	}
	assert.Contains(t, handler.GetAdvice(NewError(ErrFatalTranslation, "x")), "resume")
}

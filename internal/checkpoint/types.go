package checkpoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
)

// Backend names a checkpoint storage format.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
)

// ParseBackend maps a config value to a Backend. Empty means BackendFile.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendFile:
		return BackendFile, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown checkpoint backend %q (want file or sqlite)", s)
	}
}

// Log is an append-only record of entries that already have a confirmed
// translation. Entries come back from Load in the order they were appended.
type Log interface {
	// Load returns every durable record. A torn trailing record is dropped,
	// never reported as an error.
	Load(ctx context.Context) ([]subtitle.Line, error)
	// Append durably records one entry before returning.
	Append(ctx context.Context, line subtitle.Line) error
	// Clear removes the durable state of the log.
	Clear(ctx context.Context) error
	// Path is the location of the durable state.
	Path() string
	Close() error
}

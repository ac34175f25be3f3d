package subtitle

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
)

// Reader is the interface for reading subtitle files
type Reader interface {
	Read() (*File, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, subtitle *File) error
}

// Line represents a single subtitle entry
type Line struct {
	Index     int           // subtitle index, unique and positive
	StartTime time.Duration // start time
	EndTime   time.Duration // end time
	Text      string        // subtitle text, may be empty or multi-line
}

// WithText returns a copy of the line carrying text. Timing and index are kept.
func (l Line) WithText(text string) Line {
	l.Text = text
	return l
}

// File represents subtitle file
type File struct {
	Lines    []Line
	Language language.Tag
	Format   string // e.g. SRT
	Path     string
}

// ParseError reports a malformed subtitle block. Line is 1-based.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Reason)
}

package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DefaultWriter is the default subtitle file writer
type DefaultWriter struct{}

// NewWriter creates a new subtitle file writer
func NewWriter() Writer {
	return &DefaultWriter{}
}

// Write writes the subtitle file to path. Content goes to a temporary sibling
// first and is renamed into place after a sync, so path never holds a partial file.
func (w *DefaultWriter) Write(path string, subtitle *File) error {
	if subtitle == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	writer := bufio.NewWriter(tmp)
	for _, line := range subtitle.Lines {
		if _, err := writer.WriteString(FormatBlock(line)); err != nil {
			cleanup()
			return fmt.Errorf("failed to write subtitle entry %d: %w", line.Index, err)
		}
	}
	if err := writer.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close output file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move output file into place: %w", err)
	}
	return nil
}

// Append durably appends one entry to path, creating the file if needed.
// The data is synced to disk before Append returns.
func Append(path string, line Line) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s for append: %w", path, err)
	}

	if _, err := file.WriteString(FormatBlock(line)); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to append entry %d: %w", line.Index, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return file.Close()
}

// FormatBlock renders one entry in SRT form, terminated by a blank line.
func FormatBlock(line Line) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d\n", line.Index)
	fmt.Fprintf(&sb, "%s --> %s\n", FormatTimestamp(line.StartTime), FormatTimestamp(line.EndTime))
	if text := CleanText(line.Text); text != "" {
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// CleanText normalizes entry text so it survives an SRT round trip: line
// endings become LF, every line is trimmed and blank lines are dropped.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	parts := strings.Split(text, "\n")
	kept := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, "\n")
}

// SortByIndex stably sorts lines by Index.
func SortByIndex(lines []Line) {
	slices.SortStableFunc(lines, func(a, b Line) int {
		return a.Index - b.Index
	})
}

// FormatTimestamp formats time.Duration to SRT time format
func FormatTimestamp(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}

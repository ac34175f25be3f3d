package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

// FileLog keeps records as SRT blocks appended to a plain text file. The file
// is created by the first Append.
type FileLog struct {
	path string
	lock *flock.Flock
}

// OpenFile opens the log at path, taking the single-writer lock.
func OpenFile(path string) (*FileLog, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}
	return &FileLog{path: path, lock: lock}, nil
}

func (l *FileLog) Path() string {
	return l.path
}

// Load reads the valid prefix of the file. Everything from the first malformed
// block on is logged, dropped and cut from the file so later appends start on a
// block boundary and the records stay gap-free. Usually that is a fragment left
// by a crash mid-append; well-formed blocks after a corrupt one go with it.
func (l *FileLog) Load(ctx context.Context) ([]subtitle.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Checkpoint %s is unreadable, starting from the beginning: %v", l.path, err)
		}
		return nil, nil
	}

	lines, valid, perr := subtitle.ReadLenient(data)
	if perr != nil {
		log.Warn("Checkpoint %s: keeping %d records (%d bytes), cutting %d bytes from offset %d: %v",
			l.path, len(lines), valid, len(data)-valid, valid, perr)
		if err := os.Truncate(l.path, int64(valid)); err != nil {
			return nil, fmt.Errorf("repair checkpoint %s: %w", l.path, err)
		}
	}
	return lines, nil
}

func (l *FileLog) Append(ctx context.Context, line subtitle.Line) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return subtitle.Append(l.path, line)
}

func (l *FileLog) Clear(_ context.Context) error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove checkpoint %s: %w", l.path, err)
	}
	return nil
}

func (l *FileLog) Close() error {
	err := releaseLock(l.lock)
	l.lock = nil
	return err
}

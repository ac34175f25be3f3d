package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS checkpoint_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_index INTEGER NOT NULL,
	start_ns INTEGER NOT NULL,
	end_ns INTEGER NOT NULL,
	text TEXT NOT NULL,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteLog keeps one committed row per record. The database file is created
// by the first Append.
type SQLiteLog struct {
	path string
	lock *flock.Flock
	db   *sql.DB
}

// OpenSQLite opens the log at path, taking the single-writer lock.
func OpenSQLite(path string) (*SQLiteLog, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteLog{path: path, lock: lock}, nil
}

func (l *SQLiteLog) Path() string {
	return l.path
}

func (l *SQLiteLog) open(ctx context.Context) error {
	if l.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
		sqliteSchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("init checkpoint db: %w", err)
		}
	}
	l.db = db
	return nil
}

func (l *SQLiteLog) Load(ctx context.Context) ([]subtitle.Line, error) {
	if l.db == nil {
		if _, err := os.Stat(l.path); errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}
	if err := l.open(ctx); err != nil {
		return nil, err
	}

	rows, err := l.db.QueryContext(ctx, `SELECT entry_index, start_ns, end_ns, text FROM checkpoint_entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query checkpoint: %w", err)
	}
	defer rows.Close()

	var lines []subtitle.Line
	for rows.Next() {
		var (
			index      int
			start, end int64
			text       string
		)
		if err := rows.Scan(&index, &start, &end, &text); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		lines = append(lines, subtitle.Line{
			Index:     index,
			StartTime: time.Duration(start),
			EndTime:   time.Duration(end),
			Text:      text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read checkpoint rows: %w", err)
	}
	return lines, nil
}

func (l *SQLiteLog) Append(ctx context.Context, line subtitle.Line) error {
	if err := l.open(ctx); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO checkpoint_entries (entry_index, start_ns, end_ns, text) VALUES (?, ?, ?, ?)`,
		line.Index, int64(line.StartTime), int64(line.EndTime), subtitle.CleanText(line.Text))
	if err != nil {
		return fmt.Errorf("append checkpoint entry %d: %w", line.Index, err)
	}
	return nil
}

// Clear closes the database and removes it with its WAL side files.
func (l *SQLiteLog) Clear(_ context.Context) error {
	if l.db != nil {
		if err := l.db.Close(); err != nil {
			return fmt.Errorf("close checkpoint db: %w", err)
		}
		l.db = nil
	}
	for _, p := range []string{l.path, l.path + "-wal", l.path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove checkpoint %s: %w", p, err)
		}
	}
	return nil
}

func (l *SQLiteLog) Close() error {
	var errs []error
	if l.db != nil {
		errs = append(errs, l.db.Close())
		l.db = nil
	}
	errs = append(errs, releaseLock(l.lock))
	l.lock = nil
	return errors.Join(errs...)
}

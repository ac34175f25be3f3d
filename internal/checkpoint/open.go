package checkpoint

import (
	"fmt"

	"github.com/MimeLyc/srt-line-translator/pkg/file"
)

// PathFor derives the checkpoint location for an output file.
func PathFor(output string, backend Backend) string {
	path := file.CheckpointPath(output)
	if backend == BackendSQLite {
		return path + ".db"
	}
	return path
}

// Open opens the checkpoint log that belongs to output.
func Open(backend Backend, output string) (Log, error) {
	path := PathFor(output, backend)
	switch backend {
	case BackendFile, "":
		return OpenFile(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", backend)
	}
}

package file

import (
	"path/filepath"
	"strings"
)

const checkpointSuffix = ".temp"

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// OutputPath derives the translated file path from the source path and a
// language code: movie.srt -> movie.zh.srt.
func OutputPath(sourcePath, langCode string) string {
	langCode = strings.ToLower(strings.TrimSpace(langCode))
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".srt"
	}
	if langCode == "" {
		return ReplaceExt(sourcePath, "translated"+ext)
	}
	return ReplaceExt(sourcePath, langCode+ext)
}

// CheckpointPath is the side file that records progress for output:
// movie.zh.srt -> movie.zh.srt.temp. The same output always maps to the same
// checkpoint so a rerun picks up where the last one stopped.
func CheckpointPath(output string) string {
	return filepath.Clean(output) + checkpointSuffix
}

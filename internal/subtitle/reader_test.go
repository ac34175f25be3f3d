package subtitle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestDetectLanguage(t *testing.T) {
	lines := []Line{
		{
			Text: "Hello, world!",
		},
		{
			Text: "こんにちは、世界!",
		},
		{
			Text: "こんにちは、世界!",
		},

		{
			Text: "Привет, мир!",
		},
	}
	lang := detectLanguage(lines)
	if lang != language.Japanese {
		t.Errorf("expected ja, got %s", lang)
	}
}

func TestDetectLanguage_EmptyInput(t *testing.T) {
	assert.Equal(t, language.Und, detectLanguage(nil))
	assert.Equal(t, language.Und, detectLanguage([]Line{{Text: "  "}}))
}

func TestRead_RejectsNonSRT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.vtt")
	require.NoError(t, os.WriteFile(path, []byte("WEBVTT\n"), 0o644))

	_, err := NewReader(path).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SRT")
}

func TestRead_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "absent.srt")).Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.srt")
	content := "1\r\n00:00:01,000 --> 00:00:02,500\r\nHello\r\nthere\r\n\r\n2\r\n00:01:03,040 --> 00:01:04,000\r\n[MUSIC]\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	file, err := NewReader(path).Read()
	require.NoError(t, err)
	require.Len(t, file.Lines, 2)
	assert.Equal(t, Line{Index: 1, StartTime: time.Second, EndTime: 2500 * time.Millisecond, Text: "Hello\nthere"}, file.Lines[0])
	assert.Equal(t, time.Minute+3*time.Second+40*time.Millisecond, file.Lines[1].StartTime)
	assert.Equal(t, "[MUSIC]", file.Lines[1].Text)
	assert.Equal(t, path, file.Path)
}

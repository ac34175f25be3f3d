package subtitle

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// SRT time format: 00:02:16,612 --> 00:02:19,376
var srtTimeRe = regexp.MustCompile(`^(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2,}):(\d{2}):(\d{2})[,.](\d{3})(?:\s.*)?$`)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DefaultReader is the default subtitle file reader
type DefaultReader struct {
	path string
}

// NewReader creates a new subtitle file reader
func NewReader(
	path string,
) Reader {
	return &DefaultReader{
		path: path,
	}
}

// Read reads and strictly parses the subtitle file. A malformed block fails the
// whole read with a *ParseError pointing at the offending line.
func (r *DefaultReader) Read() (*File, error) {
	if !strings.HasSuffix(strings.ToLower(r.path), ".srt") {
		return nil, fmt.Errorf("only SRT format subtitle files are supported: %s", r.path)
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil, fmt.Errorf("subtitle file does not exist: %s", r.path)
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subtitle file: %w", err)
	}

	return ReadSRTBytes(data, r.path)
}

// ReadSRTBytes strictly parses SRT content. path is only used for error messages
// and the returned File.
func ReadSRTBytes(data []byte, path string) (*File, error) {
	lines, _, err := scanBlocks(data, path, true)
	if err != nil {
		return nil, err
	}

	return &File{
		Lines:    lines,
		Language: detectLanguage(lines),
		Format:   "SRT",
		Path:     path,
	}, nil
}

// ReadLenient parses the longest well-formed prefix of data. Only blocks
// terminated by a blank line count; parsing stops at the first malformed or
// unterminated block. validBytes is the length of the accepted prefix.
func ReadLenient(data []byte) (lines []Line, validBytes int, err error) {
	lines, validBytes, err = scanBlocks(data, "", false)
	return lines, validBytes, err
}

type scanState int

const (
	stateIndex scanState = iota
	stateTime
	stateText
)

// scanBlocks walks data block by block. In strict mode any malformed block is
// an error and a final block without a trailing blank line is accepted. In
// lenient mode the scan stops at the first problem, returns the blocks read so
// far and reports the problem as err without discarding them.
func scanBlocks(data []byte, path string, strict bool) ([]Line, int, error) {
	offset := 0
	if bytes.HasPrefix(data, utf8BOM) {
		offset = len(utf8BOM)
	}

	rows := bytes.Split(data[offset:], []byte("\n"))
	if len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		// remainder after the final newline is not a line
		rows = rows[:len(rows)-1]
	}

	var (
		lines     []Line
		current   Line
		textLines []string
		seen      = make(map[int]struct{})
		state     = stateIndex
		valid     = offset
		lineNo    = 0
	)

	fail := func(reason string, args ...any) ([]Line, int, error) {
		perr := &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf(reason, args...)}
		if strict {
			return nil, 0, perr
		}
		return lines, valid, perr
	}

	for _, raw := range rows {
		lineNo++
		offset += len(raw) + 1
		row := strings.TrimSpace(strings.TrimSuffix(string(raw), "\r"))

		switch state {
		case stateIndex:
			if row == "" {
				continue
			}
			index, err := strconv.Atoi(row)
			if err != nil {
				return fail("invalid index line %q", row)
			}
			if index <= 0 {
				return fail("index must be positive, got %d", index)
			}
			if _, dup := seen[index]; dup {
				return fail("duplicate index %d", index)
			}
			current = Line{Index: index}
			state = stateTime

		case stateTime:
			if row == "" {
				return fail("missing timestamp line for entry %d", current.Index)
			}
			startTime, endTime, err := parseSRTTime(row)
			if err != nil {
				return fail("%v", err)
			}
			if startTime > endTime {
				return fail("start time %s is after end time %s", FormatTimestamp(startTime), FormatTimestamp(endTime))
			}
			current.StartTime = startTime
			current.EndTime = endTime
			textLines = textLines[:0]
			state = stateText

		case stateText:
			if row == "" {
				// subtitle text ends
				current.Text = strings.Join(textLines, "\n")
				lines = append(lines, current)
				seen[current.Index] = struct{}{}
				valid = min(offset, len(data))
				state = stateIndex
				continue
			}
			textLines = append(textLines, row)
		}
	}

	switch state {
	case stateTime:
		return fail("truncated entry %d: missing timestamp line", current.Index)
	case stateText:
		if !strict {
			return lines, valid, &ParseError{Path: path, Line: lineNo, Reason: fmt.Sprintf("unterminated entry %d", current.Index)}
		}
		// handle last subtitle group
		current.Text = strings.Join(textLines, "\n")
		lines = append(lines, current)
		valid = len(data)
	}

	return lines, valid, nil
}

// parseSRTTime parses SRT time format
func parseSRTTime(timeString string) (time.Duration, time.Duration, error) {
	matches := srtTimeRe.FindStringSubmatch(timeString)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("invalid time format: %s", timeString)
	}

	parseTime := func(hours, minutes, seconds, milliseconds string) (time.Duration, error) {
		h, _ := strconv.Atoi(hours)
		m, _ := strconv.Atoi(minutes)
		s, _ := strconv.Atoi(seconds)
		ms, _ := strconv.Atoi(milliseconds)
		if m > 59 || s > 59 {
			return 0, fmt.Errorf("invalid time value: %s:%s:%s,%s", hours, minutes, seconds, milliseconds)
		}

		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(s)*time.Second +
			time.Duration(ms)*time.Millisecond, nil
	}

	startTime, err := parseTime(matches[1], matches[2], matches[3], matches[4])
	if err != nil {
		return 0, 0, err
	}

	endTime, err := parseTime(matches[5], matches[6], matches[7], matches[8])
	if err != nil {
		return 0, 0, err
	}

	return startTime, endTime, nil
}

// detectLanguage simple language detection based on common characters
func detectLanguage(lines []Line) language.Tag {
	if len(lines) == 0 {
		return language.Und
	}

	langMap := make(map[string]int)

	for _, line := range lines {
		if strings.TrimSpace(line.Text) == "" {
			continue
		}
		lang := whatlanggo.DetectLang(line.Text).Iso6391()
		if lang == "" {
			continue
		}
		langMap[lang]++
	}

	// Get top language
	var topLang string
	var topCount int
	for lang, count := range langMap {
		if count > topCount || (count == topCount && lang < topLang) {
			topLang = lang
			topCount = count
		}
	}
	if topLang == "" {
		return language.Und
	}

	return language.All.Make(topLang)
}

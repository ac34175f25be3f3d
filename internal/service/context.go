package service

import "github.com/MimeLyc/srt-line-translator/internal/subtitle"

// ContextWindow returns the original text of the entries before and after
// source[i]. Both are empty at the edges of the file and for an index out of range.
func ContextWindow(source []subtitle.Line, i int) (above, below string) {
	if i < 0 || i >= len(source) {
		return "", ""
	}
	if i > 0 {
		above = source[i-1].Text
	}
	if i+1 < len(source) {
		below = source[i+1].Text
	}
	return above, below
}

package subtitle

import (
	"fmt"
	"strings"
)

// Split divides a bilingual file into two single-language files. Only entries
// holding exactly two text lines are kept; line one goes to first, line two to
// second. Index and timing are copied unchanged.
func Split(f *File) (first *File, second *File) {
	first = &File{Format: "SRT"}
	second = &File{Format: "SRT"}
	if f == nil {
		return first, second
	}

	for _, line := range f.Lines {
		parts := strings.Split(line.Text, "\n")
		if len(parts) != 2 {
			continue
		}
		first.Lines = append(first.Lines, line.WithText(parts[0]))
		second.Lines = append(second.Lines, line.WithText(parts[1]))
	}

	first.Language = detectLanguage(first.Lines)
	second.Language = detectLanguage(second.Lines)
	return first, second
}

// SplitPaths returns the two output paths derived from dest.
func SplitPaths(dest string) (string, string) {
	return fmt.Sprintf("%s_lang1.srt", dest), fmt.Sprintf("%s_lang2.srt", dest)
}

package translator

import (
	"regexp"
	"strings"

	"github.com/MimeLyc/srt-line-translator/internal/subtitle"
)

var (
	// a line made only of a bracketed cue or music symbols
	markerLineRe = regexp.MustCompile(`^(\[[^\]]*\]|[♪♫#*\s]+)$`)
	// a parenthesised cue written in capitals, e.g. (DOOR SLAMS)
	capsCueRe = regexp.MustCompile(`^\([\p{Lu}\p{N}\s'&-]+\)$`)
)

// lowercase parenthesised lines are speech unless they name one of these
var soundCues = map[string]bool{
	"applause":      true,
	"cheering":      true,
	"chuckles":      true,
	"coughs":        true,
	"crying":        true,
	"door closes":   true,
	"door opens":    true,
	"door slams":    true,
	"explosion":     true,
	"footsteps":     true,
	"gasps":         true,
	"gunshot":       true,
	"gunshots":      true,
	"indistinct":    true,
	"knocking":      true,
	"laughing":      true,
	"laughs":        true,
	"laughter":      true,
	"music":         true,
	"music playing": true,
	"phone ringing": true,
	"screams":       true,
	"sighs":         true,
	"silence":       true,
	"sniffles":      true,
	"sobbing":       true,
	"whispering":    true,
}

// ShouldPassThrough reports whether text has nothing to translate: it is blank
// or every line is a non-text marker such as [MUSIC], (APPLAUSE), (sighs) or ♪.
// Other parenthesised lines are treated as speech.
func ShouldPassThrough(text string) bool {
	text = subtitle.CleanText(text)
	if text == "" {
		return true
	}
	for _, line := range strings.Split(text, "\n") {
		if !isMarkerLine(strings.TrimSpace(line)) {
			return false
		}
	}
	return true
}

func isMarkerLine(line string) bool {
	if markerLineRe.MatchString(line) || capsCueRe.MatchString(line) {
		return true
	}
	if !strings.HasPrefix(line, "(") || !strings.HasSuffix(line, ")") {
		return false
	}
	cue := strings.ToLower(strings.TrimSpace(line[1 : len(line)-1]))
	return soundCues[cue]
}

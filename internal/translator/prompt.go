package translator

import (
	"bytes"
	"encoding/json"
	"strings"
)

// userPayload is the structured form of a request sent to chat models. The
// field names match the variables of the completion app.
type userPayload struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
	Above string `json:"above"`
	Below string `json:"below"`
}

func inputsOf(req Request) map[string]string {
	return map[string]string{
		"query": req.Text,
		"lang":  req.TargetLang,
		"above": req.Above,
		"below": req.Below,
	}
}

// buildUserMessage encodes the request as a single JSON object
func buildUserMessage(req Request) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(userPayload{
		Query: req.Text,
		Lang:  req.TargetLang,
		Above: req.Above,
		Below: req.Below,
	}); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// buildSystemPrompt builds the instructions that accompany every request
func buildSystemPrompt(sourceLanguage, targetLanguage string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a professional subtitle translator. Translate the subtitle line in the \"query\" field into " + targetLanguage + ".")
	if sourceLanguage != "" {
		prompt.WriteString(" The subtitles are in " + sourceLanguage + ".")
	}
	prompt.WriteString("\n\n")

	prompt.WriteString("=== INPUT ===\n")
	prompt.WriteString("You receive one JSON object with the fields:\n")
	prompt.WriteString("- query: the subtitle line to translate\n")
	prompt.WriteString("- lang: the target language\n")
	prompt.WriteString("- above: the previous subtitle line, untranslated (may be empty)\n")
	prompt.WriteString("- below: the next subtitle line, untranslated (may be empty)\n")
	prompt.WriteString("Use above and below only to resolve ambiguity. Do NOT translate or output them.\n")

	prompt.WriteString("\n=== RULES ===\n")
	prompt.WriteString("1. Preserve non-text markers exactly as written, e.g. [MUSIC], (applause), ♪, <i>...</i>\n")
	prompt.WriteString("2. Keep the line count of query; separate lines with a newline\n")
	prompt.WriteString("3. Keep names, numbers and punctuation style consistent with the context\n")
	prompt.WriteString("4. If query has nothing to translate, return it unchanged\n")

	prompt.WriteString("\n=== OUTPUT FORMAT ===\n")
	prompt.WriteString("Return ONLY the translated text of query.\n")
	prompt.WriteString("Do not include quotes, JSON, explanations, notes, or additional text.\n")

	return prompt.String()
}

// cleanModelOutput strips a markdown code fence the model may wrap around the answer
func cleanModelOutput(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") || !strings.HasSuffix(content, "```") || len(content) < 6 {
		return content
	}
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
	if nl := strings.Index(content, "\n"); nl >= 0 && !strings.Contains(content[:nl], " ") {
		// drop a language tag such as ```text
		content = content[nl+1:]
	}
	return strings.TrimSpace(content)
}

package ai

import (
	"regexp"
	"strings"
)

// Models wrap code in fences or prepend prose; try the most specific
// shape first and fall back to the raw response.
var htmlPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```html\\s*\\n(.*?)\\n```"),
	regexp.MustCompile("(?is)```\\s*\\n(<!DOCTYPE html.*?</html>)\\s*\\n```"),
	regexp.MustCompile(`(?is)(<!DOCTYPE html.*</html>)`),
}

// ExtractHTML pulls the HTML document out of a model response.
func ExtractHTML(response string) string {
	for _, pat := range htmlPatterns {
		if m := pat.FindStringSubmatch(response); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(response)
}

// ExtractExplanation returns any prose the model emitted after the HTML
// document, for use as the assistant's chat reply.
func ExtractExplanation(response string) string {
	idx := strings.LastIndex(strings.ToLower(response), "</html>")
	if idx < 0 {
		return ""
	}
	rest := response[idx+len("</html>"):]
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "```"))
	return strings.TrimSpace(rest)
}

// Package narrative turns free-form model output into titled report sections.
package narrative

import (
	"regexp"
	"strings"
)

var headingMarker = regexp.MustCompile(`^#+\s*`)

// Clean strips bold/underline emphasis markers and leading heading markers
// from every line, then trims each line and the whole text.
// Clean(Clean(x)) == Clean(x) for any x.
func Clean(text string) string {
	// Removing a marker can splice a new one together ("*__*" -> "**"),
	// so passes repeat until nothing changes. Each pass only ever shrinks the text.
	for {
		next := cleanPass(text)
		if next == text {
			return next
		}
		text = next
	}
}

func cleanPass(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "__", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = headingMarker.ReplaceAllString(line, "")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

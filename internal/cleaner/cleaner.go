package cleaner

import (
	"regexp"
	"strings"
)

var (
	whitespace   = regexp.MustCompile(`\s+`)
	bulletMarker = regexp.MustCompile(`^[•\-\*]\s*`)
	jsonObject   = regexp.MustCompile(`\{[\s\S]*\}`)
)

type Cleaner struct{}

func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// CleanText collapses every whitespace run, newlines included, to a single
// space and trims the ends.
func (c *Cleaner) CleanText(text string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

func (c *Cleaner) CleanLlmResponse(response string) string {
	if !strings.Contains(response, "```") {
		return strings.TrimSpace(response)
	}

	start := -1
	if strings.Contains(response, "```json") {
		start = strings.Index(response, "```json") + 7
	} else if strings.Contains(response, "```yaml") {
		start = strings.Index(response, "```yaml") + 7
	} else {
		// Handle generic code blocks
		start = strings.Index(response, "```") + 3
	}

	end := strings.LastIndex(response, "```")

	if start != -1 && end != -1 && end > start {
		return strings.TrimSpace(response[start:end])
	}

	return strings.TrimSpace(response)
}

// ParseBullets turns a newline-delimited model response into list items.
// Blank lines are dropped and one leading "•", "-" or "*" marker is removed.
func (c *Cleaner) ParseBullets(response string) []string {
	var bullets []string
	for _, line := range strings.Split(c.CleanLlmResponse(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = bulletMarker.ReplaceAllString(line, "")
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
	}
	return bullets
}

// ExtractJSONObject returns the span from the first "{" to the last "}".
func (c *Cleaner) ExtractJSONObject(response string) (string, bool) {
	match := jsonObject.FindString(response)
	return match, match != ""
}

package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBullets(t *testing.T) {
	c := NewCleaner()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"markers", "• Wrote scalable Go services\n- Led a team\n* Shipped", []string{"Wrote scalable Go services", "Led a team", "Shipped"}},
		{"blank lines", "\n\nfirst\n   \nsecond\n", []string{"first", "second"}},
		{"one marker only", "-- dashes", []string{"- dashes"}},
		{"fenced", "```\n- a\n- b\n```", []string{"a", "b"}},
		{"empty", "   ", nil},
		{"marker only line", "•\nreal", []string{"real"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.ParseBullets(tt.in))
		})
	}
}

func TestCleanLlmResponse(t *testing.T) {
	c := NewCleaner()
	assert.Equal(t, `{"a":1}`, c.CleanLlmResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "key: v", c.CleanLlmResponse("```yaml\nkey: v\n```"))
	assert.Equal(t, "plain", c.CleanLlmResponse("  plain \n"))
}

func TestExtractJSONObject(t *testing.T) {
	c := NewCleaner()

	got, ok := c.ExtractJSONObject("Sure! Here you go:\n{\"languages\": [\"Go\"]}\nHope it helps {ok}")
	assert.True(t, ok)
	assert.Equal(t, "{\"languages\": [\"Go\"]}\nHope it helps {ok}", got)

	_, ok = c.ExtractJSONObject("no json here")
	assert.False(t, ok)
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Senior Go engineer needed", NewCleaner().CleanText("\n  Senior\tGo \n\n engineer   needed \n"))
}

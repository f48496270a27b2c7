package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

func sample(t *testing.T) types.ResumeData {
	t.Helper()
	var r types.ResumeData
	require.NoError(t, json.Unmarshal([]byte(`{
		"contact": {"name": "Ada", "location": "", "email": "ada@example.com", "phone": "", "linkedin": "", "github": ""},
		"summary": "Engineer: compilers",
		"experience": [{"title": "Eng", "company": "X", "location": "", "startDate": "2020", "endDate": "", "responsibilities": ["Wrote code"]}],
		"education": [],
		"skills": {"languages": ["Go"], "frameworks": [], "tools": [], "concepts": []},
		"projects": [],
		"zeta": ["z"],
		"alpha": ["yes"]
	}`), &r))
	return r
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, " yml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderJSON(t *testing.T) {
	out, err := Render(sample(t), FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  \"summary\": \"Engineer: compilers\"")

	var back types.ResumeData
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, sample(t), back)
}

func TestRenderYAMLKeepsOrderAndTypes(t *testing.T) {
	out, err := Render(sample(t), FormatYAML)
	require.NoError(t, err)
	text := string(out)

	assert.NotContains(t, text, "{")
	assert.Less(t, strings.Index(text, "contact:"), strings.Index(text, "summary:"))
	assert.Less(t, strings.Index(text, "zeta:"), strings.Index(text, "alpha:"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Equal(t, "2020", decoded["experience"].([]any)[0].(map[string]any)["startDate"])
	assert.Equal(t, []any{"yes"}, decoded["alpha"])
	assert.Equal(t, "Engineer: compilers", decoded["summary"])
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := Render(sample(t), Format("docx"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "application/yaml", FormatYAML.ContentType())
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "tailored-resume.yaml", FormatYAML.Filename())
}

// Package export renders a resume as a downloadable document.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-shah256/resume-tailor/pkg/types"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts "json", "yaml" and "yml" in any case. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Filename is the attachment name used for downloads.
func (f Format) Filename() string {
	return "tailored-resume." + string(f)
}

// Render encodes resume in format. Keys keep the order of the resume's
// JSON form in both formats.
func Render(resume types.ResumeData, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(resume, "", "  ")
	case FormatYAML:
		return renderYAML(resume)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func renderYAML(resume types.ResumeData) ([]byte, error) {
	data, err := json.Marshal(resume)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resume: %w", err)
	}

	// JSON is YAML, so decoding into a node keeps key order.
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert resume to YAML: %w", err)
	}
	blockStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("failed to convert resume to YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	slog.Debug("Rendered YAML export", "component", "export", "bytes", buf.Len())
	return buf.Bytes(), nil
}

// blockStyle drops the flow and quoting styles inherited from JSON. The
// encoder still quotes strings that would otherwise read as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

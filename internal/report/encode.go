package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml" case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Marshal encodes r. YAML is derived from the JSON form so both encodings
// share field names and order.
func Marshal(r *Report, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	switch format {
	case FormatJSON:
		return append(data, '\n'), nil
	case FormatYAML:
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, fmt.Errorf("convert report to yaml: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// Write encodes r to w.
func Write(w io.Writer, r *Report, format Format) error {
	data, err := Marshal(r, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// DumpToTmpFile writes r as indented JSON to a new temporary file and returns its name.
func (r *Report) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "report_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// Package intake reads the record document produced by the extraction step.
//
// A document is YAML (or JSON) with a "cv" and a "pf" list. Each entry names
// an employer and either start/end dates or a free-form period:
//
//	as_of: 2024-12
//	cv:
//	  - employer: Acme Pvt Ltd
//	    period: Jan 2019 - Jun 2021
//	    job_title: Backend Engineer
//	pf:
//	  - employer: ACME LIMITED
//	    start: 02/2019
//	    end: 06/2021
//	    establishment_id: MHBAN0012345000
//
// Entries may also be listed under "records" with an explicit source tag.
// Keys other than the record fields are kept as metadata.
package intake

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/pf-reconciler/internal/employment"
)

// Document is a parsed record document. A side absent from the document
// stays nil so the engine can reject it.
type Document struct {
	CV   []employment.Record
	PF   []employment.Record
	AsOf employment.Date
}

type rawRecord struct {
	ID       string         `mapstructure:"id"`
	Source   string         `mapstructure:"source"`
	Employer string         `mapstructure:"employer"`
	Company  string         `mapstructure:"company"`
	Start    string         `mapstructure:"start"`
	End      string         `mapstructure:"end"`
	Period   string         `mapstructure:"period"`
	Metadata map[string]any `mapstructure:"metadata"`
	Extra    map[string]any `mapstructure:",remain"`
}

// Load reads and parses the document at path. "-" reads standard input.
func Load(path string) (*Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = readAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records document: %w", err)
	}

	return Parse(data)
}

// Parse decodes a record document.
func Parse(data []byte) (*Document, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse records document: %w", err)
	}
	if root == nil {
		return nil, employment.NewInputError("document", "document is empty")
	}

	doc := &Document{}

	if raw, ok := root["as_of"]; ok && raw != nil {
		doc.AsOf = employment.ParseDate(scalar(raw))
		if !doc.AsOf.Known() {
			return nil, employment.NewInputError("as_of", fmt.Sprintf("cannot read date %v", raw))
		}
	}

	sections := []struct {
		key  string
		side employment.Source
		dst  *[]employment.Record
	}{
		{"cv", employment.SourceCV, &doc.CV},
		{"pf", employment.SourcePF, &doc.PF},
	}
	for _, section := range sections {
		raw, ok := root[section.key]
		if !ok {
			continue
		}
		records, err := decodeSection(section.key, section.side, raw)
		if err != nil {
			return nil, err
		}
		*section.dst = records
	}

	if raw, ok := root["records"]; ok {
		records, err := decodeSection("records", "", raw)
		if err != nil {
			return nil, err
		}
		for i, rec := range records {
			switch rec.Source {
			case employment.SourceCV:
				doc.CV = append(nonNil(doc.CV), rec)
			case employment.SourcePF:
				doc.PF = append(nonNil(doc.PF), rec)
			default:
				return nil, employment.NewInputError(fmt.Sprintf("records[%d].source", i), "record is missing its source tag")
			}
		}
	}

	return doc, nil
}

func decodeSection(key string, side employment.Source, raw any) ([]employment.Record, error) {
	if raw == nil {
		return []employment.Record{}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, employment.NewInputError(key, fmt.Sprintf("expected a list, got %T", raw))
	}

	records := make([]employment.Record, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, employment.NewInputError(fmt.Sprintf("%s[%d]", key, i), fmt.Sprintf("expected a mapping, got %T", item))
		}

		rec, err := decodeRecord(fields, side)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func decodeRecord(fields map[string]any, side employment.Source) (employment.Record, error) {
	var raw rawRecord
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeToString,
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return employment.Record{}, err
	}
	if err := decoder.Decode(fields); err != nil {
		return employment.Record{}, employment.NewInputError("record", err.Error())
	}

	rec := employment.Record{
		ID:          strings.TrimSpace(raw.ID),
		Source:      side,
		EmployerRaw: strings.TrimSpace(raw.Employer),
		Metadata:    metadata(raw),
	}
	if rec.EmployerRaw == "" {
		rec.EmployerRaw = strings.TrimSpace(raw.Company)
	}
	// An explicit tag wins so that misfiled records reach the engine's checks.
	if strings.TrimSpace(raw.Source) != "" {
		rec.Source = employment.ParseSource(raw.Source)
	}

	if raw.Period != "" {
		rec.Start, rec.End = employment.ParseRange(raw.Period)
	}
	if raw.Start != "" {
		rec.Start = employment.ParseDate(raw.Start)
	}
	if raw.End != "" {
		rec.End = employment.ParseEnd(raw.End)
	}

	return rec, nil
}

func metadata(raw rawRecord) map[string]any {
	if len(raw.Metadata) == 0 && len(raw.Extra) == 0 {
		return nil
	}
	out := make(map[string]any, len(raw.Metadata)+len(raw.Extra))
	for k, v := range raw.Extra {
		out[k] = v
	}
	for k, v := range raw.Metadata {
		out[k] = v
	}
	return out
}

// timeToString renders YAML timestamps back into the dates they were written as.
func timeToString(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if t, ok := data.(time.Time); ok {
		return t.Format(time.DateOnly), nil
	}
	return data, nil
}

func scalar(v any) string {
	switch value := v.(type) {
	case time.Time:
		return value.Format(time.DateOnly)
	default:
		return fmt.Sprint(value)
	}
}

func nonNil(records []employment.Record) []employment.Record {
	if records == nil {
		return []employment.Record{}
	}
	return records
}

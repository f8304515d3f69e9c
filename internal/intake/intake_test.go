package intake

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spigell/pf-reconciler/internal/employment"
)

const document = `
as_of: 2024-12
cv:
  - employer: Acme Pvt Ltd
    period: Jan 2019 - Jun 2021
    job_title: Backend Engineer
  - company: Initech
    start: "2015"
    end: Present
pf:
  - id: pf-1
    employer: ACME LIMITED
    start: 02/2019
    end: 06/2021
    establishment_id: MHBAN0012345000
    metadata:
      employee_contribution: "1,20,000"
`

func TestParseDocument(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte(document))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.AsOf != employment.MonthDate(2024, time.December) {
		t.Fatalf("unexpected as_of %s", doc.AsOf)
	}

	wantCV := []employment.Record{
		{
			Source:      employment.SourceCV,
			EmployerRaw: "Acme Pvt Ltd",
			Start:       employment.MonthDate(2019, time.January),
			End:         employment.EndAt(employment.MonthDate(2021, time.June)),
			Metadata:    map[string]any{"job_title": "Backend Engineer"},
		},
		{
			Source:      employment.SourceCV,
			EmployerRaw: "Initech",
			Start:       employment.YearDate(2015),
			End:         employment.Ongoing(),
		},
	}
	if diff := cmp.Diff(wantCV, doc.CV); diff != "" {
		t.Fatalf("cv mismatch (-want +got):\n%s", diff)
	}

	if len(doc.PF) != 1 {
		t.Fatalf("expected one pf record, got %d", len(doc.PF))
	}
	pf := doc.PF[0]
	if pf.ID != "pf-1" || pf.Source != employment.SourcePF {
		t.Fatalf("unexpected pf record: %+v", pf)
	}
	if pf.Start != employment.MonthDate(2019, time.February) || pf.End != employment.EndAt(employment.MonthDate(2021, time.June)) {
		t.Fatalf("unexpected pf dates: %s - %s", pf.Start, pf.End)
	}

	details, err := employment.DecodePFDetails(pf.Metadata)
	if err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if details.EstablishmentID != "MHBAN0012345000" || details.EmployeeContribution != 120000 {
		t.Fatalf("unexpected pf details: %+v", details)
	}
}

func TestParseSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		cvNil   bool
		pfNil   bool
		cvCount int
		pfCount int
	}{
		{name: "missing pf section", input: "cv:\n  - employer: Acme\n    start: 2019\n", pfNil: true, cvCount: 1},
		{name: "empty pf section", input: "cv: []\npf:\n", cvCount: 0, pfCount: 0},
		{
			name:    "flat records list",
			input:   "records:\n  - source: cv\n    employer: Acme\n  - source: EPF\n    employer: Acme Ltd\n",
			cvCount: 1,
			pfCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := Parse([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (doc.CV == nil) != tt.cvNil || (doc.PF == nil) != tt.pfNil {
				t.Fatalf("unexpected nil sections: cv=%v pf=%v", doc.CV == nil, doc.PF == nil)
			}
			if len(doc.CV) != tt.cvCount || len(doc.PF) != tt.pfCount {
				t.Fatalf("unexpected counts: cv=%d pf=%d", len(doc.CV), len(doc.PF))
			}
		})
	}
}

func TestParseKeepsExplicitSource(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte("cv:\n  - employer: Acme\n    source: PF\npf: []\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.CV[0].Source != employment.SourcePF {
		t.Fatalf("explicit source must be kept for the engine to reject, got %q", doc.CV[0].Source)
	}
}

func TestParseRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"empty":              "",
		"section not a list": "cv: acme\n",
		"entry not a map":    "cv:\n  - acme\n",
		"untagged record":    "records:\n  - employer: Acme\n",
		"unreadable as_of":   "as_of: someday\ncv: []\npf: []\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse([]byte(input)); !errors.Is(err, employment.ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "records.yaml")
	if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.CV) != 2 || len(doc.PF) != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist error, got %v", err)
	}
}

// Package narrative describes the optional prose step that explains a
// reconciliation report. The report stays the source of truth; a narrative
// never changes it.
package narrative

import (
	"context"
	"strings"

	"github.com/spigell/pf-reconciler/internal/report"
)

// Status is the verdict a narrator assigns to a report.
type Status string

const (
	StatusPass        Status = "PASS"
	StatusPartialPass Status = "PARTIAL_PASS"
	StatusFail        Status = "FAIL"
)

// Narrative is the prose explanation of a report.
type Narrative struct {
	ReportID string `json:"report_id"`
	Summary  string `json:"summary"`
	Status   Status `json:"status"`
	Analysis string `json:"analysis"`
	// Raw is the unparsed narrator response.
	Raw string `json:"-"`
}

// Narrator explains reports.
type Narrator interface {
	Narrate(ctx context.Context, r *report.Report) (*Narrative, error)
}

// ParseStatus reads a verdict leniently: case, spaces and dashes are ignored.
func ParseStatus(s string) (Status, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	switch Status(normalized) {
	case StatusPass, StatusPartialPass, StatusFail:
		return Status(normalized), true
	case "PARTIAL", "PARTIALLY_PASSED":
		return StatusPartialPass, true
	case "PASSED":
		return StatusPass, true
	case "FAILED":
		return StatusFail, true
	default:
		return "", false
	}
}

// StatusFor maps the report's verification status to a verdict. It is used
// when a narrator answers without a readable one.
func StatusFor(s report.Status) Status {
	switch s {
	case report.StatusVerified:
		return StatusPass
	case report.StatusPartiallyVerified:
		return StatusPartialPass
	default:
		return StatusFail
	}
}

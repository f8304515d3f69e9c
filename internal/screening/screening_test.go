package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/pf-reconciler/internal/employment"
	"github.com/spigell/pf-reconciler/internal/normalize"
)

func cvRecord(employer string, start, end employment.Date) employment.Record {
	return employment.Record{
		Source:      employment.SourceCV,
		EmployerRaw: employer,
		Start:       start,
		End:         employment.EndAt(end),
	}
}

func TestRunSetsAsideInvalidRecords(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	deps := Deps{Logger: zap.New(core), Normalize: normalize.Name}

	records := []employment.Record{
		cvRecord("Acme", employment.MonthDate(2019, time.January), employment.MonthDate(2020, time.January)),
		cvRecord("Globex", employment.MonthDate(2021, time.January), employment.MonthDate(2019, time.January)),
		cvRecord("(n/a)", employment.YearDate(2015), employment.YearDate(2016)),
	}

	batch, err := Run(context.Background(), deps, Default(), NewBatch(employment.SourceCV, records))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if batch.Len() != 2 {
		t.Fatalf("expected 2 records left, got %d", batch.Len())
	}
	if batch.Entries[0].Index != 0 || batch.Entries[1].Index != 2 {
		t.Fatalf("expected input order to be kept: %+v", batch.Entries)
	}

	if len(batch.Anomalies) != 1 || batch.Anomalies[0].Index != 1 {
		t.Fatalf("unexpected anomalies: %+v", batch.Anomalies)
	}
	if !errors.Is(batch.Anomalies[0], employment.ErrAnomaly) {
		t.Fatalf("expected anomaly to match ErrAnomaly")
	}

	if got := observed.FilterMessage("records without a usable employer name").Len(); got != 1 {
		t.Fatalf("expected unmatchable employer log, got %d", got)
	}
	if batch.Entries[0].Unnamed || !batch.Entries[1].Unnamed {
		t.Fatalf("expected only the nameless record to be unnamed: %+v", batch.Entries)
	}
	if records[2].EmployerRaw != "(n/a)" {
		t.Fatalf("input records must not change")
	}
	invalid := observed.FilterMessage("record violates start <= end").All()
	if len(invalid) != 1 || invalid[0].ContextMap()["record"] != "CV Globex (2021-01 - 2019-01)" {
		t.Fatalf("expected the invalid record to be logged by label, got %v", invalid)
	}
	if got := observed.FilterMessage("screening step").Len(); got != 3 {
		t.Fatalf("expected 3 step logs, got %d", got)
	}
}

func TestRunRejectsMissingSourceTag(t *testing.T) {
	t.Parallel()

	records := []employment.Record{
		cvRecord("Acme", employment.YearDate(2019), employment.YearDate(2020)),
		{EmployerRaw: "Globex", Start: employment.YearDate(2019)},
	}

	_, err := Run(context.Background(), Deps{}, Default(), NewBatch(employment.SourceCV, records))
	if !errors.Is(err, employment.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}

	var inputErr *employment.InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "cv[1].source" {
		t.Fatalf("unexpected input error: %v", err)
	}
}

func TestRunRejectsWrongSide(t *testing.T) {
	t.Parallel()

	records := []employment.Record{cvRecord("Acme", employment.YearDate(2019), employment.YearDate(2020))}

	_, err := Run(context.Background(), Deps{}, Default(), NewBatch(employment.SourcePF, records))
	if !errors.Is(err, employment.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestDisableByName(t *testing.T) {
	t.Parallel()

	steps := Default()
	if err := DisableByName(steps, "employer_identity", "disabled by test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DisableByName(steps, "date_invariant", "not allowed"); err == nil {
		t.Fatalf("expected required step to refuse being disabled")
	}
	if err := DisableByName(steps, "no_such_step", "typo"); err == nil {
		t.Fatalf("expected unknown step to be rejected")
	}

	statuses := Describe(steps)
	if len(statuses) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(statuses))
	}
	for _, status := range statuses {
		switch status.Name {
		case "employer_identity":
			if status.Enabled || status.Required || status.Reason != "disabled by test" {
				t.Fatalf("unexpected status: %+v", status)
			}
		default:
			if !status.Enabled || !status.Required {
				t.Fatalf("step %s must stay enabled and required: %+v", status.Name, status)
			}
		}
	}
}

func TestCheckDisable(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"employer_identity": true,
		"source_tag":        false,
		"date_invariant":    false,
		"":                  false,
		"Employer_Identity": false,
	}
	for name, ok := range tests {
		if err := CheckDisable(name); (err == nil) != ok {
			t.Fatalf("CheckDisable(%q) = %v, want ok=%v", name, err, ok)
		}
	}
}

func TestDisabledEmployerIdentityLeavesNamesUnmarked(t *testing.T) {
	t.Parallel()

	steps := Default()
	if err := DisableByName(steps, "employer_identity", "disabled by test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := []employment.Record{cvRecord("(n/a)", employment.YearDate(2015), employment.YearDate(2016))}
	batch, err := Run(context.Background(), Deps{Normalize: normalize.Name}, steps, NewBatch(employment.SourceCV, records))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Entries[0].Unnamed {
		t.Fatalf("expected no marking while the step is disabled")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Deps{}, Default(), NewBatch(employment.SourceCV, nil))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

package employment

import (
	"errors"
	"testing"
	"time"
)

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		record  Record
		invalid bool
	}{
		{
			name:   "ordered months",
			record: Record{Source: SourceCV, Start: MonthDate(2019, time.January), End: EndAt(MonthDate(2021, time.June))},
		},
		{
			name:    "start after end",
			record:  Record{Source: SourceCV, Start: MonthDate(2021, time.January), End: EndAt(MonthDate(2019, time.June))},
			invalid: true,
		},
		{
			name:   "same year at mixed precision",
			record: Record{Source: SourcePF, Start: MonthDate(2020, time.May), End: EndAt(YearDate(2020))},
		},
		{
			name:    "later year at mixed precision",
			record:  Record{Source: SourcePF, Start: DayDate(2021, time.May, 3), End: EndAt(YearDate(2020))},
			invalid: true,
		},
		{
			name:   "ongoing",
			record: Record{Source: SourceCV, Start: YearDate(2030), End: Ongoing()},
		},
		{
			name:   "unknown start",
			record: Record{Source: SourceCV, End: EndAt(YearDate(2010))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.record.Validate()
			if tt.invalid && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.invalid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDateBounds(t *testing.T) {
	t.Parallel()

	feb := MonthDate(2020, time.February)
	if got := feb.Last(); got != time.Date(2020, time.February, 29, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected last day of leap february: %v", got)
	}

	dec := MonthDate(2019, time.December)
	if got := dec.Last(); got != time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected last day of december: %v", got)
	}

	year := YearDate(2018)
	if year.First().Month() != time.January || year.Last().Day() != 31 {
		t.Fatalf("unexpected year bounds: %v - %v", year.First(), year.Last())
	}
}

func TestErrorsAreMatchable(t *testing.T) {
	t.Parallel()

	var err error = NewInputError("cv", "collection is required")
	if !errors.Is(err, ErrInput) {
		t.Fatalf("expected input error to match ErrInput")
	}

	err = &Anomaly{Index: 2, Record: Record{Source: SourceCV}, Reason: "start after end"}
	if !errors.Is(err, ErrAnomaly) {
		t.Fatalf("expected anomaly to match ErrAnomaly")
	}
	if errors.Is(err, ErrInput) {
		t.Fatalf("anomaly must not be an input error")
	}
}

func TestDecodePFDetails(t *testing.T) {
	t.Parallel()

	details, err := DecodePFDetails(map[string]any{
		"establishment_id":      "MH12345",
		"employee_contribution": "1,20,000",
		"employer_contribution": 36000,
		"pension":               "₹ 12,500.50",
		"status":                " Closed ",
		"ignored":               true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if details.EstablishmentID != "MH12345" {
		t.Fatalf("unexpected establishment id: %q", details.EstablishmentID)
	}
	if details.EmployeeContribution != 120000 {
		t.Fatalf("unexpected employee contribution: %v", details.EmployeeContribution)
	}
	if details.Total() != 120000+36000+12500.5 {
		t.Fatalf("unexpected total: %v", details.Total())
	}
	if details.Status != "Closed" {
		t.Fatalf("unexpected status: %q", details.Status)
	}

	if _, err := DecodePFDetails(map[string]any{"pension": "lots"}); err == nil {
		t.Fatalf("expected error for malformed amount")
	}
}

func TestDecodeCVDetailsPositionAlias(t *testing.T) {
	t.Parallel()

	details, err := DecodeCVDetails(map[string]any{"position": "QA Engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if details.Title != "QA Engineer" {
		t.Fatalf("unexpected title: %q", details.Title)
	}
}

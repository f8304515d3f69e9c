package employment

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input  string
		expect Date
	}{
		{input: "2019-01-15", expect: DayDate(2019, time.January, 15)},
		{input: "15-01-2019", expect: DayDate(2019, time.January, 15)},
		{input: "01/15/2019", expect: DayDate(2019, time.January, 15)},
		{input: "Mar 3, 2020", expect: DayDate(2020, time.March, 3)},
		{input: "2019-01", expect: MonthDate(2019, time.January)},
		{input: "03/2021", expect: MonthDate(2021, time.March)},
		{input: "3/2021", expect: MonthDate(2021, time.March)},
		{input: "03-2021", expect: MonthDate(2021, time.March)},
		{input: "Mar 2021", expect: MonthDate(2021, time.March)},
		{input: "MARCH 2021", expect: MonthDate(2021, time.March)},
		{input: "Mar-2021", expect: MonthDate(2021, time.March)},
		{input: "Sept 2021", expect: MonthDate(2021, time.September)},
		{input: " 2018 ", expect: YearDate(2018)},
		{input: "since FY 2017 onwards", expect: YearDate(2017)},
		{input: "", expect: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := ParseDate(tt.input); got != tt.expect {
				t.Fatalf("ParseDate(%q) = %v (%s), want %v (%s)", tt.input, got, got.Precision, tt.expect, tt.expect.Precision)
			}
		})
	}
}

func TestParseEnd(t *testing.T) {
	t.Parallel()

	if !ParseEnd("Present").Ongoing() {
		t.Fatalf("expected Present to be ongoing")
	}
	if !ParseEnd(" till date ").Ongoing() {
		t.Fatalf("expected till date to be ongoing")
	}

	end := ParseEnd("06/2021")
	if !end.Known() || end.Date != MonthDate(2021, time.June) {
		t.Fatalf("unexpected end: %+v", end)
	}

	if ParseEnd("???").Kind != EndUnknown {
		t.Fatalf("expected unknown end")
	}
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		start Date
		end   string
	}{
		{name: "years with present", input: "2019 - Present", start: YearDate(2019), end: "ongoing"},
		{name: "en dash months", input: "03/2021–05/2023", start: MonthDate(2021, time.March), end: "2023-05"},
		{name: "compact years", input: "2016-2017", start: YearDate(2016), end: "2017"},
		{name: "iso months", input: "2019-01 - 2021-06", start: MonthDate(2019, time.January), end: "2021-06"},
		{name: "to separator", input: "Jan 2018 to Dec 2019", start: MonthDate(2018, time.January), end: "2019-12"},
		{name: "single date", input: "2020-02", start: MonthDate(2020, time.February), end: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			start, end := ParseRange(tt.input)
			if start != tt.start {
				t.Fatalf("start = %v, want %v", start, tt.start)
			}
			if end.String() != tt.end {
				t.Fatalf("end = %s, want %s", end, tt.end)
			}
		})
	}
}

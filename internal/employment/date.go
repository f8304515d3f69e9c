package employment

import (
	"fmt"
	"time"
)

// Precision is the granularity a date was observed with.
type Precision int

const (
	PrecisionUnknown Precision = iota
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

func (p Precision) String() string {
	switch p {
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	default:
		return "unknown"
	}
}

// MarshalText renders the precision by name.
func (p Precision) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Date is a calendar date that may only be known to the month or the year.
// Fields finer than Precision are zero.
type Date struct {
	Year      int
	Month     time.Month
	Day       int
	Precision Precision
}

// Unknown is the zero Date.
var Unknown = Date{}

// DayDate returns a day-precision date.
func DayDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day, Precision: PrecisionDay}
}

// MonthDate returns a month-precision date.
func MonthDate(year int, month time.Month) Date {
	return Date{Year: year, Month: month, Precision: PrecisionMonth}
}

// YearDate returns a year-precision date.
func YearDate(year int) Date {
	return Date{Year: year, Precision: PrecisionYear}
}

// FromTime converts t to a day-precision date.
func FromTime(t time.Time) Date {
	return DayDate(t.Year(), t.Month(), t.Day())
}

func (d Date) Known() bool { return d.Precision != PrecisionUnknown }

// First returns the earliest day the date can denote.
func (d Date) First() time.Time {
	switch d.Precision {
	case PrecisionYear:
		return time.Date(d.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionMonth:
		return time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC)
	case PrecisionDay:
		return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}

// Last returns the latest day the date can denote.
func (d Date) Last() time.Time {
	switch d.Precision {
	case PrecisionYear:
		return time.Date(d.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	case PrecisionMonth:
		return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC)
	case PrecisionDay:
		return d.First()
	default:
		return time.Time{}
	}
}

// Truncate drops the fields finer than p. A coarser or equal date is returned unchanged.
func (d Date) Truncate(p Precision) Date {
	if p >= d.Precision {
		return d
	}
	switch p {
	case PrecisionYear:
		return YearDate(d.Year)
	case PrecisionMonth:
		return MonthDate(d.Year, d.Month)
	default:
		return Unknown
	}
}

// Compare orders two known dates at the coarser of their precisions.
// It returns -1, 0 or +1.
func Compare(a, b Date) int {
	p := min(a.Precision, b.Precision)
	a, b = a.Truncate(p), b.Truncate(p)

	switch {
	case a.Year != b.Year:
		return sign(a.Year - b.Year)
	case a.Month != b.Month:
		return sign(int(a.Month) - int(b.Month))
	default:
		return sign(a.Day - b.Day)
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

func (d Date) String() string {
	switch d.Precision {
	case PrecisionYear:
		return fmt.Sprintf("%04d", d.Year)
	case PrecisionMonth:
		return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
	case PrecisionDay:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
	default:
		return "unknown"
	}
}

// MarshalText renders the date at its own precision, e.g. "2019-01".
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// EndKind tells how an employment period ends.
type EndKind int

const (
	EndUnknown EndKind = iota
	EndOn
	EndOngoing
)

// End is the closing boundary of a period: a date, the ongoing sentinel or unknown.
type End struct {
	Kind EndKind
	Date Date
}

// EndAt returns a closed end. An unknown date yields an unknown end.
func EndAt(d Date) End {
	if !d.Known() {
		return End{}
	}
	return End{Kind: EndOn, Date: d}
}

// Ongoing returns the "still employed" end.
func Ongoing() End { return End{Kind: EndOngoing} }

func (e End) Known() bool   { return e.Kind == EndOn }
func (e End) Ongoing() bool { return e.Kind == EndOngoing }

func (e End) String() string {
	switch e.Kind {
	case EndOn:
		return e.Date.String()
	case EndOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// MarshalText renders the end as a date, "ongoing" or "unknown".
func (e End) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

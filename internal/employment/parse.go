package employment

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

type layout struct {
	format    string
	precision Precision
}

// Tried in order; the first layout that parses wins. Slash dates with a day
// are read month first, dash dates with the year last are read day first.
var layouts = []layout{
	{"2006-01-02", PrecisionDay},
	{"2006/01/02", PrecisionDay},
	{"02-01-2006", PrecisionDay},
	{"02.01.2006", PrecisionDay},
	{"01/02/2006", PrecisionDay},
	{"Jan 2, 2006", PrecisionDay},
	{"January 2, 2006", PrecisionDay},
	{"2 Jan 2006", PrecisionDay},
	{"2 January 2006", PrecisionDay},

	{"2006-01", PrecisionMonth},
	{"2006/01", PrecisionMonth},
	{"01/2006", PrecisionMonth},
	{"1/2006", PrecisionMonth},
	{"01-2006", PrecisionMonth},
	{"1-2006", PrecisionMonth},
	{"01.2006", PrecisionMonth},
	{"Jan 2006", PrecisionMonth},
	{"January 2006", PrecisionMonth},
	{"Jan/2006", PrecisionMonth},
	{"Jan-2006", PrecisionMonth},
	{"Jan, 2006", PrecisionMonth},
	{"January, 2006", PrecisionMonth},

	{"2006", PrecisionYear},
}

var ongoingWords = map[string]struct{}{
	"present":   {},
	"current":   {},
	"currently": {},
	"ongoing":   {},
	"now":       {},
	"till date": {},
	"to date":   {},
	"till now":  {},
	"today":     {},
	"active":    {},
}

var (
	yearRe       = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	spacesRe     = regexp.MustCompile(`\s+`)
	compactRange = regexp.MustCompile(`^(\d{4})\s*-\s*(\d{4}|[A-Za-z][A-Za-z ]*)$`)
)

func cleanDate(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".,;'\"")
	s = spacesRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "Sept ", "Sep ")
	s = strings.ReplaceAll(s, "sept ", "sep ")
	return strings.TrimSpace(s)
}

// ParseDate reads a partially known date. It never fails: input that cannot
// be read at all yields Unknown.
func ParseDate(s string) Date {
	s = cleanDate(s)
	if s == "" {
		return Unknown
	}

	for _, l := range layouts {
		t, err := time.Parse(l.format, s)
		if err != nil {
			continue
		}
		return FromTime(t).Truncate(l.precision)
	}

	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return FromTime(t)
	}

	if m := yearRe.FindString(s); m != "" {
		year, err := strconv.Atoi(m)
		if err == nil {
			return YearDate(year)
		}
	}

	return Unknown
}

// IsOngoing reports whether s is one of the "still employed" markers.
func IsOngoing(s string) bool {
	_, ok := ongoingWords[strings.ToLower(cleanDate(s))]
	return ok
}

// ParseEnd reads the end of a period, recognising the ongoing markers.
func ParseEnd(s string) End {
	if IsOngoing(s) {
		return Ongoing()
	}
	return EndAt(ParseDate(s))
}

// ParseRange splits strings such as "2019 - Present", "03/2021–05/2023" or
// "2016-2017" into a start date and an end.
func ParseRange(s string) (Date, End) {
	s = strings.NewReplacer("–", " - ", "—", " - ", "‒", " - ").Replace(s)
	s = spacesRe.ReplaceAllString(strings.TrimSpace(s), " ")

	for _, sep := range []string{" - ", " to ", " till ", " until "} {
		if idx := strings.Index(strings.ToLower(s), sep); idx != -1 {
			return ParseDate(s[:idx]), ParseEnd(s[idx+len(sep):])
		}
	}

	if m := compactRange.FindStringSubmatch(s); m != nil {
		return ParseDate(m[1]), ParseEnd(m[2])
	}

	return ParseDate(s), End{}
}

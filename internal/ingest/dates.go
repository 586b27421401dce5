package ingest

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

type dateLayout struct {
	layout string

	// dayField is the position of the day among the separator-delimited
	// fields of the text. A negative value makes the layout strict: a day
	// past the end of the month is rejected instead of clamped.
	dayField int

	// monthName layouts only accept the canonical "Jan" spelling.
	monthName bool
}

// dateLayouts is tried in order and the first match wins. Several layouts
// accept the same string ("03/01/2024" is valid as both dd/MM and MM/dd), so
// the order fixes which reading applies. Day-first beats month-first.
var dateLayouts = []dateLayout{
	{layout: "2006-01-02", dayField: -1},                   // yyyy-MM-dd
	{layout: "02-01-2006", dayField: 0},                    // dd-MM-yyyy
	{layout: "02/01/2006", dayField: 0},                    // dd/MM/yyyy
	{layout: "01/02/2006", dayField: 1},                    // MM/dd/yyyy
	{layout: "02 Jan 2006", dayField: 0, monthName: true},  // dd MMM yyyy
	{layout: "02-Jan-2006", dayField: 0, monthName: true},  // dd-MMM-yyyy
	{layout: "Jan 02, 2006", dayField: 1, monthName: true}, // MMM dd, yyyy
	{layout: "2-1-2006", dayField: 0},                      // d-M-yyyy
	{layout: "2/1/2006", dayField: 0},                      // d/M/yyyy
}

// ParseDate reads a calendar date from text using the fixed layout chain.
// Surrounding whitespace is ignored. Month names are English abbreviations
// with an upper-case first letter. Outside the ISO layout a day between the
// month's length and 31 resolves to the month's last day, so "31/04/2024"
// is 30 April.
func ParseDate(text string) (civil.Date, error) {
	value := strings.TrimSpace(text)
	for _, l := range dateLayouts {
		if d, ok := l.parse(value); ok {
			return d, nil
		}
	}
	return civil.Date{}, invalidDateFormat(value)
}

func (l dateLayout) parse(value string) (civil.Date, bool) {
	t, err := time.Parse(l.layout, value)
	if err == nil {
		if l.monthName && !strings.Contains(value, t.Month().String()[:3]) {
			return civil.Date{}, false
		}
		return civil.DateOf(t), true
	}

	var pe *time.ParseError
	if l.dayField < 0 || !errors.As(err, &pe) || pe.Message != ": day out of range" {
		return civil.Date{}, false
	}
	return l.clamp(value)
}

// clamp resolves a structurally valid date whose day exceeds the month.
func (l dateLayout) clamp(value string) (civil.Date, bool) {
	spans := dateFieldSpans(value)
	if l.dayField >= len(spans) {
		return civil.Date{}, false
	}
	span := spans[l.dayField]

	day, err := strconv.Atoi(value[span[0]:span[1]])
	if err != nil || day < 1 || day > 31 {
		return civil.Date{}, false
	}

	first, ok := l.parse(value[:span[0]] + "01" + value[span[1]:])
	if !ok {
		return civil.Date{}, false
	}
	last := time.Date(first.Year, first.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	first.Day = min(day, last)
	return first, true
}

// dateFieldSpans returns the [start, end) offsets of each run of letters or
// digits in value.
func dateFieldSpans(value string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range value {
		sep := r == '-' || r == '/' || r == ' ' || r == ','
		switch {
		case !sep && start < 0:
			start = i
		case sep && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(value)})
	}
	return spans
}

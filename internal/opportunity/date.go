package opportunity

import (
	"strings"
	"time"
)

// DateLayout is the only deadline format the master table accepts.
const DateLayout = "2006-01-02"

// apiDateLayouts are the formats the search API uses for open/close dates.
var apiDateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2006-01-02",
}

// ParseDeadline parses an ISO YYYY-MM-DD deadline.
// Returns false for blank input or any other format.
func ParseDeadline(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(DateLayout, text)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeAPIDate converts a date as returned by the search API into ISO
// YYYY-MM-DD. Text that matches no known format is returned unchanged so the
// analyst can still see it.
func NormalizeAPIDate(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	// some responses append a time or timezone after the date
	if i := strings.IndexAny(text, " T"); i > 0 && strings.Count(text[:i], "/") == 2 {
		text = text[:i]
	}
	for _, layout := range apiDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format(DateLayout)
		}
	}
	return text
}

// Today truncates t to midnight UTC of its calendar day.
func Today(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DeadlinePassed reports whether the deadline is strictly before today's date.
// A missing or unparsable deadline never counts as passed.
func (r *Record) DeadlinePassed(today time.Time) bool {
	if r.Deadline == nil {
		return false
	}
	return r.Deadline.Before(Today(today))
}

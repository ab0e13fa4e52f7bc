package present

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Calendar writes an iCalendar file with one all-day event per deadline.
// Rows without a parsed deadline are skipped.
type Calendar struct {
	Max   int
	Stamp time.Time // DTSTAMP; the run date keeps reruns byte-identical
}

// NewCalendar creates a calendar renderer; limit <= 0 includes every row
func NewCalendar(limit int, stamp time.Time) *Calendar {
	return &Calendar{Max: limit, Stamp: stamp}
}

func (c *Calendar) Render(w io.Writer, rows []*triage.Scored) error {
	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	ics.WriteString("PRODID:-//grant-triage//deadlines//EN\r\n")
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	ics.WriteString("X-WR-CALNAME:Grant deadlines\r\n")

	for _, sc := range top(rows, c.Max) {
		if sc.Deadline == nil {
			continue
		}
		day := *sc.Deadline

		ics.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&ics, "UID:%s@grant-triage\r\n", eventID(sc))
		fmt.Fprintf(&ics, "DTSTAMP:%s\r\n", formatICSTime(c.Stamp))
		fmt.Fprintf(&ics, "DTSTART;VALUE=DATE:%s\r\n", day.Format("20060102"))
		fmt.Fprintf(&ics, "DTEND;VALUE=DATE:%s\r\n", day.AddDate(0, 0, 1).Format("20060102"))
		fmt.Fprintf(&ics, "SUMMARY:%s\r\n", escapeICS("Deadline: "+sc.GrantName))

		description := fmt.Sprintf("Rank %d, score %s\nSponsor: %s", sc.Rank, triage.FormatScore(sc.Score), sc.Sponsor)
		fmt.Fprintf(&ics, "DESCRIPTION:%s\r\n", escapeICS(description))
		if sc.Link != "" {
			fmt.Fprintf(&ics, "URL:%s\r\n", sc.Link)
		}
		ics.WriteString("TRANSP:TRANSPARENT\r\n")
		ics.WriteString("END:VEVENT\r\n")
	}

	ics.WriteString("END:VCALENDAR\r\n")
	_, err := io.WriteString(w, ics.String())
	return err
}

// eventID is stable across runs so calendar clients update instead of duplicating.
func eventID(sc *triage.Scored) string {
	key := sc.Link
	if key == "" {
		key = sc.GrantName + "|" + sc.Sponsor
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// escapeICS escapes TEXT values per RFC 5545
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

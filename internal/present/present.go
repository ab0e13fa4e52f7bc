package present

import (
	"io"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Output file names.
const (
	FileDeck     = "EQORE_Deck.pptx"
	FilePDF      = "OnePager.pdf"
	FileCalendar = "Deadlines.ics"
	DefaultDeck  = 50
	DefaultPDF   = 5
)

// Renderer writes a presentation of ranked Clean rows.
type Renderer interface {
	// Render writes at most the renderer's limit of rows, in the order given
	Render(w io.Writer, rows []*triage.Scored) error
}

// top returns the first n rows, or all of them when n <= 0.
func top(rows []*triage.Scored, n int) []*triage.Scored {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

func deadlineText(sc *triage.Scored) string {
	switch {
	case sc.Deadline != nil:
		return sc.Deadline.Format("2006-01-02")
	case sc.DeadlineRaw != "":
		return sc.DeadlineRaw
	default:
		return "none"
	}
}

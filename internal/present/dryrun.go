package present

import (
	"fmt"
	"io"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// DryRun prints what a renderer would include without producing the file
type DryRun struct {
	Name string
	Max  int
}

// NewDryRun creates a dry-run stand-in for the named artifact
func NewDryRun(name string, limit int) *DryRun {
	return &DryRun{Name: name, Max: limit}
}

// Render prints one line per row that would be rendered
func (d *DryRun) Render(w io.Writer, rows []*triage.Scored) error {
	rows = top(rows, d.Max)
	fmt.Fprintf(w, "--- %s (dry run, %d opportunities) ---\n", d.Name, len(rows))
	for _, sc := range rows {
		fmt.Fprintf(w, "%d. %s | %s | deadline %s | score %s\n",
			sc.Rank, sc.GrantName, sc.Sponsor, deadlineText(sc), triage.FormatScore(sc.Score))
	}
	fmt.Fprintln(w)
	return nil
}

package present

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// OnePager renders a single-page PDF listing the top opportunities.
// Long lists continue onto further pages.
type OnePager struct {
	Max   int
	Title string
}

func NewOnePager(limit int) *OnePager {
	if limit <= 0 {
		limit = DefaultPDF
	}
	return &OnePager{Max: limit, Title: "EQORE Top Opportunities"}
}

func (o *OnePager) Render(w io.Writer, rows []*triage.Scored) error {
	rows = top(rows, o.Max)

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(72, 72, 72)
	pdf.SetAutoPageBreak(true, 72)
	pdf.SetTitle(o.Title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 22, tr(o.Title), "", 1, "L", false, 0, "")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	for i, sc := range rows {
		rank := sc.Rank
		if rank == 0 {
			rank = i + 1
		}
		line := fmt.Sprintf("%d. %s (Score: %.1f)", rank, sc.GrantName, sc.Score)
		pdf.MultiCell(0, 14, tr(line), "", "L", false)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}

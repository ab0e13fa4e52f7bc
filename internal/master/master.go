package master

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/table"
)

// PreferredOrder lists the columns placed first in a master table, when present.
var PreferredOrder = []string{
	opportunity.ColGrantName,
	opportunity.ColSponsor,
	opportunity.ColLink,
	opportunity.ColOpenDate,
	opportunity.ColDeadline,
	opportunity.ColStatus,
	opportunity.ColRelevance,
	opportunity.ColEQOREFit,
	opportunity.ColEase,
	opportunity.ColMatch,
}

// aliases maps alternative headers to master names. Order matters: the first
// alias that applies wins the target.
var aliases = []struct{ from, to string }{
	{"Grant name", opportunity.ColGrantName},
	{"Sponsor org", opportunity.ColSponsor},
	{"App deadline", opportunity.ColDeadline},
	{"OpenDate", opportunity.ColOpenDate},
	{"Close Date", opportunity.ColDeadline},
}

// Normalize renames alternative headers in place. A rename is skipped when
// the target column already exists.
func Normalize(t *table.Table) {
	for _, a := range aliases {
		if t.Has(a.from) && !t.Has(a.to) {
			t.Rename(a.from, a.to)
		}
	}
}

// Template returns a scoring-ready copy of t: headers normalized, identity
// and scoring columns present (blank when added) and columns reordered.
// Every row and value of t is preserved.
func Template(t *table.Table) *table.Table {
	work := &table.Table{
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		work.Rows[i] = append([]string(nil), row...)
	}

	Normalize(work)
	for _, col := range opportunity.IdentityColumns {
		work.AddColumn(col, "")
	}
	for _, col := range opportunity.ScoringColumns {
		work.AddColumn(col, "")
	}
	return work.Reorder(PreferredOrder)
}

// DefaultOutput returns data/master.csv for grants_raw* inputs and
// data/master_<stem>.csv otherwise.
func DefaultOutput(input string) string {
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if strings.HasPrefix(stem, "grants_raw") {
		return filepath.Join("data", "master.csv")
	}
	return filepath.Join("data", "master_"+stem+".csv")
}

// Build reads input, templates it and writes the result to output.
// It returns the number of rows written.
func Build(input, output string) (int, error) {
	src, err := table.Read(input)
	if err != nil {
		return 0, fmt.Errorf("reading fetched table: %w", err)
	}
	out := Template(src)
	if err := table.WriteFile(output, out); err != nil {
		return 0, fmt.Errorf("writing master: %w", err)
	}
	return len(out.Rows), nil
}

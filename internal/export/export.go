package export

import (
	"context"
	"io"

	"github.com/pfrederiksen/grant-triage/internal/table"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Output file names.
const (
	FileClean      = "CleanTable.csv"
	FileDirty      = "DirtyTable.csv"
	FileOutOfScope = "OutOfScope.csv"
	FileMaster     = "Master_Scored.csv"
	FileWorkbook   = "Tables.xlsx"
)

// Tables holds the four laid-out tables for one triage result.
type Tables struct {
	Clean      *table.Table
	Dirty      *table.Table
	OutOfScope *table.Table
	Master     *table.Table
}

// Layout builds every output table from the input header and result.
func Layout(header []string, res *triage.Result) *Tables {
	return &Tables{
		Clean:      CleanTable(header, res.Clean),
		Dirty:      DirtyTable(header, res.Dirty),
		OutOfScope: OutOfScopeTable(header, res.OutOfScope),
		Master:     MasterScoredTable(header, res.All),
	}
}

// WriteTables stages the CSVs and the workbook in dir and publishes them
// together. On any failure nothing in dir is replaced.
func WriteTables(ctx context.Context, dir string, tables *Tables) ([]string, error) {
	b, err := NewBatch(ctx, dir)
	if err != nil {
		return nil, err
	}
	defer b.Abort()

	csvs := []struct {
		name string
		t    *table.Table
	}{
		{FileClean, tables.Clean},
		{FileDirty, tables.Dirty},
		{FileOutOfScope, tables.OutOfScope},
		{FileMaster, tables.Master},
	}
	for _, c := range csvs {
		t := c.t
		if err := b.Stage(c.name, func(w io.Writer) error { return table.Write(w, t, ',') }); err != nil {
			return nil, err
		}
	}

	numeric := []string{ColRank, ColScore}
	err = b.Stage(FileWorkbook, func(w io.Writer) error {
		return WriteWorkbook(w, []Sheet{
			{Name: "Clean", Table: tables.Clean, Numeric: numeric},
			{Name: "Dirty", Table: tables.Dirty, Numeric: numeric},
			{Name: "OutOfScope", Table: tables.OutOfScope, Numeric: numeric},
		})
	})
	if err != nil {
		return nil, err
	}

	return b.Commit()
}

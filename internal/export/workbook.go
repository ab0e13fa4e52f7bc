package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pfrederiksen/grant-triage/internal/table"
)

// Sheet is one named worksheet. Cells in Numeric columns are written as
// numbers when they parse.
type Sheet struct {
	Name    string
	Table   *table.Table
	Numeric []string
}

// WriteWorkbook writes sheets, in order, as an xlsx workbook.
func WriteWorkbook(w io.Writer, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", sh.Name, err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sh Sheet) error {
	numeric := make(map[int]bool)
	for _, name := range sh.Numeric {
		if i := sh.Table.Index(name); i >= 0 {
			numeric[i] = true
		}
	}

	header := make([]interface{}, len(sh.Table.Header))
	for i, h := range sh.Table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sh.Name, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sh.Name, err)
	}

	for r, row := range sh.Table.Rows {
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
			if numeric[i] {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cells[i] = n
				}
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sh.Name, cell, &cells); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sh.Name, r+1, err)
		}
	}
	return nil
}

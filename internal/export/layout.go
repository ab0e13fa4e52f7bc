package export

import (
	"strconv"

	"github.com/pfrederiksen/grant-triage/internal/table"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Derived column names.
const (
	ColRank      = "Rank"
	ColScore     = "Score"
	ColPartition = "Partition"
	ColFlags     = "Flags"
)

var derived = map[string]bool{ColRank: true, ColScore: true, ColPartition: true, ColFlags: true}

// inputColumns returns the positions of header columns that are not derived,
// so re-scoring a scored file does not duplicate them.
func inputColumns(header []string) []int {
	idx := make([]int, 0, len(header))
	for i, h := range header {
		if !derived[h] {
			idx = append(idx, i)
		}
	}
	return idx
}

func inputCells(sc *triage.Scored, idx []int) []string {
	out := make([]string, len(idx))
	for j, i := range idx {
		if i < len(sc.Values) {
			out[j] = sc.Values[i]
		}
	}
	return out
}

func columnNames(header []string, idx []int) []string {
	out := make([]string, len(idx))
	for j, i := range idx {
		out[j] = header[i]
	}
	return out
}

// CleanTable lays out Rank, the input columns, then Score.
func CleanTable(header []string, rows []*triage.Scored) *table.Table {
	idx := inputColumns(header)
	t := table.New(append(append([]string{ColRank}, columnNames(header, idx)...), ColScore)...)
	for _, sc := range rows {
		row := append([]string{strconv.Itoa(sc.Rank)}, inputCells(sc, idx)...)
		t.Rows = append(t.Rows, append(row, triage.FormatScore(sc.Score)))
	}
	return t
}

// DirtyTable lays out the input columns, Score and Flags.
func DirtyTable(header []string, rows []*triage.Scored) *table.Table {
	idx := inputColumns(header)
	t := table.New(append(columnNames(header, idx), ColScore, ColFlags)...)
	for _, sc := range rows {
		t.Rows = append(t.Rows, append(inputCells(sc, idx), triage.FormatScore(sc.Score), sc.FlagText()))
	}
	return t
}

// OutOfScopeTable lays out the input columns then Score.
func OutOfScopeTable(header []string, rows []*triage.Scored) *table.Table {
	idx := inputColumns(header)
	t := table.New(append(columnNames(header, idx), ColScore)...)
	for _, sc := range rows {
		t.Rows = append(t.Rows, append(inputCells(sc, idx), triage.FormatScore(sc.Score)))
	}
	return t
}

// MasterScoredTable lays out every row in input order with Score, Rank,
// Partition and Flags. Rank is blank outside Clean.
func MasterScoredTable(header []string, all []*triage.Scored) *table.Table {
	idx := inputColumns(header)
	t := table.New(append(columnNames(header, idx), ColScore, ColRank, ColPartition, ColFlags)...)
	for _, sc := range all {
		rank := ""
		if sc.Rank > 0 {
			rank = strconv.Itoa(sc.Rank)
		}
		t.Rows = append(t.Rows, append(inputCells(sc, idx),
			triage.FormatScore(sc.Score), rank, string(sc.Partition), sc.FlagText()))
	}
	return t
}

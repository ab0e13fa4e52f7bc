package fetch

import (
	"strings"

	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/table"
)

// Summary mode column names, as analysts know them from the curated export.
const (
	SumGrantName = "Grant name"
	SumSponsor   = "Sponsor org"
	SumDeadline  = "App deadline"
	SumNumber    = "Opportunity Number"
	SumALN       = "ALN"
)

// Enrichment columns.
const (
	ColDescription  = "Description"
	ColAwardCeiling = "Award Ceiling"
	ColAwardFloor   = "Award Floor"
	ColCostSharing  = "Cost Sharing"
)

var rawHeader = []string{
	"id", "number", "title", "agencyCode", "agency", "openDate", "closeDate", "oppStatus", "docType", "alnist",
	opportunity.ColGrantName, opportunity.ColSponsor, opportunity.ColLink,
	opportunity.ColOpenDate, opportunity.ColDeadline, opportunity.ColStatus,
}

var summaryHeader = []string{
	SumGrantName, SumSponsor, opportunity.ColLink, opportunity.ColOpenDate,
	SumDeadline, opportunity.ColStatus, SumNumber, SumALN,
}

var enrichHeader = []string{ColDescription, ColAwardCeiling, ColAwardFloor, ColCostSharing}

// RawTable writes every hit field plus the master identity columns.
// details may be nil; when set, the enrichment columns are appended.
func RawTable(hits []Hit, details map[string]*Detail) *table.Table {
	t := table.New(header(rawHeader, details)...)
	for _, h := range hits {
		open := opportunity.NormalizeAPIDate(h.OpenDate)
		closeDate := opportunity.NormalizeAPIDate(h.CloseDate)
		row := []string{
			h.ID.String(), h.Number, h.Title, h.AgencyCode, h.Agency,
			open, closeDate, h.OppStatus, h.DocType, strings.Join(h.ALNs, "; "),
			strings.TrimSpace(h.Title), sponsor(h), opportunity.NewLink(h.ID.String()),
			open, closeDate, h.OppStatus,
		}
		t.Rows = append(t.Rows, withDetail(row, h, details))
	}
	return t
}

// SummaryTable writes the curated summary columns.
func SummaryTable(hits []Hit, details map[string]*Detail) *table.Table {
	t := table.New(header(summaryHeader, details)...)
	for _, h := range hits {
		row := []string{
			strings.TrimSpace(h.Title),
			sponsor(h),
			opportunity.NewLink(h.ID.String()),
			opportunity.NormalizeAPIDate(h.OpenDate),
			opportunity.NormalizeAPIDate(h.CloseDate),
			h.OppStatus,
			h.Number,
			strings.Join(h.ALNs, "; "),
		}
		t.Rows = append(t.Rows, withDetail(row, h, details))
	}
	return t
}

func header(base []string, details map[string]*Detail) []string {
	h := append([]string(nil), base...)
	if details != nil {
		h = append(h, enrichHeader...)
	}
	return h
}

func withDetail(row []string, h Hit, details map[string]*Detail) []string {
	if details == nil {
		return row
	}
	d := details[h.ID.String()]
	if d == nil {
		return append(row, "", "", "", "")
	}
	return append(row, d.Description, d.AwardCeiling, d.AwardFloor, d.CostSharing)
}

func sponsor(h Hit) string {
	if s := strings.TrimSpace(h.Agency); s != "" {
		return s
	}
	return strings.TrimSpace(h.AgencyCode)
}

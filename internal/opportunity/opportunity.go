package opportunity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/grant-triage/internal/table"
)

// Master table column names.
const (
	ColGrantName = "Grant Name"
	ColSponsor   = "Sponsor"
	ColLink      = "Link"
	ColOpenDate  = "Open Date"
	ColDeadline  = "Deadline"
	ColStatus    = "Status"
	ColRelevance = "Relevance"
	ColEQOREFit  = "EQORE Fit"
	ColEase      = "Ease of Use"
	ColMatch     = "Match %"
)

// IdentityColumns identify an opportunity and are filled by the fetch step.
var IdentityColumns = []string{ColGrantName, ColSponsor, ColLink, ColDeadline}

// ScoringColumns are entered by the analyst.
var ScoringColumns = []string{ColRelevance, ColEQOREFit, ColEase, ColMatch}

// RequiredColumns must all be present in a master table header.
var RequiredColumns = append(append([]string{}, IdentityColumns...), ScoringColumns...)

// LinkTemplate builds the public detail URL for an opportunity id.
const LinkTemplate = "https://www.grants.gov/search-results-detail/%s"

// ErrMissingColumn is returned when a master table lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Record is one opportunity row, typed once at load time.
type Record struct {
	GrantName string `json:"grant_name"`
	Sponsor   string `json:"sponsor"`
	Link      string `json:"link"`

	Deadline    *time.Time `json:"deadline,omitempty"` // nil when blank or unparsable
	DeadlineRaw string     `json:"deadline_raw,omitempty"`

	Relevance float64  `json:"relevance"`
	EQOREFit  float64  `json:"eqore_fit"`
	EaseOfUse float64  `json:"ease_of_use"`
	Match     *float64 `json:"match,omitempty"` // nil when blank or variable

	Row    int      `json:"row"`    // 0-based input position
	Values []string `json:"values"` // original cells, aligned with the source header
}

// NewLink builds the detail link for an opportunity id.
func NewLink(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	return fmt.Sprintf(LinkTemplate, id)
}

// DeadlineUnparsable reports whether a deadline was given but is not ISO YYYY-MM-DD.
func (r *Record) DeadlineUnparsable() bool {
	return r.Deadline == nil && strings.TrimSpace(r.DeadlineRaw) != ""
}

// MissingIdentity lists the identity columns whose value is blank.
func (r *Record) MissingIdentity() []string {
	var missing []string
	if strings.TrimSpace(r.GrantName) == "" {
		missing = append(missing, ColGrantName)
	}
	if strings.TrimSpace(r.Sponsor) == "" {
		missing = append(missing, ColSponsor)
	}
	if strings.TrimSpace(r.Link) == "" {
		missing = append(missing, ColLink)
	}
	return missing
}

// CheckColumns returns ErrMissingColumn naming every required column the header lacks.
func CheckColumns(t *table.Table) error {
	var missing []string
	for _, col := range RequiredColumns {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// FromTable validates the header and converts every row into a Record.
// Blank or malformed values never fail the load.
func FromTable(t *table.Table) ([]*Record, error) {
	if err := CheckColumns(t); err != nil {
		return nil, err
	}

	records := make([]*Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		rec := &Record{
			GrantName:   strings.TrimSpace(t.Get(i, ColGrantName)),
			Sponsor:     strings.TrimSpace(t.Get(i, ColSponsor)),
			Link:        strings.TrimSpace(t.Get(i, ColLink)),
			DeadlineRaw: strings.TrimSpace(t.Get(i, ColDeadline)),
			Relevance:   ParseScore(t.Get(i, ColRelevance)),
			EQOREFit:    ParseScore(t.Get(i, ColEQOREFit)),
			EaseOfUse:   ParseScore(t.Get(i, ColEase)),
			Match:       ParseMatch(t.Get(i, ColMatch)),
			Row:         i,
			Values:      append([]string(nil), row...),
		}
		if d, ok := ParseDeadline(rec.DeadlineRaw); ok {
			rec.Deadline = &d
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseScore converts an analyst score cell to a number. Blank or
// non-numeric cells are 0.
func ParseScore(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseMatch converts a match percentage cell to a number.
// Accepts "30%", "30", "30.0" and "1,000". Returns nil for blank cells,
// "Var"/"Var." and anything else non-numeric.
func ParseMatch(s string) *float64 {
	text := strings.TrimSpace(s)
	text = strings.ReplaceAll(text, "%", "")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	if text == "" || strings.HasPrefix(strings.ToLower(text), "var") {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

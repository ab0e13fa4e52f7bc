package fetch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultStatuses is used when a query names no opportunity status.
const DefaultStatuses = "forecasted|posted"

// Query holds a search keyword and its filters. List filters accept comma or
// pipe separated values, e.g. "posted,forecasted" or "NSF|DOE".
type Query struct {
	Keyword       string `json:"keyword"`
	Max           int    `json:"max"`
	Statuses      string `json:"statuses,omitempty"`
	Agencies      string `json:"agencies,omitempty"`
	ALN           string `json:"aln,omitempty"`
	Eligibilities string `json:"eligibilities,omitempty"`
	Instruments   string `json:"instruments,omitempty"`
	Categories    string `json:"categories,omitempty"`
	SortBy        string `json:"sort_by,omitempty"`
}

// Normalize returns a copy of q with every list in the API's pipe form and
// the status default applied.
func (q Query) Normalize() Query {
	q.Keyword = strings.TrimSpace(q.Keyword)
	q.Statuses = strings.ToLower(NormalizeList(q.Statuses))
	if q.Statuses == "" {
		q.Statuses = DefaultStatuses
	}
	q.Agencies = strings.ToUpper(NormalizeList(q.Agencies))
	q.ALN = NormalizeList(q.ALN)
	q.Eligibilities = NormalizeList(q.Eligibilities)
	q.Instruments = strings.ToUpper(NormalizeList(q.Instruments))
	q.Categories = strings.ToUpper(NormalizeList(q.Categories))
	q.SortBy = strings.TrimSpace(q.SortBy)
	return q
}

// IsEmpty reports whether the query has no keyword and no filters.
func (q Query) IsEmpty() bool {
	n := q.Normalize()
	return n.Keyword == "" &&
		n.Statuses == DefaultStatuses &&
		n.Agencies == "" &&
		n.ALN == "" &&
		n.Eligibilities == "" &&
		n.Instruments == "" &&
		n.Categories == ""
}

// Key identifies the query in the snapshot cache.
func (q Query) Key() string {
	n := q.Normalize()
	return fmt.Sprintf("kw=%s;max=%d;status=%s;agency=%s;aln=%s;elig=%s;inst=%s;cat=%s;sort=%s",
		strings.ToLower(n.Keyword), n.Max, n.Statuses, n.Agencies, n.ALN,
		n.Eligibilities, n.Instruments, n.Categories, n.SortBy)
}

// NormalizeList splits s on commas and pipes, trims, de-duplicates and sorts
// the parts case-insensitively and joins them with pipes. Equivalent lists
// normalize identically, so they share a cache key.
func NormalizeList(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '|' })
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return strings.Join(out, "|")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases keyword and collapses non-alphanumerics to dashes.
func Slug(keyword string) string {
	return strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(keyword), "-"), "-")
}

// DefaultOutput names the fetch output file for keyword.
func DefaultOutput(keyword string, summary bool) string {
	kind := "raw"
	if summary {
		kind = "summary"
	}
	return filepath.Join("data", fmt.Sprintf("grants_%s_%s.csv", kind, Slug(keyword)))
}

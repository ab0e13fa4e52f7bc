package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/pfrederiksen/grant-triage/internal/pipeline"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// summaryOutput is the JSON shape of a score run.
type summaryOutput struct {
	*pipeline.Summary
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// WriteSummary writes the run summary in the specified format. metrics is
// only printed when non-nil.
func WriteSummary(w io.Writer, sum *pipeline.Summary, metrics map[string]interface{}, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, summaryOutput{Summary: sum, Metrics: metrics})
	case FormatText:
		return writeText(w, sum, metrics)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeText(w io.Writer, sum *pipeline.Summary, metrics map[string]interface{}) error {
	fmt.Fprintf(w, "Scored %d opportunities from %s (run date %s)\n", sum.Total, sum.Input, sum.Today)
	fmt.Fprintf(w, "  Clean:      %d\n", sum.Clean)
	fmt.Fprintf(w, "  Dirty:      %d\n", sum.Dirty)
	fmt.Fprintf(w, "  OutOfScope: %d\n", sum.OutOfScope)
	if sum.Unparsable > 0 {
		fmt.Fprintf(w, "  %d deadline(s) could not be parsed; see the Flags column\n", sum.Unparsable)
	}

	if len(sum.Top) == 0 {
		fmt.Fprintln(w, "\nNo clean opportunities.")
	} else {
		fmt.Fprintln(w, "\nTop opportunities:")
		for _, e := range sum.Top {
			fmt.Fprintf(w, "  %d. %s (%s) score %s\n", e.Rank, e.GrantName, e.Sponsor, triage.FormatScore(e.Score))
		}
	}

	if len(sum.Written) > 0 {
		fmt.Fprintf(w, "\nWrote %d file(s) to %s:\n", len(sum.Written), sum.OutputDir)
		for _, p := range sum.Written {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	for _, e := range sum.ExportErrors {
		fmt.Fprintf(w, "WARNING: %s\n", e)
	}

	if metrics != nil {
		writeMetrics(w, metrics)
	}
	fmt.Fprintf(w, "\nDone in %s\n", sum.Duration)
	return nil
}

func writeMetrics(w io.Writer, metrics map[string]interface{}) {
	fmt.Fprintln(w, "\nMetrics:")
	if counters, ok := metrics["counters"].(map[string]int64); ok {
		for _, name := range sortedKeys(counters) {
			fmt.Fprintf(w, "  %s: %d\n", name, counters[name])
		}
	}
	if timings, ok := metrics["timings"].(map[string]map[string]interface{}); ok {
		for _, name := range sortedKeys(timings) {
			t := timings[name]
			fmt.Fprintf(w, "  %s: count=%v avg=%v max=%v\n", name, t["count"], t["average"], t["max"])
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/grant-triage/internal/fetch"
	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/master"
	"github.com/pfrederiksen/grant-triage/internal/storage"
	"github.com/pfrederiksen/grant-triage/internal/table"
)

// fetchFlags are shared by fetch and prepare.
type fetchFlags struct {
	max         int
	status      string
	agency      string
	cfda        string
	eligibility string
	instrument  string
	category    string
	sort        string
	summary     bool
	enrich      bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.max, "max", 50, "Maximum records to pull")
	cmd.Flags().StringVar(&f.status, "status", "", "Statuses, e.g. posted,forecasted,closed,archived")
	cmd.Flags().StringVar(&f.agency, "agency", "", "Agency or sub-agency codes, comma or pipe separated")
	cmd.Flags().StringVar(&f.cfda, "cfda", "", "Assistance listing (CFDA) numbers, comma separated")
	cmd.Flags().StringVar(&f.eligibility, "eligibility", "", "Eligibility codes, comma separated")
	cmd.Flags().StringVar(&f.instrument, "instrument", "", "Funding instrument codes (G,CA,O,PC)")
	cmd.Flags().StringVar(&f.category, "category", "", "Funding category codes (e.g. EN,ST)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort key, if supported by the API")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "Write curated summary columns instead of raw fields")
	cmd.Flags().BoolVar(&f.enrich, "enrich", false, "Fetch each opportunity's synopsis and award amounts")
}

func (f *fetchFlags) query(cmd *cobra.Command, keyword string) fetch.Query {
	max := cfg.Fetch.MaxResults
	if cmd.Flags().Changed("max") {
		max = f.max
	}
	return fetch.Query{
		Keyword:       keyword,
		Max:           max,
		Statuses:      f.status,
		Agencies:      f.agency,
		ALN:           f.cfda,
		Eligibilities: f.eligibility,
		Instruments:   f.instrument,
		Categories:    f.category,
		SortBy:        f.sort,
	}
}

func newFetchCmd() *cobra.Command {
	var (
		flags fetchFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "fetch KEYWORD",
		Short: "Fetch opportunities from Grants.gov into a CSV/TSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := out
			if path == "" {
				path = fetch.DefaultOutput(args[0], flags.summary)
			}
			n, err := fetchToFile(cmd.Context(), cmd.OutOrStdout(), flags.query(cmd, args[0]), &flags, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s fetch with %d rows to %s\n", kind(flags.summary), n, path)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&out, "out", "", "Output path (default data/grants_<raw|summary>_<keyword>.csv)")
	return cmd
}

func newPrepareCmd() *cobra.Command {
	var (
		flags     fetchFlags
		masterOut string
		rawOut    string
	)
	cmd := &cobra.Command{
		Use:   "prepare KEYWORD",
		Short: "Fetch opportunities and build the scoring master in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := rawOut
			if raw == "" {
				raw = fetch.DefaultOutput(args[0], flags.summary)
			}
			n, err := fetchToFile(cmd.Context(), cmd.OutOrStdout(), flags.query(cmd, args[0]), &flags, raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s fetch with %d rows to %s\n", kind(flags.summary), n, raw)

			rows, err := master.Build(raw, masterOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote scoring master with %d rows to %s\n", rows, masterOut)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&masterOut, "master-out", "data/master.csv", "Path for the scoring master")
	cmd.Flags().StringVar(&rawOut, "raw-out", "", "Path for the raw fetch (auto-named if omitted)")
	return cmd
}

func kind(summary bool) string {
	if summary {
		return "summary"
	}
	return "raw"
}

// fetchToFile runs a search, falling back to the cache, and writes the table.
func fetchToFile(ctx context.Context, w io.Writer, q fetch.Query, flags *fetchFlags, path string) (int, error) {
	if q.IsEmpty() {
		return 0, errors.New("empty query: give a keyword or at least one filter")
	}

	client := fetch.NewClient(fetch.Options{
		BaseURL:           cfg.Fetch.BaseURL,
		Timeout:           cfg.Fetch.Timeout,
		UserAgent:         cfg.Fetch.UserAgent,
		PageSize:          cfg.Fetch.PageSize,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
	})

	store, err := storage.New(cfg.Paths.DataDir)
	if err != nil {
		logger.Warn("snapshot cache unavailable", logger.Fields{"data_dir": cfg.Paths.DataDir, "error": err.Error()})
		store = nil
	} else {
		logger.Debug("snapshot cache opened", logger.Fields{"dir": store.Dir()})
	}
	defer store.Close()

	var enricher *fetch.Enricher
	if flags.enrich {
		enricher = fetch.NewEnricher(client, cfg.Fetch.EnrichConcurrency)
	}

	res, err := fetch.NewFetcher(client, store, enricher).Fetch(ctx, q)
	if err != nil {
		return 0, err
	}
	if res.Source == fetch.SourceCachedFallback {
		fmt.Fprintf(w, "Search API unavailable (%v); using cached results from %s\n",
			res.Err, res.FetchedAt.Format("2006-01-02 15:04 MST"))
	}

	var t *table.Table
	if flags.summary {
		t = fetch.SummaryTable(res.Records, res.Details)
	} else {
		t = fetch.RawTable(res.Records, res.Details)
	}
	if err := table.WriteFile(path, t); err != nil {
		return 0, fmt.Errorf("writing fetch output: %w", err)
	}
	return len(t.Rows), nil
}

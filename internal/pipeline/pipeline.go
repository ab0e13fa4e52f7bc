package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pfrederiksen/grant-triage/internal/export"
	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/present"
	"github.com/pfrederiksen/grant-triage/internal/table"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// Limits caps the optional presentation artifacts.
type Limits struct {
	DeckMax int
	PDFMax  int
}

// Options fully describes one scoring run. Nothing is read from the
// environment or working directory beyond these paths.
type Options struct {
	Input     string
	OutputDir string
	Today     time.Time
	Deck      bool
	PDF       bool
	Calendar  bool
	DryRun    bool
	Scoring   triage.Settings
	Export    Limits
	Stdout    io.Writer // dry-run output; os.Stdout when nil
}

// TopEntry is a Clean row shown in the run summary.
type TopEntry struct {
	Rank      int     `json:"rank"`
	GrantName string  `json:"grant_name"`
	Sponsor   string  `json:"sponsor"`
	Score     float64 `json:"score"`
}

// Summary reports what a run did.
type Summary struct {
	Input        string     `json:"input"`
	OutputDir    string     `json:"output_dir"`
	Today        string     `json:"today"`
	Total        int        `json:"total"`
	Clean        int        `json:"clean"`
	Dirty        int        `json:"dirty"`
	OutOfScope   int        `json:"out_of_scope"`
	Unparsable   int        `json:"unparsable_deadlines"`
	Top          []TopEntry `json:"top"`
	Written      []string   `json:"written"`
	ExportErrors []string   `json:"export_errors,omitempty"`
	Duration     string     `json:"duration"`
}

const summaryTop = 5

// Run loads the master, triages it, writes the tables and renders the
// optional artifacts. Load and validation errors are returned before anything
// is written. Artifact failures are logged and listed in the summary only.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	if opts.Input == "" {
		return nil, errors.New("input path is required")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}
	today := opportunity.Today(opts.Today)
	opts.Today = today
	if opts.Scoring.Formula == "" {
		opts.Scoring.Formula = triage.DefaultFormula
	}

	scorer, err := triage.NewScorer(opts.Scoring)
	if err != nil {
		return nil, fmt.Errorf("configuring scorer: %w", err)
	}

	loadStart := time.Now()
	src, err := table.Read(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("loading master: %w", err)
	}
	records, err := opportunity.FromTable(src)
	if err != nil {
		return nil, fmt.Errorf("loading master %s: %w", opts.Input, err)
	}
	logger.RecordTiming("pipeline.load", time.Since(loadStart))
	logger.Info("loaded master", logger.Fields{"input": opts.Input, "rows": len(records)})

	res := scorer.Triage(records, today)
	logger.AddCounter("triage.clean", int64(len(res.Clean)))
	logger.AddCounter("triage.dirty", int64(len(res.Dirty)))
	logger.AddCounter("triage.out_of_scope", int64(len(res.OutOfScope)))

	sum := &Summary{
		Input:      opts.Input,
		OutputDir:  opts.OutputDir,
		Today:      today.Format(opportunity.DateLayout),
		Total:      len(res.All),
		Clean:      len(res.Clean),
		Dirty:      len(res.Dirty),
		OutOfScope: len(res.OutOfScope),
		Top:        []TopEntry{},
		Written:    []string{},
	}
	for _, sc := range res.All {
		if sc.DeadlineUnparsable() {
			sum.Unparsable++
		}
	}
	for _, sc := range res.Clean {
		if len(sum.Top) == summaryTop {
			break
		}
		sum.Top = append(sum.Top, TopEntry{Rank: sc.Rank, GrantName: sc.GrantName, Sponsor: sc.Sponsor, Score: sc.Score})
	}

	writeStart := time.Now()
	paths, err := export.WriteTables(ctx, opts.OutputDir, export.Layout(src.Header, res))
	if err != nil {
		return nil, fmt.Errorf("writing tables: %w", err)
	}
	sum.Written = append(sum.Written, paths...)
	logger.RecordTiming("pipeline.write", time.Since(writeStart))

	for _, a := range artifacts(opts) {
		path, err := render(ctx, opts, a, res.Clean)
		if err != nil {
			logger.IncrCounter("pipeline.export_failed")
			logger.Warn("optional export failed", logger.Fields{"artifact": a.file, "error": err.Error()})
			sum.ExportErrors = append(sum.ExportErrors, fmt.Sprintf("%s: %v", a.file, err))
			continue
		}
		if path != "" {
			sum.Written = append(sum.Written, path)
		}
	}

	sum.Duration = time.Since(start).Round(time.Millisecond).String()
	logger.Info("scoring run complete", logger.Fields{
		"total":        sum.Total,
		"clean":        sum.Clean,
		"dirty":        sum.Dirty,
		"out_of_scope": sum.OutOfScope,
		"files":        len(sum.Written),
	})
	return sum, nil
}

type artifact struct {
	file     string
	renderer present.Renderer
}

func artifacts(opts Options) []artifact {
	var out []artifact
	if opts.Deck {
		out = append(out, artifact{present.FileDeck, present.NewDeck(opts.Export.DeckMax)})
	}
	if opts.PDF {
		out = append(out, artifact{present.FilePDF, present.NewOnePager(opts.Export.PDFMax)})
	}
	if opts.Calendar {
		out = append(out, artifact{present.FileCalendar, present.NewCalendar(0, opts.Today)})
	}
	if opts.DryRun {
		for i, a := range out {
			limit := 0
			switch a.file {
			case present.FileDeck:
				limit = opts.Export.DeckMax
			case present.FilePDF:
				limit = opts.Export.PDFMax
			}
			out[i].renderer = present.NewDryRun(a.file, limit)
		}
	}
	return out
}

// render writes one artifact. Dry runs print to Stdout and return no path.
func render(ctx context.Context, opts Options, a artifact, rows []*triage.Scored) (string, error) {
	if opts.DryRun {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		return "", a.renderer.Render(w, rows)
	}

	// render fully before touching the output directory
	var buf bytes.Buffer
	if err := a.renderer.Render(&buf, rows); err != nil {
		return "", err
	}

	b, err := export.NewBatch(ctx, opts.OutputDir)
	if err != nil {
		return "", err
	}
	defer b.Abort()
	if err := b.Stage(a.file, func(w io.Writer) error {
		_, err := buf.WriteTo(w)
		return err
	}); err != nil {
		return "", err
	}
	paths, err := b.Commit()
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/opportunity"
	"github.com/pfrederiksen/grant-triage/internal/pipeline"
	"github.com/pfrederiksen/grant-triage/internal/triage"
)

var (
	flagInput     string
	flagOutputDir string
	flagDeck      bool
	flagPDF       bool
	flagCalendar  bool
	flagDryRun    bool
	flagToday     string
	flagFormat    string
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "score",
		Aliases: []string{"run"},
		Short:   "Score and triage a master table",
		Long: `Read the master table, compute each row's score, split the rows into
Clean, Dirty and OutOfScope, and write the tables and workbook.`,
		Args: cobra.NoArgs,
		RunE: runScore,
	}

	cmd.Flags().StringVar(&flagInput, "input", "data/master.csv", "Master CSV/TSV to score")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "outputs", "Directory for output files")
	cmd.Flags().BoolVar(&flagDeck, "deck", false, "Also render the slide deck")
	cmd.Flags().BoolVar(&flagPDF, "pdf", false, "Also render the one-page PDF")
	cmd.Flags().BoolVar(&flagCalendar, "ics", false, "Also write an iCalendar file of Clean deadlines")
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Print the deck/PDF/calendar contents instead of writing them")
	cmd.Flags().StringVar(&flagToday, "today", "", "Run date as YYYY-MM-DD (default: current date)")
	cmd.Flags().StringVar(&flagFormat, "format", "text", "Output format: text or json")

	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	format := OutputFormat(strings.ToLower(flagFormat))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", flagFormat)
	}

	today := time.Now()
	if flagToday != "" {
		d, ok := opportunity.ParseDeadline(flagToday)
		if !ok {
			return fmt.Errorf("invalid --today %q (want YYYY-MM-DD)", flagToday)
		}
		today = d
	}

	input := cfg.Paths.Input
	if cmd.Flags().Changed("input") {
		input = flagInput
	}
	outputDir := cfg.Paths.OutputDir
	if cmd.Flags().Changed("output-dir") {
		outputDir = flagOutputDir
	}

	sum, err := pipeline.Run(cmd.Context(), pipeline.Options{
		Input:     input,
		OutputDir: outputDir,
		Today:     today,
		Deck:      flagDeck,
		PDF:       flagPDF,
		Calendar:  flagCalendar,
		DryRun:    flagDryRun,
		Scoring: triage.Settings{
			Formula:        cfg.Scoring.Formula,
			MatchThreshold: cfg.Scoring.MatchThreshold,
		},
		Export: pipeline.Limits{DeckMax: cfg.Export.DeckMax, PDFMax: cfg.Export.PDFMax},
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	var metrics map[string]interface{}
	if flagVerbose {
		metrics = logger.GetMetricsSnapshot()
	}
	if err := WriteSummary(cmd.OutOrStdout(), sum, metrics, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

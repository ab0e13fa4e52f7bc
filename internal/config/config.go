package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/grant-triage/internal/triage"
)

// DefaultPath is read when --config is not given. It may be absent.
const DefaultPath = "grant-triage.yml"

type Paths struct {
	Input     string `yaml:"input"`
	OutputDir string `yaml:"output_dir"`
	DataDir   string `yaml:"data_dir"`
}

type Fetch struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	PageSize          int           `yaml:"page_size"`
	MaxResults        int           `yaml:"max_results"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	EnrichConcurrency int           `yaml:"enrich_concurrency"`
	UserAgent         string        `yaml:"user_agent"`
}

type Scoring struct {
	Formula        string  `yaml:"formula"`
	MatchThreshold float64 `yaml:"match_threshold"`
}

type Export struct {
	DeckMax int `yaml:"deck_max"`
	PDFMax  int `yaml:"pdf_max"`
}

type Config struct {
	Paths   Paths   `yaml:"paths"`
	Fetch   Fetch   `yaml:"fetch"`
	Scoring Scoring `yaml:"scoring"`
	Export  Export  `yaml:"export"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			Input:     "data/master.csv",
			OutputDir: "outputs",
			DataDir:   "data",
		},
		Fetch: Fetch{
			BaseURL:           "https://api.grants.gov/v1/api",
			Timeout:           30 * time.Second,
			PageSize:          25,
			MaxResults:        50,
			RequestsPerSecond: 2,
			EnrichConcurrency: 4,
			UserAgent:         "grant-triage/1.0 (github.com/pfrederiksen/grant-triage)",
		},
		Scoring: Scoring{
			Formula:        triage.DefaultFormula,
			MatchThreshold: triage.DefaultMatchThreshold,
		},
		Export: Export{
			DeckMax: 50,
			PDFMax:  5,
		},
	}
}

// Load overlays the YAML file at path onto Default. A missing file is only an
// error when required is true.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, Validate(cfg)
}

// Validate aggregates every problem into one error.
func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Paths.OutputDir) == "" {
		errs = append(errs, "paths.output_dir is required")
	}
	if strings.TrimSpace(cfg.Paths.DataDir) == "" {
		errs = append(errs, "paths.data_dir is required")
	}
	if cfg.Fetch.Timeout <= 0 {
		errs = append(errs, "fetch.timeout must be > 0")
	}
	if cfg.Fetch.PageSize <= 0 || cfg.Fetch.PageSize > 1000 {
		errs = append(errs, "fetch.page_size must be 1..1000")
	}
	if cfg.Fetch.MaxResults <= 0 {
		errs = append(errs, "fetch.max_results must be > 0")
	}
	if cfg.Fetch.RequestsPerSecond <= 0 {
		errs = append(errs, "fetch.requests_per_second must be > 0")
	}
	if cfg.Fetch.EnrichConcurrency <= 0 {
		errs = append(errs, "fetch.enrich_concurrency must be > 0")
	}
	if cfg.Scoring.MatchThreshold <= 0 || cfg.Scoring.MatchThreshold > 100 {
		errs = append(errs, "scoring.match_threshold must be in (0, 100]")
	}
	if err := triage.ValidateFormula(cfg.Scoring.Formula); err != nil {
		errs = append(errs, fmt.Sprintf("scoring.formula: %v", err))
	}
	if cfg.Export.DeckMax <= 0 {
		errs = append(errs, "export.deck_max must be > 0")
	}
	if cfg.Export.PDFMax <= 0 {
		errs = append(errs, "export.pdf_max must be > 0")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

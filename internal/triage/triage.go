package triage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/pfrederiksen/grant-triage/internal/logger"
	"github.com/pfrederiksen/grant-triage/internal/opportunity"
)

// Partition is the output bucket a row lands in.
type Partition string

const (
	Clean      Partition = "Clean"
	Dirty      Partition = "Dirty"
	OutOfScope Partition = "OutOfScope"
)

const (
	DefaultFormula        = "Relevance * EQOREFit * (EaseOfUse / 5)"
	DefaultMatchThreshold = 33.0
)

// Formula variables. Match is 0 when the cell is blank or variable.
var Variables = []string{"Relevance", "EQOREFit", "EaseOfUse", "Match"}

// Settings controls scoring. The zero value is not usable; start from DefaultSettings.
type Settings struct {
	Formula        string
	MatchThreshold float64
}

func DefaultSettings() Settings {
	return Settings{Formula: DefaultFormula, MatchThreshold: DefaultMatchThreshold}
}

// Scored is a record with its derived fields.
type Scored struct {
	*opportunity.Record
	Score     float64   `json:"score"`
	Rank      int       `json:"rank,omitempty"` // 1..N for Clean, 0 otherwise
	Partition Partition `json:"partition"`
	Flags     []string  `json:"flags,omitempty"`
}

// FlagText joins the flags for a single table cell.
func (s *Scored) FlagText() string {
	return strings.Join(s.Flags, "; ")
}

// Result holds the three disjoint partitions. All keeps input order.
type Result struct {
	Clean      []*Scored
	Dirty      []*Scored
	OutOfScope []*Scored
	All        []*Scored
}

// Scorer evaluates the score formula and applies the partition rules.
type Scorer struct {
	expr     *govaluate.EvaluableExpression
	settings Settings
}

// NewScorer compiles the formula in s.
func NewScorer(s Settings) (*Scorer, error) {
	expr, err := compile(s.Formula)
	if err != nil {
		return nil, err
	}
	if s.MatchThreshold <= 0 {
		s.MatchThreshold = DefaultMatchThreshold
	}
	return &Scorer{expr: expr, settings: s}, nil
}

// ValidateFormula reports whether formula compiles, uses only known
// variables and evaluates to a number.
func ValidateFormula(formula string) error {
	_, err := compile(formula)
	return err
}

func compile(formula string) (*govaluate.EvaluableExpression, error) {
	if strings.TrimSpace(formula) == "" {
		return nil, errors.New("formula is empty")
	}
	expr, err := govaluate.NewEvaluableExpression(formula)
	if err != nil {
		return nil, fmt.Errorf("compiling formula: %w", err)
	}

	known := make(map[string]bool, len(Variables))
	for _, v := range Variables {
		known[v] = true
	}
	for _, v := range expr.Vars() {
		if !known[v] {
			return nil, fmt.Errorf("unknown variable %q (allowed: %s)", v, strings.Join(Variables, ", "))
		}
	}

	probe := map[string]interface{}{"Relevance": 1.0, "EQOREFit": 1.0, "EaseOfUse": 1.0, "Match": 1.0}
	out, err := expr.Evaluate(probe)
	if err != nil {
		return nil, fmt.Errorf("evaluating formula: %w", err)
	}
	if _, ok := out.(float64); !ok {
		return nil, fmt.Errorf("formula must produce a number, got %T", out)
	}
	return expr, nil
}

// Score evaluates the formula for one record. Evaluation failures and
// non-finite results score 0.
func (s *Scorer) Score(r *opportunity.Record) float64 {
	match := 0.0
	if r.Match != nil {
		match = *r.Match
	}
	out, err := s.expr.Evaluate(map[string]interface{}{
		"Relevance": r.Relevance,
		"EQOREFit":  r.EQOREFit,
		"EaseOfUse": r.EaseOfUse,
		"Match":     match,
	})
	if err != nil {
		logger.Warn("score evaluation failed", logger.Fields{"row": r.Row, "error": err.Error()})
		return 0
	}
	v, ok := out.(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return 0
	}
	return v
}

// Triage scores every record and partitions it. today is truncated to a date.
func (s *Scorer) Triage(records []*opportunity.Record, today time.Time) *Result {
	today = opportunity.Today(today)
	res := &Result{All: make([]*Scored, 0, len(records))}

	for _, r := range records {
		sc := &Scored{Record: r, Score: s.Score(r)}
		fatal := s.fatalFlags(r, today)
		sc.Flags = fatal

		switch {
		case len(fatal) > 0:
			sc.Partition = Dirty
		case r.Relevance == 0:
			sc.Partition = OutOfScope
		default:
			sc.Partition = Clean
		}

		if r.DeadlineUnparsable() {
			sc.Flags = append(sc.Flags, fmt.Sprintf("deadline unparsable %q", r.DeadlineRaw))
			logger.Warn("deadline unparsable", logger.Fields{
				"row":        r.Row,
				"grant_name": r.GrantName,
				"deadline":   r.DeadlineRaw,
			})
		}

		res.All = append(res.All, sc)
		switch sc.Partition {
		case Clean:
			res.Clean = append(res.Clean, sc)
		case Dirty:
			res.Dirty = append(res.Dirty, sc)
		case OutOfScope:
			res.OutOfScope = append(res.OutOfScope, sc)
		}
	}

	sort.SliceStable(res.Clean, func(i, j int) bool {
		return res.Clean[i].Score > res.Clean[j].Score
	})
	for i, sc := range res.Clean {
		sc.Rank = i + 1
	}
	return res
}

func (s *Scorer) fatalFlags(r *opportunity.Record, today time.Time) []string {
	var flags []string
	if r.DeadlinePassed(today) {
		flags = append(flags, "deadline passed "+r.Deadline.Format(opportunity.DateLayout))
	}
	if r.Match != nil && *r.Match >= s.settings.MatchThreshold {
		flags = append(flags, fmt.Sprintf("match %s%% >= %s%%", FormatScore(*r.Match), FormatScore(s.settings.MatchThreshold)))
	}
	for _, col := range r.MissingIdentity() {
		flags = append(flags, "missing "+col)
	}
	return flags
}

var defaultScorer *Scorer

func init() {
	s, err := NewScorer(DefaultSettings())
	if err != nil {
		panic(err)
	}
	defaultScorer = s
}

// Triage partitions records with the default formula and threshold.
func Triage(records []*opportunity.Record, today time.Time) *Result {
	return defaultScorer.Triage(records, today)
}

// FormatScore renders a number in its shortest decimal form ("12", "7.2").
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Package score rates the output of a harmonizer. Every point of the index
// is traceable to a signal and the formula in its data.
package score

import (
	"fmt"
	"math"

	"github.com/openclimate/harmonize/internal/harmonize"
	"github.com/openclimate/harmonize/internal/model"
)

// Scorer calculates the quality index of harmonized data
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// observation is one actor-year pair of output
type observation struct {
	actor string
	year  int
}

func observations(res *harmonize.Result) []observation {
	var out []observation
	for _, e := range res.Emissions {
		out = append(out, observation{e.ActorID, e.Year})
	}
	for _, g := range res.GDP {
		out = append(out, observation{g.ActorID, g.Year})
	}
	return out
}

// Calculate rates one result: completeness (0-40), actor match (0-30) and
// year coverage (0-30)
func (s *Scorer) Calculate(res *harmonize.Result) model.Quality {
	obs := observations(res)
	if len(obs) == 0 {
		return model.Quality{
			Index: 0,
			Signals: []model.Signal{{
				Type:        model.SignalEmpty,
				Severity:    model.SeverityCritical,
				Description: "No rows produced",
				Data:        map[string]any{"rows_read": res.RowsRead},
			}},
		}
	}

	completeness, completenessSignal := s.calculateCompleteness(len(obs), res.Dropped[harmonize.ReasonMissing])
	match, matchSignal := s.calculateActorMatch(obs, len(res.Unmatched))
	coverage, coverageSignal := s.calculateYearCoverage(obs)

	return model.Quality{
		Index:   completeness + match + coverage,
		Signals: []model.Signal{completenessSignal, matchSignal, coverageSignal},
	}
}

func (s *Scorer) calculateCompleteness(rows, missing int) (int, model.Signal) {
	ratio := float64(rows) / float64(rows+missing)
	score := int(math.Round(ratio * 40))

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 0.8 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalCompleteness,
		Severity:    severity,
		Description: fmt.Sprintf("Values present: %d/%d (%.0f%%)", rows, rows+missing, ratio*100),
		Data: map[string]any{
			"rows":    rows,
			"missing": missing,
			"ratio":   ratio,
			"score":   score,
			"formula": "rows / (rows + missing) * 40",
		},
	}
}

func (s *Scorer) calculateActorMatch(obs []observation, unmatched int) (int, model.Signal) {
	actors := make(map[string]bool)
	for _, o := range obs {
		actors[o.actor] = true
	}
	matched := len(actors)
	ratio := float64(matched) / float64(matched+unmatched)
	score := int(math.Round(ratio * 30))

	severity := model.SeverityInfo
	if unmatched > 0 {
		severity = model.SeverityWarning
	}
	if ratio < 0.8 {
		severity = model.SeverityCritical
	}

	return score, model.Signal{
		Type:        model.SignalActorMatch,
		Severity:    severity,
		Description: fmt.Sprintf("Actors matched: %d, unmatched: %d", matched, unmatched),
		Data: map[string]any{
			"matched":   matched,
			"unmatched": unmatched,
			"ratio":     ratio,
			"score":     score,
			"formula":   "matched / (matched + unmatched) * 30",
		},
	}
}

// calculateYearCoverage compares the actor-year pairs present against a
// full grid of every actor over the overall year range
func (s *Scorer) calculateYearCoverage(obs []observation) (int, model.Signal) {
	first, last := yearRange(obs)
	actors := make(map[string]bool)
	pairs := make(map[observation]bool)
	for _, o := range obs {
		actors[o.actor] = true
		pairs[o] = true
	}

	expected := len(actors) * (last - first + 1)
	ratio := float64(len(pairs)) / float64(expected)
	score := int(math.Round(ratio * 30))

	severity := model.SeverityInfo
	if ratio < 0.5 {
		severity = model.SeverityCritical
	} else if ratio < 0.9 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalYearCoverage,
		Severity:    severity,
		Description: fmt.Sprintf("Years %d-%d: %d/%d actor-years present", first, last, len(pairs), expected),
		Data: map[string]any{
			"first_year": first,
			"last_year":  last,
			"actors":     len(actors),
			"present":    len(pairs),
			"expected":   expected,
			"ratio":      ratio,
			"score":      score,
			"formula":    "present / (actors * (last_year - first_year + 1)) * 30",
		},
	}
}

// yearRange returns the first and last year of the observations
func yearRange(obs []observation) (first, last int) {
	for i, o := range obs {
		if i == 0 || o.year < first {
			first = o.year
		}
		if i == 0 || o.year > last {
			last = o.year
		}
	}
	return first, last
}

// Summarize builds the report entry for one result
func (s *Scorer) Summarize(res *harmonize.Result) model.SourceReport {
	obs := observations(res)
	actors := make(map[string]bool)
	for _, o := range obs {
		actors[o.actor] = true
	}
	first, last := yearRange(obs)
	quality := s.Calculate(res)

	return model.SourceReport{
		Source:      res.Source,
		Table:       res.Table,
		DataSource:  res.Metadata.DataSource.ID,
		RowsRead:    res.RowsRead,
		RowsWritten: res.Rows(),
		Dropped:     res.Dropped,
		Unmatched:   res.Unmatched,
		Actors:      len(actors),
		FirstYear:   first,
		LastYear:    last,
		Quality:     &quality,
	}
}

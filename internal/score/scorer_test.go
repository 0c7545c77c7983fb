package score

import (
	"testing"

	"github.com/openclimate/harmonize/internal/harmonize"
	"github.com/openclimate/harmonize/internal/model"
)

func emissions(pairs ...any) []model.EmissionsAgg {
	var out []model.EmissionsAgg
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.EmissionsAgg{ActorID: pairs[i].(string), Year: pairs[i+1].(int)})
	}
	return out
}

func TestScorer_Calculate_Perfect(t *testing.T) {
	res := &harmonize.Result{
		Source:    harmonize.SourcePRIMAP,
		Emissions: emissions("DEU", 1990, "DEU", 1991, "FRA", 1990, "FRA", 1991),
	}

	q := NewScorer().Calculate(res)
	if q.Index != 100 {
		t.Errorf("Expected index 100, got %d", q.Index)
	}
	if len(q.Signals) != 3 {
		t.Fatalf("Expected 3 signals, got %d", len(q.Signals))
	}
	for _, s := range q.Signals {
		if s.Severity != model.SeverityInfo {
			t.Errorf("Expected info severity for %s, got %s", s.Type, s.Severity)
		}
	}
}

func TestScorer_Calculate_Gaps(t *testing.T) {
	res := &harmonize.Result{
		Emissions: emissions("DEU", 1990, "DEU", 1991, "FRA", 1990),
		Dropped:   map[string]int{harmonize.ReasonMissing: 1},
		Unmatched: []string{"XXA"},
	}

	q := NewScorer().Calculate(res)

	// completeness 3/4*40 = 30, match 2/3*30 = 20, coverage 3/4*30 = 22.5 -> 23
	if q.Index != 73 {
		t.Errorf("Expected index 73, got %d", q.Index)
	}

	match := q.Signals[1]
	if match.Type != model.SignalActorMatch {
		t.Fatalf("Expected actor match signal, got %s", match.Type)
	}
	if match.Severity != model.SeverityCritical {
		t.Errorf("Expected critical severity for 2/3 matched, got %s", match.Severity)
	}
	if match.Data["unmatched"] != 1 {
		t.Errorf("Expected unmatched=1 in data, got %v", match.Data["unmatched"])
	}

	coverage := q.Signals[2]
	if coverage.Data["expected"] != 4 || coverage.Data["present"] != 3 {
		t.Errorf("Unexpected coverage data %v", coverage.Data)
	}
}

func TestScorer_Calculate_Empty(t *testing.T) {
	q := NewScorer().Calculate(&harmonize.Result{RowsRead: 12})
	if q.Index != 0 {
		t.Errorf("Expected index 0, got %d", q.Index)
	}
	if len(q.Signals) != 1 || q.Signals[0].Type != model.SignalEmpty {
		t.Errorf("Expected a single empty signal, got %+v", q.Signals)
	}
}

func TestScorer_Summarize(t *testing.T) {
	res := &harmonize.Result{
		Source: harmonize.SourceIMF,
		Table:  model.TableGDP,
		GDP: []model.GDP{
			{ActorID: "DEU", Year: 1980},
			{ActorID: "DEU", Year: 2021},
			{ActorID: "NAM", Year: 2000},
		},
		RowsRead: 6,
		Metadata: model.Metadata{DataSource: model.DataSource{ID: "IMF:WEO:2022-10"}},
	}

	r := NewScorer().Summarize(res)
	if r.Actors != 2 {
		t.Errorf("Expected 2 actors, got %d", r.Actors)
	}
	if r.FirstYear != 1980 || r.LastYear != 2021 {
		t.Errorf("Expected 1980-2021, got %d-%d", r.FirstYear, r.LastYear)
	}
	if r.RowsWritten != 3 || r.RowsRead != 6 {
		t.Errorf("Unexpected row counts %d/%d", r.RowsWritten, r.RowsRead)
	}
	if r.DataSource != "IMF:WEO:2022-10" || r.Quality == nil {
		t.Errorf("Unexpected report %+v", r)
	}
}

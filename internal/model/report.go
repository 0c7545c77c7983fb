package model

import "time"

// RunReport summarises one harmonize run for review
type RunReport struct {
	GeneratedAt time.Time      `json:"generated_at"`
	OutputDir   string         `json:"output_dir"`
	Sources     []SourceReport `json:"sources"`
	Written     map[string]int `json:"written"` // rows per table
}

// SourceReport describes what one source contributed
type SourceReport struct {
	Source      string         `json:"source"`
	Table       string         `json:"table,omitempty"`
	DataSource  string         `json:"datasource_id,omitempty"`
	RowsRead    int            `json:"rows_read"`
	RowsWritten int            `json:"rows_written"`
	Dropped     map[string]int `json:"dropped,omitempty"`
	Unmatched   []string       `json:"unmatched,omitempty"`
	Actors      int            `json:"actors"`
	FirstYear   int            `json:"first_year,omitempty"`
	LastYear    int            `json:"last_year,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
	Quality     *Quality       `json:"quality,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Quality is a transparent 0-100 index built from signals
type Quality struct {
	Index   int      `json:"index"`
	Signals []Signal `json:"signals"`
}

// Signal is one diagnostic with the inputs that produced it
type Signal struct {
	Type        SignalType     `json:"type"`
	Severity    SignalSeverity `json:"severity"`
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// SignalType classifies a quality signal
type SignalType string

const (
	SignalCompleteness SignalType = "completeness" // observations with a value
	SignalActorMatch   SignalType = "actor_match"  // source areas joined to an actor
	SignalYearCoverage SignalType = "year_coverage"
	SignalEmpty        SignalType = "empty"
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

package model

import (
	"os"
	"path/filepath"
)

// Table names in the OpenClimate schema
const (
	TableEmissionsAgg = "EmissionsAgg"
	TableGDP          = "GDP"
	TablePublisher    = "Publisher"
	TableDataSource   = "DataSource"
	TableMethodology  = "Methodology"
)

// EmissionsAgg is one aggregate emissions observation (metric tonnes)
type EmissionsAgg struct {
	EmissionsID    string `csv:"emissions_id" yaml:"emissions_id"`
	ActorID        string `csv:"actor_id" yaml:"actor_id"`
	Year           int    `csv:"year" yaml:"year"`
	TotalEmissions int64  `csv:"total_emissions" yaml:"total_emissions"`
	MethodologyID  string `csv:"methodology_id" yaml:"methodology_id"`
	DataSourceID   string `csv:"datasource_id" yaml:"datasource_id"`
}

// GDP is one gross domestic product observation (current USD)
type GDP struct {
	ActorID      string `csv:"actor_id" yaml:"actor_id"`
	GDP          int64  `csv:"gdp" yaml:"gdp"`
	Year         int    `csv:"year" yaml:"year"`
	DataSourceID string `csv:"datasource_id" yaml:"datasource_id"`
}

// Publisher identifies who publishes a data source
type Publisher struct {
	ID   string `csv:"id" yaml:"id" mapstructure:"id"`
	Name string `csv:"name" yaml:"name" mapstructure:"name"`
	URL  string `csv:"URL" yaml:"url" mapstructure:"url"`
}

// DataSource describes a published dataset
type DataSource struct {
	ID        string `csv:"datasource_id" yaml:"datasource_id" mapstructure:"datasource_id"`
	Name      string `csv:"name" yaml:"name" mapstructure:"name"`
	Publisher string `csv:"publisher" yaml:"publisher" mapstructure:"publisher"`
	Published string `csv:"published" yaml:"published" mapstructure:"published"`
	URL       string `csv:"URL" yaml:"url" mapstructure:"url"`
}

// Methodology describes how a dataset was produced
type Methodology struct {
	ID   string `csv:"methodology_id" yaml:"methodology_id" mapstructure:"methodology_id"`
	Name string `csv:"name" yaml:"name" mapstructure:"name"`
	Link string `csv:"methodology_link" yaml:"methodology_link" mapstructure:"methodology_link"`
}

// Metadata groups the fixed-content rows that accompany one source.
// Methodology is nil for sources without one (IMF GDP).
type Metadata struct {
	Publisher   Publisher    `yaml:"publisher" mapstructure:"publisher"`
	DataSource  DataSource   `yaml:"datasource" mapstructure:"datasource"`
	Methodology *Methodology `yaml:"methodology,omitempty" mapstructure:"methodology"`
}

// MethodologyID returns the methodology id or "" when there is none
func (m Metadata) MethodologyID() string {
	if m.Methodology == nil {
		return ""
	}
	return m.Methodology.ID
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "harmonize")
	}
	return filepath.Join(dir, "harmonize")
}

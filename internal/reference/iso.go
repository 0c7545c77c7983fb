// Package reference loads the shared lookup tables: ISO-3166 country codes,
// the OpenClimate actor table and the ClimActor country-name dictionary.
package reference

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/openclimate/harmonize/internal/frame"
)

// isoColumns maps ISO-3166-1 CSV headers to their short names
var isoColumns = map[string]string{
	"English short name": "country",
	"French short name":  "country_french",
	"Alpha-2 code":       "iso2",
	"Alpha-3 code":       "iso3",
}

// ReadISOCodes parses the ISO-3166-1 table into the columns
// country, country_french, iso2, iso3
func ReadISOCodes(data []byte) (dataframe.DataFrame, error) {
	df, err := frame.Read(data)
	if err != nil {
		return df, fmt.Errorf("iso codes: %w", err)
	}

	df, err = frame.Rename(df, isoColumns)
	if err != nil {
		return df, fmt.Errorf("iso codes: %w", err)
	}

	df, err = frame.Select(df, "country", "country_french", "iso2", "iso3")
	if err != nil {
		return df, fmt.Errorf("iso codes: %w", err)
	}

	return frame.Strip(df, "iso3")
}

// ReadActorTable parses the OpenClimate actor table keeping every column.
// Names are harmonized; when two actors harmonize to the same name the first
// one is kept.
func ReadActorTable(data []byte, dict *Dictionary) (dataframe.DataFrame, error) {
	df, err := frame.Read(data)
	if err != nil {
		return df, fmt.Errorf("actors: %w", err)
	}
	if err := frame.Require(df, "actor_id", "name"); err != nil {
		return df, fmt.Errorf("actors: %w", err)
	}

	df, err = frame.Apply(df, "name", func(name string) string {
		return dict.Harmonize(name)
	})
	if err != nil {
		return df, fmt.Errorf("actors: %w", err)
	}

	seen := make(map[string]bool)
	return frame.Where(df, "name", func(el series.Element) bool {
		name := el.String()
		if seen[name] {
			return false
		}
		seen[name] = true
		return true
	})
}

// ReadActors is ReadActorTable narrowed to the join columns actor_id and name
func ReadActors(data []byte, dict *Dictionary) (dataframe.DataFrame, error) {
	df, err := ReadActorTable(data, dict)
	if err != nil {
		return df, err
	}
	return Actors(df)
}

// Actors narrows an actor table to actor_id and name
func Actors(table dataframe.DataFrame) (dataframe.DataFrame, error) {
	df, err := frame.Select(table, "actor_id", "name")
	if err != nil {
		return df, fmt.Errorf("actors: %w", err)
	}
	return df, nil
}

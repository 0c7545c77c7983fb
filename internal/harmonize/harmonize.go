// Package harmonize turns the PRIMAP, UNFCCC and IMF source datasets into
// OpenClimate EmissionsAgg and GDP rows.
//
// Every harmonizer follows the same pipeline: read, filter, rename, join
// against the reference tables, reshape wide to long, convert units and
// build composite identifiers. Rows that cannot be placed are dropped and
// counted by reason.
package harmonize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/sync/errgroup"

	"github.com/openclimate/harmonize/internal/frame"
	"github.com/openclimate/harmonize/internal/model"
	"github.com/openclimate/harmonize/internal/reference"
)

// Source names
const (
	SourcePRIMAP = "primap"
	SourceUNFCCC = "unfccc"
	SourceIMF    = "imf"
)

// Reasons a row is dropped
const (
	ReasonFiltered  = "filtered"
	ReasonAggregate = "aggregate"
	ReasonFooter    = "footer"
	ReasonUnmatched = "unmatched"
	ReasonExcluded  = "excluded"
	ReasonMissing   = "missing"
	ReasonYear      = "year"
)

// Opener reads the content of a dataset locator
type Opener interface {
	Open(ctx context.Context, locator string) ([]byte, error)
}

// Harmonizer converts one source dataset
type Harmonizer interface {
	Name() string
	Harmonize(ctx context.Context, ref *Reference) (*Result, error)
}

// Reference holds the lookup tables shared by all harmonizers
type Reference struct {
	// ISO has columns country, country_french, iso2, iso3
	ISO        dataframe.DataFrame
	// Actors has columns actor_id, name with harmonized names
	Actors     dataframe.DataFrame
	// ActorTable is Actors with every column of the actor file
	ActorTable dataframe.DataFrame
	Dict       *reference.Dictionary
}

// LoadReference downloads the three reference tables concurrently and parses them
func LoadReference(ctx context.Context, opener Opener, cfg model.ReferenceConfig) (*Reference, error) {
	var isoData, actorData, dictData []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		isoData, err = opener.Open(gctx, cfg.ISOCodes)
		return err
	})
	g.Go(func() error {
		var err error
		actorData, err = opener.Open(gctx, cfg.Actors)
		return err
	})
	g.Go(func() error {
		var err error
		dictData, err = opener.Open(gctx, cfg.Dictionary)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}

	dict, err := reference.ParseDictionary(dictData)
	if err != nil {
		return nil, err
	}
	iso, err := reference.ReadISOCodes(isoData)
	if err != nil {
		return nil, err
	}
	table, err := reference.ReadActorTable(actorData, dict)
	if err != nil {
		return nil, err
	}
	actors, err := reference.Actors(table)
	if err != nil {
		return nil, err
	}

	return &Reference{ISO: iso, Actors: actors, ActorTable: table, Dict: dict}, nil
}

// Result is the output of one harmonizer run
type Result struct {
	Source string
	// Table is the output table: EmissionsAgg or GDP
	Table     string
	Emissions []model.EmissionsAgg
	GDP       []model.GDP
	Metadata  model.Metadata

	// RowsRead counts source rows before any filtering
	RowsRead int
	// Dropped counts removed rows by reason. Counts before the reshape are
	// source rows, counts after it are observations.
	Dropped map[string]int
	// Unmatched lists the distinct keys that found no reference row
	Unmatched []string
}

func newResult(source, table string, meta model.Metadata) *Result {
	return &Result{Source: source, Table: table, Metadata: meta, Dropped: make(map[string]int)}
}

// Rows returns the number of output rows
func (r *Result) Rows() int {
	return len(r.Emissions) + len(r.GDP)
}

func (r *Result) drop(reason string, n int) {
	if n > 0 {
		r.Dropped[reason] += n
	}
}

// exclude drops rows whose col is listed in values, counting them under reason
func (r *Result) exclude(df dataframe.DataFrame, col string, values []string, reason string) (dataframe.DataFrame, error) {
	if len(values) == 0 {
		return df, nil
	}
	out, err := frame.Exclude(df, col, values)
	if err != nil {
		return out, err
	}
	r.drop(reason, df.Nrow()-out.Nrow())
	return out, nil
}

// dropUnmatched removes rows left without a value in col by a left join and
// records the distinct key values of those rows
func (r *Result) dropUnmatched(df dataframe.DataFrame, col, key string, logger *slog.Logger) (dataframe.DataFrame, error) {
	s := df.Col(col)
	if s.Err != nil {
		return df, fmt.Errorf("column %q: %w", col, s.Err)
	}
	keys, err := frame.Strings(df, key)
	if err != nil {
		return df, err
	}

	seen := make(map[string]bool)
	var unmatched []string
	for i := 0; i < s.Len(); i++ {
		if !s.Elem(i).IsNA() || seen[keys[i]] {
			continue
		}
		seen[keys[i]] = true
		unmatched = append(unmatched, keys[i])
	}
	if len(unmatched) == 0 {
		return df, nil
	}
	sort.Strings(unmatched)
	r.Unmatched = append(r.Unmatched, unmatched...)
	logger.Warn("dropping rows without a reference match", "source", r.Source, "key", key, "values", unmatched)

	out, err := frame.Present(df, col)
	if err != nil {
		return out, err
	}
	r.drop(ReasonUnmatched, df.Nrow()-out.Nrow())
	return out, nil
}

// EmissionsID builds the composite identifier source:actor:year
func EmissionsID(source, actorID string, year int) string {
	return fmt.Sprintf("%s:%s:%d", source, actorID, year)
}

func nonEmpty(df dataframe.DataFrame, what string) error {
	if df.Nrow() == 0 {
		return fmt.Errorf("%s: %w", what, frame.ErrEmpty)
	}
	return nil
}

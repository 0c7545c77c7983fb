package harmonize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"

	"github.com/openclimate/harmonize/internal/frame"
	"github.com/openclimate/harmonize/internal/model"
)

// unfcccMissing are the notation keys UNFCCC uses in place of a number
var unfcccMissing = frame.NewMissing("NO", "NE", "NA", "IE", "C", "-")

// UNFCCC harmonizes a UNFCCC GHG time series export (kt CO2 eq)
type UNFCCC struct {
	cfg    model.UNFCCCConfig
	opener Opener
	logger *slog.Logger
}

// NewUNFCCC creates a UNFCCC harmonizer
func NewUNFCCC(cfg model.UNFCCCConfig, opener Opener, logger *slog.Logger) *UNFCCC {
	if logger == nil {
		logger = slog.Default()
	}
	return &UNFCCC{cfg: cfg, opener: opener, logger: logger}
}

// Name returns the source name
func (u *UNFCCC) Name() string {
	return SourceUNFCCC
}

// Harmonize reads the configured export and returns EmissionsAgg rows
// sorted by actor and year. It fails when a country name is not canonical
// after harmonization.
func (u *UNFCCC) Harmonize(ctx context.Context, ref *Reference) (*Result, error) {
	if u.cfg.Locator == "" {
		return nil, fmt.Errorf("unfccc: no locator configured")
	}
	data, err := u.opener.Open(ctx, u.cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}
	df, err := frame.Read(data, frame.WithHeaderCell(u.cfg.CountryColumn))
	if err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}

	res := newResult(SourceUNFCCC, model.TableEmissionsAgg, u.cfg.Metadata)
	res.RowsRead = df.Nrow()

	df, err = u.countries(df, ref, res)
	if err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}

	if df, err = frame.WideToLong(df, "year", "emissions"); err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}
	if df, err = frame.Sort(df, "actor_id", "year"); err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}

	actors, err := frame.Strings(df, "actor_id")
	if err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}
	values, err := frame.Strings(df, "emissions")
	if err != nil {
		return nil, fmt.Errorf("unfccc: %w", err)
	}
	years, err := df.Col("year").Int()
	if err != nil {
		return nil, fmt.Errorf("unfccc: year: %w", err)
	}

	methodologyID := u.cfg.Metadata.MethodologyID()
	for i, raw := range values {
		kt, ok, err := frame.ParseNumber(raw, unfcccMissing)
		if err != nil {
			return nil, fmt.Errorf("unfccc %s %d: %w", actors[i], years[i], err)
		}
		if !ok {
			res.drop(ReasonMissing, 1)
			continue
		}
		total, err := ToInt(KilotonneToTonne(kt))
		if err != nil {
			return nil, fmt.Errorf("unfccc %s %d: %w", actors[i], years[i], err)
		}

		res.Emissions = append(res.Emissions, model.EmissionsAgg{
			EmissionsID:    EmissionsID(u.cfg.SourceLabel, actors[i], years[i]),
			ActorID:        actors[i],
			Year:           years[i],
			TotalEmissions: total,
			MethodologyID:  methodologyID,
			DataSourceID:   u.cfg.Metadata.DataSource.ID,
		})
	}

	u.logger.Debug("unfccc harmonized", "rows", len(res.Emissions), "dropped", res.Dropped)
	return res, nil
}

// countries cleans and harmonizes the country column and attaches actor_id
func (u *UNFCCC) countries(df dataframe.DataFrame, ref *Reference, res *Result) (dataframe.DataFrame, error) {
	df, err := frame.Rename(df, map[string]string{u.cfg.CountryColumn: "country"})
	if err != nil {
		return df, err
	}
	if df, err = frame.Strip(df, "country"); err != nil {
		return df, err
	}
	if df, err = res.exclude(df, "country", u.cfg.DropCountries, ReasonAggregate); err != nil {
		return df, err
	}
	if err := nonEmpty(df, "after dropping country groups"); err != nil {
		return df, err
	}

	if df, err = frame.Derive(df, "country", "name", ref.Dict.Harmonize); err != nil {
		return df, err
	}
	names, err := frame.Strings(df, "name")
	if err != nil {
		return df, err
	}
	if err := ref.Dict.CheckAllMatch("name", names); err != nil {
		return df, err
	}

	if df, err = frame.LeftJoin(df, ref.Actors, "name"); err != nil {
		return df, err
	}
	return res.dropUnmatched(df, "actor_id", "name", u.logger)
}

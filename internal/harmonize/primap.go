package harmonize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openclimate/harmonize/internal/frame"
	"github.com/openclimate/harmonize/internal/model"
)

// PRIMAP-hist column names
const (
	primapSource   = "source"
	primapScenario = "scenario (PRIMAP-hist)"
	primapArea     = "area (ISO3)"
	primapEntity   = "entity"
	primapCategory = "category (IPCC2006_PRIMAP)"
)

// PRIMAP harmonizes the PRIMAP-hist national emissions time series (Gg)
type PRIMAP struct {
	cfg    model.PRIMAPConfig
	opener Opener
	logger *slog.Logger
}

// NewPRIMAP creates a PRIMAP harmonizer
func NewPRIMAP(cfg model.PRIMAPConfig, opener Opener, logger *slog.Logger) *PRIMAP {
	if logger == nil {
		logger = slog.Default()
	}
	return &PRIMAP{cfg: cfg, opener: opener, logger: logger}
}

// Name returns the source name
func (p *PRIMAP) Name() string {
	return SourcePRIMAP
}

// Harmonize reads the configured PRIMAP file and returns EmissionsAgg rows
// sorted by actor and year
func (p *PRIMAP) Harmonize(ctx context.Context, ref *Reference) (*Result, error) {
	data, err := p.opener.Open(ctx, p.cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	df, err := frame.Read(data)
	if err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}

	res := newResult(SourcePRIMAP, model.TableEmissionsAgg, p.cfg.Metadata)
	res.RowsRead = df.Nrow()

	filters := []struct{ col, value string }{
		{primapEntity, p.cfg.Entity},
		{primapCategory, p.cfg.Category},
		{primapScenario, p.cfg.Scenario},
	}
	for _, f := range filters {
		if f.value == "" {
			continue
		}
		if df, err = frame.Match(df, f.col, f.value); err != nil {
			return nil, fmt.Errorf("primap: %w", err)
		}
		if err := nonEmpty(df, fmt.Sprintf("primap: %s %q", f.col, f.value)); err != nil {
			return nil, err
		}
	}
	res.drop(ReasonFiltered, res.RowsRead-df.Nrow())

	if df, err = frame.Derive(df, primapArea, "iso3", strings.TrimSpace); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	if df, err = res.exclude(df, "iso3", p.cfg.DropArea, ReasonAggregate); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	if err := nonEmpty(df, "primap: after dropping aggregate areas"); err != nil {
		return nil, err
	}

	if df, err = frame.LeftJoin(df, ref.ISO, "iso3"); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	if df, err = res.dropUnmatched(df, "country", "iso3", p.logger); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}

	if df, err = frame.WideToLong(df, "year", "emissions"); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	if df, err = frame.Sort(df, "iso3", "year"); err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}

	sources, err := frame.Strings(df, primapSource)
	if err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	actors, err := frame.Strings(df, "iso3")
	if err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	values, err := frame.Strings(df, "emissions")
	if err != nil {
		return nil, fmt.Errorf("primap: %w", err)
	}
	years, err := df.Col("year").Int()
	if err != nil {
		return nil, fmt.Errorf("primap: year: %w", err)
	}

	missing := frame.NewMissing()
	methodologyID := p.cfg.Metadata.MethodologyID()
	for i, raw := range values {
		gg, ok, err := frame.ParseNumber(raw, missing)
		if err != nil {
			return nil, fmt.Errorf("primap %s %d: %w", actors[i], years[i], err)
		}
		if !ok {
			res.drop(ReasonMissing, 1)
			continue
		}
		total, err := ToInt(GigagramToTonne(gg))
		if err != nil {
			return nil, fmt.Errorf("primap %s %d: %w", actors[i], years[i], err)
		}

		res.Emissions = append(res.Emissions, model.EmissionsAgg{
			EmissionsID:    EmissionsID(sources[i], actors[i], years[i]),
			ActorID:        actors[i],
			Year:           years[i],
			TotalEmissions: total,
			MethodologyID:  methodologyID,
			DataSourceID:   p.cfg.Metadata.DataSource.ID,
		})
	}

	p.logger.Debug("primap harmonized", "rows", len(res.Emissions), "dropped", res.Dropped)
	return res, nil
}

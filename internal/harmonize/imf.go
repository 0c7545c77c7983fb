package harmonize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/openclimate/harmonize/internal/fetch"
	"github.com/openclimate/harmonize/internal/frame"
	"github.com/openclimate/harmonize/internal/model"
)

var imfMissing = frame.NewMissing("no data")

// IMF harmonizes an IMF DataMapper GDP export (billions of current USD)
type IMF struct {
	cfg    model.IMFConfig
	opener Opener
	logger *slog.Logger
}

// NewIMF creates an IMF GDP harmonizer
func NewIMF(cfg model.IMFConfig, opener Opener, logger *slog.Logger) *IMF {
	if logger == nil {
		logger = slog.Default()
	}
	return &IMF{cfg: cfg, opener: opener, logger: logger}
}

// Name returns the source name
func (m *IMF) Name() string {
	return SourceIMF
}

// Harmonize reads the configured workbook and returns GDP rows in USD up to
// MaxYear, sorted by actor and year
func (m *IMF) Harmonize(ctx context.Context, ref *Reference) (*Result, error) {
	if m.cfg.Locator == "" {
		return nil, fmt.Errorf("imf: no locator configured")
	}
	data, err := m.opener.Open(ctx, m.cfg.Locator)
	if err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}

	var df dataframe.DataFrame
	if ext := fetch.Ext(m.cfg.Locator); ext == ".csv" {
		df, err = frame.Read(data)
	} else {
		df, err = frame.ReadExcel(data, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}

	res := newResult(SourceIMF, model.TableGDP, m.cfg.Metadata)
	res.RowsRead = df.Nrow()

	if df, err = m.countries(df, ref, res); err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}

	if df, err = frame.WideToLong(df, "year", "GDP"); err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}
	if df, err = frame.Sort(df, "actor_id", "year"); err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}

	actors, err := frame.Strings(df, "actor_id")
	if err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}
	values, err := frame.Strings(df, "GDP")
	if err != nil {
		return nil, fmt.Errorf("imf: %w", err)
	}
	years, err := df.Col("year").Int()
	if err != nil {
		return nil, fmt.Errorf("imf: year: %w", err)
	}

	for i, raw := range values {
		billions, ok, err := frame.ParseNumber(raw, imfMissing)
		if err != nil {
			return nil, fmt.Errorf("imf %s %d: %w", actors[i], years[i], err)
		}
		if !ok {
			res.drop(ReasonMissing, 1)
			continue
		}
		if m.cfg.MaxYear > 0 && years[i] > m.cfg.MaxYear {
			res.drop(ReasonYear, 1)
			continue
		}
		gdp, err := ToInt(BillionToUnit(billions))
		if err != nil {
			return nil, fmt.Errorf("imf %s %d: %w", actors[i], years[i], err)
		}

		res.GDP = append(res.GDP, model.GDP{
			ActorID:      actors[i],
			GDP:          gdp,
			Year:         years[i],
			DataSourceID: m.cfg.Metadata.DataSource.ID,
		})
	}

	m.logger.Debug("imf harmonized", "rows", len(res.GDP), "dropped", res.Dropped)
	return res, nil
}

// countries drops footer lines and country groups, harmonizes names and
// attaches actor_id
func (m *IMF) countries(df dataframe.DataFrame, ref *Reference, res *Result) (dataframe.DataFrame, error) {
	df, err := frame.Rename(df, map[string]string{m.cfg.CountryColumn: "country"})
	if err != nil {
		return df, err
	}
	if df, err = frame.Strip(df, "country"); err != nil {
		return df, err
	}

	n := df.Nrow()
	df, err = frame.Where(df, "country", func(el series.Element) bool {
		name := el.String()
		if el.IsNA() || name == "" {
			return false
		}
		return m.cfg.FooterPrefix == "" || !strings.HasPrefix(name, m.cfg.FooterPrefix)
	})
	if err != nil {
		return df, err
	}
	res.drop(ReasonFooter, n-df.Nrow())

	if df, err = res.exclude(df, "country", m.cfg.CountryGroups, ReasonAggregate); err != nil {
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

	if df, err = res.exclude(df, "name", m.cfg.ExcludeCountries, ReasonExcluded); err != nil {
		return df, err
	}
	if df, err = frame.LeftJoin(df, ref.Actors, "name"); err != nil {
		return df, err
	}
	return res.dropUnmatched(df, "actor_id", "name", m.logger)
}

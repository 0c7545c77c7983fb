// Package pipeline wires downloads, harmonizers, schema checks and sinks
// into one harmonize run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openclimate/harmonize/internal/cache"
	"github.com/openclimate/harmonize/internal/fetch"
	"github.com/openclimate/harmonize/internal/harmonize"
	"github.com/openclimate/harmonize/internal/metrics"
	"github.com/openclimate/harmonize/internal/model"
	"github.com/openclimate/harmonize/internal/schema"
	"github.com/openclimate/harmonize/internal/score"
	"github.com/openclimate/harmonize/internal/sink"
	"github.com/openclimate/harmonize/internal/validate"
	"github.com/openclimate/harmonize/internal/worker"
)

// ErrUnknownSource is returned for a source name no harmonizer handles
var ErrUnknownSource = errors.New("unknown source")

// Sources lists every harmonizer, in run order
var Sources = []string{harmonize.SourcePRIMAP, harmonize.SourceUNFCCC, harmonize.SourceIMF}

// Pipeline orchestrates a complete harmonize run
type Pipeline struct {
	config  *model.Config
	logger  *slog.Logger
	fetcher *fetch.Fetcher
	opener  *fetch.Opener
	schema  *schema.Schema
	metrics *metrics.Metrics
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := schema.Load(cfg.Output.SchemaPath)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	for _, h := range cfg.RateLimiting.Hosts {
		limiter.SetHostRate(h.Host, h.RequestsPerSecond, 0)
	}

	fetcher := fetch.NewFetcher(fetch.Options{
		Timeout:       cfg.HTTP.Timeout,
		UserAgent:     cfg.HTTP.UserAgent,
		MaxBytes:      cfg.HTTP.MaxBodyBytes,
		MaxRetries:    cfg.HTTP.MaxRetries,
		RespectRobots: cfg.HTTP.RespectRobots,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		NoProxy:       cfg.HTTP.NoProxy,
		Limiter:       limiter,
	})

	var c cache.Cache = cache.Nop{}
	if cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	}

	return &Pipeline{
		config:  cfg,
		logger:  logger,
		fetcher: fetcher,
		opener:  fetch.NewOpener(fetcher, c, cfg.Cache.DiskTTL, logger),
		schema:  s,
		metrics: metrics.New(),
	}, nil
}

// Fetcher returns the HTTP fetcher
func (p *Pipeline) Fetcher() *fetch.Fetcher { return p.fetcher }

// Opener returns the cached dataset opener
func (p *Pipeline) Opener() *fetch.Opener { return p.opener }

// Schema returns the table schema in use
func (p *Pipeline) Schema() *schema.Schema { return p.schema }

// Metrics returns the run metrics
func (p *Pipeline) Metrics() *metrics.Metrics { return p.metrics }

// Locators lists every configured dataset location, reference tables
// first. Sources without a locator are left out.
func (p *Pipeline) Locators() []validate.Locator {
	all := []validate.Locator{
		{Name: "iso_codes", URL: p.config.Reference.ISOCodes},
		{Name: "actors", URL: p.config.Reference.Actors},
		{Name: "dictionary", URL: p.config.Reference.Dictionary},
		{Name: harmonize.SourcePRIMAP, URL: p.config.PRIMAP.Locator},
		{Name: harmonize.SourceUNFCCC, URL: p.config.UNFCCC.Locator},
		{Name: harmonize.SourceIMF, URL: p.config.IMF.Locator},
	}
	out := all[:0]
	for _, l := range all {
		if l.URL != "" {
			out = append(out, l)
		}
	}
	return out
}

// Reference loads the ISO codes, actor table and name dictionary
func (p *Pipeline) Reference(ctx context.Context) (*harmonize.Reference, error) {
	return harmonize.LoadReference(ctx, p.opener, p.config.Reference)
}

// Harmonizers builds the harmonizers for the named sources. With no names,
// every source with a configured locator is selected.
func (p *Pipeline) Harmonizers(names []string) ([]harmonize.Harmonizer, error) {
	explicit := len(names) > 0
	if !explicit {
		names = Sources
	}

	seen := make(map[string]bool)
	var out []harmonize.Harmonizer
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		var (
			h       harmonize.Harmonizer
			locator string
		)
		switch name {
		case harmonize.SourcePRIMAP:
			h, locator = harmonize.NewPRIMAP(p.config.PRIMAP, p.opener, p.logger), p.config.PRIMAP.Locator
		case harmonize.SourceUNFCCC:
			h, locator = harmonize.NewUNFCCC(p.config.UNFCCC, p.opener, p.logger), p.config.UNFCCC.Locator
		case harmonize.SourceIMF:
			h, locator = harmonize.NewIMF(p.config.IMF, p.opener, p.logger), p.config.IMF.Locator
		default:
			return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownSource, name, strings.Join(Sources, ", "))
		}

		if locator == "" && !explicit {
			p.logger.Info("skipping source without a locator", "source", name)
			continue
		}
		out = append(out, h)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no sources to run")
	}
	return out, nil
}

// Summary reports the outcome of a run
type Summary struct {
	Sources  []*worker.SourceResult
	Written  map[string]int
	Duration time.Duration
}

// Failed returns the sources that did not produce output
func (s *Summary) Failed() []*worker.SourceResult {
	var out []*worker.SourceResult
	for _, r := range s.Sources {
		if r.Error != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err returns an error naming every failed source, or nil
func (s *Summary) Err() error {
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, len(failed))
	for i, r := range failed {
		errs[i] = fmt.Errorf("%s: %w", r.Source, r.Error)
	}
	return fmt.Errorf("%d of %d sources failed: %w", len(failed), len(s.Sources), errors.Join(errs...))
}

// Run harmonizes the named sources and writes every table. Source failures
// are reported in the summary; errors writing output abort the run.
func (p *Pipeline) Run(ctx context.Context, names []string) (*Summary, error) {
	start := time.Now()

	harmonizers, err := p.Harmonizers(names)
	if err != nil {
		return nil, err
	}

	ref, err := p.Reference(ctx)
	if err != nil {
		return nil, err
	}

	results := worker.NewBatchProcessor(p.config.Concurrency.Workers, p.logger).Run(ctx, ref, harmonizers)
	for _, r := range results {
		if r.Error == nil {
			p.metrics.ObserveSource(r.Source, r.Result.RowsRead, r.Result.Dropped, r.Duration)
		}
	}

	summary := &Summary{Sources: results, Written: make(map[string]int)}
	if err := p.write(ctx, results, summary); err != nil {
		return summary, err
	}
	summary.Duration = time.Since(start)

	if path := p.config.Output.MetricsFile; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			return summary, err
		}
	}
	if path := p.config.Output.ReportFile; path != "" {
		if err := WriteReport(path, summary.Report(p.config.Output.Dir)); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// Report rates every source and collects the run totals
func (s *Summary) Report(outDir string) *model.RunReport {
	scorer := score.NewScorer()
	report := &model.RunReport{
		GeneratedAt: time.Now().UTC(),
		OutputDir:   outDir,
		Written:     s.Written,
	}
	for _, r := range s.Sources {
		var sr model.SourceReport
		if r.Error != nil {
			sr = model.SourceReport{Source: r.Source, Error: r.Error.Error()}
		} else {
			sr = scorer.Summarize(r.Result)
		}
		sr.DurationMS = r.Duration.Milliseconds()
		report.Sources = append(report.Sources, sr)
	}
	return report
}

// WriteReport writes the run report as indented JSON
func WriteReport(path string, report *model.RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// write stores per-source data tables under {out}/{source}/, the merged
// metadata tables under {out}/ and, when configured, everything in SQL
func (p *Pipeline) write(ctx context.Context, results []*worker.SourceResult, summary *Summary) error {
	db, err := p.openDatabases(ctx)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range db {
			_ = d.Close()
		}
	}()

	var (
		emissions   []model.EmissionsAgg
		gdp         []model.GDP
		metas       []model.Metadata
		emisSources []string
		gdpSources  []string
	)
	for _, r := range results {
		if r.Error != nil {
			continue
		}
		t, err := DataTable(r.Result)
		if err != nil {
			return err
		}
		out := sink.NewCSVSink(filepath.Join(p.config.Output.Dir, r.Source))
		if err := p.WriteTable(ctx, out, t); err != nil {
			return err
		}
		summary.Written[t.Name] += len(t.Rows)
		p.metrics.ObserveWritten(t.Name, len(t.Rows))

		dsID := r.Result.Metadata.DataSource.ID
		switch r.Result.Table {
		case model.TableGDP:
			gdp = append(gdp, r.Result.GDP...)
			gdpSources = append(gdpSources, dsID)
		default:
			emissions = append(emissions, r.Result.Emissions...)
			emisSources = append(emisSources, dsID)
		}
		metas = append(metas, r.Result.Metadata)
	}
	if len(metas) == 0 {
		return nil
	}

	meta, err := MetadataTables(metas)
	if err != nil {
		return err
	}
	root := sink.NewCSVSink(p.config.Output.Dir)
	for _, t := range meta {
		merged, err := p.mergeStored(root, t)
		if err != nil {
			return err
		}
		if err := p.WriteTable(ctx, root, merged); err != nil {
			return err
		}
		summary.Written[t.Name] += len(t.Rows)
		p.metrics.ObserveWritten(t.Name, len(t.Rows))
	}

	if len(db) == 0 {
		return nil
	}
	tables := meta
	if len(emisSources) > 0 {
		t, err := sink.TableOf(model.TableEmissionsAgg, emissions)
		if err != nil {
			return err
		}
		t.Key, t.Scope = DataSourceKey, emisSources
		tables = append(tables, t)
	}
	if len(gdpSources) > 0 {
		t, err := sink.TableOf(model.TableGDP, gdp)
		if err != nil {
			return err
		}
		t.Key, t.Scope = DataSourceKey, gdpSources
		tables = append(tables, t)
	}

	var sinks sink.Multi
	for _, d := range db {
		sinks = append(sinks, d)
	}
	for _, t := range tables {
		if err := p.WriteTable(ctx, sinks, t); err != nil {
			return err
		}
	}
	return nil
}

// mergeStored keeps rows of a previous run's metadata file that this run
// does not cover, so sources that failed or were not selected keep their
// rows. An unreadable previous file is replaced.
func (p *Pipeline) mergeStored(root *sink.CSVSink, t sink.Table) (sink.Table, error) {
	prev, err := root.Read(t.Name)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err == nil {
		var merged sink.Table
		if merged, err = t.Merge(prev); err == nil {
			return merged, nil
		}
	}
	p.logger.Warn("replacing previous table", "table", t.Name, "path", root.Path(t.Name), "error", err)
	return t, nil
}

func (p *Pipeline) openDatabases(ctx context.Context) ([]*sink.SQLSink, error) {
	var out []*sink.SQLSink
	if path := p.config.Output.SQLitePath; path != "" {
		s, err := sink.OpenSQL(ctx, sink.DriverSQLite, path)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if dsn := p.config.Output.PostgresDSN; dsn != "" {
		s, err := sink.OpenSQL(ctx, sink.DriverPostgres, dsn)
		if err != nil {
			for _, o := range out {
				_ = o.Close()
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// WriteTable checks t against the schema, puts its columns in schema order
// and writes it
func (p *Pipeline) WriteTable(ctx context.Context, s sink.Sink, t sink.Table) error {
	if err := p.schema.Check(t.Name, t.Columns); err != nil {
		return err
	}
	fields, err := p.schema.Fields(t.Name)
	if err != nil {
		return err
	}
	if t, err = t.Reorder(fields); err != nil {
		return err
	}
	if err := s.Write(ctx, t); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	p.logger.Debug("table written", "table", t.Name, "rows", len(t.Rows))
	return nil
}

// DataTable converts a harmonizer result into its output table
func DataTable(r *harmonize.Result) (sink.Table, error) {
	if r.Table == model.TableGDP {
		return sink.TableOf(model.TableGDP, r.GDP)
	}
	return sink.TableOf(model.TableEmissionsAgg, r.Emissions)
}

// DataSourceKey is the column that ties data rows to the source that wrote them
const DataSourceKey = "datasource_id"

// MetadataTables builds the Publisher, DataSource and Methodology tables,
// keeping the first row for each id
func MetadataTables(metas []model.Metadata) ([]sink.Table, error) {
	var (
		publishers  []model.Publisher
		datasources []model.DataSource
		methods     []model.Methodology
	)
	for _, m := range metas {
		publishers = append(publishers, m.Publisher)
		datasources = append(datasources, m.DataSource)
		if m.Methodology != nil {
			methods = append(methods, *m.Methodology)
		}
	}

	pub, err := sink.TableOf(model.TablePublisher, publishers)
	if err != nil {
		return nil, err
	}
	ds, err := sink.TableOf(model.TableDataSource, datasources)
	if err != nil {
		return nil, err
	}
	meth, err := sink.TableOf(model.TableMethodology, methods)
	if err != nil {
		return nil, err
	}

	if pub, err = pub.Dedupe("id"); err != nil {
		return nil, err
	}
	if ds, err = ds.Dedupe(DataSourceKey); err != nil {
		return nil, err
	}
	if meth, err = meth.Dedupe("methodology_id"); err != nil {
		return nil, err
	}
	return []sink.Table{pub, ds, meth}, nil
}

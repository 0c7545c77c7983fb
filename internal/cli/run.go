package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openclimate/harmonize/internal/pipeline"
)

var (
	runTimeout time.Duration
	noCache    bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [source...]",
	Short: "Harmonize sources and write OpenClimate tables",
	Long: `Run downloads (or reads) the reference tables and the selected sources,
harmonizes them and writes:

  {out}/{source}/EmissionsAgg.csv or GDP.csv
  {out}/Publisher.csv, DataSource.csv, Methodology.csv

Sources are primap, unfccc and imf. With no arguments every source that
has a locator configured runs. Sources run concurrently; a failed source
does not stop the others, but makes the command exit non-zero.

Example:
  harmonize run
  harmonize run primap --out ./data/processed
  harmonize run unfccc imf --unfccc ./raw/unfccc.csv --imf ./raw/imf-gdp.xls
  harmonize run --sqlite ./openclimate.db --metrics-file ./harmonize.prom`,
	RunE: runHarmonize,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.DurationVar(&runTimeout, "timeout", 30*time.Minute, "total timeout for the run")
	f.BoolVar(&noCache, "no-cache", false, "disable cache (force fresh download)")

	f.String("out", "", "output directory")
	f.Int("workers", 0, "number of sources processed concurrently")
	f.String("sqlite", "", "also write tables to this SQLite database")
	f.String("postgres", "", "also write tables to this PostgreSQL DSN")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	f.String("report", "", "write a JSON run report with per-source quality to this file")
	f.String("schema", "", "table schema file (JSON or YAML)")
	f.String("primap", "", "PRIMAP-hist CSV locator")
	f.String("unfccc", "", "UNFCCC GHG time series locator")
	f.String("imf", "", "IMF GDP export locator")
	f.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	f.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	for flag, key := range map[string]string{
		"out":          "output.dir",
		"workers":      "concurrency.workers",
		"sqlite":       "output.sqlite_path",
		"postgres":     "output.postgres_dsn",
		"metrics-file": "output.metrics_file",
		"report":       "output.report_file",
		"schema":       "output.schema_path",
		"primap":       "primap.locator",
		"unfccc":       "unfccc.locator",
		"imf":          "imf.locator",
		"http-proxy":   "http.http_proxy",
		"https-proxy":  "http.https_proxy",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
}

func runHarmonize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		args = nil
	}

	logger := newLogger()
	p, err := pipeline.NewPipeline(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	summary, err := p.Run(ctx, args)
	if summary != nil {
		printSummary(summary, cfg.Output.Dir)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return summary.Err()
}

func printSummary(s *pipeline.Summary, outDir string) {
	fmt.Fprintln(os.Stderr)
	for _, r := range s.Sources {
		if r.Error != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %-8s %v\n", r.Source, r.Error)
			continue
		}
		res := r.Result
		fmt.Fprintf(os.Stderr, "  ✓ %-8s %d rows (%d read, %d dropped) in %v\n",
			r.Source, res.Rows(), res.RowsRead, totalDropped(res.Dropped), r.Duration.Round(time.Millisecond))
		if verbose {
			reasons := make([]string, 0, len(res.Dropped))
			for reason := range res.Dropped {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			for _, reason := range reasons {
				fmt.Fprintf(os.Stderr, "      dropped %-10s %d\n", reason, res.Dropped[reason])
			}
			if len(res.Unmatched) > 0 {
				fmt.Fprintf(os.Stderr, "      unmatched: %s\n", strings.Join(res.Unmatched, ", "))
			}
		}
	}

	tables := make([]string, 0, len(s.Written))
	for t := range s.Written {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	if len(tables) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Output: %s\n", outDir)
		for _, t := range tables {
			fmt.Fprintf(os.Stderr, "    %-12s %d rows\n", t, s.Written[t])
		}
	}
	fmt.Fprintln(os.Stderr)
}

func totalDropped(dropped map[string]int) int {
	n := 0
	for _, v := range dropped {
		n += v
	}
	return n
}

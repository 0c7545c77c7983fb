package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclimate/harmonize/internal/validate"
)

var (
	sourcesTimeout    time.Duration
	sourcesStaleAfter time.Duration
)

// sourcesCmd checks every configured locator before a run
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Check that configured datasets are reachable",
	Long: `Sources checks every configured locator: remote ones with a HEAD request,
local ones on disk. It reports unreachable locators and data older than
--stale-after (from Last-Modified or the file time). Exits non-zero when
any locator is unreachable.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().DurationVar(&sourcesTimeout, "timeout", 30*time.Second, "per-request timeout")
	sourcesCmd.Flags().DurationVar(&sourcesStaleAfter, "stale-after", 365*24*time.Hour, "age after which data is reported stale")
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p, err := newPipeline()
	if err != nil {
		return err
	}

	v := validate.NewValidator(validate.Options{
		Timeout:    sourcesTimeout,
		Workers:    cfg.Concurrency.Workers,
		UserAgent:  cfg.HTTP.UserAgent,
		StaleAfter: sourcesStaleAfter,
		HTTPProxy:  cfg.HTTP.HTTPProxy,
		HTTPSProxy: cfg.HTTP.HTTPSProxy,
		NoProxy:    cfg.HTTP.NoProxy,
	})
	results := v.Validate(context.Background(), p.Locators())

	failed := 0
	for _, r := range results {
		mark := "✓"
		if !r.Reachable {
			mark = "✗"
			failed++
		} else if r.Stale {
			mark = "!"
		}
		fmt.Fprintf(os.Stderr, "  %s %-10s %s\n", mark, r.Name, r.URL)
		switch {
		case r.Error != "":
			fmt.Fprintf(os.Stderr, "      %s\n", r.Error)
		case !r.Reachable:
			fmt.Fprintf(os.Stderr, "      status %d\n", r.StatusCode)
		}
		if r.AgeDays != nil {
			fmt.Fprintf(os.Stderr, "      last modified %s (%d days)\n", r.LastModified.Format("2006-01-02"), *r.AgeDays)
		}
		if r.RedirectURL != "" && verbose {
			fmt.Fprintf(os.Stderr, "      redirects to %s\n", r.RedirectURL)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d locators unreachable", failed, len(results))
	}
	return nil
}

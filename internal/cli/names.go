package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclimate/harmonize/internal/frame"
	"github.com/openclimate/harmonize/internal/pipeline"
	"github.com/openclimate/harmonize/internal/reference"
)

var (
	checkColumn    string
	checkHarmonize bool
)

// namesCmd groups the country name utilities
var namesCmd = &cobra.Command{
	Use:   "names",
	Short: "Country name dictionary utilities",
}

var namesFindCmd = &cobra.Command{
	Use:   "find <regex>",
	Short: "Print the first dictionary line matching a regex",
	Example: `  harmonize names find "^Viet"
  harmonize names find "Ivoire"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := dictionaryData()
		if err != nil {
			return err
		}
		record, err := reference.FindInCSV(bytes.NewReader(data), args[0])
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(record, ","))
		return nil
	},
}

var namesCheckCmd = &cobra.Command{
	Use:   "check <csv>",
	Short: "Verify a column holds only canonical country names",
	Long: `Check reads a CSV file and reports every value of --column that is not a
canonical ClimActor name. With --harmonize the dictionary corrections are
applied first, which is what run does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := loadDictionary()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		df, err := frame.Read(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		names, err := frame.Strings(df, checkColumn)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if checkHarmonize {
			for i, n := range names {
				names[i] = dict.Harmonize(n)
			}
		}
		if err := dict.CheckAllMatch(checkColumn, names); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %d values in %q are canonical\n", len(names), checkColumn)
		return nil
	},
}

var namesISOCmd = &cobra.Command{
	Use:   "iso",
	Short: "Print the name-harmonized actor table as CSV",
	Long: `Iso prints every column of the configured actor table with names
replaced by their canonical ClimActor form. When two actors share a
canonical name only the first is printed, matching what run joins on.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline()
		if err != nil {
			return err
		}
		ref, err := p.Reference(context.Background())
		if err != nil {
			return err
		}
		return ref.ActorTable.WriteCSV(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(namesCmd)
	namesCmd.AddCommand(namesFindCmd)
	namesCmd.AddCommand(namesCheckCmd)
	namesCmd.AddCommand(namesISOCmd)

	namesCheckCmd.Flags().StringVar(&checkColumn, "column", "name", "column holding country names")
	namesCheckCmd.Flags().BoolVar(&checkHarmonize, "harmonize", false, "apply dictionary corrections before checking")
}

// dictionaryData reads the configured ClimActor dictionary through the cache
func dictionaryData() ([]byte, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	p, err := pipeline.NewPipeline(cfg, newLogger())
	if err != nil {
		return nil, err
	}
	return p.Opener().Open(context.Background(), cfg.Reference.Dictionary)
}

func loadDictionary() (*reference.Dictionary, error) {
	data, err := dictionaryData()
	if err != nil {
		return nil, err
	}
	return reference.ParseDictionary(data)
}

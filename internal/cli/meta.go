package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclimate/harmonize/internal/model"
	"github.com/openclimate/harmonize/internal/schema"
	"github.com/openclimate/harmonize/internal/sink"
)

var metaDir string

// metaCmd groups metadata table edits
var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Edit metadata tables",
}

var metaAddCmd = &cobra.Command{
	Use:   "add <table> key=value...",
	Short: "Append one record to a table CSV",
	Long: `Add appends one record to {dir}/{table}.csv. The keys must be exactly the
schema fields of the table. The header is written only when the file is new.

Example:
  harmonize meta add Publisher id=PRIMAP name="PRIMAP-hist" URL=https://www.pik-potsdam.de`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMetaAdd,
}

func init() {
	rootCmd.AddCommand(metaCmd)
	metaCmd.AddCommand(metaAddCmd)
	metaAddCmd.Flags().StringVar(&metaDir, "dir", "", "table directory (default: output.dir)")
}

// tableNames maps lower-cased table names to the file names run writes
var tableNames = map[string]string{
	strings.ToLower(model.TableEmissionsAgg): model.TableEmissionsAgg,
	strings.ToLower(model.TableGDP):          model.TableGDP,
	strings.ToLower(model.TablePublisher):    model.TablePublisher,
	strings.ToLower(model.TableDataSource):   model.TableDataSource,
	strings.ToLower(model.TableMethodology):  model.TableMethodology,
}

func runMetaAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := schema.Load(cfg.Output.SchemaPath)
	if err != nil {
		return err
	}

	table := args[0]
	if name, ok := tableNames[strings.ToLower(table)]; ok {
		table = name
	}

	record, keys, err := parseRecord(args[1:])
	if err != nil {
		return err
	}
	if err := s.Check(table, keys); err != nil {
		return err
	}
	fields, err := s.Fields(table)
	if err != nil {
		return err
	}

	dir := metaDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	out := sink.NewCSVSink(dir)
	if err := out.Append(table, fields, record); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Appended 1 record to %s\n", out.Path(table))
	return nil
}

// parseRecord splits key=value arguments. Repeated keys are an error.
func parseRecord(args []string) (map[string]string, []string, error) {
	record := make(map[string]string, len(args))
	keys := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if _, dup := record[key]; dup {
			return nil, nil, fmt.Errorf("duplicate key %q", key)
		}
		record[key] = value
		keys = append(keys, key)
	}
	return record, keys, nil
}

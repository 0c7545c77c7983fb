package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclimate/harmonize/internal/schema"
)

var schemaPath string

// schemaCmd prints the table schema
var schemaCmd = &cobra.Command{
	Use:   "schema [table]",
	Short: "List schema tables or the fields of one table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(schemaPath)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			for _, t := range s.Tables() {
				fields, _ := s.Fields(t)
				fmt.Printf("%-14s %s\n", t, strings.Join(fields, ", "))
			}
			return nil
		}
		fields, err := s.Fields(args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Println(f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&schemaPath, "schema", "", "schema file (default: built-in OpenClimate schema)")
}

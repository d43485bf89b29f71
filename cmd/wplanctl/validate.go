package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

// newValidateCmd parses a workbook without touching the database, so a
// vendor export can be checked before anyone imports it.
func newValidateCmd() *cobra.Command {
	var (
		file    string
		mapping string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse an invoice workbook and report row problems without importing",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadMapping(mapping)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read workbook: %w", err)
			}

			rows, rowErrs, err := importer.ParseWorkbook(data, m)
			if err != nil {
				return fmt.Errorf("workbook rejected: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "parsed rows: %d\n", len(rows))
			fmt.Fprintf(out, "row errors:  %d\n", len(rowErrs))
			for _, re := range rowErrs {
				if re.Field != "" {
					fmt.Fprintf(out, "  row %d [%s]: %s\n", re.Row, re.Field, re.Message)
					continue
				}
				fmt.Fprintf(out, "  row %d: %s\n", re.Row, re.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the .xlsx invoice export (required)")
	cmd.Flags().StringVar(&mapping, "mapping", "", "Optional column mapping YAML overriding the vendor defaults")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

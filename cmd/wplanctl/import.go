package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/cli"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/services"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/sheets/google"
)

type importOptions struct {
	file      string
	user      string
	mapping   string
	fromSheet bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import invoices into monthly plans, from a workbook or the configured sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Path to the .xlsx invoice export")
	cmd.Flags().StringVar(&opts.user, "user", "", "User ID to import for (required)")
	cmd.Flags().StringVar(&opts.mapping, "mapping", "", "Optional column mapping YAML overriding the vendor defaults")
	cmd.Flags().BoolVar(&opts.fromSheet, "from-sheet", false, "Read rows from the configured Google Sheet instead of a file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	if opts.fromSheet == (opts.file != "") {
		return errors.New("exactly one of --file or --from-sheet is required")
	}

	mapping, err := loadMapping(opts.mapping)
	if err != nil {
		return err
	}

	logger := slog.Default()
	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitStorage(logger, cfg)
	defer repo.Close()

	imp := importer.NewWithMapping(repo, mapping)
	userID := strings.TrimSpace(opts.user)

	var result *importer.ImportResult
	if opts.fromSheet {
		source, err := google.NewFromConfig(cmd.Context(), cfg, mapping)
		if err != nil {
			return fmt.Errorf("sheet source: %w", err)
		}
		planning := services.NewPlanningService(imp, nil)
		result, err = planning.ImportFromSource(cmd.Context(), userID, source)
		if result != nil {
			printResult(cmd, result)
		}
		return err
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	result, err = imp.ImportWorkbook(cmd.Context(), userID, data)
	if result != nil {
		printResult(cmd, result)
	}
	return err
}

func loadMapping(path string) (importer.ColumnMapping, error) {
	if path == "" {
		return importer.DefaultColumnMapping(), nil
	}
	mapping, err := importer.LoadColumnMapping(path)
	if err != nil {
		return importer.ColumnMapping{}, fmt.Errorf("load column mapping: %w", err)
	}
	return mapping, nil
}

func printResult(cmd *cobra.Command, result *importer.ImportResult) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "encode result:", err)
	}
}

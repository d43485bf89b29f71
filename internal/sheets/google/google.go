// Package google reads invoice rows from a Google spreadsheet via the
// Sheets API, authenticated with service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/config"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
	ports "github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	mapping       importer.ColumnMapping
}

// Ensure interface conformance
var _ ports.InvoiceReader = (*Client)(nil)

// NewFromConfig creates a Sheets client for the configured invoice
// spreadsheet. Credentials come from GOOGLE_CREDENTIALS_JSON or
// GOOGLE_CREDENTIALS_FILE.
func NewFromConfig(ctx context.Context, cfg *config.Config, mapping importer.ColumnMapping) (*Client, error) {
	if !cfg.SheetsConfigured() {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.GoogleSpreadsheetID,
		sheetName:     cfg.GoogleSheetName,
		mapping:       mapping,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg *config.Config) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case cfg.GoogleCredentialsJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.GoogleCredentialsJSON)
	case cfg.GoogleCredentialsFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.GoogleCredentialsFile)
		data, err := os.ReadFile(cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Rows reads the invoice sheet and parses it with the same column
// mapping the upload path uses.
func (c *Client) Rows(ctx context.Context) ([]core.ImportRow, []importer.RowError, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName).
		Context(ctx).
		ValueRenderOption("FORMATTED_VALUE").
		Do()
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", c.sheetName, err)
	}

	grid := toStringGrid(resp.Values)
	rows, rowErrs, err := importer.ParseGrid(grid, c.mapping)
	if err != nil {
		return nil, nil, fmt.Errorf("parse sheet %q: %w", c.sheetName, err)
	}

	slog.InfoContext(ctx, "Read invoice rows from Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		"rows", len(rows),
		"row_errors", len(rowErrs))
	return rows, rowErrs, nil
}

// toStringGrid flattens the API's any-typed cells. Formatted values come
// back as strings already; anything else is rendered via Sprint.
func toStringGrid(values [][]any) [][]string {
	grid := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok {
				cells[j] = strings.TrimSpace(s)
				continue
			}
			cells[j] = strings.TrimSpace(fmt.Sprint(v))
		}
		grid[i] = cells
	}
	return grid
}

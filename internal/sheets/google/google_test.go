package google

import (
	"context"
	"testing"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/config"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

func TestNewFromConfigRequiresSpreadsheetID(t *testing.T) {
	cfg := &config.Config{}
	_, err := NewFromConfig(context.Background(), cfg, importer.DefaultColumnMapping())
	if err == nil {
		t.Fatal("NewFromConfig() = nil error without spreadsheet ID")
	}
}

func TestNewFromConfigRequiresCredentials(t *testing.T) {
	cfg := &config.Config{
		GoogleSpreadsheetID: "sheet-id",
		GoogleSheetName:     "Rechnungen",
	}
	_, err := NewFromConfig(context.Background(), cfg, importer.DefaultColumnMapping())
	if err == nil {
		t.Fatal("NewFromConfig() = nil error without credentials")
	}
}

func TestToStringGrid(t *testing.T) {
	grid := toStringGrid([][]any{
		{"Datum", "Leistung", "Anzahl"},
		{" 15.01.2025 ", "Psychotherapie", 3},
		{"16.01.2025", "Logopädie", 2.0},
	})

	if len(grid) != 3 {
		t.Fatalf("grid has %d rows, want 3", len(grid))
	}
	if grid[1][0] != "15.01.2025" {
		t.Errorf("cell = %q, want trimmed date", grid[1][0])
	}
	if grid[1][2] != "3" {
		t.Errorf("numeric cell = %q, want \"3\"", grid[1][2])
	}
	if grid[2][2] != "2" {
		t.Errorf("float cell = %q, want \"2\"", grid[2][2])
	}
}

package importer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ColumnMapping names the header columns of the vendor export. Columns
// are located by name, never by position, so re-ordered exports keep
// working. Date, label and count are mandatory template columns; the
// rest are optional.
type ColumnMapping struct {
	Date          string `yaml:"date"`
	Label         string `yaml:"label"`
	Count         string `yaml:"count"`
	Amount        string `yaml:"amount"`
	PatientType   string `yaml:"patient_type"`
	InvoiceNumber string `yaml:"invoice_number"`
	Notes         string `yaml:"notes"`
}

// DefaultColumnMapping returns the header names of the supported vendor
// format (German practice-billing export).
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Date:          "Datum",
		Label:         "Leistung",
		Count:         "Anzahl",
		Amount:        "Betrag",
		PatientType:   "Patiententyp",
		InvoiceNumber: "Rechnungsnummer",
		Notes:         "Bemerkung",
	}
}

// LoadColumnMapping reads a YAML mapping file. Fields left empty in the
// file fall back to the vendor defaults.
func LoadColumnMapping(path string) (ColumnMapping, error) {
	m := DefaultColumnMapping()
	data, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read mapping file: %w", err)
	}
	var override ColumnMapping
	if err := yaml.Unmarshal(data, &override); err != nil {
		return m, fmt.Errorf("parse mapping file: %w", err)
	}
	merge := func(dst *string, src string) {
		if strings.TrimSpace(src) != "" {
			*dst = strings.TrimSpace(src)
		}
	}
	merge(&m.Date, override.Date)
	merge(&m.Label, override.Label)
	merge(&m.Count, override.Count)
	merge(&m.Amount, override.Amount)
	merge(&m.PatientType, override.PatientType)
	merge(&m.InvoiceNumber, override.InvoiceNumber)
	merge(&m.Notes, override.Notes)
	return m, nil
}

func (m ColumnMapping) Validate() error {
	if strings.TrimSpace(m.Date) == "" ||
		strings.TrimSpace(m.Label) == "" ||
		strings.TrimSpace(m.Count) == "" {
		return fmt.Errorf("column mapping needs date, label and count headers")
	}
	return nil
}

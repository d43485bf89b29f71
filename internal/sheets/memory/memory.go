// Package memory is an in-memory invoice source for tests and local
// development without Google credentials.
package memory

import (
	"context"
	"sync"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

type Source struct {
	mu      sync.Mutex
	rows    []core.ImportRow
	rowErrs []importer.RowError
}

func New(rows []core.ImportRow) *Source {
	return &Source{rows: append([]core.ImportRow(nil), rows...)}
}

// NewFromGrid builds a source from raw cell values, running them through
// the same grid parser as the other sources.
func NewFromGrid(grid [][]string, mapping importer.ColumnMapping) (*Source, error) {
	rows, rowErrs, err := importer.ParseGrid(grid, mapping)
	if err != nil {
		return nil, err
	}
	return &Source{rows: rows, rowErrs: rowErrs}, nil
}

func (s *Source) Rows(_ context.Context) ([]core.ImportRow, []importer.RowError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]core.ImportRow(nil), s.rows...)
	rowErrs := append([]importer.RowError(nil), s.rowErrs...)
	return rows, rowErrs, nil
}

// Add appends a row, for building fixtures incrementally.
func (s *Source) Add(row core.ImportRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
}

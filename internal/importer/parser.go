// Package importer implements the invoice import pipeline: it parses a
// vendor spreadsheet export, resolves rows against the user's therapy
// types, folds them into monthly aggregates and upserts the matching
// monthly-plan records.
//
// One run moves through the stages parsing -> validating -> aggregating
// -> persisting -> completed. Expected per-row failures are collected as
// values in the ImportResult, never raised as errors; only fatal
// preconditions (missing identity, unreadable file, wrong template)
// abort a run.
package importer

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// ParseWorkbook reads the first sheet of an xlsx byte buffer into typed
// import rows. Rows with unparseable cells are reported as row-level
// errors and excluded; they do not abort the parse. The caller is
// responsible for size and MIME guards on the buffer.
func ParseWorkbook(data []byte, mapping ColumnMapping) ([]core.ImportRow, []RowError, error) {
	if err := mapping.Validate(); err != nil {
		return nil, nil, err
	}
	if len(data) == 0 {
		return nil, nil, ErrUnreadable
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrBadTemplate
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return ParseGrid(rows, mapping)
}

// ParseGrid parses an already-extracted cell grid, header row included.
// The Google Sheets source feeds it API values, ParseWorkbook feeds it
// xlsx sheet contents; both get identical row semantics.
func ParseGrid(rows [][]string, mapping ColumnMapping) ([]core.ImportRow, []RowError, error) {
	if err := mapping.Validate(); err != nil {
		return nil, nil, err
	}

	headerIdx, cols := locateHeader(rows, mapping)
	if headerIdx < 0 {
		return nil, nil, ErrBadTemplate
	}

	var (
		parsed  []core.ImportRow
		rowErrs []RowError
		seen    bool
	)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		seen = true
		line := i + 1 // 1-based for user-facing messages
		ir, errs := parseRow(row, cols, mapping, line)
		if len(errs) > 0 {
			rowErrs = append(rowErrs, errs...)
			continue
		}
		parsed = append(parsed, ir)
	}
	if !seen {
		return nil, nil, ErrNoDataRows
	}
	return parsed, rowErrs, nil
}

// columnIndexes maps each configured header to its cell position, -1
// when the sheet does not carry the column.
type columnIndexes struct {
	date, label, count, amount, patientType, invoiceNumber, notes int
}

// locateHeader finds the first row containing the mandatory headers and
// returns its index plus the column positions. Returns -1 when the
// template does not match.
func locateHeader(rows [][]string, mapping ColumnMapping) (int, columnIndexes) {
	for i, row := range rows {
		cols := columnIndexes{date: -1, label: -1, count: -1, amount: -1, patientType: -1, invoiceNumber: -1, notes: -1}
		for j, cell := range row {
			switch normalizeHeader(cell) {
			case normalizeHeader(mapping.Date):
				cols.date = j
			case normalizeHeader(mapping.Label):
				cols.label = j
			case normalizeHeader(mapping.Count):
				cols.count = j
			case normalizeHeader(mapping.Amount):
				cols.amount = j
			case normalizeHeader(mapping.PatientType):
				cols.patientType = j
			case normalizeHeader(mapping.InvoiceNumber):
				cols.invoiceNumber = j
			case normalizeHeader(mapping.Notes):
				cols.notes = j
			}
		}
		if cols.date >= 0 && cols.label >= 0 && cols.count >= 0 {
			return i, cols
		}
	}
	return -1, columnIndexes{}
}

func parseRow(row []string, cols columnIndexes, mapping ColumnMapping, line int) (core.ImportRow, []RowError) {
	cell := func(idx int) string {
		if idx >= 0 && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	var errs []RowError

	date, err := core.ParseVendorDate(cell(cols.date))
	if err != nil {
		errs = append(errs, RowError{
			Row:     line,
			Field:   mapping.Date,
			Message: fmt.Sprintf("unparseable date %q, expected day.month.year", cell(cols.date)),
		})
	}

	label := cell(cols.label)
	if label == "" {
		errs = append(errs, RowError{Row: line, Field: mapping.Label, Message: "missing therapy label"})
	}

	count, err := parseCount(cell(cols.count))
	if err != nil {
		errs = append(errs, RowError{
			Row:     line,
			Field:   mapping.Count,
			Message: fmt.Sprintf("invalid session count %q", cell(cols.count)),
		})
	}

	var revenue *core.Money
	if raw := cell(cols.amount); raw != "" {
		cents, err := core.ParseAmountToCents(raw)
		if err != nil {
			errs = append(errs, RowError{
				Row:     line,
				Field:   mapping.Amount,
				Message: fmt.Sprintf("invalid amount %q", raw),
			})
		} else {
			revenue = &core.Money{Cents: cents}
		}
	}

	patientType, ok := core.ParsePatientType(cell(cols.patientType))
	if !ok {
		errs = append(errs, RowError{
			Row:     line,
			Field:   mapping.PatientType,
			Message: fmt.Sprintf("unknown patient type %q", cell(cols.patientType)),
		})
	}

	if len(errs) > 0 {
		return core.ImportRow{}, errs
	}
	return core.ImportRow{
		Line:          line,
		Date:          date,
		TherapyLabel:  label,
		SessionCount:  count,
		Revenue:       revenue,
		PatientType:   patientType,
		InvoiceNumber: cell(cols.invoiceNumber),
		Notes:         cell(cols.notes),
	}, nil
}

func parseCount(s string) (int, error) {
	if s == "" {
		return 0, core.ErrNegativeCount
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, core.ErrNegativeCount
	}
	return n, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

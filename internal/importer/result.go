package importer

import "errors"

// Stages of one import run, in execution order. No stage is re-entered.
const (
	StageParsing     Stage = "parsing"
	StageValidating  Stage = "validating"
	StageAggregating Stage = "aggregating"
	StagePersisting  Stage = "persisting"
	StageCompleted   Stage = "completed"
)

type Stage string

// Fatal precondition errors. These abort the run before any row is
// processed; everything else accumulates into the ImportResult.
var (
	ErrNoDataRows  = errors.New("workbook contains no data rows")
	ErrBadTemplate = errors.New("workbook does not match the expected template")
	ErrUnreadable  = errors.New("workbook is not a readable spreadsheet")
)

// RowError is a row- or key-level failure that excluded its subject from
// the import but did not abort the run. Row is the 1-based spreadsheet
// row, 0 for persistence errors that have no single source row.
type RowError struct {
	Row     int               `json:"row"`
	Field   string            `json:"field,omitempty"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// RowWarning marks a row that was skipped for a reason the user can fix,
// e.g. a therapy label with no matching reference record.
type RowWarning struct {
	Row     int               `json:"row"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// ImportResult is the complete outcome of one import invocation. It is
// returned to the caller as JSON and never persisted.
type ImportResult struct {
	Success       bool         `json:"success"`
	ImportedCount int          `json:"imported_count"`
	SkippedCount  int          `json:"skipped_count"`
	Errors        []RowError   `json:"errors"`
	Warnings      []RowWarning `json:"warnings"`

	// MissingTherapyTypes lists every unmatched vendor label once, for
	// caller-facing remediation messaging.
	MissingTherapyTypes []string `json:"missing_therapy_types,omitempty"`

	// Years covered by successfully persisted rows, ascending. Not part
	// of the response body; downstream event publishing reads it.
	Years []int `json:"-"`
}

// failed builds the empty result of an aborted run: nothing imported,
// every known row counted as skipped.
func failed(skipped int, errs ...RowError) *ImportResult {
	return &ImportResult{
		Success:      false,
		SkippedCount: skipped,
		Errors:       append([]RowError{}, errs...),
		Warnings:     []RowWarning{},
	}
}

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// Importer drives one import invocation end to end. It is stateless and
// safe to share; concurrent invocations are not coordinated, the last
// upsert per (month, therapyType) wins at the store level.
type Importer struct {
	store   Store
	mapping ColumnMapping
}

func New(store Store) *Importer {
	return &Importer{store: store, mapping: DefaultColumnMapping()}
}

// NewWithMapping builds an importer with a custom vendor column mapping.
func NewWithMapping(store Store, mapping ColumnMapping) *Importer {
	return &Importer{store: store, mapping: mapping}
}

// ImportWorkbook runs the full pipeline over an uploaded spreadsheet.
//
// The returned error is non-nil only for fatal preconditions (missing
// identity, unreadable file, wrong template, empty file, reference fetch
// failure); the accompanying result then reports success=false with all
// rows skipped. Row-level errors, resolution warnings and per-key upsert
// failures never surface as errors - they accumulate in the result.
func (im *Importer) ImportWorkbook(ctx context.Context, userID string, data []byte) (*ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return failed(0), core.ErrMissingIdentity
	}

	slog.InfoContext(ctx, "Import started", "stage", StageParsing, "user_id", userID, "bytes", len(data))
	rows, parseErrs, err := ParseWorkbook(data, im.mapping)
	if err != nil {
		return failed(0, RowError{Message: err.Error()}), err
	}
	return im.Run(ctx, userID, rows, parseErrs)
}

// Run executes the validating, aggregating and persisting stages over
// already-parsed rows. It backs both the upload path and the Google
// Sheets source, which delivers rows without a workbook parse.
func (im *Importer) Run(ctx context.Context, userID string, rows []core.ImportRow, parseErrs []RowError) (*ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return failed(len(rows)), core.ErrMissingIdentity
	}

	result := &ImportResult{
		Errors:   append([]RowError{}, parseErrs...),
		Warnings: []RowWarning{},
	}
	// Rows the parser already excluded.
	result.SkippedCount += distinctRows(parseErrs)

	rows, dupWarnings := DedupeInvoices(rows)
	result.Warnings = append(result.Warnings, dupWarnings...)
	result.SkippedCount += len(dupWarnings)

	slog.InfoContext(ctx, "Resolving rows", "stage", StageValidating, "user_id", userID, "rows", len(rows))
	refs, err := im.store.TherapyTypes(ctx, userID)
	if err != nil {
		// Without the reference snapshot nothing can be validated; the run
		// aborts with every parsed row skipped.
		err = fmt.Errorf("fetch therapy types: %w", err)
		return failed(result.SkippedCount+len(rows), RowError{Message: err.Error()}), err
	}

	resolved, warnings, missing := Resolve(rows, refs)
	result.Warnings = append(result.Warnings, warnings...)
	result.MissingTherapyTypes = missing
	result.SkippedCount += len(rows) - len(resolved)

	slog.InfoContext(ctx, "Aggregating rows", "stage", StageAggregating, "user_id", userID, "rows", len(resolved))
	aggs := Aggregate(resolved)

	slog.InfoContext(ctx, "Persisting aggregates", "stage", StagePersisting, "user_id", userID, "aggregates", len(aggs))
	persisted, persistErrs := persistAggregates(ctx, im.store, userID, aggs)
	result.Errors = append(result.Errors, persistErrs...)

	years := map[int]struct{}{}
	for _, r := range resolved {
		key := AggregateKey{Month: core.MonthOf(r.Row.Date), TherapyTypeID: r.TherapyType.ID}
		if persisted[key] {
			result.ImportedCount++
			years[key.Month.Year()] = struct{}{}
		} else {
			result.SkippedCount++
		}
	}
	for year := range years {
		result.Years = append(result.Years, year)
	}
	sort.Ints(result.Years)

	result.Success = len(result.Errors) == 0
	slog.InfoContext(ctx, "Import completed",
		"stage", StageCompleted,
		"user_id", userID,
		"success", result.Success,
		"imported", result.ImportedCount,
		"skipped", result.SkippedCount,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings))
	return result, nil
}

// distinctRows counts how many source rows an error list covers; one row
// can carry several field errors but is skipped once.
func distinctRows(errs []RowError) int {
	seen := map[int]struct{}{}
	for _, e := range errs {
		if e.Row > 0 {
			seen[e.Row] = struct{}{}
		}
	}
	return len(seen)
}

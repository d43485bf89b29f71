// Package services orchestrates domain operations across storage, the
// import pipeline and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/amqp"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/importer"
)

// EventPublisher emits import-completed events. Nil-safe wiring lives in
// PlanningService so deployments without a broker keep working.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error
}

// InvoiceSource delivers invoice rows from somewhere other than an
// uploaded workbook, e.g. a shared Google Sheet. Row-level parse errors
// come back alongside the rows so the import result can report them.
type InvoiceSource interface {
	Rows(ctx context.Context) ([]core.ImportRow, []importer.RowError, error)
}

// PlanningService runs imports and notifies downstream workers.
type PlanningService struct {
	importer  *importer.Importer
	publisher EventPublisher
}

func NewPlanningService(imp *importer.Importer, publisher EventPublisher) *PlanningService {
	return &PlanningService{importer: imp, publisher: publisher}
}

// ImportWorkbook imports an uploaded spreadsheet for the user and, on
// success, publishes one import-completed event per affected year.
func (s *PlanningService) ImportWorkbook(ctx context.Context, userID string, data []byte) (*importer.ImportResult, error) {
	result, err := s.importer.ImportWorkbook(ctx, userID, data)
	if err != nil {
		return result, err
	}
	s.publishEvents(ctx, userID, result)
	return result, nil
}

// ImportFromSource imports invoice rows pulled from an external source.
func (s *PlanningService) ImportFromSource(ctx context.Context, userID string, source InvoiceSource) (*importer.ImportResult, error) {
	rows, parseErrs, err := source.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice rows: %w", err)
	}

	result, err := s.importer.Run(ctx, userID, rows, parseErrs)
	if err != nil {
		return result, err
	}
	s.publishEvents(ctx, userID, result)
	return result, nil
}

// publishEvents is best-effort: the import already persisted, a broker
// outage must not fail the request.
func (s *PlanningService) publishEvents(ctx context.Context, userID string, result *importer.ImportResult) {
	if s.publisher == nil || result.ImportedCount == 0 {
		return
	}
	for _, year := range result.Years {
		msg := amqp.NewImportCompletedMessage(userID, year, result.ImportedCount, result.SkippedCount)
		if err := s.publisher.PublishImportCompleted(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import completed event",
				"user_id", userID, "year", year, "error", err)
		}
	}
}

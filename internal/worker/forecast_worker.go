// Package worker recomputes yearly forecasts when imports complete.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/amqp"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// ForecastStore is the slice of storage the worker needs.
type ForecastStore interface {
	TherapyTypes(ctx context.Context, userID string) ([]core.TherapyType, error)
	PlansForYear(ctx context.Context, userID string, year int) ([]core.MonthlyPlan, error)
	ExpensesForYear(ctx context.Context, userID string, year int) ([]core.Expense, error)
	SaveForecast(ctx context.Context, snap core.ForecastSnapshot) error
}

// ForecastWorker consumes import-completed messages and refreshes the
// persisted forecast snapshot for the affected user and year.
type ForecastWorker struct {
	store ForecastStore
	now   func() time.Time
}

func NewForecastWorker(store ForecastStore) *ForecastWorker {
	return &ForecastWorker{store: store, now: time.Now}
}

// HandleImportCompleted recomputes and stores the forecast for one
// (user, year). Errors requeue the message at the AMQP layer.
func (w *ForecastWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Recomputing forecast",
		"user_id", msg.UserID,
		"year", msg.Year,
		"imported", msg.Imported)

	var (
		types    []core.TherapyType
		plans    []core.MonthlyPlan
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = w.store.TherapyTypes(gctx, msg.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		plans, err = w.store.PlansForYear(gctx, msg.UserID, msg.Year)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = w.store.ExpensesForYear(gctx, msg.UserID, msg.Year)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load forecast inputs: %w", err)
	}

	snap := core.Forecast(msg.UserID, msg.Year, w.now(), plans, types, expenses)
	if err := w.store.SaveForecast(ctx, snap); err != nil {
		return fmt.Errorf("save forecast snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Forecast updated",
		"user_id", msg.UserID,
		"year", msg.Year,
		"projected_cents", snap.ProjectedRevenue.Cents,
		"months_elapsed", snap.MonthsElapsed)
	return nil
}

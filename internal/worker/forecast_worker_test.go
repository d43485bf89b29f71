package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/amqp"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

type fakeForecastStore struct {
	types    []core.TherapyType
	plans    []core.MonthlyPlan
	expenses []core.Expense
	saved    []core.ForecastSnapshot
	plansErr error
	saveErr  error
}

func (f *fakeForecastStore) TherapyTypes(_ context.Context, _ string) ([]core.TherapyType, error) {
	return f.types, nil
}

func (f *fakeForecastStore) PlansForYear(_ context.Context, _ string, _ int) ([]core.MonthlyPlan, error) {
	return f.plans, f.plansErr
}

func (f *fakeForecastStore) ExpensesForYear(_ context.Context, _ string, _ int) ([]core.Expense, error) {
	return f.expenses, nil
}

func (f *fakeForecastStore) SaveForecast(_ context.Context, snap core.ForecastSnapshot) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, snap)
	return nil
}

func TestHandleImportCompleted(t *testing.T) {
	store := &fakeForecastStore{
		types: []core.TherapyType{
			{ID: "tt-psy", Name: "Psychotherapie", PricePerSession: core.Money{Cents: 8000}},
		},
		plans: []core.MonthlyPlan{
			{
				ID: "p1", UserID: "user-1", TherapyTypeID: "tt-psy",
				Month:           core.NewMonth(2025, time.January),
				PlannedSessions: 10, ActualSessions: 8,
				Revenue: core.Money{Cents: 64000},
			},
		},
		expenses: []core.Expense{
			{ID: "e1", Month: core.NewMonth(2025, time.January), Category: "Miete", Amount: core.Money{Cents: 50000}},
		},
	}

	w := NewForecastWorker(store)
	w.now = func() time.Time { return time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC) }

	msg := amqp.NewImportCompletedMessage("user-1", 2025, 1, 0)
	if err := w.HandleImportCompleted(context.Background(), msg); err != nil {
		t.Fatalf("HandleImportCompleted() error = %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d snapshots, want 1", len(store.saved))
	}
	snap := store.saved[0]
	if snap.UserID != "user-1" || snap.Year != 2025 {
		t.Errorf("snapshot identity = %s/%d, want user-1/2025", snap.UserID, snap.Year)
	}
	if snap.MonthsElapsed != 4 {
		t.Errorf("MonthsElapsed = %d, want 4", snap.MonthsElapsed)
	}
	if snap.ActualRevenue.Cents != 64000 {
		t.Errorf("ActualRevenue = %d, want 64000", snap.ActualRevenue.Cents)
	}
	// 64000 cents over 4 months extrapolates to 192000 for the year.
	if snap.ProjectedRevenue.Cents != 192000 {
		t.Errorf("ProjectedRevenue = %d, want 192000", snap.ProjectedRevenue.Cents)
	}
	if snap.Expenses.Cents != 50000 {
		t.Errorf("Expenses = %d, want 50000", snap.Expenses.Cents)
	}
}

func TestHandleImportCompletedLoadFailure(t *testing.T) {
	store := &fakeForecastStore{plansErr: errors.New("database gone")}
	w := NewForecastWorker(store)

	err := w.HandleImportCompleted(context.Background(), amqp.NewImportCompletedMessage("user-1", 2025, 1, 0))
	if err == nil {
		t.Fatal("HandleImportCompleted() = nil error, want load failure")
	}
	if len(store.saved) != 0 {
		t.Errorf("saved %d snapshots after load failure, want 0", len(store.saved))
	}
}

func TestHandleImportCompletedSaveFailure(t *testing.T) {
	store := &fakeForecastStore{saveErr: errors.New("disk full")}
	w := NewForecastWorker(store)

	err := w.HandleImportCompleted(context.Background(), amqp.NewImportCompletedMessage("user-1", 2025, 1, 0))
	if err == nil {
		t.Fatal("HandleImportCompleted() = nil error, want save failure")
	}
}

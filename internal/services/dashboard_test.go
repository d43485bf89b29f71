package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/storage"
)

type fakeReader struct {
	types       []core.TherapyType
	plans       []core.MonthlyPlan
	expenses    []core.Expense
	forecast    *core.ForecastSnapshot
	forecastErr error
	plansErr    error
}

func (f *fakeReader) TherapyTypes(_ context.Context, _ string) ([]core.TherapyType, error) {
	return f.types, nil
}

func (f *fakeReader) PlansForYear(_ context.Context, _ string, _ int) ([]core.MonthlyPlan, error) {
	return f.plans, f.plansErr
}

func (f *fakeReader) ExpensesForYear(_ context.Context, _ string, _ int) ([]core.Expense, error) {
	return f.expenses, nil
}

func (f *fakeReader) ForecastForYear(_ context.Context, _ string, _ int) (*core.ForecastSnapshot, error) {
	return f.forecast, f.forecastErr
}

func TestOverview(t *testing.T) {
	reader := &fakeReader{
		types: []core.TherapyType{
			{ID: "tt-psy", Name: "Psychotherapie", PricePerSession: core.Money{Cents: 8000}},
		},
		plans: []core.MonthlyPlan{
			{
				ID: "p1", TherapyTypeID: "tt-psy",
				Month:           core.NewMonth(2025, time.January),
				PlannedSessions: 10, ActualSessions: 8,
				Revenue: core.Money{Cents: 64000},
			},
			{
				ID: "p2", TherapyTypeID: "tt-psy",
				Month:           core.NewMonth(2025, time.February),
				PlannedSessions: 10, ActualSessions: 12,
				Revenue: core.Money{Cents: 96000},
			},
		},
		expenses: []core.Expense{
			{ID: "e1", Month: core.NewMonth(2025, time.January), Category: "Miete", Amount: core.Money{Cents: 50000}},
		},
		forecastErr: storage.ErrNotFound,
	}

	data, err := NewDashboardService(reader).Overview(context.Background(), "user-1", 2025)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if data.Year != 2025 {
		t.Errorf("Year = %d, want 2025", data.Year)
	}
	if len(data.Months) != 12 {
		t.Fatalf("Overview() returned %d months, want 12", len(data.Months))
	}

	jan := data.Months[0]
	if jan.ActualSessions != 8 || jan.Revenue.Cents != 64000 {
		t.Errorf("January = %+v, want 8 sessions at 64000 cents", jan)
	}
	if jan.Expenses.Cents != 50000 || jan.Result.Cents != 14000 {
		t.Errorf("January expenses/result = %d/%d, want 50000/14000", jan.Expenses.Cents, jan.Result.Cents)
	}
	if march := data.Months[2]; march.ActualSessions != 0 || march.Revenue.Cents != 0 {
		t.Errorf("March = %+v, want empty month", march)
	}

	if data.TotalRevenue.Cents != 160000 {
		t.Errorf("TotalRevenue = %d, want 160000", data.TotalRevenue.Cents)
	}
	if data.TotalExpenses.Cents != 50000 {
		t.Errorf("TotalExpenses = %d, want 50000", data.TotalExpenses.Cents)
	}
	if data.Result.Cents != 110000 {
		t.Errorf("Result = %d, want 110000", data.Result.Cents)
	}
	if data.Forecast != nil {
		t.Errorf("Forecast = %+v, want nil when no snapshot exists", data.Forecast)
	}
}

func TestOverviewIncludesForecastSnapshot(t *testing.T) {
	reader := &fakeReader{
		forecast: &core.ForecastSnapshot{
			UserID: "user-1", Year: 2025,
			ProjectedRevenue: core.Money{Cents: 1_200_000},
			MonthsElapsed:    4,
		},
	}

	data, err := NewDashboardService(reader).Overview(context.Background(), "user-1", 2025)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if data.Forecast == nil || data.Forecast.ProjectedRevenue.Cents != 1_200_000 {
		t.Errorf("Forecast = %+v, want projected revenue 1200000", data.Forecast)
	}
}

func TestOverviewPropagatesReadErrors(t *testing.T) {
	reader := &fakeReader{
		plansErr:    errors.New("database gone"),
		forecastErr: storage.ErrNotFound,
	}

	_, err := NewDashboardService(reader).Overview(context.Background(), "user-1", 2025)
	if err == nil {
		t.Fatal("Overview() = nil error, want plans read failure")
	}
}

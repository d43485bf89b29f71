package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/storage"
)

// DashboardReader is the slice of storage the dashboard needs.
type DashboardReader interface {
	TherapyTypes(ctx context.Context, userID string) ([]core.TherapyType, error)
	PlansForYear(ctx context.Context, userID string, year int) ([]core.MonthlyPlan, error)
	ExpensesForYear(ctx context.Context, userID string, year int) ([]core.Expense, error)
	ForecastForYear(ctx context.Context, userID string, year int) (*core.ForecastSnapshot, error)
}

// DashboardData is the yearly overview returned to the UI.
type DashboardData struct {
	Year          int                    `json:"year"`
	Months        []core.MonthOverview   `json:"months"`
	TotalRevenue  core.Money             `json:"total_revenue_cents"`
	TotalExpenses core.Money             `json:"total_expenses_cents"`
	Result        core.Money             `json:"result_cents"`
	Forecast      *core.ForecastSnapshot `json:"forecast,omitempty"`
}

type DashboardService struct {
	store DashboardReader
}

func NewDashboardService(store DashboardReader) *DashboardService {
	return &DashboardService{store: store}
}

// Overview assembles the planned-vs-actual view for one year. The four
// reads are independent and run concurrently.
func (s *DashboardService) Overview(ctx context.Context, userID string, year int) (*DashboardData, error) {
	var (
		types    []core.TherapyType
		plans    []core.MonthlyPlan
		expenses []core.Expense
		forecast *core.ForecastSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		types, err = s.store.TherapyTypes(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		plans, err = s.store.PlansForYear(gctx, userID, year)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.store.ExpensesForYear(gctx, userID, year)
		return err
	})
	g.Go(func() error {
		snap, err := s.store.ForecastForYear(gctx, userID, year)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		forecast = snap
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard data: %w", err)
	}

	data := &DashboardData{Year: year, Forecast: forecast}
	for m := time.January; m <= time.December; m++ {
		ov := core.SummarizeMonth(core.NewMonth(year, m), plans, types, expenses)
		data.Months = append(data.Months, ov)
		data.TotalRevenue = data.TotalRevenue.Add(ov.Revenue)
		data.TotalExpenses = data.TotalExpenses.Add(ov.Expenses)
	}
	data.Result = core.Money{Cents: data.TotalRevenue.Cents - data.TotalExpenses.Cents}
	return data, nil
}

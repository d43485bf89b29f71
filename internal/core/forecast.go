package core

import "time"

// TherapyAmount aggregates one therapy type inside an overview.
type TherapyAmount struct {
	TherapyTypeID   string `json:"therapy_type_id"`
	Name            string `json:"name"`
	PlannedSessions int    `json:"planned_sessions"`
	ActualSessions  int    `json:"actual_sessions"`
	Revenue         Money  `json:"revenue_cents"`
}

// MonthOverview is a compact planned-vs-actual summary for one month.
type MonthOverview struct {
	Month           Month           `json:"month"`
	PlannedSessions int             `json:"planned_sessions"`
	ActualSessions  int             `json:"actual_sessions"`
	Revenue         Money           `json:"revenue_cents"`
	Expenses        Money           `json:"expense_cents"`
	Result          Money           `json:"result_cents"` // revenue minus expenses
	ByTherapyType   []TherapyAmount `json:"by_therapy_type,omitempty"`
}

// ForecastSnapshot is the persisted outcome of a yearly forecast run.
type ForecastSnapshot struct {
	UserID           string    `json:"-"`
	Year             int       `json:"year"`
	PlannedRevenue   Money     `json:"planned_revenue_cents"`
	ActualRevenue    Money     `json:"actual_revenue_cents"`
	Expenses         Money     `json:"expense_cents"`
	ProjectedRevenue Money     `json:"projected_revenue_cents"`
	MonthsElapsed    int       `json:"months_elapsed"`
	ComputedAt       time.Time `json:"computed_at"`
}

// SummarizeMonth folds the month's plans and expenses into an overview.
// Plans for other months are ignored so callers can pass a year's worth.
func SummarizeMonth(month Month, plans []MonthlyPlan, types []TherapyType, expenses []Expense) MonthOverview {
	names := make(map[string]string, len(types))
	for _, t := range types {
		names[t.ID] = t.Name
	}

	ov := MonthOverview{Month: month}
	for _, p := range plans {
		if !p.Month.Equal(month.Time) {
			continue
		}
		ov.PlannedSessions += p.PlannedSessions
		ov.ActualSessions += p.ActualSessions
		ov.Revenue = ov.Revenue.Add(p.Revenue)
		ov.ByTherapyType = append(ov.ByTherapyType, TherapyAmount{
			TherapyTypeID:   p.TherapyTypeID,
			Name:            names[p.TherapyTypeID],
			PlannedSessions: p.PlannedSessions,
			ActualSessions:  p.ActualSessions,
			Revenue:         p.Revenue,
		})
	}
	for _, e := range expenses {
		if !e.Month.Equal(month.Time) {
			continue
		}
		ov.Expenses = ov.Expenses.Add(e.Amount)
	}
	ov.Result = Money{Cents: ov.Revenue.Cents - ov.Expenses.Cents}
	return ov
}

// Forecast projects the year's revenue from what has happened so far.
//
// Actual revenue is extrapolated linearly over the months already elapsed
// as of the reference time; before the year starts the projection falls
// back to planned sessions priced at the current reference prices. A
// finished year projects to its actuals.
func Forecast(userID string, year int, asOf time.Time, plans []MonthlyPlan, types []TherapyType, expenses []Expense) ForecastSnapshot {
	prices := make(map[string]Money, len(types))
	for _, t := range types {
		prices[t.ID] = t.PricePerSession
	}

	snap := ForecastSnapshot{UserID: userID, Year: year, ComputedAt: asOf}
	for _, p := range plans {
		if p.Month.Year() != year {
			continue
		}
		snap.ActualRevenue = snap.ActualRevenue.Add(p.Revenue)
		snap.PlannedRevenue = snap.PlannedRevenue.Add(MultiplyCents(prices[p.TherapyTypeID], p.PlannedSessions))
	}
	for _, e := range expenses {
		if e.Month.Year() != year {
			continue
		}
		snap.Expenses = snap.Expenses.Add(e.Amount)
	}

	switch {
	case asOf.Year() > year:
		snap.MonthsElapsed = 12
	case asOf.Year() < year:
		snap.MonthsElapsed = 0
	default:
		snap.MonthsElapsed = int(asOf.Month())
	}

	switch snap.MonthsElapsed {
	case 0:
		snap.ProjectedRevenue = snap.PlannedRevenue
	case 12:
		snap.ProjectedRevenue = snap.ActualRevenue
	default:
		snap.ProjectedRevenue = Money{Cents: snap.ActualRevenue.Cents / int64(snap.MonthsElapsed) * 12}
	}
	return snap
}

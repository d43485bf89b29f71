package importer

import (
	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// AggregateKey identifies one monthly aggregate: the row's date truncated
// to its first-of-month value plus the resolved therapy type.
type AggregateKey struct {
	Month         core.Month
	TherapyTypeID string
}

// MonthlyAggregate accumulates actual sessions and revenue for one key
// during a single run. It has no persisted identity of its own; it is
// flushed into the matching monthly-plan record.
type MonthlyAggregate struct {
	Month          core.Month
	TherapyType    core.TherapyType
	ActualSessions int
	Revenue        core.Money
	Rows           int // number of source rows folded in
}

// Aggregate folds resolved rows into per-key aggregates. Accumulation is
// sums only, so the result is independent of row order. A zero-count row
// still creates its entry: explicit zero-activity months are recorded,
// not treated as absent.
func Aggregate(rows []ResolvedRow) map[AggregateKey]*MonthlyAggregate {
	aggs := make(map[AggregateKey]*MonthlyAggregate)
	for _, r := range rows {
		key := AggregateKey{Month: core.MonthOf(r.Row.Date), TherapyTypeID: r.TherapyType.ID}
		agg, ok := aggs[key]
		if !ok {
			agg = &MonthlyAggregate{Month: key.Month, TherapyType: r.TherapyType}
			aggs[key] = agg
		}
		agg.ActualSessions += r.Row.SessionCount
		agg.Revenue = agg.Revenue.Add(r.Revenue)
		agg.Rows++
	}
	return aggs
}

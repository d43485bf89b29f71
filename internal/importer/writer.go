package importer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

// Ports to the monthly-plan store. The repository in internal/storage
// implements both; tests plug in fakes.
type (
	ReferenceReader interface {
		// TherapyTypes returns the caller's reference snapshot. Fetched once
		// per run, never per row.
		TherapyTypes(ctx context.Context, userID string) ([]core.TherapyType, error)
	}

	PlanUpserter interface {
		// FindPlan returns the plan for (user, therapyType, month), or nil
		// when no record exists.
		FindPlan(ctx context.Context, userID, therapyTypeID string, month core.Month) (*core.MonthlyPlan, error)
		// InsertPlan creates a new record; the store assigns the ID.
		InsertPlan(ctx context.Context, plan core.MonthlyPlan) error
		// UpdatePlanActuals overwrites actual sessions and revenue of an
		// existing record, leaving planned sessions untouched.
		UpdatePlanActuals(ctx context.Context, planID string, actualSessions int, revenue core.Money) error
	}

	Store interface {
		ReferenceReader
		PlanUpserter
	}
)

// persistAggregates upserts every aggregate independently. A failure on
// one key is recorded with its (month, therapyType) context and the
// remaining keys keep going; partial success is reported, never hidden.
// Returns the keys that persisted.
func persistAggregates(ctx context.Context, store PlanUpserter, userID string, aggs map[AggregateKey]*MonthlyAggregate) (map[AggregateKey]bool, []RowError) {
	keys := make([]AggregateKey, 0, len(aggs))
	for key := range aggs {
		keys = append(keys, key)
	}
	// Deterministic upsert and error order.
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].Month.Equal(keys[j].Month.Time) {
			return keys[i].Month.Before(keys[j].Month.Time)
		}
		return keys[i].TherapyTypeID < keys[j].TherapyTypeID
	})

	persisted := make(map[AggregateKey]bool, len(keys))
	var errs []RowError
	for _, key := range keys {
		agg := aggs[key]
		if err := upsertAggregate(ctx, store, userID, key, agg); err != nil {
			slog.ErrorContext(ctx, "Aggregate upsert failed",
				"stage", StagePersisting,
				"month", key.Month.String(),
				"therapy_type_id", key.TherapyTypeID,
				"error", err)
			errs = append(errs, RowError{
				Message: err.Error(),
				Data: map[string]string{
					"month":           key.Month.String(),
					"therapy_type_id": key.TherapyTypeID,
				},
			})
			continue
		}
		persisted[key] = true
	}
	return persisted, errs
}

func upsertAggregate(ctx context.Context, store PlanUpserter, userID string, key AggregateKey, agg *MonthlyAggregate) error {
	existing, err := store.FindPlan(ctx, userID, key.TherapyTypeID, key.Month)
	if err != nil {
		return fmt.Errorf("lookup monthly plan %s/%s: %w", key.Month, agg.TherapyType.Name, err)
	}
	if existing != nil {
		// Overwrite, never add: re-importing the same file must not double
		// the actuals.
		if err := store.UpdatePlanActuals(ctx, existing.ID, agg.ActualSessions, agg.Revenue); err != nil {
			return fmt.Errorf("update monthly plan %s/%s: %w", key.Month, agg.TherapyType.Name, err)
		}
		return nil
	}
	plan := core.MonthlyPlan{
		UserID:          userID,
		TherapyTypeID:   key.TherapyTypeID,
		Month:           key.Month,
		PlannedSessions: 0,
		ActualSessions:  agg.ActualSessions,
		Revenue:         agg.Revenue,
	}
	if err := store.InsertPlan(ctx, plan); err != nil {
		return fmt.Errorf("insert monthly plan %s/%s: %w", key.Month, agg.TherapyType.Name, err)
	}
	return nil
}

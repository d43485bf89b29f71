// Package storage persists the planning domain behind database/sql.
// SQLite (modernc, file-backed) is the default backend; Postgres is
// available for shared deployments. Both run the same embedded
// migrations and share one query set, rebound per dialect.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/BenWWTF/wirtschaftlichkeitsplan-sub005/internal/core"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrSessionExpired = errors.New("session expired")
)

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLite opens (and if needed creates) a file-backed SQLite store and
// applies migrations.
func NewSQLite(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db, dialect: DialectSQLite}, nil
}

// NewPostgres connects to a Postgres database and applies migrations.
func NewPostgres(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(DialectPostgres, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Repository{db: db, dialect: DialectPostgres}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// bind rewrites ? placeholders to $N for Postgres. Queries are written
// once in the ? form.
func (r *Repository) bind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// --- therapy types ---

func (r *Repository) TherapyTypes(ctx context.Context, userID string) ([]core.TherapyType, error) {
	rows, err := r.db.QueryContext(ctx, r.bind(
		`SELECT id, user_id, name, price_per_session_cents
		   FROM therapy_types WHERE user_id = ? ORDER BY name`), userID)
	if err != nil {
		return nil, fmt.Errorf("query therapy types: %w", err)
	}
	defer rows.Close()

	var types []core.TherapyType
	for rows.Next() {
		var t core.TherapyType
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.PricePerSession.Cents); err != nil {
			return nil, fmt.Errorf("scan therapy type: %w", err)
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *Repository) CreateTherapyType(ctx context.Context, t core.TherapyType) (core.TherapyType, error) {
	if err := t.Validate(); err != nil {
		return core.TherapyType{}, err
	}
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO therapy_types (id, user_id, name, price_per_session_cents)
		 VALUES (?, ?, ?, ?)`),
		t.ID, t.UserID, strings.TrimSpace(t.Name), t.PricePerSession.Cents)
	if err != nil {
		return core.TherapyType{}, fmt.Errorf("insert therapy type: %w", err)
	}
	slog.InfoContext(ctx, "Therapy type created", "id", t.ID, "name", t.Name)
	return t, nil
}

func (r *Repository) DeleteTherapyType(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, r.bind(
		`DELETE FROM therapy_types WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete therapy type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- monthly plans ---

func (r *Repository) FindPlan(ctx context.Context, userID, therapyTypeID string, month core.Month) (*core.MonthlyPlan, error) {
	row := r.db.QueryRowContext(ctx, r.bind(
		`SELECT id, user_id, therapy_type_id, month, planned_sessions, actual_sessions, revenue_cents
		   FROM monthly_plans WHERE user_id = ? AND therapy_type_id = ? AND month = ?`),
		userID, therapyTypeID, month.String())
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query monthly plan: %w", err)
	}
	return plan, nil
}

func (r *Repository) InsertPlan(ctx context.Context, plan core.MonthlyPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO monthly_plans (id, user_id, therapy_type_id, month, planned_sessions, actual_sessions, revenue_cents)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		plan.ID, plan.UserID, plan.TherapyTypeID, plan.Month.String(),
		plan.PlannedSessions, plan.ActualSessions, plan.Revenue.Cents)
	if err != nil {
		return fmt.Errorf("insert monthly plan: %w", err)
	}
	return nil
}

// UpdatePlanActuals overwrites actual sessions and revenue. Planned
// sessions are deliberately left alone; they belong to the user.
func (r *Repository) UpdatePlanActuals(ctx context.Context, planID string, actualSessions int, revenue core.Money) error {
	res, err := r.db.ExecContext(ctx, r.bind(
		`UPDATE monthly_plans
		    SET actual_sessions = ?, revenue_cents = ?, updated_at = CURRENT_TIMESTAMP
		  WHERE id = ?`),
		actualSessions, revenue.Cents, planID)
	if err != nil {
		return fmt.Errorf("update monthly plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPlannedSessions upserts the planned side of a plan without touching
// imported actuals.
func (r *Repository) SetPlannedSessions(ctx context.Context, userID, therapyTypeID string, month core.Month, planned int) error {
	if planned < 0 {
		return core.ErrNegativeCount
	}
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO monthly_plans (id, user_id, therapy_type_id, month, planned_sessions)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, therapy_type_id, month)
		 DO UPDATE SET planned_sessions = excluded.planned_sessions, updated_at = CURRENT_TIMESTAMP`),
		uuid.NewString(), userID, therapyTypeID, month.String(), planned)
	if err != nil {
		return fmt.Errorf("upsert planned sessions: %w", err)
	}
	return nil
}

func (r *Repository) PlansForYear(ctx context.Context, userID string, year int) ([]core.MonthlyPlan, error) {
	lo := fmt.Sprintf("%04d-01", year)
	hi := fmt.Sprintf("%04d-12", year)
	rows, err := r.db.QueryContext(ctx, r.bind(
		`SELECT id, user_id, therapy_type_id, month, planned_sessions, actual_sessions, revenue_cents
		   FROM monthly_plans WHERE user_id = ? AND month BETWEEN ? AND ?
		  ORDER BY month, therapy_type_id`), userID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query monthly plans: %w", err)
	}
	defer rows.Close()

	var plans []core.MonthlyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monthly plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(s rowScanner) (*core.MonthlyPlan, error) {
	var (
		plan     core.MonthlyPlan
		monthStr string
	)
	if err := s.Scan(&plan.ID, &plan.UserID, &plan.TherapyTypeID, &monthStr,
		&plan.PlannedSessions, &plan.ActualSessions, &plan.Revenue.Cents); err != nil {
		return nil, err
	}
	month, err := core.ParseMonth(monthStr)
	if err != nil {
		return nil, fmt.Errorf("stored month %q: %w", monthStr, err)
	}
	plan.Month = month
	return &plan, nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO expenses (id, user_id, month, category, description, amount_cents)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		e.ID, e.UserID, e.Month.String(), e.Category, e.Description, e.Amount.Cents)
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *Repository) ExpensesForYear(ctx context.Context, userID string, year int) ([]core.Expense, error) {
	lo := fmt.Sprintf("%04d-01", year)
	hi := fmt.Sprintf("%04d-12", year)
	rows, err := r.db.QueryContext(ctx, r.bind(
		`SELECT id, user_id, month, category, description, amount_cents
		   FROM expenses WHERE user_id = ? AND month BETWEEN ? AND ?
		  ORDER BY month, category`), userID, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			monthStr string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &monthStr, &e.Category, &e.Description, &e.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		month, err := core.ParseMonth(monthStr)
		if err != nil {
			return nil, fmt.Errorf("stored month %q: %w", monthStr, err)
		}
		e.Month = month
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, r.bind(
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- forecast snapshots ---

func (r *Repository) SaveForecast(ctx context.Context, snap core.ForecastSnapshot) error {
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO forecast_snapshots
		   (user_id, year, planned_revenue_cents, actual_revenue_cents, expense_cents,
		    projected_revenue_cents, months_elapsed, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, year) DO UPDATE SET
		   planned_revenue_cents = excluded.planned_revenue_cents,
		   actual_revenue_cents = excluded.actual_revenue_cents,
		   expense_cents = excluded.expense_cents,
		   projected_revenue_cents = excluded.projected_revenue_cents,
		   months_elapsed = excluded.months_elapsed,
		   computed_at = excluded.computed_at`),
		snap.UserID, snap.Year, snap.PlannedRevenue.Cents, snap.ActualRevenue.Cents,
		snap.Expenses.Cents, snap.ProjectedRevenue.Cents, snap.MonthsElapsed, snap.ComputedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert forecast snapshot: %w", err)
	}
	return nil
}

func (r *Repository) ForecastForYear(ctx context.Context, userID string, year int) (*core.ForecastSnapshot, error) {
	var snap core.ForecastSnapshot
	err := r.db.QueryRowContext(ctx, r.bind(
		`SELECT user_id, year, planned_revenue_cents, actual_revenue_cents, expense_cents,
		        projected_revenue_cents, months_elapsed, computed_at
		   FROM forecast_snapshots WHERE user_id = ? AND year = ?`), userID, year).
		Scan(&snap.UserID, &snap.Year, &snap.PlannedRevenue.Cents, &snap.ActualRevenue.Cents,
			&snap.Expenses.Cents, &snap.ProjectedRevenue.Cents, &snap.MonthsElapsed, &snap.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query forecast snapshot: %w", err)
	}
	return &snap, nil
}

// --- sessions ---

// CreateSession mints a bearer token for a user. Registration and login
// live with the hosted auth provider; this only backs operator tooling
// and tests.
func (r *Repository) CreateSession(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	_, err := r.db.ExecContext(ctx, r.bind(
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`),
		token, userID, time.Now().UTC().Add(ttl))
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return token, nil
}

// SessionUserID resolves a bearer token to its user, rejecting expired
// sessions.
func (r *Repository) SessionUserID(ctx context.Context, token string) (string, error) {
	var (
		userID    string
		expiresAt time.Time
	)
	err := r.db.QueryRowContext(ctx, r.bind(
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`), token).
		Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query session: %w", err)
	}
	if time.Now().After(expiresAt) {
		return "", ErrSessionExpired
	}
	return userID, nil
}

package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	PatientInsurance PatientType = "insurance"
	PatientPrivate   PatientType = "private"
)

type (
	// PatientType classifies who pays for a session.
	PatientType string

	// Date is a calendar day without a time-of-day component.
	Date struct {
		time.Time
	}

	// Month is a calendar month, normalized to its first day in UTC.
	Month struct {
		time.Time
	}

	// TherapyType is a billable service category with a fixed price per
	// session, owned by one user.
	TherapyType struct {
		ID              string `json:"id"`
		UserID          string `json:"-"`
		Name            string `json:"name"`
		PricePerSession Money  `json:"price_per_session_cents"`
	}

	// MonthlyPlan records planned vs actual session counts for one therapy
	// type in one calendar month.
	MonthlyPlan struct {
		ID              string `json:"id"`
		UserID          string `json:"-"`
		TherapyTypeID   string `json:"therapy_type_id"`
		Month           Month  `json:"month"`
		PlannedSessions int    `json:"planned_sessions"`
		ActualSessions  int    `json:"actual_sessions"`
		Revenue         Money  `json:"revenue_cents"`
	}

	// Expense is a practice operating cost booked against a month.
	Expense struct {
		ID          string `json:"id"`
		UserID      string `json:"-"`
		Month       Month  `json:"month"`
		Category    string `json:"category"`
		Description string `json:"description,omitempty"`
		Amount      Money  `json:"amount_cents"`
	}

	// ImportRow is one normalized line from a vendor invoice export. It
	// only lives for the duration of a single import run.
	ImportRow struct {
		Line          int // 1-based spreadsheet row
		Date          Date
		TherapyLabel  string
		SessionCount  int
		Revenue       *Money // nil when the vendor omits the amount
		PatientType   PatientType
		InvoiceNumber string
		Notes         string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeCount   = errors.New("negative session count")
	ErrEmptyLabel      = errors.New("empty therapy label")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
	ErrMissingIdentity = errors.New("missing caller identity")
)

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// MonthOf truncates a date to its first-of-month calendar value.
func MonthOf(d Date) Month {
	y, m, _ := d.Date()
	return Month{Time: time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)}
}

// NewMonth builds a Month from a year and month number.
func NewMonth(year int, month time.Month) Month {
	return Month{Time: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// ParseMonth parses the canonical "2006-01" form.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	return Month{Time: t.UTC()}, nil
}

// String renders the canonical "2006-01" form used in keys and JSON.
func (m Month) String() string {
	return m.Format("2006-01")
}

func (m Month) Validate() error {
	if m.IsZero() {
		return ErrInvalidMonth
	}
	return nil
}

// MarshalJSON renders a Month as its "2006-01" string.
func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

func (m *Month) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return ErrInvalidMonth
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParsePatientType maps vendor spellings onto the two supported values.
// An empty input is allowed, anything unrecognized is rejected.
func ParsePatientType(s string) (PatientType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", true
	case "insurance", "kasse", "gkv", "gesetzlich":
		return PatientInsurance, true
	case "private", "privat", "pkv", "selbstzahler":
		return PatientPrivate, true
	}
	return "", false
}

func (t TherapyType) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if t.PricePerSession.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p MonthlyPlan) Validate() error {
	if err := p.Month.Validate(); err != nil {
		return err
	}
	if p.PlannedSessions < 0 || p.ActualSessions < 0 {
		return ErrNegativeCount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Month.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r ImportRow) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.TherapyLabel) == "" {
		return ErrEmptyLabel
	}
	if r.SessionCount < 0 {
		return ErrNegativeCount
	}
	if r.Revenue != nil && r.Revenue.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

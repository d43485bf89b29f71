package core

import (
	"testing"
	"time"
)

func TestParseVendorDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"15.01.2025", "2025-01-15", true},
		{"1.2.2025", "2025-02-01", true},
		{"2025-01-15", "2025-01-15", true},
		{" 31.12.2024 ", "2024-12-31", true},
		{"32.01.2025", "", false},
		{"2025/01/15", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseVendorDate(tc.in)
		if tc.ok {
			if err != nil || got.ISO() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got.ISO(), err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMonthOf(t *testing.T) {
	m := MonthOf(NewDate(2025, time.January, 15))
	if m.String() != "2025-01" {
		t.Fatalf("expected 2025-01, got %s", m)
	}
	if m.Day() != 1 {
		t.Fatalf("month must be truncated to first day, got day %d", m.Day())
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Year() != 2025 || m.Month() != time.March {
		t.Fatalf("unexpected month: %s", m)
	}
	if _, err := ParseMonth("03.2025"); err == nil {
		t.Fatal("expected error for non-canonical form")
	}
}

func TestParsePatientType(t *testing.T) {
	cases := []struct {
		in   string
		want PatientType
		ok   bool
	}{
		{"", "", true},
		{"Kasse", PatientInsurance, true},
		{"GKV", PatientInsurance, true},
		{"privat", PatientPrivate, true},
		{"Selbstzahler", PatientPrivate, true},
		{"insurance", PatientInsurance, true},
		{"firma", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePatientType(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestImportRowValidate(t *testing.T) {
	valid := ImportRow{
		Line:         2,
		Date:         NewDate(2025, time.January, 15),
		TherapyLabel: "Psychotherapie",
		SessionCount: 3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid row rejected: %v", err)
	}

	t.Run("zero date", func(t *testing.T) {
		r := valid
		r.Date = Date{}
		if err := r.Validate(); err != ErrInvalidDate {
			t.Fatalf("expected ErrInvalidDate, got %v", err)
		}
	})
	t.Run("blank label", func(t *testing.T) {
		r := valid
		r.TherapyLabel = "   "
		if err := r.Validate(); err != ErrEmptyLabel {
			t.Fatalf("expected ErrEmptyLabel, got %v", err)
		}
	})
	t.Run("negative count", func(t *testing.T) {
		r := valid
		r.SessionCount = -1
		if err := r.Validate(); err != ErrNegativeCount {
			t.Fatalf("expected ErrNegativeCount, got %v", err)
		}
	})
	t.Run("zero count is allowed", func(t *testing.T) {
		r := valid
		r.SessionCount = 0
		if err := r.Validate(); err != nil {
			t.Fatalf("zero-count row must be valid: %v", err)
		}
	})
}

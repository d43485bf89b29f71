package core

import (
	"strings"
	"time"
)

// Vendor exports carry dates as day.month.year; ISO input is tolerated
// because some practices re-save the file through other tooling.
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.01.06",
	"2006-01-02",
}

// ParseVendorDate normalizes a vendor date cell to a calendar Date.
func ParseVendorDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// ISO renders the date in ISO calendar-date form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

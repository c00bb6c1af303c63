package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by every persisted record.
const DateLayout = "2006-01-02"

// Date is a calendar day persisted as "YYYY-MM-DD". The zero value marshals
// to an empty string, which is how unset dates are stored.
type Date struct {
	time.Time
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		// Older records were sometimes saved with a full timestamp.
		ts, tsErr := time.Parse(time.RFC3339, s)
		if tsErr != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return DateOf(ts), nil
	}
	return Date{t}, nil
}

// String returns the persisted representation.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddMonths returns the date shifted by n calendar months.
func (d Date) AddMonths(n int) Date {
	return Date{d.AddDate(0, n, 0)}
}

package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date kept as day/month/year components.
// The zero value means the date is absent.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a Date and rejects impossible calendar values
func NewDate(year, month, day int) (Date, error) {
	if year < 1000 || year > 9999 {
		return Date{}, fmt.Errorf("year out of range: %d", year)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date: %02d.%02d.%04d", day, month, year)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// IsZero reports whether the date is absent
func (d Date) IsZero() bool {
	return d == Date{}
}

// ISO returns YYYY-MM-DD, or an empty string for an absent date
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// String implements fmt.Stringer
func (d Date) String() string {
	return d.ISO()
}

// Time returns the date at midnight UTC
func (d Date) Time() time.Time {
	if d.IsZero() {
		return time.Time{}
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// MarshalJSON renders the ISO form, or null when absent
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.ISO())
}

// UnmarshalJSON accepts the ISO form or null
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	return nil
}

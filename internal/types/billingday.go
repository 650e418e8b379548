package types

import (
	"database/sql/driver"
	"fmt"
	"time"

	ierr "github.com/stackbill/stackbill/internal/errors"
)

// BillingDay is a civil date in the billing timezone. Every date comparison
// the billing run makes goes through this type so that a run is anchored to
// one calendar day instead of a wall-clock instant.
type BillingDay struct {
	Year  int        `json:"-"`
	Month time.Month `json:"-"`
	Day   int        `json:"-"`
}

const billingDayLayout = "2006-01-02"

// NewBillingDay builds a normalized civil date. Out-of-range components are
// carried over the way time.Date does (Feb 30 becomes Mar 1 or 2).
func NewBillingDay(year int, month time.Month, day int) BillingDay {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return BillingDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// BillingDayOf extracts the civil date of t as observed in loc.
func BillingDayOf(t time.Time, loc *time.Location) BillingDay {
	lt := t.In(loc)
	return BillingDay{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// ParseBillingDay parses a "2006-01-02" date string.
func ParseBillingDay(s string) (BillingDay, error) {
	t, err := time.Parse(billingDayLayout, s)
	if err != nil {
		return BillingDay{}, ierr.WithError(err).
			WithHintf("Date must be in %s format", billingDayLayout).
			Mark(ierr.ErrValidation)
	}
	return BillingDay{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// LastDayOfMonth returns the last civil day of the given month.
func LastDayOfMonth(year int, month time.Month) BillingDay {
	// Day zero of the next month.
	return NewBillingDay(year, month+1, 0)
}

func (d BillingDay) IsZero() bool {
	return d == BillingDay{}
}

// Time returns midnight UTC of the civil date, the canonical storage form.
func (d BillingDay) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d BillingDay) AddDays(n int) BillingDay {
	return NewBillingDay(d.Year, d.Month, d.Day+n)
}

func (d BillingDay) AddMonths(n int) BillingDay {
	return NewBillingDay(d.Year, d.Month+time.Month(n), d.Day)
}

// DaysSince returns the number of whole days from o to d; negative when d
// precedes o.
func (d BillingDay) DaysSince(o BillingDay) int {
	return int(d.Time().Sub(o.Time()).Hours() / 24)
}

func (d BillingDay) Before(o BillingDay) bool {
	return d.Time().Before(o.Time())
}

func (d BillingDay) After(o BillingDay) bool {
	return d.Time().After(o.Time())
}

func (d BillingDay) Equal(o BillingDay) bool {
	return d == o
}

// OnOrBefore reports d <= o, the predicate behind every "due by today" scan.
func (d BillingDay) OnOrBefore(o BillingDay) bool {
	return !d.After(o)
}

func (d BillingDay) String() string {
	return d.Time().Format(billingDayLayout)
}

func (d BillingDay) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", d.String())), nil
}

func (d *BillingDay) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = BillingDay{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ierr.NewErrorf("invalid billing day: %s", s).Mark(ierr.ErrValidation)
	}
	parsed, err := ParseBillingDay(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so a BillingDay maps to a DATE column.
func (d BillingDay) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *BillingDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = BillingDay{}
		return nil
	case time.Time:
		*d = BillingDay{Year: v.Year(), Month: v.Month(), Day: v.Day()}
		return nil
	case string:
		parsed, err := ParseBillingDay(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	}
	return ierr.NewErrorf("cannot scan %T into BillingDay", src).Mark(ierr.ErrValidation)
}

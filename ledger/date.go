package ledger

import "time"

// =============================================================================
// DATE - Day-granularity calendar date (all ledger dates are whole days)
// =============================================================================

// Date is a calendar day in the fixed reference timezone (UTC). Using one
// reference zone keeps "this month" stable regardless of server locale.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }

func (d Date) Equal(other Date) bool { return d.normalize().Equal(other.normalize()) }

func (d Date) After(other Date) bool { return d.normalize().After(other.normalize()) }

func (d Date) OnOrAfter(other Date) bool { return !d.Before(other) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties
func (d Date) Year() int { return d.Time.Year() }

func (d Date) Month() time.Month { return d.Time.Month() }

func (d Date) Day() int { return d.Time.Day() }

func (d Date) IsZero() bool { return d.Time.IsZero() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// =============================================================================
// CLOCK - "Now" provider for present-dated operations
// =============================================================================

// Clock supplies today's date. Injected so that PayInstallment and current-
// period resolution are deterministic under test.
type Clock interface {
	Today() Date
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Today() Date { return DateOf(time.Now()) }

// FixedClock always returns the same day.
type FixedClock struct {
	Date Date
}

func (c FixedClock) Today() Date { return c.Date }

/*
cycle.go - Statement-cycle date arithmetic

PURPOSE:
  Pure functions computing installment due dates from a credit card's
  statement day. These are the load-bearing primitives for the amortization
  scheduler: an off-by-one here produces a wrong due date for every
  installment payment, so they are unit-tested independently of persistence.

CLAMPING:
  A statement day of 29-31 does not exist in every month. The statement
  date for a month is min(statementDay, last day of that month), so the
  returned date always falls within the requested month.

SEE ALSO:
  - installment.go: Consumes these to build backfill schedules
*/
package ledger

import "time"

// LastDayOfMonth returns the number of days in the given month, accounting
// for leap years.
func LastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StatementDate places the statement day within a month, clamped to the
// month's actual length.
func StatementDate(year int, month time.Month, statementDay int) Date {
	day := statementDay
	if last := LastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// FirstStatementOnOrAfter returns the earliest statement date that is on or
// after start: the clamped statement date in start's own month if it has not
// passed yet, otherwise the next month's.
func FirstStatementOnOrAfter(start Date, statementDay int) Date {
	same := StatementDate(start.Year(), start.Month(), statementDay)
	if same.OnOrAfter(start) {
		return same
	}
	year, month := start.Year(), start.Month()
	if month == time.December {
		return StatementDate(year+1, time.January, statementDay)
	}
	return StatementDate(year, month+1, statementDay)
}

// AddCycles advances base by n whole statement cycles, re-clamping the
// statement day to the target month's length. n must be non-negative.
func AddCycles(base Date, statementDay, n int) Date {
	idx := int(base.Month()) - 1 + n
	year := base.Year() + idx/12
	month := time.Month(idx%12 + 1)
	return StatementDate(year, month, statementDay)
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// PERIOD RESOLVER - Find-or-create Year/Month containers
// =============================================================================

// ResolvePeriod finds or creates the Year and Month rows for (userID, year,
// month). It never errors on a missing period - the rows are materialized on
// first reference. Safe to call concurrently for the same key: a create race
// loses to the store's unique constraints and the loser re-fetches.
func ResolvePeriod(ctx context.Context, s Store, userID UserID, year int, month time.Month) (*Year, *Month, error) {
	y, err := s.GetYear(ctx, userID, year)
	if err != nil {
		return nil, nil, err
	}
	if y == nil {
		candidate := Year{ID: YearID(uuid.NewString()), UserID: userID, Year: year}
		switch err := s.CreateYear(ctx, candidate); {
		case err == nil:
			y = &candidate
		case errors.Is(err, ErrDuplicate):
			// Someone else just created it.
			if y, err = s.GetYear(ctx, userID, year); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}
	}

	m, err := s.GetMonth(ctx, y.ID, month)
	if err != nil {
		return nil, nil, err
	}
	if m == nil {
		candidate := Month{ID: MonthID(uuid.NewString()), YearID: y.ID, Month: month}
		switch err := s.CreateMonth(ctx, candidate); {
		case err == nil:
			m = &candidate
		case errors.Is(err, ErrDuplicate):
			if m, err = s.GetMonth(ctx, y.ID, month); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, err
		}
	}

	return y, m, nil
}

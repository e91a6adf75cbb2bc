package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBudget plans an amount for a category in the given period. The
// period is materialized on first use; a second budget for the same
// (month, category) pair is rejected with ErrDuplicate.
func (e *Engine) CreateBudget(ctx context.Context, userID UserID, year int, month int, categoryID CategoryID, amount decimal.Decimal) (*Budget, error) {
	if categoryID == "" {
		return nil, &ValidationError{Field: "categoryId", Reason: "is required"}
	}
	if !amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}
	if month < 1 || month > 12 {
		return nil, &ValidationError{Field: "month", Reason: "must be 1-12"}
	}

	b := Budget{
		ID:         BudgetID(uuid.NewString()),
		UserID:     userID,
		CategoryID: categoryID,
		Amount:     amount,
	}
	err := e.Store.WithTx(ctx, func(s Store) error {
		_, m, err := ResolvePeriod(ctx, s, userID, year, time.Month(month))
		if err != nil {
			return err
		}
		b.MonthID = m.ID
		return s.CreateBudget(ctx, b)
	})
	if err != nil {
		if IsClientError(err) {
			return nil, err
		}
		return nil, e.fail("create budget", err)
	}
	return &b, nil
}

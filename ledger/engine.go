/*
engine.go - Transaction reconciliation engine

PURPOSE:
  The engine is the only writer of the three pieces of mutable shared state:
  BankAccount.Balance, Loan.RemainingAmount, and Installment.RemainingMonths.
  Every create/update/delete runs inside one store transaction, so a failure
  at any step leaves zero observable side effects.

EFFECT MODEL:
  A transaction's side effects are applied exactly once at creation and live
  until either deletion reverses them and removes the row, or an update
  reverses then reapplies them under the edited values. Updates behave like
  delete-then-recreate without an inconsistent intermediate state ever being
  visible to other readers.

REVERSAL RULES (always computed from the OLD row's fields):
  - Bank account: invert the old balance delta
  - Loan: add the old amount back if the old type was expense
  - Installment: give back one remaining month if the old type was expense

SEE ALSO:
  - installment.go: Scheduling and payment-due processing
  - period.go: Year/Month resolution every mutation anchors to
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Engine applies ledger mutations against a transactional store.
type Engine struct {
	Store TxStore
	Clock Clock
	Log   logrus.FieldLogger
}

func NewEngine(store TxStore, clock Clock) *Engine {
	return &Engine{
		Store: store,
		Clock: clock,
		Log:   logrus.StandardLogger(),
	}
}

// fail logs the underlying cause for operators and returns the generic
// message the caller is allowed to see.
func (e *Engine) fail(verb string, cause error) error {
	e.Log.WithError(cause).Errorf("ledger: failed to %s", verb)
	return failed(verb, cause)
}

// =============================================================================
// INPUT
// =============================================================================

// TransactionInput carries the caller-editable fields of a transaction.
// The installment link is deliberately absent: installment transactions are
// only created by the scheduler and the payment processor, and an update
// can never retarget which installment a transaction belongs to.
type TransactionInput struct {
	Date        Date
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	Notes       string

	CategoryID     CategoryID
	CardID         CardID
	IncomeSourceID IncomeSourceID
	BankAccountID  AccountID
	LoanID         LoanID
}

func (in TransactionInput) validate() error {
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if !in.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return &ValidationError{Field: "amount", Reason: "must have at most 2 decimal places"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "is required"}
	}
	return nil
}

// =============================================================================
// CREATE
// =============================================================================

// CreateTransaction inserts a transaction and applies its side effects in
// one atomic unit: the bank account balance moves by the signed amount, and
// a loan-linked expense reduces the loan's remaining amount. Loans are never
// reduced by income-type transactions.
func (e *Engine) CreateTransaction(ctx context.Context, userID UserID, in TransactionInput) (*Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := Transaction{
		ID:             TransactionID(uuid.NewString()),
		UserID:         userID,
		Date:           in.Date,
		Amount:         in.Amount,
		Type:           in.Type,
		Description:    in.Description,
		Notes:          in.Notes,
		CategoryID:     in.CategoryID,
		CardID:         in.CardID,
		IncomeSourceID: in.IncomeSourceID,
		BankAccountID:  in.BankAccountID,
		LoanID:         in.LoanID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := e.Store.WithTx(ctx, func(s Store) error {
		_, month, err := ResolvePeriod(ctx, s, userID, in.Date.Year(), in.Date.Month())
		if err != nil {
			return err
		}
		t.MonthID = month.ID

		if err := s.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return applyEffects(ctx, s, t)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, e.fail("create transaction", err)
	}
	return &t, nil
}

// =============================================================================
// UPDATE - reverse old effects, apply new ones, persist the edited row
// =============================================================================

func (e *Engine) UpdateTransaction(ctx context.Context, userID UserID, id TransactionID, in TransactionInput) (*Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	old, err := e.Store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, e.fail("update transaction", err)
	}
	if old == nil {
		return nil, ErrTransactionNotFound
	}

	updated := *old
	updated.Date = in.Date
	updated.Amount = in.Amount
	updated.Type = in.Type
	updated.Description = in.Description
	updated.Notes = in.Notes
	updated.CategoryID = in.CategoryID
	updated.CardID = in.CardID
	updated.IncomeSourceID = in.IncomeSourceID
	updated.BankAccountID = in.BankAccountID
	updated.LoanID = in.LoanID
	updated.UpdatedAt = time.Now().UTC()
	// updated.InstallmentID stays old.InstallmentID: the link is immutable.

	err = e.Store.WithTx(ctx, func(s Store) error {
		if err := reverseEffects(ctx, s, *old); err != nil {
			return err
		}
		if old.InstallmentID != "" && old.Type == TxExpense {
			if err := s.AdjustInstallmentMonths(ctx, userID, old.InstallmentID, 1); err != nil {
				return err
			}
		}

		if err := applyEffects(ctx, s, updated); err != nil {
			return err
		}
		// Take the remaining month back unless the edit moved the
		// transaction away from expense, in which case the installment
		// keeps the month it regained above.
		if updated.InstallmentID != "" && updated.Type == TxExpense {
			if err := s.AdjustInstallmentMonths(ctx, userID, updated.InstallmentID, -1); err != nil {
				return err
			}
		}

		_, month, err := ResolvePeriod(ctx, s, userID, in.Date.Year(), in.Date.Month())
		if err != nil {
			return err
		}
		updated.MonthID = month.ID

		return s.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, e.fail("update transaction", err)
	}
	return &updated, nil
}

// =============================================================================
// DELETE - full reversal, then remove the row
// =============================================================================

func (e *Engine) DeleteTransaction(ctx context.Context, userID UserID, id TransactionID) error {
	old, err := e.Store.GetTransaction(ctx, userID, id)
	if err != nil {
		return e.fail("delete transaction", err)
	}
	if old == nil {
		return ErrTransactionNotFound
	}

	err = e.Store.WithTx(ctx, func(s Store) error {
		if err := reverseEffects(ctx, s, *old); err != nil {
			return err
		}
		if old.InstallmentID != "" && old.Type == TxExpense {
			if err := s.AdjustInstallmentMonths(ctx, userID, old.InstallmentID, 1); err != nil {
				return err
			}
		}
		return s.DeleteTransaction(ctx, userID, id)
	})
	if err != nil {
		if IsNotFound(err) {
			return err
		}
		return e.fail("delete transaction", err)
	}
	return nil
}

// =============================================================================
// EFFECTS
// =============================================================================

// applyEffects moves the bank account and loan rows linked by t. Installment
// counters are handled by the callers that own the payment semantics.
func applyEffects(ctx context.Context, s Store, t Transaction) error {
	if t.BankAccountID != "" {
		if err := s.AdjustAccountBalance(ctx, t.UserID, t.BankAccountID, t.Delta()); err != nil {
			return err
		}
	}
	if t.LoanID != "" && t.Type == TxExpense {
		if err := s.AdjustLoanRemaining(ctx, t.UserID, t.LoanID, t.Amount.Neg()); err != nil {
			return err
		}
	}
	return nil
}

// reverseEffects exactly undoes applyEffects using the stored (old) fields.
func reverseEffects(ctx context.Context, s Store, t Transaction) error {
	if t.BankAccountID != "" {
		if err := s.AdjustAccountBalance(ctx, t.UserID, t.BankAccountID, t.Delta().Neg()); err != nil {
			return err
		}
	}
	if t.LoanID != "" && t.Type == TxExpense {
		if err := s.AdjustLoanRemaining(ctx, t.UserID, t.LoanID, t.Amount); err != nil {
			return err
		}
	}
	return nil
}

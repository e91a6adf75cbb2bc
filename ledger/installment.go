/*
installment.go - Amortization scheduling and payment processing

PURPOSE:
  Turns a card purchase paid in fixed monthly installments into ledger
  rows. Creation derives how many months are already paid from the amount
  paid so far, backfills one expense transaction per paid statement cycle,
  and records how many months remain. PayInstallment later consumes one
  remaining month per call.

  Backfilled and payment transactions are bookkeeping against the card
  statement, not cash movements: they never touch a bank account balance
  or a loan, which is why they are inserted directly instead of going
  through the engine's effect application.

SEE ALSO:
  - cycle.go: Statement date arithmetic the backfill dates come from
  - engine.go: Reversal rules that give months back on update/delete
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE - pure amortization arithmetic
// =============================================================================

// Schedule is the derived payment state of an installment at creation time.
type Schedule struct {
	// PaidMonths is how many full monthly payments the paid amount covers.
	PaidMonths int
	// Remainder is the partial payment left over after the full months,
	// zero when the paid amount divides evenly.
	Remainder decimal.Decimal
	// RemainingMonths is how many payments are still owed.
	RemainingMonths int
	// PaymentCount is how many backfill transactions to create: the paid
	// months plus one for a non-zero remainder, never more than the term.
	PaymentCount int
}

// BuildSchedule derives the amortization state from the total term, the
// monthly payment, and the amount paid so far. A negative paid amount is
// treated as zero. A non-positive monthly payment yields zero paid months
// rather than dividing by it.
func BuildSchedule(totalMonths int, monthlyPayment, paid decimal.Decimal) Schedule {
	if paid.IsNegative() {
		paid = decimal.Zero
	}

	var paidMonths int
	remainder := paid
	if monthlyPayment.IsPositive() {
		paidMonths = int(paid.Div(monthlyPayment).IntPart())
		remainder = paid.Sub(monthlyPayment.Mul(decimal.NewFromInt(int64(paidMonths))))
	}

	covered := paidMonths
	if covered > totalMonths {
		covered = totalMonths
	}

	count := paidMonths
	if remainder.IsPositive() {
		count++
	}
	if count > totalMonths {
		count = totalMonths
	}

	return Schedule{
		PaidMonths:      paidMonths,
		Remainder:       remainder,
		RemainingMonths: totalMonths - covered,
		PaymentCount:    count,
	}
}

// =============================================================================
// CREATE
// =============================================================================

// InstallmentInput carries the fields needed to open an installment plan.
type InstallmentInput struct {
	Name           string
	TotalAmount    decimal.Decimal
	MonthlyPayment decimal.Decimal
	PaidAmount     decimal.Decimal
	TotalMonths    int
	StartDate      Date
	CardID         CardID
	CategoryID     CategoryID
}

func (in InstallmentInput) validate() error {
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	if !in.TotalAmount.IsPositive() {
		return &ValidationError{Field: "totalAmount", Reason: "must be positive"}
	}
	if !in.MonthlyPayment.IsPositive() {
		return &ValidationError{Field: "monthlyPayment", Reason: "must be positive"}
	}
	if in.PaidAmount.IsNegative() {
		return &ValidationError{Field: "paidAmount", Reason: "must not be negative"}
	}
	if in.TotalMonths <= 0 {
		return &ValidationError{Field: "totalMonths", Reason: "must be positive"}
	}
	if in.StartDate.IsZero() {
		return &ValidationError{Field: "startDate", Reason: "is required"}
	}
	if in.CardID == "" {
		return &ValidationError{Field: "cardId", Reason: "is required"}
	}
	return nil
}

// CreateInstallment opens an installment plan on a credit card and backfills
// one expense transaction per already-paid statement cycle. Cycle dates are
// anchored at the first statement date on or after the purchase; the last
// backfill carries the partial remainder when the paid amount does not
// divide evenly.
func (e *Engine) CreateInstallment(ctx context.Context, userID UserID, in InstallmentInput) (*Installment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	card, err := e.Store.GetCreditCard(ctx, userID, in.CardID)
	if err != nil {
		return nil, e.fail("create installment", err)
	}
	if card == nil {
		return nil, ErrCreditCardNotFound
	}
	if card.StatementDay == 0 {
		return nil, ErrStatementDayRequired
	}

	sched := BuildSchedule(in.TotalMonths, in.MonthlyPayment, in.PaidAmount)
	anchor := FirstStatementOnOrAfter(in.StartDate, card.StatementDay)

	now := time.Now().UTC()
	inst := Installment{
		ID:              InstallmentID(uuid.NewString()),
		UserID:          userID,
		Name:            in.Name,
		TotalAmount:     in.TotalAmount,
		MonthlyPayment:  in.MonthlyPayment,
		PaidAmount:      in.PaidAmount,
		TotalMonths:     in.TotalMonths,
		RemainingMonths: sched.RemainingMonths,
		StartDate:       in.StartDate,
		CardID:          in.CardID,
		CategoryID:      in.CategoryID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = e.Store.WithTx(ctx, func(s Store) error {
		if err := s.CreateInstallment(ctx, inst); err != nil {
			return err
		}

		for i := 0; i < sched.PaymentCount; i++ {
			amount := in.MonthlyPayment
			if i == sched.PaymentCount-1 && sched.Remainder.IsPositive() {
				amount = sched.Remainder
			}
			date := AddCycles(anchor, card.StatementDay, i)

			_, month, err := ResolvePeriod(ctx, s, userID, date.Year(), date.Month())
			if err != nil {
				return err
			}

			t := Transaction{
				ID:            TransactionID(uuid.NewString()),
				UserID:        userID,
				MonthID:       month.ID,
				Date:          date,
				Amount:        amount,
				Type:          TxExpense,
				Description:   fmt.Sprintf("Installment Balance Payment: %s", in.Name),
				CardID:        in.CardID,
				CategoryID:    in.CategoryID,
				InstallmentID: inst.ID,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.InsertTransaction(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, e.fail("create installment", err)
	}
	return &inst, nil
}

// =============================================================================
// PAY - consume one remaining month
// =============================================================================

// PayInstallment records one monthly payment dated today: an expense
// transaction in the current period plus a decrement of the remaining
// month counter, atomically. A fully paid installment is rejected before
// anything is written.
func (e *Engine) PayInstallment(ctx context.Context, userID UserID, id InstallmentID) (*Transaction, error) {
	inst, err := e.Store.GetInstallment(ctx, userID, id)
	if err != nil {
		return nil, e.fail("pay installment", err)
	}
	if inst == nil {
		return nil, ErrInstallmentNotFound
	}
	if inst.RemainingMonths <= 0 {
		return nil, ErrInstallmentCompleted
	}

	today := e.Clock.Today()
	now := time.Now().UTC()
	t := Transaction{
		ID:            TransactionID(uuid.NewString()),
		UserID:        userID,
		Date:          today,
		Amount:        inst.MonthlyPayment,
		Type:          TxExpense,
		Description:   fmt.Sprintf("Installment Payment: %s", inst.Name),
		CardID:        inst.CardID,
		CategoryID:    inst.CategoryID,
		InstallmentID: inst.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = e.Store.WithTx(ctx, func(s Store) error {
		_, month, err := ResolvePeriod(ctx, s, userID, today.Year(), today.Month())
		if err != nil {
			return err
		}
		t.MonthID = month.ID

		if err := s.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return s.AdjustInstallmentMonths(ctx, userID, id, -1)
	})
	if err != nil {
		return nil, e.fail("pay installment", err)
	}
	return &t, nil
}

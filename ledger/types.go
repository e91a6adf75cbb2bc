/*
Package ledger provides the core transaction reconciliation engine.

PURPOSE:
  This package contains the types and algorithms that keep a personal
  finance tracker's balances consistent: bank account balances, loan
  remaining amounts, and installment remaining-month counters are all
  mutated here and nowhere else.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: A ledger entry recording a single income or expense
  - BankAccount / Loan / Installment: Entities carrying mutable balances
  - Year / Month: Period containers every transaction anchors to
  - Typed IDs: Prevent mixing account, loan, and installment identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money to avoid floating-point drift
  2. Ownership: Every entity is scoped to a user; mutations re-verify scope
  3. Atomicity: Multi-row effects happen inside one store transaction
  4. Reversibility: Every applied effect can be exactly undone from the
     stored transaction's own fields

SEE ALSO:
  - engine.go: Create/update/delete with balance reconciliation
  - installment.go: Amortization scheduling and payment processing
  - cycle.go: Statement-cycle date arithmetic
  - store.go: Persistence interface
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AccountID string
type CardID string
type LoanID string
type InstallmentID string
type CategoryID string
type IncomeSourceID string
type YearID string
type MonthID string
type TransactionID string
type BudgetID string

// =============================================================================
// TRANSACTION - Atomic unit of the ledger
// =============================================================================

type TransactionType string

const (
	TxIncome  TransactionType = "income"
	TxExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two stored transaction types.
// The UI-level "payment" category is never stored; it is persisted as an
// expense carrying both a funding-source link and a target link.
func (t TransactionType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// Transaction records a single income or expense. The link fields are
// independent optional roles: a transaction may carry a BankAccountID as its
// funding source and a LoanID, InstallmentID or CardID as its target at the
// same time.
type Transaction struct {
	ID      TransactionID
	UserID  UserID
	MonthID MonthID

	Date        Date
	Amount      decimal.Decimal // always positive; Type carries the sign
	Type        TransactionType
	Description string
	Notes       string

	CategoryID     CategoryID
	CardID         CardID
	IncomeSourceID IncomeSourceID
	BankAccountID  AccountID
	LoanID         LoanID
	InstallmentID  InstallmentID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Delta is the signed effect of the transaction on a bank account balance.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type == TxIncome {
		return t.Amount
	}
	return t.Amount.Neg()
}

// =============================================================================
// ENTITIES - Rows the engine links transactions against
// =============================================================================

// BankAccount carries the only balance that is persisted rather than derived.
// Balance always equals the sum of all non-reversed transaction effects
// applied since account creation; the engine enforces this procedurally.
type BankAccount struct {
	ID        AccountID
	UserID    UserID
	Name      string
	Kind      string // checking, savings, cash, ...
	Balance   decimal.Decimal
	IsSavings bool

	// Savings-goal fields, informational only: never touched by the engine.
	TargetAmount *decimal.Decimal
	GrowthRate   *decimal.Decimal
	TargetDate   *Date

	CreatedAt time.Time
}

// CreditCard stores no balance; card balance is a read-time aggregate over
// linked transactions. StatementDay anchors installment due dates and is
// clamped to each month's length when cycles are computed.
type CreditCard struct {
	ID           CardID
	UserID       UserID
	Name         string
	StatementDay int // 1-31, 0 means not set
	DueDay       int

	CreatedAt time.Time
}

type Loan struct {
	ID              LoanID
	UserID          UserID
	Name            string
	TotalAmount     decimal.Decimal // original principal, immutable
	RemainingAmount decimal.Decimal // mutated by the engine
	InterestRate    decimal.Decimal
	MonthlyPayment  *decimal.Decimal
	DueDate         *Date

	CreatedAt time.Time
}

// Installment is a fixed-term payment plan attached to a credit card.
// RemainingMonths is decremented by payments and incremented when a payment
// transaction is reversed; it stays within [0, TotalMonths].
type Installment struct {
	ID              InstallmentID
	UserID          UserID
	Name            string
	TotalAmount     decimal.Decimal
	MonthlyPayment  decimal.Decimal
	PaidAmount      decimal.Decimal // paid before the plan was recorded here
	TotalMonths     int
	RemainingMonths int
	StartDate       Date
	CardID          CardID
	CategoryID      CategoryID // optional

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Year and Month are lazily-created period containers. Unique keys
// (user, year) and (year, month) are enforced by the store.
type Year struct {
	ID     YearID
	UserID UserID
	Year   int
}

type Month struct {
	ID     MonthID
	YearID YearID
	Month  time.Month
}

type Category struct {
	ID     CategoryID
	UserID UserID
	Name   string
}

type IncomeSource struct {
	ID     IncomeSourceID
	UserID UserID
	Name   string
}

// Budget is a planned amount per (month, category), unique on that pair.
// It sits outside the reconciliation core but shares the period containers.
type Budget struct {
	ID         BudgetID
	UserID     UserID
	MonthID    MonthID
	CategoryID CategoryID
	Amount     decimal.Decimal
}

/*
store.go - Persistence interface for ledger entities

PURPOSE:
  Defines the interface between the reconciliation engine and the database.
  Different implementations can use SQLite or in-memory storage.

OWNERSHIP CONTRACT:
  Every lookup and mutation takes the owning user's ID and must scope the
  row to it. A row that exists but belongs to another user is reported as
  absent, never returned.

LOOKUP CONVENTION:
  Get* methods return (nil, nil) when the row is absent. The engine converts
  that into the appropriate not-found sentinel; stores never invent one.

ATOMIC COUNTERS:
  AdjustAccountBalance, AdjustLoanRemaining, and AdjustInstallmentMonths are
  the row-level increment primitives. Implementations must apply the delta
  atomically with respect to concurrent callers (SQL "SET x = x + ?", or an
  equivalent under the store's write lock) - never read-modify-write in two
  round trips visible to other writers.

CREATE RACES:
  CreateYear/CreateMonth return ErrDuplicate on a unique-key violation so
  the period resolver can re-fetch instead of failing.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store handles persistence of all ledger entities.
type Store interface {
	// Periods
	GetYear(ctx context.Context, userID UserID, year int) (*Year, error)
	CreateYear(ctx context.Context, y Year) error
	GetMonth(ctx context.Context, yearID YearID, month time.Month) (*Month, error)
	CreateMonth(ctx context.Context, m Month) error

	// Entities
	CreateBankAccount(ctx context.Context, a BankAccount) error
	GetBankAccount(ctx context.Context, userID UserID, id AccountID) (*BankAccount, error)
	ListBankAccounts(ctx context.Context, userID UserID) ([]BankAccount, error)

	CreateCreditCard(ctx context.Context, c CreditCard) error
	GetCreditCard(ctx context.Context, userID UserID, id CardID) (*CreditCard, error)
	ListCreditCards(ctx context.Context, userID UserID) ([]CreditCard, error)

	CreateLoan(ctx context.Context, l Loan) error
	GetLoan(ctx context.Context, userID UserID, id LoanID) (*Loan, error)
	ListLoans(ctx context.Context, userID UserID) ([]Loan, error)

	CreateInstallment(ctx context.Context, i Installment) error
	GetInstallment(ctx context.Context, userID UserID, id InstallmentID) (*Installment, error)
	ListInstallments(ctx context.Context, userID UserID) ([]Installment, error)

	CreateCategory(ctx context.Context, c Category) error
	ListCategories(ctx context.Context, userID UserID) ([]Category, error)

	CreateIncomeSource(ctx context.Context, s IncomeSource) error
	ListIncomeSources(ctx context.Context, userID UserID) ([]IncomeSource, error)

	// CreateBudget returns ErrDuplicate when the (month, category) pair is
	// already budgeted.
	CreateBudget(ctx context.Context, b Budget) error
	ListBudgetsByMonth(ctx context.Context, userID UserID, monthID MonthID) ([]Budget, error)

	// Transactions
	InsertTransaction(ctx context.Context, t Transaction) error
	GetTransaction(ctx context.Context, userID UserID, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, t Transaction) error
	DeleteTransaction(ctx context.Context, userID UserID, id TransactionID) error
	ListTransactionsByMonth(ctx context.Context, userID UserID, monthID MonthID) ([]Transaction, error)
	ListTransactionsByAccount(ctx context.Context, userID UserID, id AccountID) ([]Transaction, error)
	ListTransactionsByCard(ctx context.Context, userID UserID, id CardID) ([]Transaction, error)

	// Atomic counter mutations. Each returns the entity's not-found error
	// when the scoped row does not exist.
	AdjustAccountBalance(ctx context.Context, userID UserID, id AccountID, delta decimal.Decimal) error
	AdjustLoanRemaining(ctx context.Context, userID UserID, id LoanID, delta decimal.Decimal) error
	AdjustInstallmentMonths(ctx context.Context, userID UserID, id InstallmentID, delta int) error
}

// TxStore wraps Store with multi-statement transaction support.
// Every engine mutation that touches more than one row runs through WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within one atomic unit. If fn returns an error the
	// unit is rolled back and no side effects remain observable; otherwise
	// it is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/ledger"
	"github.com/warp/finance-engine/ledger/store"
)

const testUser = ledger.UserID("user-1")

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	engine *ledger.Engine
	store  *store.Memory
	clock  *ledger.FixedClock
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clock := &ledger.FixedClock{Date: ledger.NewDate(2024, time.June, 15)}
	return &fixture{
		engine: ledger.NewEngine(mem, clock),
		store:  mem,
		clock:  clock,
		ctx:    context.Background(),
	}
}

func (f *fixture) seedAccount(t *testing.T, balance string) ledger.AccountID {
	t.Helper()
	id := ledger.AccountID(uuid.NewString())
	err := f.store.CreateBankAccount(f.ctx, ledger.BankAccount{
		ID:        id,
		UserID:    testUser,
		Name:      "Checking",
		Balance:   dec(balance),
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) seedLoan(t *testing.T, total, remaining string) ledger.LoanID {
	t.Helper()
	id := ledger.LoanID(uuid.NewString())
	err := f.store.CreateLoan(f.ctx, ledger.Loan{
		ID:              id,
		UserID:          testUser,
		Name:            "Car Loan",
		TotalAmount:     dec(total),
		RemainingAmount: dec(remaining),
		InterestRate:    dec("4.5"),
		CreatedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) seedCard(t *testing.T, statementDay int) ledger.CardID {
	t.Helper()
	id := ledger.CardID(uuid.NewString())
	err := f.store.CreateCreditCard(f.ctx, ledger.CreditCard{
		ID:           id,
		UserID:       testUser,
		Name:         "Visa",
		StatementDay: statementDay,
		DueDay:       10,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return id
}

func (f *fixture) accountBalance(t *testing.T, id ledger.AccountID) decimal.Decimal {
	t.Helper()
	a, err := f.store.GetBankAccount(f.ctx, testUser, id)
	require.NoError(t, err)
	require.NotNil(t, a)
	return a.Balance
}

func (f *fixture) loanRemaining(t *testing.T, id ledger.LoanID) decimal.Decimal {
	t.Helper()
	l, err := f.store.GetLoan(f.ctx, testUser, id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l.RemainingAmount
}

func (f *fixture) installment(t *testing.T, id ledger.InstallmentID) *ledger.Installment {
	t.Helper()
	i, err := f.store.GetInstallment(f.ctx, testUser, id)
	require.NoError(t, err)
	require.NotNil(t, i)
	return i
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.True(t, got.Equal(dec(want)), "got %s, want %s %v", got, want, msgAndArgs)
}

/*
Package store provides an in-memory ledger.TxStore.

PURPOSE:
  Backs the engine's test suites without a database. WithTx snapshots every
  map before running the callback and restores the snapshot on error, so
  rollback semantics match the SQLite implementation.

NOT FOR PRODUCTION:
  All data is lost on process exit. Use store/sqlite for real deployments.
*/
package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/ledger"
)

// Memory is an in-memory implementation of ledger.TxStore.
type Memory struct {
	mu sync.RWMutex

	years        map[ledger.YearID]ledger.Year
	months       map[ledger.MonthID]ledger.Month
	accounts     map[ledger.AccountID]ledger.BankAccount
	cards        map[ledger.CardID]ledger.CreditCard
	loans        map[ledger.LoanID]ledger.Loan
	installments map[ledger.InstallmentID]ledger.Installment
	categories   map[ledger.CategoryID]ledger.Category
	sources      map[ledger.IncomeSourceID]ledger.IncomeSource
	transactions map[ledger.TransactionID]ledger.Transaction
	budgets      map[ledger.BudgetID]ledger.Budget
}

func NewMemory() *Memory {
	return &Memory{
		years:        make(map[ledger.YearID]ledger.Year),
		months:       make(map[ledger.MonthID]ledger.Month),
		accounts:     make(map[ledger.AccountID]ledger.BankAccount),
		cards:        make(map[ledger.CardID]ledger.CreditCard),
		loans:        make(map[ledger.LoanID]ledger.Loan),
		installments: make(map[ledger.InstallmentID]ledger.Installment),
		categories:   make(map[ledger.CategoryID]ledger.Category),
		sources:      make(map[ledger.IncomeSourceID]ledger.IncomeSource),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
		budgets:      make(map[ledger.BudgetID]ledger.Budget),
	}
}

// =============================================================================
// TRANSACTION SUPPORT - snapshot and restore
// =============================================================================

type snapshot struct {
	years        map[ledger.YearID]ledger.Year
	months       map[ledger.MonthID]ledger.Month
	accounts     map[ledger.AccountID]ledger.BankAccount
	cards        map[ledger.CardID]ledger.CreditCard
	loans        map[ledger.LoanID]ledger.Loan
	installments map[ledger.InstallmentID]ledger.Installment
	categories   map[ledger.CategoryID]ledger.Category
	sources      map[ledger.IncomeSourceID]ledger.IncomeSource
	transactions map[ledger.TransactionID]ledger.Transaction
	budgets      map[ledger.BudgetID]ledger.Budget
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *Memory) take() snapshot {
	return snapshot{
		years:        cloneMap(m.years),
		months:       cloneMap(m.months),
		accounts:     cloneMap(m.accounts),
		cards:        cloneMap(m.cards),
		loans:        cloneMap(m.loans),
		installments: cloneMap(m.installments),
		categories:   cloneMap(m.categories),
		sources:      cloneMap(m.sources),
		transactions: cloneMap(m.transactions),
		budgets:      cloneMap(m.budgets),
	}
}

func (m *Memory) restore(s snapshot) {
	m.years = s.years
	m.months = s.months
	m.accounts = s.accounts
	m.cards = s.cards
	m.loans = s.loans
	m.installments = s.installments
	m.categories = s.categories
	m.sources = s.sources
	m.transactions = s.transactions
	m.budgets = s.budgets
}

// WithTx runs fn against the store and rolls every map back if it fails.
// The store itself is passed through: nested calls reuse the same maps.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	snap := m.take()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

// =============================================================================
// PERIODS
// =============================================================================

func (m *Memory) GetYear(_ context.Context, userID ledger.UserID, year int) (*ledger.Year, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, y := range m.years {
		if y.UserID == userID && y.Year == year {
			out := y
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateYear(_ context.Context, y ledger.Year) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.years {
		if existing.UserID == y.UserID && existing.Year == y.Year {
			return ledger.ErrDuplicate
		}
	}
	m.years[y.ID] = y
	return nil
}

func (m *Memory) GetMonth(_ context.Context, yearID ledger.YearID, month time.Month) (*ledger.Month, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mo := range m.months {
		if mo.YearID == yearID && mo.Month == month {
			out := mo
			return &out, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateMonth(_ context.Context, mo ledger.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.months {
		if existing.YearID == mo.YearID && existing.Month == mo.Month {
			return ledger.ErrDuplicate
		}
	}
	m.months[mo.ID] = mo
	return nil
}

// =============================================================================
// ENTITIES
// =============================================================================

func (m *Memory) CreateBankAccount(_ context.Context, a ledger.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) GetBankAccount(_ context.Context, userID ledger.UserID, id ledger.AccountID) (*ledger.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return nil, nil
	}
	out := a
	return &out, nil
}

func (m *Memory) ListBankAccounts(_ context.Context, userID ledger.UserID) ([]ledger.BankAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.BankAccount
	for _, a := range m.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) CreateCreditCard(_ context.Context, c ledger.CreditCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = c
	return nil
}

func (m *Memory) GetCreditCard(_ context.Context, userID ledger.UserID, id ledger.CardID) (*ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cards[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	out := c
	return &out, nil
}

func (m *Memory) ListCreditCards(_ context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.CreditCard
	for _, c := range m.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) CreateLoan(_ context.Context, l ledger.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[l.ID] = l
	return nil
}

func (m *Memory) GetLoan(_ context.Context, userID ledger.UserID, id ledger.LoanID) (*ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.loans[id]
	if !ok || l.UserID != userID {
		return nil, nil
	}
	out := l
	return &out, nil
}

func (m *Memory) ListLoans(_ context.Context, userID ledger.UserID) ([]ledger.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Loan
	for _, l := range m.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) CreateInstallment(_ context.Context, i ledger.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installments[i.ID] = i
	return nil
}

func (m *Memory) GetInstallment(_ context.Context, userID ledger.UserID, id ledger.InstallmentID) (*ledger.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.installments[id]
	if !ok || i.UserID != userID {
		return nil, nil
	}
	out := i
	return &out, nil
}

func (m *Memory) ListInstallments(_ context.Context, userID ledger.UserID) ([]ledger.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Installment
	for _, i := range m.installments {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *Memory) CreateCategory(_ context.Context, c ledger.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.categories {
		if existing.UserID == c.UserID && existing.Name == c.Name {
			return ledger.ErrDuplicate
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *Memory) ListCategories(_ context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Category
	for _, c := range m.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) CreateIncomeSource(_ context.Context, s ledger.IncomeSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sources {
		if existing.UserID == s.UserID && existing.Name == s.Name {
			return ledger.ErrDuplicate
		}
	}
	m.sources[s.ID] = s
	return nil
}

func (m *Memory) ListIncomeSources(_ context.Context, userID ledger.UserID) ([]ledger.IncomeSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.IncomeSource
	for _, s := range m.sources {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) CreateBudget(_ context.Context, b ledger.Budget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.budgets {
		if existing.MonthID == b.MonthID && existing.CategoryID == b.CategoryID {
			return ledger.ErrDuplicate
		}
	}
	m.budgets[b.ID] = b
	return nil
}

func (m *Memory) ListBudgetsByMonth(_ context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Budget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Budget
	for _, b := range m.budgets {
		if b.UserID == userID && b.MonthID == monthID {
			out = append(out, b)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) InsertTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = t
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, userID ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	out := t
	return &out, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return ledger.ErrTransactionNotFound
	}
	m.transactions[t.ID] = t
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, userID ledger.UserID, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transactions[id]
	if !ok || t.UserID != userID {
		return ledger.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) ListTransactionsByMonth(_ context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID && t.MonthID == monthID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListTransactionsByAccount(_ context.Context, userID ledger.UserID, id ledger.AccountID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID && t.BankAccountID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) ListTransactionsByCard(_ context.Context, userID ledger.UserID, id ledger.CardID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transaction
	for _, t := range m.transactions {
		if t.UserID == userID && t.CardID == id {
			out = append(out, t)
		}
	}
	return out, nil
}

// =============================================================================
// ATOMIC COUNTERS
// =============================================================================

func (m *Memory) AdjustAccountBalance(_ context.Context, userID ledger.UserID, id ledger.AccountID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok || a.UserID != userID {
		return ledger.ErrBankAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	m.accounts[id] = a
	return nil
}

func (m *Memory) AdjustLoanRemaining(_ context.Context, userID ledger.UserID, id ledger.LoanID, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.loans[id]
	if !ok || l.UserID != userID {
		return ledger.ErrLoanNotFound
	}
	l.RemainingAmount = l.RemainingAmount.Add(delta)
	m.loans[id] = l
	return nil
}

func (m *Memory) AdjustInstallmentMonths(_ context.Context, userID ledger.UserID, id ledger.InstallmentID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.installments[id]
	if !ok || i.UserID != userID {
		return ledger.ErrInstallmentNotFound
	}
	i.RemainingMonths += delta
	m.installments[id] = i
	return nil
}

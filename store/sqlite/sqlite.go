/*
Package sqlite implements ledger.TxStore on SQLite.

PURPOSE:
  Production persistence. Money is stored as integer cents so the atomic
  counter updates ("SET balance_cents = balance_cents + ?") are exact; the
  decimal boundary conversion happens only here.

CONCURRENCY:
  SQLite allows one writer at a time. A process-level RWMutex serializes
  writers ahead of the driver's own locking: WithTx holds the write lock
  for the whole transaction, and the inner txStore therefore never locks.

SCHEMA:
  Created on open, idempotently. Unique keys back the find-or-create races:
  (user_id, year) on years, (year_id, month) on months, (user_id, name) on
  categories and income_sources.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/finance-engine/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS years (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	year    INTEGER NOT NULL,
	UNIQUE(user_id, year)
);

CREATE TABLE IF NOT EXISTS months (
	id      TEXT PRIMARY KEY,
	year_id TEXT NOT NULL REFERENCES years(id),
	month   INTEGER NOT NULL,
	UNIQUE(year_id, month)
);

CREATE TABLE IF NOT EXISTS bank_accounts (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	name          TEXT NOT NULL,
	kind          TEXT NOT NULL DEFAULT '',
	balance_cents INTEGER NOT NULL DEFAULT 0,
	is_savings    INTEGER NOT NULL DEFAULT 0,
	target_cents  INTEGER,
	growth_rate   TEXT,
	target_date   TEXT,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bank_accounts_user ON bank_accounts(user_id);

CREATE TABLE IF NOT EXISTS credit_cards (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	name          TEXT NOT NULL,
	statement_day INTEGER NOT NULL DEFAULT 0,
	due_day       INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_cards_user ON credit_cards(user_id);

CREATE TABLE IF NOT EXISTS loans (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	total_cents           INTEGER NOT NULL,
	remaining_cents       INTEGER NOT NULL,
	interest_rate         TEXT NOT NULL DEFAULT '0',
	monthly_payment_cents INTEGER,
	due_date              TEXT,
	created_at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);

CREATE TABLE IF NOT EXISTS installments (
	id                    TEXT PRIMARY KEY,
	user_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	total_cents           INTEGER NOT NULL,
	monthly_payment_cents INTEGER NOT NULL,
	paid_cents            INTEGER NOT NULL DEFAULT 0,
	total_months          INTEGER NOT NULL,
	remaining_months      INTEGER NOT NULL,
	start_date            TEXT NOT NULL,
	card_id               TEXT NOT NULL REFERENCES credit_cards(id),
	category_id           TEXT,
	created_at            TIMESTAMP NOT NULL,
	updated_at            TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_installments_user ON installments(user_id);

CREATE TABLE IF NOT EXISTS categories (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS income_sources (
	id      TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	name    TEXT NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS budgets (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	month_id     TEXT NOT NULL REFERENCES months(id),
	category_id  TEXT NOT NULL REFERENCES categories(id),
	amount_cents INTEGER NOT NULL,
	UNIQUE(month_id, category_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	month_id         TEXT NOT NULL REFERENCES months(id),
	date             TEXT NOT NULL,
	amount_cents     INTEGER NOT NULL,
	type             TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	notes            TEXT NOT NULL DEFAULT '',
	category_id      TEXT,
	card_id          TEXT,
	income_source_id TEXT,
	bank_account_id  TEXT,
	loan_id          TEXT,
	installment_id   TEXT,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_month ON transactions(user_id, month_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(bank_account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_card ON transactions(card_id);
`

// SQLite is the production ledger.TxStore.
type SQLite struct {
	db  *sql.DB
	mu  sync.RWMutex
	log logrus.FieldLogger
}

func New(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db, log: logrus.StandardLogger()}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// WithTx holds the process write lock for the whole unit so the inner
// store never contends with other writers or re-locks.
func (s *SQLite) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Error("sqlite: rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txStore is the Store handed to WithTx callbacks. It shares all query
// helpers with SQLite through the queryer interface.
type txStore struct {
	tx *sql.Tx
}

// queryer abstracts *sql.DB and *sql.Tx for the shared helpers.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func centsOf(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strOf(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// mapUnique converts the driver's unique-constraint failure into the
// sentinel the period resolver retries on.
func mapUnique(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ledger.ErrDuplicate
	}
	return err
}

// =============================================================================
// PERIODS
// =============================================================================

func getYear(ctx context.Context, q queryer, userID ledger.UserID, year int) (*ledger.Year, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, year FROM years WHERE user_id = ? AND year = ?`,
		string(userID), year)
	var y ledger.Year
	if err := row.Scan(&y.ID, &y.UserID, &y.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &y, nil
}

func createYear(ctx context.Context, q queryer, y ledger.Year) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO years (id, user_id, year) VALUES (?, ?, ?)`,
		string(y.ID), string(y.UserID), y.Year)
	return mapUnique(err)
}

func getMonth(ctx context.Context, q queryer, yearID ledger.YearID, month time.Month) (*ledger.Month, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, year_id, month FROM months WHERE year_id = ? AND month = ?`,
		string(yearID), int(month))
	var m ledger.Month
	var mo int
	if err := row.Scan(&m.ID, &m.YearID, &mo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Month = time.Month(mo)
	return &m, nil
}

func createMonth(ctx context.Context, q queryer, m ledger.Month) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO months (id, year_id, month) VALUES (?, ?, ?)`,
		string(m.ID), string(m.YearID), int(m.Month))
	return mapUnique(err)
}

// =============================================================================
// BANK ACCOUNTS
// =============================================================================

func createBankAccount(ctx context.Context, q queryer, a ledger.BankAccount) error {
	var targetCents any
	if a.TargetAmount != nil {
		targetCents = centsOf(*a.TargetAmount)
	}
	var growthRate any
	if a.GrowthRate != nil {
		growthRate = a.GrowthRate.String()
	}
	var targetDate any
	if a.TargetDate != nil {
		targetDate = a.TargetDate.String()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO bank_accounts (id, user_id, name, kind, balance_cents, is_savings, target_cents, growth_rate, target_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.UserID), a.Name, a.Kind, centsOf(a.Balance), a.IsSavings,
		targetCents, growthRate, targetDate, a.CreatedAt)
	return err
}

const bankAccountCols = `id, user_id, name, kind, balance_cents, is_savings, target_cents, growth_rate, target_date, created_at`

func scanBankAccount(row interface{ Scan(...any) error }) (*ledger.BankAccount, error) {
	var a ledger.BankAccount
	var balance int64
	var target sql.NullInt64
	var growth, targetDate sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Kind, &balance, &a.IsSavings, &target, &growth, &targetDate, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Balance = fromCents(balance)
	if target.Valid {
		d := fromCents(target.Int64)
		a.TargetAmount = &d
	}
	if growth.Valid {
		d, err := decimal.NewFromString(growth.String)
		if err != nil {
			return nil, fmt.Errorf("parse growth rate: %w", err)
		}
		a.GrowthRate = &d
	}
	if targetDate.Valid {
		d, err := ledger.ParseDate(targetDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse target date: %w", err)
		}
		a.TargetDate = &d
	}
	return &a, nil
}

func getBankAccount(ctx context.Context, q queryer, userID ledger.UserID, id ledger.AccountID) (*ledger.BankAccount, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+bankAccountCols+` FROM bank_accounts WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	a, err := scanBankAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func listBankAccounts(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.BankAccount, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+bankAccountCols+` FROM bank_accounts WHERE user_id = ? ORDER BY created_at`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.BankAccount
	for rows.Next() {
		a, err := scanBankAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func adjustAccountBalance(ctx context.Context, q queryer, userID ledger.UserID, id ledger.AccountID, delta decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		`UPDATE bank_accounts SET balance_cents = balance_cents + ? WHERE id = ? AND user_id = ?`,
		centsOf(delta), string(id), string(userID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrBankAccountNotFound
	}
	return nil
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func createCreditCard(ctx context.Context, q queryer, c ledger.CreditCard) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO credit_cards (id, user_id, name, statement_day, due_day, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(c.ID), string(c.UserID), c.Name, c.StatementDay, c.DueDay, c.CreatedAt)
	return err
}

func getCreditCard(ctx context.Context, q queryer, userID ledger.UserID, id ledger.CardID) (*ledger.CreditCard, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, user_id, name, statement_day, due_day, created_at FROM credit_cards WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	var c ledger.CreditCard
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.StatementDay, &c.DueDay, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func listCreditCards(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.CreditCard, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, name, statement_day, due_day, created_at FROM credit_cards WHERE user_id = ? ORDER BY created_at`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.CreditCard
	for rows.Next() {
		var c ledger.CreditCard
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.StatementDay, &c.DueDay, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// LOANS
// =============================================================================

func createLoan(ctx context.Context, q queryer, l ledger.Loan) error {
	var monthly any
	if l.MonthlyPayment != nil {
		monthly = centsOf(*l.MonthlyPayment)
	}
	var due any
	if l.DueDate != nil {
		due = l.DueDate.String()
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO loans (id, user_id, name, total_cents, remaining_cents, interest_rate, monthly_payment_cents, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(l.ID), string(l.UserID), l.Name, centsOf(l.TotalAmount), centsOf(l.RemainingAmount),
		l.InterestRate.String(), monthly, due, l.CreatedAt)
	return err
}

const loanCols = `id, user_id, name, total_cents, remaining_cents, interest_rate, monthly_payment_cents, due_date, created_at`

func scanLoan(row interface{ Scan(...any) error }) (*ledger.Loan, error) {
	var l ledger.Loan
	var total, remaining int64
	var rate string
	var monthly sql.NullInt64
	var due sql.NullString
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &total, &remaining, &rate, &monthly, &due, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.TotalAmount = fromCents(total)
	l.RemainingAmount = fromCents(remaining)
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("parse interest rate: %w", err)
	}
	l.InterestRate = r
	if monthly.Valid {
		d := fromCents(monthly.Int64)
		l.MonthlyPayment = &d
	}
	if due.Valid {
		d, err := ledger.ParseDate(due.String)
		if err != nil {
			return nil, fmt.Errorf("parse due date: %w", err)
		}
		l.DueDate = &d
	}
	return &l, nil
}

func getLoan(ctx context.Context, q queryer, userID ledger.UserID, id ledger.LoanID) (*ledger.Loan, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+loanCols+` FROM loans WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	l, err := scanLoan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func listLoans(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.Loan, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+loanCols+` FROM loans WHERE user_id = ? ORDER BY created_at`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func adjustLoanRemaining(ctx context.Context, q queryer, userID ledger.UserID, id ledger.LoanID, delta decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		`UPDATE loans SET remaining_cents = remaining_cents + ? WHERE id = ? AND user_id = ?`,
		centsOf(delta), string(id), string(userID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrLoanNotFound
	}
	return nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func createInstallment(ctx context.Context, q queryer, i ledger.Installment) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO installments (id, user_id, name, total_cents, monthly_payment_cents, paid_cents, total_months, remaining_months, start_date, card_id, category_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(i.ID), string(i.UserID), i.Name, centsOf(i.TotalAmount), centsOf(i.MonthlyPayment),
		centsOf(i.PaidAmount), i.TotalMonths, i.RemainingMonths, i.StartDate.String(),
		string(i.CardID), nullStr(string(i.CategoryID)), i.CreatedAt, i.UpdatedAt)
	return err
}

const installmentCols = `id, user_id, name, total_cents, monthly_payment_cents, paid_cents, total_months, remaining_months, start_date, card_id, category_id, created_at, updated_at`

func scanInstallment(row interface{ Scan(...any) error }) (*ledger.Installment, error) {
	var i ledger.Installment
	var total, monthly, paid int64
	var start string
	var category sql.NullString
	err := row.Scan(&i.ID, &i.UserID, &i.Name, &total, &monthly, &paid,
		&i.TotalMonths, &i.RemainingMonths, &start, &i.CardID, &category, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	i.TotalAmount = fromCents(total)
	i.MonthlyPayment = fromCents(monthly)
	i.PaidAmount = fromCents(paid)
	d, err := ledger.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	i.StartDate = d
	i.CategoryID = ledger.CategoryID(strOf(category))
	return &i, nil
}

func getInstallment(ctx context.Context, q queryer, userID ledger.UserID, id ledger.InstallmentID) (*ledger.Installment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+installmentCols+` FROM installments WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	i, err := scanInstallment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return i, err
}

func listInstallments(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.Installment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+installmentCols+` FROM installments WHERE user_id = ? ORDER BY created_at`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, rows.Err()
}

func adjustInstallmentMonths(ctx context.Context, q queryer, userID ledger.UserID, id ledger.InstallmentID, delta int) error {
	res, err := q.ExecContext(ctx,
		`UPDATE installments SET remaining_months = remaining_months + ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		delta, time.Now().UTC(), string(id), string(userID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrInstallmentNotFound
	}
	return nil
}

// =============================================================================
// CATEGORIES AND INCOME SOURCES
// =============================================================================

func createCategory(ctx context.Context, q queryer, c ledger.Category) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name) VALUES (?, ?, ?)`,
		string(c.ID), string(c.UserID), c.Name)
	return mapUnique(err)
}

func listCategories(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.Category, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, name FROM categories WHERE user_id = ? ORDER BY name`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Category
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func createIncomeSource(ctx context.Context, q queryer, s ledger.IncomeSource) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO income_sources (id, user_id, name) VALUES (?, ?, ?)`,
		string(s.ID), string(s.UserID), s.Name)
	return mapUnique(err)
}

func listIncomeSources(ctx context.Context, q queryer, userID ledger.UserID) ([]ledger.IncomeSource, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, name FROM income_sources WHERE user_id = ? ORDER BY name`,
		string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.IncomeSource
	for rows.Next() {
		var s ledger.IncomeSource
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func createBudget(ctx context.Context, q queryer, b ledger.Budget) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, month_id, category_id, amount_cents) VALUES (?, ?, ?, ?, ?)`,
		string(b.ID), string(b.UserID), string(b.MonthID), string(b.CategoryID), centsOf(b.Amount))
	return mapUnique(err)
}

func listBudgetsByMonth(ctx context.Context, q queryer, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Budget, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, user_id, month_id, category_id, amount_cents FROM budgets WHERE user_id = ? AND month_id = ?`,
		string(userID), string(monthID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Budget
	for rows.Next() {
		var b ledger.Budget
		var cents int64
		if err := rows.Scan(&b.ID, &b.UserID, &b.MonthID, &b.CategoryID, &cents); err != nil {
			return nil, err
		}
		b.Amount = fromCents(cents)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionCols = `id, user_id, month_id, date, amount_cents, type, description, notes, category_id, card_id, income_source_id, bank_account_id, loan_id, installment_id, created_at, updated_at`

func insertTransaction(ctx context.Context, q queryer, t ledger.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionCols+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.UserID), string(t.MonthID), t.Date.String(), centsOf(t.Amount),
		string(t.Type), t.Description, t.Notes,
		nullStr(string(t.CategoryID)), nullStr(string(t.CardID)), nullStr(string(t.IncomeSourceID)),
		nullStr(string(t.BankAccountID)), nullStr(string(t.LoanID)), nullStr(string(t.InstallmentID)),
		t.CreatedAt, t.UpdatedAt)
	return err
}

func scanTransaction(row interface{ Scan(...any) error }) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var date string
	var cents int64
	var category, card, source, account, loan, installment sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.MonthID, &date, &cents, &t.Type, &t.Description, &t.Notes,
		&category, &card, &source, &account, &loan, &installment, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d, err := ledger.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = d
	t.Amount = fromCents(cents)
	t.CategoryID = ledger.CategoryID(strOf(category))
	t.CardID = ledger.CardID(strOf(card))
	t.IncomeSourceID = ledger.IncomeSourceID(strOf(source))
	t.BankAccountID = ledger.AccountID(strOf(account))
	t.LoanID = ledger.LoanID(strOf(loan))
	t.InstallmentID = ledger.InstallmentID(strOf(installment))
	return &t, nil
}

func getTransaction(ctx context.Context, q queryer, userID ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func updateTransaction(ctx context.Context, q queryer, t ledger.Transaction) error {
	res, err := q.ExecContext(ctx,
		`UPDATE transactions
		 SET month_id = ?, date = ?, amount_cents = ?, type = ?, description = ?, notes = ?,
		     category_id = ?, card_id = ?, income_source_id = ?, bank_account_id = ?, loan_id = ?, installment_id = ?,
		     updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(t.MonthID), t.Date.String(), centsOf(t.Amount), string(t.Type), t.Description, t.Notes,
		nullStr(string(t.CategoryID)), nullStr(string(t.CardID)), nullStr(string(t.IncomeSourceID)),
		nullStr(string(t.BankAccountID)), nullStr(string(t.LoanID)), nullStr(string(t.InstallmentID)),
		t.UpdatedAt, string(t.ID), string(t.UserID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func deleteTransaction(ctx context.Context, q queryer, userID ledger.UserID, id ledger.TransactionID) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND user_id = ?`,
		string(id), string(userID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func listTransactions(ctx context.Context, q queryer, where string, args ...any) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+transactionCols+` FROM transactions WHERE `+where+` ORDER BY date, created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// =============================================================================
// INTERFACE WIRING - SQLite (autocommit) and txStore delegate to the helpers
// =============================================================================

func (s *SQLite) GetYear(ctx context.Context, userID ledger.UserID, year int) (*ledger.Year, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getYear(ctx, s.db, userID, year)
}
func (t *txStore) GetYear(ctx context.Context, userID ledger.UserID, year int) (*ledger.Year, error) {
	return getYear(ctx, t.tx, userID, year)
}

func (s *SQLite) CreateYear(ctx context.Context, y ledger.Year) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createYear(ctx, s.db, y)
}
func (t *txStore) CreateYear(ctx context.Context, y ledger.Year) error {
	return createYear(ctx, t.tx, y)
}

func (s *SQLite) GetMonth(ctx context.Context, yearID ledger.YearID, month time.Month) (*ledger.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getMonth(ctx, s.db, yearID, month)
}
func (t *txStore) GetMonth(ctx context.Context, yearID ledger.YearID, month time.Month) (*ledger.Month, error) {
	return getMonth(ctx, t.tx, yearID, month)
}

func (s *SQLite) CreateMonth(ctx context.Context, m ledger.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createMonth(ctx, s.db, m)
}
func (t *txStore) CreateMonth(ctx context.Context, m ledger.Month) error {
	return createMonth(ctx, t.tx, m)
}

func (s *SQLite) CreateBankAccount(ctx context.Context, a ledger.BankAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createBankAccount(ctx, s.db, a)
}
func (t *txStore) CreateBankAccount(ctx context.Context, a ledger.BankAccount) error {
	return createBankAccount(ctx, t.tx, a)
}

func (s *SQLite) GetBankAccount(ctx context.Context, userID ledger.UserID, id ledger.AccountID) (*ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBankAccount(ctx, s.db, userID, id)
}
func (t *txStore) GetBankAccount(ctx context.Context, userID ledger.UserID, id ledger.AccountID) (*ledger.BankAccount, error) {
	return getBankAccount(ctx, t.tx, userID, id)
}

func (s *SQLite) ListBankAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.BankAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBankAccounts(ctx, s.db, userID)
}
func (t *txStore) ListBankAccounts(ctx context.Context, userID ledger.UserID) ([]ledger.BankAccount, error) {
	return listBankAccounts(ctx, t.tx, userID)
}

func (s *SQLite) CreateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCreditCard(ctx, s.db, c)
}
func (t *txStore) CreateCreditCard(ctx context.Context, c ledger.CreditCard) error {
	return createCreditCard(ctx, t.tx, c)
}

func (s *SQLite) GetCreditCard(ctx context.Context, userID ledger.UserID, id ledger.CardID) (*ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCreditCard(ctx, s.db, userID, id)
}
func (t *txStore) GetCreditCard(ctx context.Context, userID ledger.UserID, id ledger.CardID) (*ledger.CreditCard, error) {
	return getCreditCard(ctx, t.tx, userID, id)
}

func (s *SQLite) ListCreditCards(ctx context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCreditCards(ctx, s.db, userID)
}
func (t *txStore) ListCreditCards(ctx context.Context, userID ledger.UserID) ([]ledger.CreditCard, error) {
	return listCreditCards(ctx, t.tx, userID)
}

func (s *SQLite) CreateLoan(ctx context.Context, l ledger.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createLoan(ctx, s.db, l)
}
func (t *txStore) CreateLoan(ctx context.Context, l ledger.Loan) error {
	return createLoan(ctx, t.tx, l)
}

func (s *SQLite) GetLoan(ctx context.Context, userID ledger.UserID, id ledger.LoanID) (*ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLoan(ctx, s.db, userID, id)
}
func (t *txStore) GetLoan(ctx context.Context, userID ledger.UserID, id ledger.LoanID) (*ledger.Loan, error) {
	return getLoan(ctx, t.tx, userID, id)
}

func (s *SQLite) ListLoans(ctx context.Context, userID ledger.UserID) ([]ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLoans(ctx, s.db, userID)
}
func (t *txStore) ListLoans(ctx context.Context, userID ledger.UserID) ([]ledger.Loan, error) {
	return listLoans(ctx, t.tx, userID)
}

func (s *SQLite) CreateInstallment(ctx context.Context, i ledger.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createInstallment(ctx, s.db, i)
}
func (t *txStore) CreateInstallment(ctx context.Context, i ledger.Installment) error {
	return createInstallment(ctx, t.tx, i)
}

func (s *SQLite) GetInstallment(ctx context.Context, userID ledger.UserID, id ledger.InstallmentID) (*ledger.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInstallment(ctx, s.db, userID, id)
}
func (t *txStore) GetInstallment(ctx context.Context, userID ledger.UserID, id ledger.InstallmentID) (*ledger.Installment, error) {
	return getInstallment(ctx, t.tx, userID, id)
}

func (s *SQLite) ListInstallments(ctx context.Context, userID ledger.UserID) ([]ledger.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listInstallments(ctx, s.db, userID)
}
func (t *txStore) ListInstallments(ctx context.Context, userID ledger.UserID) ([]ledger.Installment, error) {
	return listInstallments(ctx, t.tx, userID)
}

func (s *SQLite) CreateCategory(ctx context.Context, c ledger.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCategory(ctx, s.db, c)
}
func (t *txStore) CreateCategory(ctx context.Context, c ledger.Category) error {
	return createCategory(ctx, t.tx, c)
}

func (s *SQLite) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCategories(ctx, s.db, userID)
}
func (t *txStore) ListCategories(ctx context.Context, userID ledger.UserID) ([]ledger.Category, error) {
	return listCategories(ctx, t.tx, userID)
}

func (s *SQLite) CreateIncomeSource(ctx context.Context, src ledger.IncomeSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createIncomeSource(ctx, s.db, src)
}
func (t *txStore) CreateIncomeSource(ctx context.Context, src ledger.IncomeSource) error {
	return createIncomeSource(ctx, t.tx, src)
}

func (s *SQLite) ListIncomeSources(ctx context.Context, userID ledger.UserID) ([]ledger.IncomeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listIncomeSources(ctx, s.db, userID)
}
func (t *txStore) ListIncomeSources(ctx context.Context, userID ledger.UserID) ([]ledger.IncomeSource, error) {
	return listIncomeSources(ctx, t.tx, userID)
}

func (s *SQLite) CreateBudget(ctx context.Context, b ledger.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createBudget(ctx, s.db, b)
}
func (t *txStore) CreateBudget(ctx context.Context, b ledger.Budget) error {
	return createBudget(ctx, t.tx, b)
}

func (s *SQLite) ListBudgetsByMonth(ctx context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBudgetsByMonth(ctx, s.db, userID, monthID)
}
func (t *txStore) ListBudgetsByMonth(ctx context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Budget, error) {
	return listBudgetsByMonth(ctx, t.tx, userID, monthID)
}

func (s *SQLite) InsertTransaction(ctx context.Context, tr ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransaction(ctx, s.db, tr)
}
func (t *txStore) InsertTransaction(ctx context.Context, tr ledger.Transaction) error {
	return insertTransaction(ctx, t.tx, tr)
}

func (s *SQLite) GetTransaction(ctx context.Context, userID ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, userID, id)
}
func (t *txStore) GetTransaction(ctx context.Context, userID ledger.UserID, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, t.tx, userID, id)
}

func (s *SQLite) UpdateTransaction(ctx context.Context, tr ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, tr)
}
func (t *txStore) UpdateTransaction(ctx context.Context, tr ledger.Transaction) error {
	return updateTransaction(ctx, t.tx, tr)
}

func (s *SQLite) DeleteTransaction(ctx context.Context, userID ledger.UserID, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, userID, id)
}
func (t *txStore) DeleteTransaction(ctx context.Context, userID ledger.UserID, id ledger.TransactionID) error {
	return deleteTransaction(ctx, t.tx, userID, id)
}

func (s *SQLite) ListTransactionsByMonth(ctx context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, `user_id = ? AND month_id = ?`, string(userID), string(monthID))
}
func (t *txStore) ListTransactionsByMonth(ctx context.Context, userID ledger.UserID, monthID ledger.MonthID) ([]ledger.Transaction, error) {
	return listTransactions(ctx, t.tx, `user_id = ? AND month_id = ?`, string(userID), string(monthID))
}

func (s *SQLite) ListTransactionsByAccount(ctx context.Context, userID ledger.UserID, id ledger.AccountID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, `user_id = ? AND bank_account_id = ?`, string(userID), string(id))
}
func (t *txStore) ListTransactionsByAccount(ctx context.Context, userID ledger.UserID, id ledger.AccountID) ([]ledger.Transaction, error) {
	return listTransactions(ctx, t.tx, `user_id = ? AND bank_account_id = ?`, string(userID), string(id))
}

func (s *SQLite) ListTransactionsByCard(ctx context.Context, userID ledger.UserID, id ledger.CardID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, `user_id = ? AND card_id = ?`, string(userID), string(id))
}
func (t *txStore) ListTransactionsByCard(ctx context.Context, userID ledger.UserID, id ledger.CardID) ([]ledger.Transaction, error) {
	return listTransactions(ctx, t.tx, `user_id = ? AND card_id = ?`, string(userID), string(id))
}

func (s *SQLite) AdjustAccountBalance(ctx context.Context, userID ledger.UserID, id ledger.AccountID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustAccountBalance(ctx, s.db, userID, id, delta)
}
func (t *txStore) AdjustAccountBalance(ctx context.Context, userID ledger.UserID, id ledger.AccountID, delta decimal.Decimal) error {
	return adjustAccountBalance(ctx, t.tx, userID, id, delta)
}

func (s *SQLite) AdjustLoanRemaining(ctx context.Context, userID ledger.UserID, id ledger.LoanID, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustLoanRemaining(ctx, s.db, userID, id, delta)
}
func (t *txStore) AdjustLoanRemaining(ctx context.Context, userID ledger.UserID, id ledger.LoanID, delta decimal.Decimal) error {
	return adjustLoanRemaining(ctx, t.tx, userID, id, delta)
}

func (s *SQLite) AdjustInstallmentMonths(ctx context.Context, userID ledger.UserID, id ledger.InstallmentID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustInstallmentMonths(ctx, s.db, userID, id, delta)
}
func (t *txStore) AdjustInstallmentMonths(ctx context.Context, userID ledger.UserID, id ledger.InstallmentID, delta int) error {
	return adjustInstallmentMonths(ctx, t.tx, userID, id, delta)
}

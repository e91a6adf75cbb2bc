package ledger_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/ledger"
)

func (f *fixture) cardTransactions(t *testing.T, card ledger.CardID) []ledger.Transaction {
	t.Helper()
	txs, err := f.store.ListTransactionsByCard(f.ctx, testUser, card)
	require.NoError(t, err)
	sort.Slice(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs
}

func TestCreateInstallmentValidation(t *testing.T) {
	f := newFixture(t)
	card := f.seedCard(t, 15)

	base := ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	}

	tests := []struct {
		name   string
		mutate func(*ledger.InstallmentInput)
	}{
		{"empty name", func(in *ledger.InstallmentInput) { in.Name = "" }},
		{"zero total", func(in *ledger.InstallmentInput) { in.TotalAmount = dec("0") }},
		{"zero monthly payment", func(in *ledger.InstallmentInput) { in.MonthlyPayment = dec("0") }},
		{"negative monthly payment", func(in *ledger.InstallmentInput) { in.MonthlyPayment = dec("-10") }},
		{"negative paid", func(in *ledger.InstallmentInput) { in.PaidAmount = dec("-1") }},
		{"zero months", func(in *ledger.InstallmentInput) { in.TotalMonths = 0 }},
		{"missing start date", func(in *ledger.InstallmentInput) { in.StartDate = ledger.Date{} }},
		{"missing card", func(in *ledger.InstallmentInput) { in.CardID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := f.engine.CreateInstallment(f.ctx, testUser, in)
			require.Error(t, err)
			assert.True(t, ledger.IsClientError(err), "expected client error, got %v", err)
		})
	}
}

func TestCreateInstallmentRequiresStatementDay(t *testing.T) {
	// GIVEN a card whose statement day was never configured
	f := newFixture(t)
	card := f.seedCard(t, 0)

	// WHEN an installment is opened on it
	_, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Phone",
		TotalAmount:    dec("600"),
		MonthlyPayment: dec("50"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})

	// THEN the configuration gap is reported as a client error
	assert.ErrorIs(t, err, ledger.ErrStatementDayRequired)
}

func TestCreateInstallmentUnknownCard(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Phone",
		TotalAmount:    dec("600"),
		MonthlyPayment: dec("50"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         "missing",
	})
	assert.ErrorIs(t, err, ledger.ErrCreditCardNotFound)
}

func TestCreateInstallmentBackfillsPaidCycles(t *testing.T) {
	// GIVEN a 1200 plan over 12 months at 100/month with 250 already paid,
	// purchased Jan 10 on a card cutting statements on the 15th
	f := newFixture(t)
	card := f.seedCard(t, 15)

	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		PaidAmount:     dec("250"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)

	// THEN two full months are covered and ten remain
	assert.Equal(t, 10, inst.RemainingMonths)

	// AND three backfill transactions exist: 100, 100, then the 50 remainder,
	// dated on consecutive statement days starting Jan 15
	txs := f.cardTransactions(t, card)
	require.Len(t, txs, 3)

	wantDates := []ledger.Date{
		ledger.NewDate(2024, time.January, 15),
		ledger.NewDate(2024, time.February, 15),
		ledger.NewDate(2024, time.March, 15),
	}
	wantAmounts := []string{"100", "100", "50"}
	for i, tx := range txs {
		assert.True(t, tx.Date.Equal(wantDates[i]), "tx %d date: got %s, want %s", i, tx.Date, wantDates[i])
		requireDecimal(t, wantAmounts[i], tx.Amount)
		assert.Equal(t, ledger.TxExpense, tx.Type)
		assert.Equal(t, inst.ID, tx.InstallmentID)
		assert.Equal(t, "Installment Balance Payment: Laptop", tx.Description)
	}
}

func TestCreateInstallmentNothingPaidBackfillsNothing(t *testing.T) {
	f := newFixture(t)
	card := f.seedCard(t, 15)

	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "TV",
		TotalAmount:    dec("900"),
		MonthlyPayment: dec("75"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.March, 1),
		CardID:         card,
	})
	require.NoError(t, err)

	assert.Equal(t, 12, inst.RemainingMonths)
	assert.Empty(t, f.cardTransactions(t, card))
}

func TestCreateInstallmentAnchorsAfterStatementDay(t *testing.T) {
	// GIVEN a purchase after the month's statement already cut
	f := newFixture(t)
	card := f.seedCard(t, 15)

	_, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Desk",
		TotalAmount:    dec("300"),
		MonthlyPayment: dec("100"),
		PaidAmount:     dec("100"),
		TotalMonths:    3,
		StartDate:      ledger.NewDate(2024, time.March, 20),
		CardID:         card,
	})
	require.NoError(t, err)

	// THEN the first backfill lands on the next month's statement date
	txs := f.cardTransactions(t, card)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.Equal(ledger.NewDate(2024, time.April, 15)),
		"got %s", txs[0].Date)
}

func TestCreateInstallmentBackfillsNeverTouchBalances(t *testing.T) {
	// GIVEN an account that the installment never references
	f := newFixture(t)
	card := f.seedCard(t, 15)
	account := f.seedAccount(t, "1000")

	_, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Couch",
		TotalAmount:    dec("800"),
		MonthlyPayment: dec("200"),
		PaidAmount:     dec("400"),
		TotalMonths:    4,
		StartDate:      ledger.NewDate(2024, time.January, 1),
		CardID:         card,
	})
	require.NoError(t, err)

	// THEN the account is untouched: backfills are card bookkeeping only
	requireDecimal(t, "1000", f.accountBalance(t, account))
}

func TestPayInstallment(t *testing.T) {
	// GIVEN an open installment with 12 months remaining
	f := newFixture(t)
	card := f.seedCard(t, 15)
	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)

	// WHEN one payment is recorded
	tx, err := f.engine.PayInstallment(f.ctx, testUser, inst.ID)
	require.NoError(t, err)

	// THEN a dated expense exists and the counter dropped by one
	assert.True(t, tx.Date.Equal(f.clock.Date), "payment dated %s, clock %s", tx.Date, f.clock.Date)
	requireDecimal(t, "100", tx.Amount)
	assert.Equal(t, ledger.TxExpense, tx.Type)
	assert.Equal(t, "Installment Payment: Laptop", tx.Description)
	assert.Equal(t, inst.ID, tx.InstallmentID)
	assert.Equal(t, 11, f.installment(t, inst.ID).RemainingMonths)
}

func TestPayInstallmentCompletedFailsWithoutWriting(t *testing.T) {
	// GIVEN an installment that has run its full term
	f := newFixture(t)
	card := f.seedCard(t, 15)
	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Headphones",
		TotalAmount:    dec("200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    2,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := f.engine.PayInstallment(f.ctx, testUser, inst.ID)
		require.NoError(t, err)
	}
	before := len(f.cardTransactions(t, card))

	// WHEN another payment is attempted
	_, err = f.engine.PayInstallment(f.ctx, testUser, inst.ID)

	// THEN it is rejected and nothing was written
	assert.ErrorIs(t, err, ledger.ErrInstallmentCompleted)
	assert.Equal(t, before, len(f.cardTransactions(t, card)))
	assert.Equal(t, 0, f.installment(t, inst.ID).RemainingMonths)
}

func TestPayInstallmentNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.PayInstallment(f.ctx, testUser, "missing")
	assert.ErrorIs(t, err, ledger.ErrInstallmentNotFound)
}

func TestDeletePaymentRestoresRemainingMonths(t *testing.T) {
	// GIVEN an installment with one payment recorded
	f := newFixture(t)
	card := f.seedCard(t, 15)
	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)
	tx, err := f.engine.PayInstallment(f.ctx, testUser, inst.ID)
	require.NoError(t, err)
	require.Equal(t, 11, f.installment(t, inst.ID).RemainingMonths)

	// WHEN the payment transaction is deleted
	require.NoError(t, f.engine.DeleteTransaction(f.ctx, testUser, tx.ID))

	// THEN the month it consumed comes back
	assert.Equal(t, 12, f.installment(t, inst.ID).RemainingMonths)
}

func TestUpdatePaymentKeepsInstallmentLink(t *testing.T) {
	// GIVEN a recorded installment payment
	f := newFixture(t)
	card := f.seedCard(t, 15)
	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)
	tx, err := f.engine.PayInstallment(f.ctx, testUser, inst.ID)
	require.NoError(t, err)

	// WHEN its notes are edited
	updated, err := f.engine.UpdateTransaction(f.ctx, testUser, tx.ID, ledger.TransactionInput{
		Date:        tx.Date,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Description: tx.Description,
		Notes:       "paid early",
		CardID:      tx.CardID,
	})
	require.NoError(t, err)

	// THEN the link survives and the counter nets out unchanged
	assert.Equal(t, inst.ID, updated.InstallmentID)
	assert.Equal(t, 11, f.installment(t, inst.ID).RemainingMonths)
}

func TestUpdatePaymentToIncomeReturnsMonth(t *testing.T) {
	// GIVEN a recorded installment payment
	f := newFixture(t)
	card := f.seedCard(t, 15)
	inst, err := f.engine.CreateInstallment(f.ctx, testUser, ledger.InstallmentInput{
		Name:           "Laptop",
		TotalAmount:    dec("1200"),
		MonthlyPayment: dec("100"),
		TotalMonths:    12,
		StartDate:      ledger.NewDate(2024, time.January, 10),
		CardID:         card,
	})
	require.NoError(t, err)
	tx, err := f.engine.PayInstallment(f.ctx, testUser, inst.ID)
	require.NoError(t, err)
	require.Equal(t, 11, f.installment(t, inst.ID).RemainingMonths)

	// WHEN the payment is recharacterized as income
	_, err = f.engine.UpdateTransaction(f.ctx, testUser, tx.ID, ledger.TransactionInput{
		Date:   tx.Date,
		Amount: tx.Amount,
		Type:   ledger.TxIncome,
		CardID: tx.CardID,
	})
	require.NoError(t, err)

	// THEN the reversal gives the month back and no new decrement applies
	assert.Equal(t, 12, f.installment(t, inst.ID).RemainingMonths)
}

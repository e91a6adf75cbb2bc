package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/finance-engine/ledger"
	"github.com/warp/finance-engine/ledger/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mem := store.NewMemory()
	clock := ledger.FixedClock{Date: ledger.NewDate(2024, time.June, 15)}
	engine := ledger.NewEngine(mem, clock)
	log := logrus.New()
	log.SetOutput(bytes.NewBuffer(nil))
	engine.Log = log
	return NewServer(engine, mem, log)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), "body: %s", rec.Body.String())
	return out
}

func TestMissingUserHeaderIsUnauthorized(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/", map[string]any{
		"name": "Checking", "kind": "checking", "balance": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[accountResponse](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/accounts/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]accountResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Checking", list[0].Name)
}

func TestCreateAccountRejectsMissingName(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/", map[string]any{"balance": 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN an account over the API
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/", map[string]any{
		"name": "Checking", "balance": 500,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	account := decodeBody[accountResponse](t, rec)

	// WHEN an expense is posted
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/transactions/", map[string]any{
		"date": "2024-06-01", "amount": 120.50, "type": "expense",
		"description": "Rent share", "bankAccountId": account.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tx := decodeBody[transactionResponse](t, rec)
	assert.Equal(t, "2024-06-01", tx.Date)

	// THEN it lists under its period and the balance moved
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/transactions/?year=2024&month=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeBody[[]transactionResponse](t, rec)
	require.Len(t, listed, 1)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/accounts/", nil)
	accounts := decodeBody[[]accountResponse](t, rec)
	assert.Equal(t, "379.5", accounts[0].Balance.String())

	// WHEN it is updated and then deleted
	rec = doJSON(t, srv, http.MethodPut, "/api/v1/transactions/"+tx.ID, map[string]any{
		"date": "2024-06-01", "amount": 100, "type": "expense",
		"bankAccountId": account.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodDelete, "/api/v1/transactions/"+tx.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// THEN the balance is back to its starting point
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/accounts/", nil)
	accounts = decodeBody[[]accountResponse](t, rec)
	assert.Equal(t, "500", accounts[0].Balance.String())
}

func TestTransactionValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"bad type", map[string]any{"date": "2024-06-01", "amount": 10, "type": "transfer"}},
		{"bad date", map[string]any{"date": "June 1st", "amount": 10, "type": "expense"}},
		{"negative amount", map[string]any{"date": "2024-06-01", "amount": -10, "type": "expense"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/v1/transactions/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdateMissingTransactionIs404(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPut, "/api/v1/transactions/nope", map[string]any{
		"date": "2024-06-01", "amount": 10, "type": "expense",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTransactionsRequiresPeriodParams(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/transactions/", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/transactions/?year=2024&month=13", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An unseen period is an empty list, not an error.
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/transactions/?year=1999&month=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]transactionResponse](t, rec))
}

func TestInstallmentFlow(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN a card with a statement day
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/cards/", map[string]any{
		"name": "Visa", "statementDay": 15, "dueDay": 10,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	card := decodeBody[cardResponse](t, rec)

	// WHEN an installment with prior payments is opened
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/installments/", map[string]any{
		"name": "Laptop", "totalAmount": 1200, "monthlyPayment": 100,
		"paidAmount": 250, "totalMonths": 12,
		"startDate": "2024-01-10", "cardId": card.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inst := decodeBody[installmentResponse](t, rec)
	assert.Equal(t, 10, inst.RemainingMonths)

	// THEN the card balance reflects the backfilled cycles
	rec = doJSON(t, srv, http.MethodGet, "/api/v1/cards/"+card.ID+"/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decodeBody[cardBalanceResponse](t, rec)
	assert.Equal(t, "250", balance.Balance.String())

	// WHEN a payment is recorded
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/installments/"+inst.ID+"/pay", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	payment := decodeBody[transactionResponse](t, rec)
	assert.Equal(t, "2024-06-15", payment.Date)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/installments/", nil)
	list := decodeBody[[]installmentResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, 9, list[0].RemainingMonths)
}

func TestInstallmentOnCardWithoutStatementDayIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/cards/", map[string]any{
		"name": "Amex",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	card := decodeBody[cardResponse](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/installments/", map[string]any{
		"name": "Phone", "totalAmount": 600, "monthlyPayment": 50,
		"totalMonths": 12, "startDate": "2024-01-10", "cardId": card.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestPayUnknownInstallmentIs404(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/installments/nope/pay", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCategoryDuplicateIs400(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/categories/", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/categories/", map[string]any{"name": "Food"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/categories/", map[string]any{"name": "Food"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cat := decodeBody[namedResponse](t, rec)

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/budgets/", map[string]any{
		"year": 2024, "month": 9, "categoryId": cat.ID, "amount": 300,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate pair is the caller's error.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/budgets/", map[string]any{
		"year": 2024, "month": 9, "categoryId": cat.ID, "amount": 500,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/budgets/?year=2024&month=9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	budgets := decodeBody[[]budgetResponse](t, rec)
	require.Len(t, budgets, 1)
	assert.Equal(t, "300", budgets[0].Amount.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/budgets/?year=2024&month=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]budgetResponse](t, rec))
}

func TestUsersAreIsolated(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/accounts/", map[string]any{
		"name": "Mine", "balance": 100,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/", nil)
	req.Header.Set("X-User-ID", "someone-else")
	other := httptest.NewRecorder()
	srv.ServeHTTP(other, req)
	require.Equal(t, http.StatusOK, other.Code)
	assert.Empty(t, decodeBody[[]accountResponse](t, other))
}

/*
handlers.go - HTTP handlers for the ledger API

ERROR MAPPING:
  - Validation failures and other client errors: 400
  - Missing rows (transaction, account, card, loan, installment): 404
  - Anything else: 500 with a generic body, cause logged server-side
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/ledger"
)

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case ledger.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.log.WithError(err).Error("api: request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decode unmarshals and validates the request body. A false return means
// the response has already been written.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// =============================================================================
// BANK ACCOUNTS
// =============================================================================

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !s.decode(w, r, &req) {
		return
	}
	a := ledger.BankAccount{
		ID:           ledger.AccountID(uuid.NewString()),
		UserID:       userFrom(r),
		Name:         req.Name,
		Kind:         req.Kind,
		Balance:      req.Balance,
		IsSavings:    req.IsSavings,
		TargetAmount: req.TargetAmount,
		GrowthRate:   req.GrowthRate,
		CreatedAt:    time.Now().UTC(),
	}
	if req.TargetDate != "" {
		d, err := ledger.ParseDate(req.TargetDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid targetDate"})
			return
		}
		a.TargetDate = &d
	}
	if err := s.store.CreateBankAccount(r.Context(), a); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(a))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.ListBankAccounts(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// CREDIT CARDS
// =============================================================================

func (s *Server) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if !s.decode(w, r, &req) {
		return
	}
	c := ledger.CreditCard{
		ID:           ledger.CardID(uuid.NewString()),
		UserID:       userFrom(r),
		Name:         req.Name,
		StatementDay: req.StatementDay,
		DueDay:       req.DueDay,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateCreditCard(r.Context(), c); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCardResponse(c))
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCreditCards(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCardBalance aggregates the card's transactions at read time:
// expenses add to what is owed, incomes (payments, refunds) subtract.
func (s *Server) handleCardBalance(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	id := ledger.CardID(chi.URLParam(r, "id"))

	card, err := s.store.GetCreditCard(r.Context(), userID, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if card == nil {
		s.writeErr(w, ledger.ErrCreditCardNotFound)
		return
	}

	txs, err := s.store.ListTransactionsByCard(r.Context(), userID, id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	balance := decimal.Zero
	for _, t := range txs {
		balance = balance.Sub(t.Delta())
	}
	writeJSON(w, http.StatusOK, cardBalanceResponse{CardID: string(id), Balance: balance})
}

// =============================================================================
// LOANS
// =============================================================================

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.TotalAmount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "totalAmount must be positive"})
		return
	}
	remaining := req.TotalAmount
	if req.RemainingAmount != nil {
		remaining = *req.RemainingAmount
	}
	l := ledger.Loan{
		ID:              ledger.LoanID(uuid.NewString()),
		UserID:          userFrom(r),
		Name:            req.Name,
		TotalAmount:     req.TotalAmount,
		RemainingAmount: remaining,
		InterestRate:    req.InterestRate,
		MonthlyPayment:  req.MonthlyPayment,
		CreatedAt:       time.Now().UTC(),
	}
	if req.DueDate != "" {
		d, err := ledger.ParseDate(req.DueDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid dueDate"})
			return
		}
		l.DueDate = &d
	}
	if err := s.store.CreateLoan(r.Context(), l); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLoanResponse(l))
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.store.ListLoans(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// CATEGORIES AND INCOME SOURCES
// =============================================================================

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if !s.decode(w, r, &req) {
		return
	}
	c := ledger.Category{
		ID:     ledger.CategoryID(uuid.NewString()),
		UserID: userFrom(r),
		Name:   req.Name,
	}
	if err := s.store.CreateCategory(r.Context(), c); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, namedResponse{ID: string(c.ID), Name: c.Name})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]namedResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, namedResponse{ID: string(c.ID), Name: c.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateIncomeSource(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if !s.decode(w, r, &req) {
		return
	}
	src := ledger.IncomeSource{
		ID:     ledger.IncomeSourceID(uuid.NewString()),
		UserID: userFrom(r),
		Name:   req.Name,
	}
	if err := s.store.CreateIncomeSource(r.Context(), src); err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, namedResponse{ID: string(src.ID), Name: src.Name})
}

func (s *Server) handleListIncomeSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListIncomeSources(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]namedResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, namedResponse{ID: string(src.ID), Name: src.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// BUDGETS
// =============================================================================

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if !s.decode(w, r, &req) {
		return
	}
	b, err := s.engine.CreateBudget(r.Context(), userFrom(r), req.Year, req.Month,
		ledger.CategoryID(req.CategoryID), req.Amount)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(*b))
}

// handleListBudgets mirrors transaction listing: an unseen period is an
// empty list, never a side-effecting resolve.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "year query parameter is required"})
		return
	}
	monthNum, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "month query parameter must be 1-12"})
		return
	}

	out := []budgetResponse{}
	y, err := s.store.GetYear(r.Context(), userID, year)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if y != nil {
		m, err := s.store.GetMonth(r.Context(), y.ID, time.Month(monthNum))
		if err != nil {
			s.writeErr(w, err)
			return
		}
		if m != nil {
			budgets, err := s.store.ListBudgetsByMonth(r.Context(), userID, m.ID)
			if err != nil {
				s.writeErr(w, err)
				return
			}
			for _, b := range budgets {
				out = append(out, toBudgetResponse(b))
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Server) transactionInput(w http.ResponseWriter, r *http.Request) (ledger.TransactionInput, bool) {
	var req transactionRequest
	if !s.decode(w, r, &req) {
		return ledger.TransactionInput{}, false
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid date, expected YYYY-MM-DD"})
		return ledger.TransactionInput{}, false
	}
	return ledger.TransactionInput{
		Date:           date,
		Amount:         req.Amount,
		Type:           ledger.TransactionType(req.Type),
		Description:    req.Description,
		Notes:          req.Notes,
		CategoryID:     ledger.CategoryID(req.CategoryID),
		CardID:         ledger.CardID(req.CardID),
		IncomeSourceID: ledger.IncomeSourceID(req.IncomeSourceID),
		BankAccountID:  ledger.AccountID(req.BankAccountID),
		LoanID:         ledger.LoanID(req.LoanID),
	}, true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}
	t, err := s.engine.CreateTransaction(r.Context(), userFrom(r), in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(*t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := s.transactionInput(w, r)
	if !ok {
		return
	}
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	t, err := s.engine.UpdateTransaction(r.Context(), userFrom(r), id, in)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(*t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))
	if err := s.engine.DeleteTransaction(r.Context(), userFrom(r), id); err != nil {
		s.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions returns the transactions of one period. A period
// that was never materialized simply has no transactions; listing never
// creates year or month rows.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r)
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "year query parameter is required"})
		return
	}
	monthNum, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "month query parameter must be 1-12"})
		return
	}

	out := []transactionResponse{}
	y, err := s.store.GetYear(r.Context(), userID, year)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if y != nil {
		m, err := s.store.GetMonth(r.Context(), y.ID, time.Month(monthNum))
		if err != nil {
			s.writeErr(w, err)
			return
		}
		if m != nil {
			txs, err := s.store.ListTransactionsByMonth(r.Context(), userID, m.ID)
			if err != nil {
				s.writeErr(w, err)
				return
			}
			for _, t := range txs {
				out = append(out, toTransactionResponse(t))
			}
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (s *Server) handleCreateInstallment(w http.ResponseWriter, r *http.Request) {
	var req createInstallmentRequest
	if !s.decode(w, r, &req) {
		return
	}
	start, err := ledger.ParseDate(req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid startDate, expected YYYY-MM-DD"})
		return
	}
	inst, err := s.engine.CreateInstallment(r.Context(), userFrom(r), ledger.InstallmentInput{
		Name:           req.Name,
		TotalAmount:    req.TotalAmount,
		MonthlyPayment: req.MonthlyPayment,
		PaidAmount:     req.PaidAmount,
		TotalMonths:    req.TotalMonths,
		StartDate:      start,
		CardID:         ledger.CardID(req.CardID),
		CategoryID:     ledger.CategoryID(req.CategoryID),
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInstallmentResponse(*inst))
}

func (s *Server) handleListInstallments(w http.ResponseWriter, r *http.Request) {
	installments, err := s.store.ListInstallments(r.Context(), userFrom(r))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	out := make([]installmentResponse, 0, len(installments))
	for _, i := range installments {
		out = append(out, toInstallmentResponse(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePayInstallment(w http.ResponseWriter, r *http.Request) {
	id := ledger.InstallmentID(chi.URLParam(r, "id"))
	t, err := s.engine.PayInstallment(r.Context(), userFrom(r), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(*t))
}

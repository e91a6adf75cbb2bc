/*
dto.go - Request and response shapes for the HTTP API

Amounts cross the wire as JSON numbers and are bound to decimal.Decimal,
never float64. Range and precision checks on money live in the ledger
package; validator tags here only cover presence and basic shape.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/finance-engine/ledger"
)

// =============================================================================
// REQUESTS
// =============================================================================

type createAccountRequest struct {
	Name         string           `json:"name" validate:"required"`
	Kind         string           `json:"kind"`
	Balance      decimal.Decimal  `json:"balance"`
	IsSavings    bool             `json:"isSavings"`
	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	GrowthRate   *decimal.Decimal `json:"growthRate,omitempty"`
	TargetDate   string           `json:"targetDate,omitempty"`
}

type createCardRequest struct {
	Name         string `json:"name" validate:"required"`
	StatementDay int    `json:"statementDay" validate:"gte=0,lte=31"`
	DueDay       int    `json:"dueDay" validate:"gte=0,lte=31"`
}

type createLoanRequest struct {
	Name            string           `json:"name" validate:"required"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	RemainingAmount *decimal.Decimal `json:"remainingAmount,omitempty"`
	InterestRate    decimal.Decimal  `json:"interestRate"`
	MonthlyPayment  *decimal.Decimal `json:"monthlyPayment,omitempty"`
	DueDate         string           `json:"dueDate,omitempty"`
}

type createNamedRequest struct {
	Name string `json:"name" validate:"required"`
}

type transactionRequest struct {
	Date           string          `json:"date" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type" validate:"required,oneof=income expense"`
	Description    string          `json:"description"`
	Notes          string          `json:"notes"`
	CategoryID     string          `json:"categoryId"`
	CardID         string          `json:"cardId"`
	IncomeSourceID string          `json:"incomeSourceId"`
	BankAccountID  string          `json:"bankAccountId"`
	LoanID         string          `json:"loanId"`
}

type createInstallmentRequest struct {
	Name           string          `json:"name" validate:"required"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	TotalMonths    int             `json:"totalMonths" validate:"required,gt=0"`
	StartDate      string          `json:"startDate" validate:"required"`
	CardID         string          `json:"cardId" validate:"required"`
	CategoryID     string          `json:"categoryId"`
}

type createBudgetRequest struct {
	Year       int             `json:"year" validate:"required"`
	Month      int             `json:"month" validate:"required,gte=1,lte=12"`
	CategoryID string          `json:"categoryId" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type accountResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Balance      decimal.Decimal  `json:"balance"`
	IsSavings    bool             `json:"isSavings"`
	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	GrowthRate   *decimal.Decimal `json:"growthRate,omitempty"`
	TargetDate   string           `json:"targetDate,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func toAccountResponse(a ledger.BankAccount) accountResponse {
	out := accountResponse{
		ID:           string(a.ID),
		Name:         a.Name,
		Kind:         a.Kind,
		Balance:      a.Balance,
		IsSavings:    a.IsSavings,
		TargetAmount: a.TargetAmount,
		GrowthRate:   a.GrowthRate,
		CreatedAt:    a.CreatedAt,
	}
	if a.TargetDate != nil {
		out.TargetDate = a.TargetDate.String()
	}
	return out
}

type cardResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StatementDay int       `json:"statementDay"`
	DueDay       int       `json:"dueDay"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toCardResponse(c ledger.CreditCard) cardResponse {
	return cardResponse{
		ID:           string(c.ID),
		Name:         c.Name,
		StatementDay: c.StatementDay,
		DueDay:       c.DueDay,
		CreatedAt:    c.CreatedAt,
	}
}

// cardBalanceResponse carries the read-time aggregate over the card's
// transactions; cards never store a balance.
type cardBalanceResponse struct {
	CardID  string          `json:"cardId"`
	Balance decimal.Decimal `json:"balance"`
}

type loanResponse struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	RemainingAmount decimal.Decimal  `json:"remainingAmount"`
	InterestRate    decimal.Decimal  `json:"interestRate"`
	MonthlyPayment  *decimal.Decimal `json:"monthlyPayment,omitempty"`
	DueDate         string           `json:"dueDate,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
}

func toLoanResponse(l ledger.Loan) loanResponse {
	out := loanResponse{
		ID:              string(l.ID),
		Name:            l.Name,
		TotalAmount:     l.TotalAmount,
		RemainingAmount: l.RemainingAmount,
		InterestRate:    l.InterestRate,
		MonthlyPayment:  l.MonthlyPayment,
		CreatedAt:       l.CreatedAt,
	}
	if l.DueDate != nil {
		out.DueDate = l.DueDate.String()
	}
	return out
}

type transactionResponse struct {
	ID             string          `json:"id"`
	Date           string          `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
	Notes          string          `json:"notes,omitempty"`
	CategoryID     string          `json:"categoryId,omitempty"`
	CardID         string          `json:"cardId,omitempty"`
	IncomeSourceID string          `json:"incomeSourceId,omitempty"`
	BankAccountID  string          `json:"bankAccountId,omitempty"`
	LoanID         string          `json:"loanId,omitempty"`
	InstallmentID  string          `json:"installmentId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:             string(t.ID),
		Date:           t.Date.String(),
		Amount:         t.Amount,
		Type:           string(t.Type),
		Description:    t.Description,
		Notes:          t.Notes,
		CategoryID:     string(t.CategoryID),
		CardID:         string(t.CardID),
		IncomeSourceID: string(t.IncomeSourceID),
		BankAccountID:  string(t.BankAccountID),
		LoanID:         string(t.LoanID),
		InstallmentID:  string(t.InstallmentID),
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type installmentResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	MonthlyPayment  decimal.Decimal `json:"monthlyPayment"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	TotalMonths     int             `json:"totalMonths"`
	RemainingMonths int             `json:"remainingMonths"`
	StartDate       string          `json:"startDate"`
	CardID          string          `json:"cardId"`
	CategoryID      string          `json:"categoryId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func toInstallmentResponse(i ledger.Installment) installmentResponse {
	return installmentResponse{
		ID:              string(i.ID),
		Name:            i.Name,
		TotalAmount:     i.TotalAmount,
		MonthlyPayment:  i.MonthlyPayment,
		PaidAmount:      i.PaidAmount,
		TotalMonths:     i.TotalMonths,
		RemainingMonths: i.RemainingMonths,
		StartDate:       i.StartDate.String(),
		CardID:          string(i.CardID),
		CategoryID:      string(i.CategoryID),
		CreatedAt:       i.CreatedAt,
	}
}

type budgetResponse struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
}

func toBudgetResponse(b ledger.Budget) budgetResponse {
	return budgetResponse{
		ID:         string(b.ID),
		CategoryID: string(b.CategoryID),
		Amount:     b.Amount,
	}
}

type namedResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

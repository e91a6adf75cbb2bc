/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place. Callers of the operation layer display these
  messages verbatim, so the texts are user-facing.

ERROR CATEGORIES:
  1. Validation errors - Rejected before any persistence call
  2. Not-found errors  - Ownership-scoped lookup misses
  3. Business-rule errors - Installment completed, missing statement day, ...
  4. Operation failures - Persistence errors mapped to a generic
     "failed to {verb}" message; the cause is kept for operator logs only

USAGE:
  if errors.Is(err, ledger.ErrInstallmentCompleted) { ... }
  var verr *ledger.ValidationError
  if errors.As(err, &verr) { ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of all validation errors.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicate is returned by stores on a unique-constraint violation.
	// During period resolution it means "someone else just created it" and
	// is handled by re-fetching, never surfaced to callers.
	ErrDuplicate = errors.New("already exists")

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBankAccountNotFound = errors.New("bank account not found")
	ErrCreditCardNotFound  = errors.New("credit card not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrStatementDayRequired is returned when an installment is created
	// against a card with no statement day; installments cannot be scheduled
	// without a billing cycle anchor.
	ErrStatementDayRequired = errors.New("statement date required")

	// ErrInstallmentCompleted is returned when paying an installment whose
	// remaining-month counter has reached zero.
	ErrInstallmentCompleted = errors.New("installment already completed")

	// ErrOperationFailed is the root of generic persistence failures.
	ErrOperationFailed = errors.New("operation failed")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError describes a rejected field. No side effects have been
// attempted when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// OperationError wraps a persistence failure into the generic message the
// caller sees. The cause is retained for operator logging but is not part
// of the message.
type OperationError struct {
	Verb  string // "create transaction", "pay installment", ...
	Cause error
}

func (e *OperationError) Error() string { return "failed to " + e.Verb }

func (e *OperationError) Unwrap() error { return ErrOperationFailed }

func failed(verb string, cause error) error {
	return &OperationError{Verb: verb, Cause: cause}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing or unowned row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrBankAccountNotFound) ||
		errors.Is(err, ErrCreditCardNotFound) ||
		errors.Is(err, ErrLoanNotFound) ||
		errors.Is(err, ErrInstallmentNotFound)
}

// IsClientError returns true if the error is the user's to fix rather than
// an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrStatementDayRequired) ||
		errors.Is(err, ErrInstallmentCompleted)
}

package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Validation and authorization errors are returned to the caller as-is;
// handlers map them to 4xx responses.
var (
	ErrEmptyCart          = errors.New("Cart is empty")
	ErrProductNotFound    = errors.New("Product not found")
	ErrCategoryNotFound   = errors.New("Category not found")
	ErrOrderNotFound      = errors.New("Order not found")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvoiceNotFound    = errors.New("Invoice not found")
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrForbidden          = errors.New("Forbidden")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrCannotDeleteSelf   = errors.New("Cannot delete your own account")
)

// InsufficientStockError rejects a checkout line whose product cannot cover
// the requested quantity.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product %s (available %d, requested %d)",
		e.ProductName, e.Available, e.Requested)
}

// TotalsMismatchError is returned when server-side total verification is on
// and the submitted figure disagrees with the recomputed one.
type TotalsMismatchError struct {
	Field    string
	Expected decimal.Decimal
	Got      decimal.Decimal
}

func (e *TotalsMismatchError) Error() string {
	return fmt.Sprintf("%s mismatch: expected %s, got %s", e.Field, e.Expected.StringFixed(2), e.Got.StringFixed(2))
}

// ValidationError carries a business-rule violation the request DTO tags
// cannot express.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError reports a uniqueness or reference conflict.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// PersistenceError wraps an unexpected storage failure. Its message is never
// shown to clients.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// isDomainError reports whether err is one of the caller-facing errors above.
func isDomainError(err error) bool {
	var (
		stockErr    *InsufficientStockError
		totalsErr   *TotalsMismatchError
		validation  *ValidationError
		conflictErr *ConflictError
	)
	switch {
	case errors.As(err, &stockErr), errors.As(err, &totalsErr),
		errors.As(err, &validation), errors.As(err, &conflictErr):
		return true
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrUserNotFound), errors.Is(err, ErrInvoiceNotFound),
		errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrCannotDeleteSelf):
		return true
	}
	return false
}

// Package errs defines the named errors returned by the sales engine. Callers
// match them with errors.Is and errors.As; the HTTP layer maps them to status
// codes.
package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/pkg/money"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrDuplicateProduct    = errors.New("product with the same sku or barcode already exists")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrIndexOutOfRange     = errors.New("line index out of range")
	ErrInvalidDiscount     = errors.New("invalid discount")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPriceChanged        = errors.New("price changed since the cart was priced")
	ErrConcurrencyConflict = errors.New("concurrent modification detected")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCartNotFound        = errors.New("cart not found")
	ErrInvalidPayment      = errors.New("invalid payment")
	ErrInsufficientPayment = errors.New("amount tendered does not cover the total")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrAlreadyVoided       = errors.New("sale has already been voided")
	ErrNotVoidable         = errors.New("sale cannot be voided")
	ErrInvalidWindow       = errors.New("invalid business day window")
	ErrAlreadySealed       = errors.New("an overlapping cash cut is already sealed")
	ErrCashCutNotFound     = errors.New("cash cut not found")
	ErrImmutableRecord     = errors.New("record is immutable")
	ErrInvalidAdjustment   = errors.New("invalid stock adjustment")
	ErrAmountOutOfRange    = errors.New("amount out of range")
)

// InsufficientStockError reports a line whose requested quantity exceeds the
// stock on hand.
type InsufficientStockError struct {
	ProductID uuid.UUID      `json:"product_id"`
	SKU       string         `json:"sku"`
	Available money.Quantity `json:"available"`
	Requested money.Quantity `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %s available, %s requested", e.SKU, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// PriceChangedError reports a difference between what the cart displayed and
// what the catalog or the recomputed totals say now.
type PriceChangedError struct {
	ProductID uuid.UUID `json:"product_id,omitempty"`
	SKU       string    `json:"sku,omitempty"`
	Field     string    `json:"field"`
	Displayed string    `json:"displayed"`
	Current   string    `json:"current"`
}

func (e *PriceChangedError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("%s of %s changed from %s to %s", e.Field, e.SKU, e.Displayed, e.Current)
	}
	return fmt.Sprintf("%s changed from %s to %s", e.Field, e.Displayed, e.Current)
}

func (e *PriceChangedError) Is(target error) bool {
	return target == ErrPriceChanged
}

// CommitError wraps the reason a sale could not be committed. Nothing from
// the failed attempt is persisted.
type CommitError struct {
	Attempts int
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

package request

import (
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/pkg/money"
)

// AddItemRequest represents a scanned item. Quantity defaults to one unit.
type AddItemRequest struct {
	Code     string          `json:"code" binding:"required,max=64"`
	Quantity *money.Quantity `json:"quantity"`
}

// UpdateQuantityRequest changes the quantity of a cart line
type UpdateQuantityRequest struct {
	Quantity money.Quantity `json:"quantity"`
}

// DiscountRequest sets the cart-wide discount
type DiscountRequest struct {
	Kind    enum.DiscountKind `json:"kind" binding:"required"`
	Percent money.Rate        `json:"percent"`
	Amount  money.Amount      `json:"amount"`
}

// CheckoutRequest represents the payment of a cart
type CheckoutRequest struct {
	PaymentMethod  enum.PaymentMethod `json:"payment_method" binding:"required"`
	AmountTendered money.Amount       `json:"amount_tendered"`
	Note           string             `json:"note" binding:"omitempty,max=255"`
}

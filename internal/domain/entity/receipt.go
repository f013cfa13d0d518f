package entity

import (
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/pkg/money"
)

// ReceiptHeader holds the store header printed at the top of a receipt.
type ReceiptHeader struct {
	StoreName string `json:"store_name"`
	Address   string `json:"address,omitempty"`
	Phone     string `json:"phone,omitempty"`
	TaxID     string `json:"tax_id,omitempty"`
}

// ReceiptItem represents a single line on a receipt.
type ReceiptItem struct {
	Name      string         `json:"name"`
	SKU       string         `json:"sku"`
	UnitType  enum.UnitType  `json:"unit_type"`
	Quantity  money.Quantity `json:"quantity"`
	UnitPrice money.Amount   `json:"unit_price"`
	TaxRate   money.Rate     `json:"tax_rate"`
	Subtotal  money.Amount   `json:"subtotal"`
	Tax       money.Amount   `json:"tax"`
}

// Receipt is the payload returned by a commit and handed to the printer.
// It is not persisted; it is composed from a Sale and the store settings.
type Receipt struct {
	Header         ReceiptHeader      `json:"header"`
	SaleID         uuid.UUID          `json:"sale_id"`
	Number         string             `json:"number"`
	Kind           enum.SaleKind      `json:"kind"`
	Date           string             `json:"date"`
	Cashier        string             `json:"cashier,omitempty"`
	PaymentMethod  enum.PaymentMethod `json:"payment_method"`
	Items          []ReceiptItem      `json:"items"`
	Subtotal       money.Amount       `json:"subtotal"`
	Discount       money.Amount       `json:"discount"`
	Tax            money.Amount       `json:"tax"`
	Total          money.Amount       `json:"total"`
	Tendered       money.Amount       `json:"tendered"`
	Change         money.Amount       `json:"change"`
	CurrencySymbol string             `json:"currency_symbol"`
	Footer         string             `json:"footer,omitempty"`
}

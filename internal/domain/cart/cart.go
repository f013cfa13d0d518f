// Package cart holds the in-memory aggregate of a sale in progress. A Cart
// belongs to a single session and is not safe for concurrent use; it never
// touches stock.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/pkg/money"
)

// Catalog is the read-only view of products the cart needs
type Catalog interface {
	LookupByBarcode(ctx context.Context, code string) (*entity.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*entity.Product, error)
}

// LineItem is one priced row of the cart. It refers to the product by id and
// keeps the price and tax rate captured when the item was added.
type LineItem struct {
	ProductID     uuid.UUID      `json:"product_id"`
	SKU           string         `json:"sku"`
	Name          string         `json:"name"`
	Category      string         `json:"category,omitempty"`
	UnitType      enum.UnitType  `json:"unit_type"`
	QuantityScale int32          `json:"quantity_scale"`
	Quantity      money.Quantity `json:"quantity"`
	UnitPrice     money.Amount   `json:"unit_price"`
	TaxRate       money.Rate     `json:"tax_rate"`
	Subtotal      money.Amount   `json:"subtotal"`
	Tax           money.Amount   `json:"tax"`
}

func (l LineItem) rule() entity.QuantityRule {
	return entity.QuantityRule{SKU: l.SKU, UnitType: l.UnitType, Scale: l.QuantityScale}
}

func (l *LineItem) price() error {
	lp, err := pricing.PriceLine(l.UnitPrice, l.TaxRate, l.Quantity)
	if err != nil {
		return err
	}
	l.Subtotal = lp.Subtotal
	l.Tax = lp.Tax
	return nil
}

// Snapshot is a read-only copy of the cart's lines and totals
type Snapshot struct {
	ID         uuid.UUID        `json:"id"`
	OperatorID uuid.UUID        `json:"operator_id"`
	Lines      []LineItem       `json:"lines"`
	Discount   pricing.Discount `json:"discount"`
	Totals     pricing.Totals   `json:"totals"`
	CreatedAt  time.Time        `json:"created_at"`
}

// LinePrices returns the priced lines of the snapshot
func (s Snapshot) LinePrices() []pricing.LinePrice {
	prices := make([]pricing.LinePrice, len(s.Lines))
	for i, l := range s.Lines {
		prices[i] = pricing.LinePrice{Subtotal: l.Subtotal, Tax: l.Tax}
	}
	return prices
}

// Cart is the aggregate of line items for one sale
type Cart struct {
	id         uuid.UUID
	operatorID uuid.UUID
	catalog    Catalog
	lines      []LineItem
	discount   pricing.Discount
	totals     pricing.Totals
	createdAt  time.Time
}

// New creates an empty cart for an operator
func New(catalog Catalog, operatorID uuid.UUID) *Cart {
	return &Cart{
		id:         uuid.New(),
		operatorID: operatorID,
		catalog:    catalog,
		discount:   pricing.NoDiscount(),
		createdAt:  time.Now().UTC(),
	}
}

// ID returns the cart identifier
func (c *Cart) ID() uuid.UUID {
	return c.id
}

// OperatorID returns the operator that owns the cart
func (c *Cart) OperatorID() uuid.UUID {
	return c.operatorID
}

// Len returns the number of lines
func (c *Cart) Len() int {
	return len(c.lines)
}

// AddItem looks up the product by barcode or SKU, validates the quantity and
// appends a new line priced at the product's current price and tax rate
func (c *Cart) AddItem(ctx context.Context, barcode string, qty money.Quantity) (LineItem, error) {
	product, err := c.catalog.LookupByBarcode(ctx, barcode)
	if err != nil {
		return LineItem{}, err
	}
	if product == nil {
		return LineItem{}, fmt.Errorf("%w: %s", errs.ErrProductNotFound, barcode)
	}
	if err := product.ValidateQuantity(qty); err != nil {
		return LineItem{}, err
	}

	line := LineItem{
		ProductID:     product.ID,
		SKU:           product.SKU,
		Name:          product.Name,
		Category:      product.Category,
		UnitType:      product.UnitType,
		QuantityScale: product.QuantityScale,
		Quantity:      qty,
		UnitPrice:     product.UnitPrice,
		TaxRate:       product.TaxRate,
	}
	if err := line.price(); err != nil {
		return LineItem{}, err
	}

	lines := append(append([]LineItem(nil), c.lines...), line)
	if err := c.replaceLines(lines); err != nil {
		return LineItem{}, err
	}
	return line, nil
}

// UpdateQuantity replaces the quantity of the line at index
func (c *Cart) UpdateQuantity(index int, qty money.Quantity) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	line := c.lines[index]
	if err := line.rule().Check(qty); err != nil {
		return err
	}
	line.Quantity = qty
	if err := line.price(); err != nil {
		return err
	}

	lines := append([]LineItem(nil), c.lines...)
	lines[index] = line
	return c.replaceLines(lines)
}

// RemoveLine deletes the line at index, keeping the order of the others
func (c *Cart) RemoveLine(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	c.recompute()
	return nil
}

// SetDiscount validates d against the current subtotal and applies it
func (c *Cart) SetDiscount(d pricing.Discount) error {
	if d.Kind == "" {
		d.Kind = enum.DiscountKindNone
	}
	if err := d.Validate(c.totals.Subtotal); err != nil {
		return err
	}
	c.discount = d
	c.recompute()
	return nil
}

// ClearDiscount removes any discount
func (c *Cart) ClearDiscount() {
	c.discount = pricing.NoDiscount()
	c.recompute()
}

// Reprice refreshes every line with the catalog's current price and tax rate.
// It is the explicit way to accept a price change reported at commit time.
// Returns the indexes of the lines whose price or tax changed.
func (c *Cart) Reprice(ctx context.Context) ([]int, error) {
	var changed []int
	lines := append([]LineItem(nil), c.lines...)
	for i := range lines {
		line := &lines[i]
		product, err := c.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return changed, err
		}
		if product == nil {
			return changed, fmt.Errorf("%w: %s", errs.ErrProductNotFound, line.SKU)
		}
		if product.UnitPrice == line.UnitPrice && product.TaxRate == line.TaxRate {
			continue
		}
		line.UnitPrice = product.UnitPrice
		line.TaxRate = product.TaxRate
		if err := line.price(); err != nil {
			return nil, err
		}
		changed = append(changed, i)
	}
	if err := c.replaceLines(lines); err != nil {
		return nil, err
	}
	return changed, nil
}

// Snapshot returns a copy of the cart state. It has no side effects.
func (c *Cart) Snapshot() Snapshot {
	lines := make([]LineItem, len(c.lines))
	copy(lines, c.lines)
	return Snapshot{
		ID:         c.id,
		OperatorID: c.operatorID,
		Lines:      lines,
		Discount:   c.discount,
		Totals:     c.totals,
		CreatedAt:  c.createdAt,
	}
}

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", errs.ErrIndexOutOfRange, index, len(c.lines))
	}
	return nil
}

// replaceLines swaps in lines when their totals stay within range. The cart
// is left untouched otherwise.
func (c *Cart) replaceLines(lines []LineItem) error {
	totals := c.compute(lines)
	if err := totals.CheckRange(); err != nil {
		return err
	}
	c.lines = lines
	c.totals = totals
	return nil
}

func (c *Cart) recompute() {
	c.totals = c.compute(c.lines)
}

func (c *Cart) compute(lines []LineItem) pricing.Totals {
	prices := make([]pricing.LinePrice, len(lines))
	for i, l := range lines {
		prices[i] = pricing.LinePrice{Subtotal: l.Subtotal, Tax: l.Tax}
	}
	return pricing.Compute(prices, c.discount)
}


package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
	"gorm.io/gorm"
)

// CashCut aggregates the committed sales of a business-day window. Previews
// are built in memory with status draft; only sealed cuts are stored.
type CashCut struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	Number      string             `gorm:"size:32;uniqueIndex" json:"number,omitempty"`
	Status      enum.CashCutStatus `gorm:"size:10;not null" json:"status"`
	WindowStart time.Time          `gorm:"not null;index" json:"window_start"`
	WindowEnd   time.Time          `gorm:"not null;index" json:"window_end"`
	SaleCount   int                `gorm:"not null" json:"sale_count"`
	VoidCount   int                `gorm:"not null" json:"void_count"`
	Subtotal    money.Amount       `gorm:"not null" json:"subtotal"`
	Discount    money.Amount       `gorm:"not null" json:"discount"`
	Tax         money.Amount       `gorm:"not null" json:"tax"`
	GrandTotal  money.Amount       `gorm:"not null" json:"grand_total"`
	SealedAt    *time.Time         `json:"sealed_at,omitempty"`
	SealedBy    *uuid.UUID         `gorm:"type:uuid" json:"sealed_by,omitempty"`
	Checksum    string             `gorm:"size:64" json:"checksum,omitempty"`

	// Relationships
	Payments    []CashCutPayment  `gorm:"foreignKey:CashCutID" json:"payments"`
	Categories  []CashCutCategory `gorm:"foreignKey:CashCutID" json:"categories"`
	TopProducts []CashCutProduct  `gorm:"foreignKey:CashCutID" json:"top_products"`
	Sales       []CashCutSale     `gorm:"foreignKey:CashCutID" json:"-"`

	SaleIDs []uuid.UUID `gorm:"-" json:"sale_ids"`
}

// BeforeCreate generates a UUID before creating a new cash cut
func (c *CashCut) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *CashCut) BeforeUpdate(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

func (c *CashCut) BeforeDelete(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

// TableName returns the table name for the CashCut model
func (CashCut) TableName() string {
	return "cash_cuts"
}

// Window returns the business-day window covered by the cut
func (c *CashCut) Window() Window {
	return Window{Start: c.WindowStart, End: c.WindowEnd}
}

// IsSealed reports whether the cut has been sealed
func (c *CashCut) IsSealed() bool {
	return c.Status == enum.CashCutStatusSealed
}

// ComputeChecksum hashes a canonical rendering of everything the cut reports,
// including the identifiers of the sales it was built from
func (c *CashCut) ComputeChecksum() string {
	var b strings.Builder
	fmt.Fprintf(&b, "window=%s|%s\n", formatInstant(c.WindowStart), formatInstant(c.WindowEnd))
	fmt.Fprintf(&b, "counts=%d|%d\n", c.SaleCount, c.VoidCount)
	fmt.Fprintf(&b, "totals=%s|%s|%s|%s\n", c.Subtotal, c.Discount, c.Tax, c.GrandTotal)

	payments := append([]CashCutPayment(nil), c.Payments...)
	sort.Slice(payments, func(i, j int) bool { return payments[i].Method < payments[j].Method })
	for _, p := range payments {
		fmt.Fprintf(&b, "payment=%s|%d|%s\n", p.Method, p.Count, p.Total)
	}

	categories := append([]CashCutCategory(nil), c.Categories...)
	sort.Slice(categories, func(i, j int) bool { return categories[i].Category < categories[j].Category })
	for _, cat := range categories {
		fmt.Fprintf(&b, "category=%s|%s\n", cat.Category, cat.Total)
	}

	products := append([]CashCutProduct(nil), c.TopProducts...)
	sort.Slice(products, func(i, j int) bool { return products[i].Rank < products[j].Rank })
	for _, p := range products {
		fmt.Fprintf(&b, "product=%d|%s|%s|%s\n", p.Rank, p.ProductID, p.Quantity, p.Revenue)
	}

	ids := make([]string, 0, len(c.SaleIDs))
	for _, id := range c.SaleIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "sale=%s\n", id)
	}

	if c.SealedAt != nil {
		fmt.Fprintf(&b, "sealed=%s\n", formatInstant(*c.SealedAt))
	}
	if c.SealedBy != nil {
		fmt.Fprintf(&b, "sealed_by=%s\n", c.SealedBy)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func formatInstant(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)
}

// CashCutPayment is the per payment method subtotal of a cut
type CashCutPayment struct {
	ID        uuid.UUID          `gorm:"type:uuid;primary_key" json:"-"`
	CashCutID uuid.UUID          `gorm:"type:uuid;not null;index" json:"-"`
	Method    enum.PaymentMethod `gorm:"size:20;not null" json:"method"`
	Count     int                `gorm:"not null" json:"count"`
	Total     money.Amount       `gorm:"not null" json:"total"`
}

// BeforeCreate generates a UUID before creating a new payment total
func (p *CashCutPayment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CashCutPayment model
func (CashCutPayment) TableName() string {
	return "cash_cut_payments"
}

// CashCutCategory is the revenue of one product category within a cut
type CashCutCategory struct {
	ID        uuid.UUID    `gorm:"type:uuid;primary_key" json:"-"`
	CashCutID uuid.UUID    `gorm:"type:uuid;not null;index" json:"-"`
	Category  string       `gorm:"size:100" json:"category"`
	Total     money.Amount `gorm:"not null" json:"total"`
}

// BeforeCreate generates a UUID before creating a new category total
func (c *CashCutCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CashCutCategory model
func (CashCutCategory) TableName() string {
	return "cash_cut_categories"
}

// CashCutProduct is one entry of the ranked top products list
type CashCutProduct struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"-"`
	CashCutID uuid.UUID      `gorm:"type:uuid;not null;index" json:"-"`
	Rank      int            `gorm:"not null" json:"rank"`
	ProductID uuid.UUID      `gorm:"type:uuid;not null" json:"product_id"`
	SKU       string         `gorm:"size:100" json:"sku"`
	Name      string         `gorm:"size:255" json:"name"`
	Quantity  money.Quantity `gorm:"not null" json:"quantity"`
	Revenue   money.Amount   `gorm:"not null" json:"revenue"`
}

// BeforeCreate generates a UUID before creating a new product entry
func (p *CashCutProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the CashCutProduct model
func (CashCutProduct) TableName() string {
	return "cash_cut_products"
}

// CashCutSale records which sales a sealed cut was built from
type CashCutSale struct {
	CashCutID uuid.UUID `gorm:"type:uuid;primaryKey"`
	SaleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName returns the table name for the CashCutSale model
func (CashCutSale) TableName() string {
	return "cash_cut_sales"
}

package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
	"gorm.io/gorm"
)

// Sale is the immutable record of a completed checkout. A void is stored as a
// second Sale of kind void that references the original and negates it.
type Sale struct {
	ID              uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	Number          string             `gorm:"size:32;uniqueIndex;not null" json:"number"`
	Kind            enum.SaleKind      `gorm:"size:10;not null;index" json:"kind"`
	ReferenceSaleID *uuid.UUID         `gorm:"type:uuid;uniqueIndex" json:"reference_sale_id,omitempty"`
	OperatorID      uuid.UUID          `gorm:"type:uuid;not null;index" json:"operator_id"`
	OperatorName    string             `gorm:"size:255" json:"operator_name,omitempty"`
	PaymentMethod   enum.PaymentMethod `gorm:"size:20;not null;index" json:"payment_method"`
	DiscountKind    enum.DiscountKind  `gorm:"size:20;not null" json:"discount_kind"`
	DiscountRate    money.Rate         `gorm:"not null;default:0" json:"discount_rate"`
	Subtotal        money.Amount       `gorm:"not null" json:"subtotal"`
	Discount        money.Amount       `gorm:"not null" json:"discount"`
	Tax             money.Amount       `gorm:"not null" json:"tax"`
	GrandTotal      money.Amount       `gorm:"not null" json:"grand_total"`
	AmountTendered  money.Amount       `gorm:"not null" json:"amount_tendered"`
	ChangeDue       money.Amount       `gorm:"not null" json:"change_due"`
	Note            string             `gorm:"size:255" json:"note,omitempty"`
	CreatedAt       time.Time          `gorm:"not null;index" json:"created_at"`

	// Relationships
	Lines []SaleLine `gorm:"foreignKey:SaleID" json:"lines"`
}

// BeforeCreate generates a UUID before creating a new sale
func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Sale) BeforeUpdate(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

func (s *Sale) BeforeDelete(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

// TableName returns the table name for the Sale model
func (Sale) TableName() string {
	return "sales"
}

// IsVoid reports whether the record is a compensating void
func (s *Sale) IsVoid() bool {
	return s.Kind == enum.SaleKindVoid
}

// CheckBalance verifies that the stored totals agree with the line snapshot:
// sum(subtotal) - discount + sum(tax) == grand total
func (s *Sale) CheckBalance() error {
	var subtotal, tax money.Amount
	for _, l := range s.Lines {
		subtotal += l.Subtotal
		tax += l.Tax
	}
	if subtotal != s.Subtotal {
		return fmt.Errorf("sale %s: line subtotals %s do not match subtotal %s", s.Number, subtotal, s.Subtotal)
	}
	if tax != s.Tax {
		return fmt.Errorf("sale %s: line taxes %s do not match tax %s", s.Number, tax, s.Tax)
	}
	if subtotal-s.Discount+tax != s.GrandTotal {
		return fmt.Errorf("sale %s: %s - %s + %s != %s", s.Number, subtotal, s.Discount, tax, s.GrandTotal)
	}
	return nil
}

// SaleLine is one line of the sale snapshot. Price and tax are the values
// captured when the item was added to the cart.
type SaleLine struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	SaleID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"sale_id"`
	LineNo    int            `gorm:"not null" json:"line_no"`
	ProductID uuid.UUID      `gorm:"type:uuid;not null;index" json:"product_id"`
	SKU       string         `gorm:"size:100;not null" json:"sku"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Category  string         `gorm:"size:100" json:"category,omitempty"`
	UnitType  enum.UnitType  `gorm:"size:20;not null" json:"unit_type"`
	Quantity  money.Quantity `gorm:"not null" json:"quantity"`
	UnitPrice money.Amount   `gorm:"not null" json:"unit_price"`
	TaxRate   money.Rate     `gorm:"not null" json:"tax_rate"`
	Subtotal  money.Amount   `gorm:"not null" json:"subtotal"`
	Tax       money.Amount   `gorm:"not null" json:"tax"`
}

// BeforeCreate generates a UUID before creating a new sale line
func (l *SaleLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l *SaleLine) BeforeUpdate(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

func (l *SaleLine) BeforeDelete(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

// TableName returns the table name for the SaleLine model
func (SaleLine) TableName() string {
	return "sale_lines"
}

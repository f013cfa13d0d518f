package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
	"gorm.io/gorm"
)

// Product represents a sellable catalog item
type Product struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	SKU               string         `gorm:"size:100;uniqueIndex;not null" json:"sku"`
	Barcode           *string        `gorm:"size:100;uniqueIndex" json:"barcode,omitempty"`
	Name              string         `gorm:"size:255;not null" json:"name"`
	Category          string         `gorm:"size:100;index" json:"category,omitempty"`
	UnitType          enum.UnitType  `gorm:"size:20;not null" json:"unit_type"`
	QuantityScale     int32          `gorm:"not null;default:0" json:"quantity_scale"` // fractional digits accepted for quantities
	UnitPrice         money.Amount   `gorm:"not null;default:0" json:"unit_price"`     // minor units
	TaxRate           money.Rate     `gorm:"not null;default:0" json:"tax_rate"`       // hundredths of a percent
	Stock             money.Quantity `gorm:"not null;default:0" json:"stock"`          // thousandths of a unit
	LowStockThreshold money.Quantity `gorm:"not null;default:0" json:"low_stock_threshold"`
	Version           int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new product
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// TableName returns the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// Code returns the barcode if set, otherwise the SKU
func (p *Product) Code() string {
	if p.Barcode != nil && *p.Barcode != "" {
		return *p.Barcode
	}
	return p.SKU
}

// Validate checks the invariants of a catalog record
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.SKU) == "":
		return fmt.Errorf("%w: sku is required", errs.ErrInvalidProduct)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", errs.ErrInvalidProduct)
	case !p.UnitType.IsValid():
		return fmt.Errorf("%w: unknown unit type %q", errs.ErrInvalidProduct, p.UnitType)
	case p.UnitPrice < 0:
		return fmt.Errorf("%w: unit price cannot be negative", errs.ErrInvalidProduct)
	case p.UnitPrice > money.MaxAmount:
		return fmt.Errorf("%w: unit price is out of range", errs.ErrInvalidProduct)
	case p.TaxRate < 0 || p.TaxRate > money.Percent(100):
		return fmt.Errorf("%w: tax rate must be between 0 and 100", errs.ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", errs.ErrInvalidProduct)
	case p.Stock > money.MaxQuantity:
		return fmt.Errorf("%w: stock is out of range", errs.ErrInvalidProduct)
	case p.LowStockThreshold < 0:
		return fmt.Errorf("%w: low stock threshold cannot be negative", errs.ErrInvalidProduct)
	}

	if p.UnitType == enum.UnitTypePiece && p.QuantityScale != 0 {
		return fmt.Errorf("%w: piece products cannot have fractional quantities", errs.ErrInvalidProduct)
	}
	if p.QuantityScale < 0 || p.QuantityScale > money.QuantityScale {
		return fmt.Errorf("%w: quantity scale must be between 0 and %d", errs.ErrInvalidProduct, money.QuantityScale)
	}
	if p.Stock.Places() > p.QuantityScale {
		return fmt.Errorf("%w: stock %s does not fit the product's quantity scale", errs.ErrInvalidProduct, p.Stock)
	}
	return nil
}

// ValidateQuantity checks that q is a positive quantity of the right shape for
// the product's unit type
func (p *Product) ValidateQuantity(q money.Quantity) error {
	return p.QuantityRule().Check(q)
}

// ValidateDelta checks a signed stock adjustment
func (p *Product) ValidateDelta(delta money.Quantity) error {
	if delta == 0 {
		return fmt.Errorf("%w: delta cannot be zero", errs.ErrInvalidAdjustment)
	}
	if err := p.QuantityRule().checkShape(delta); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidAdjustment, err)
	}
	return nil
}

// QuantityRule returns the quantity constraints of the product
func (p *Product) QuantityRule() QuantityRule {
	return QuantityRule{SKU: p.SKU, UnitType: p.UnitType, Scale: p.QuantityScale}
}

// QuantityRule is the shape every quantity of a product must have. Piece
// products take whole numbers; weight products take up to Scale decimals.
type QuantityRule struct {
	SKU      string
	UnitType enum.UnitType
	Scale    int32
}

// Check validates a requested quantity
func (r QuantityRule) Check(q money.Quantity) error {
	if q <= 0 {
		return fmt.Errorf("%w: %s must be greater than zero", errs.ErrInvalidQuantity, q)
	}
	return r.checkShape(q)
}

func (r QuantityRule) checkShape(q money.Quantity) error {
	if q > money.MaxQuantity || q < -money.MaxQuantity {
		return fmt.Errorf("%w: %s is out of range", errs.ErrInvalidQuantity, q)
	}
	if r.UnitType == enum.UnitTypePiece && !q.IsWhole() {
		return fmt.Errorf("%w: %s is sold by the piece", errs.ErrInvalidQuantity, r.SKU)
	}
	if q.Places() > r.Scale {
		return fmt.Errorf("%w: %s accepts at most %d decimal places", errs.ErrInvalidQuantity, r.SKU, r.Scale)
	}
	return nil
}

// IsLowStock reports whether stock is at or below the alert threshold
func (p *Product) IsLowStock() bool {
	return p.LowStockThreshold > 0 && p.Stock <= p.LowStockThreshold
}

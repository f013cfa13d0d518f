package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
	"gorm.io/gorm"
)

// StockMovement is an append-only audit row for every change to a product's stock
type StockMovement struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	ProductID  uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Delta      money.Quantity   `gorm:"not null" json:"delta"`
	Balance    money.Quantity   `gorm:"not null" json:"balance"` // stock after the movement
	Reason     enum.StockReason `gorm:"size:20;not null;index" json:"reason"`
	Reference  string           `gorm:"size:100;index" json:"reference,omitempty"`
	Note       string           `gorm:"size:255" json:"note,omitempty"`
	OperatorID *uuid.UUID       `gorm:"type:uuid" json:"operator_id,omitempty"`
	CreatedAt  time.Time        `gorm:"not null" json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new movement
func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *StockMovement) BeforeUpdate(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

func (m *StockMovement) BeforeDelete(tx *gorm.DB) error {
	return errs.ErrImmutableRecord
}

// TableName returns the table name for the StockMovement model
func (StockMovement) TableName() string {
	return "stock_movements"
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StoreSettings holds the single row of store-wide settings used on receipts
type StoreSettings struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Receipt header
	CompanyName string `gorm:"size:255;not null" json:"company_name"`
	Address     string `gorm:"size:255" json:"address"`
	Phone       string `gorm:"size:50" json:"phone"`
	TaxID       string `gorm:"size:50" json:"tax_id"`

	// Receipt footer and currency
	TicketFooter   string `gorm:"size:255" json:"ticket_footer"`
	CurrencySymbol string `gorm:"size:10;not null" json:"currency_symbol"`
	CurrencyCode   string `gorm:"size:10;not null" json:"currency_code"`

	// Printing
	PrintOnCommit bool `gorm:"default:false" json:"print_on_commit"`
}

// BeforeCreate generates a UUID before creating the settings row
func (s *StoreSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the StoreSettings model
func (StoreSettings) TableName() string {
	return "store_settings"
}

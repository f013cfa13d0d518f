// Package event defines the notifications the engine emits after a
// transaction commits.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/pkg/money"
)

const (
	TypeStockChanged  = "stock.changed"
	TypeLowStock      = "stock.low"
	TypeSaleCommitted = "sale.committed"
	TypeSaleVoided    = "sale.voided"
	TypeCashCutSealed = "cashcut.sealed"
)

type Event interface {
	Type() string
}

// Dispatcher delivers events to subscribers. Implementations must not block
// on slow consumers for long; failures are reported but never undo the
// transaction that produced the event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// StockChanged is emitted once per product whose stock moved
type StockChanged struct {
	ProductID uuid.UUID
	SKU       string
	Delta     money.Quantity
	Stock     money.Quantity
	Reason    enum.StockReason
	Reference string
	At        time.Time
}

func (StockChanged) Type() string { return TypeStockChanged }

// LowStock is emitted when a movement leaves a product at or below its
// threshold
type LowStock struct {
	ProductID uuid.UUID
	SKU       string
	Name      string
	Stock     money.Quantity
	Threshold money.Quantity
	At        time.Time
}

func (LowStock) Type() string { return TypeLowStock }

// SaleCommitted is emitted after a sale is persisted
type SaleCommitted struct {
	SaleID        uuid.UUID
	Number        string
	GrandTotal    money.Amount
	PaymentMethod enum.PaymentMethod
	OperatorID    uuid.UUID
	LineCount     int
	At            time.Time
}

func (SaleCommitted) Type() string { return TypeSaleCommitted }

// SaleVoided is emitted after a compensating void record is persisted
type SaleVoided struct {
	VoidID         uuid.UUID
	OriginalSaleID uuid.UUID
	Number         string
	GrandTotal     money.Amount
	OperatorID     uuid.UUID
	At             time.Time
}

func (SaleVoided) Type() string { return TypeSaleVoided }

// CashCutSealed is emitted after a cash cut is sealed
type CashCutSealed struct {
	CashCutID  uuid.UUID
	Number     string
	Start      time.Time
	End        time.Time
	SaleCount  int
	GrandTotal money.Amount
	Checksum   string
	At         time.Time
}

func (CashCutSealed) Type() string { return TypeCashCutSealed }

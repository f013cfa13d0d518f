package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

// SaleRepository persists immutable sales. There is no update or delete.
type SaleRepository interface {
	// Create inserts the sale and its lines
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error)
	GetByNumber(ctx context.Context, number string) (*entity.Sale, error)
	// GetByIDs loads sales with their lines
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Sale, error)
	// GetVoidFor returns the void that references saleID, or nil
	GetVoidFor(ctx context.Context, saleID uuid.UUID) (*entity.Sale, error)
	List(ctx context.Context, params *SaleFilterParams) ([]entity.Sale, int64, error)
	// ListInWindow loads every sale and void whose timestamp falls in the
	// window, with lines, ordered by timestamp. When lock is true the rows
	// are locked against concurrent modification for the rest of the
	// transaction on databases that support it.
	ListInWindow(ctx context.Context, window entity.Window, lock bool) ([]entity.Sale, error)
}

// SaleFilterParams contains filtering parameters for sale queries
type SaleFilterParams struct {
	Pagination    *pagination.PaginationParams
	From          *time.Time
	To            *time.Time
	Kind          enum.SaleKind
	PaymentMethod enum.PaymentMethod
	OperatorID    *uuid.UUID
}

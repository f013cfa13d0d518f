package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

// ProductRepository defines the interface for catalog data operations.
// Lookups return errs.ErrProductNotFound when nothing matches.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	// GetByCode matches the barcode first, then the SKU
	GetByCode(ctx context.Context, code string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// Update writes the descriptive and pricing fields of product if its
	// version is still current. Stock is never written here.
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params *ProductFilterParams) ([]entity.Product, int64, error)
	GetLowStock(ctx context.Context) ([]entity.Product, error)

	// ReserveAndDecrement atomically removes qty from stock. It fails with
	// an *errs.InsufficientStockError when stock < qty and never leaves
	// stock negative.
	ReserveAndDecrement(ctx context.Context, id uuid.UUID, qty money.Quantity) (*entity.Product, error)
	// AdjustStock atomically adds delta (which may be negative) to stock
	AdjustStock(ctx context.Context, id uuid.UUID, delta money.Quantity) (*entity.Product, error)

	RecordMovement(ctx context.Context, movement *entity.StockMovement) error
	// ListMovements returns up to params.Limit+1 movements from the cursor on
	ListMovements(ctx context.Context, productID uuid.UUID, params *pagination.CursorParams) ([]entity.StockMovement, error)
}

// ProductFilterParams contains filtering parameters for product queries
type ProductFilterParams struct {
	Pagination *pagination.PaginationParams
	Search     string
	Category   string
	LowStock   bool
	SortBy     string
	SortOrder  string
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	domainRepo "github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// casAttempts bounds the compare-and-swap loop of a single stock update
const casAttempts = 3

var productSortColumns = map[string]string{
	"name":       "name",
	"sku":        "sku",
	"category":   "category",
	"stock":      "stock",
	"unit_price": "unit_price",
	"created_at": "created_at",
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) domainRepo.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	err := conn(ctx, r.db).Create(product).Error
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", errs.ErrDuplicateProduct, product.SKU)
	}
	return err
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	var product entity.Product
	err := conn(ctx, r.db).First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByCode(ctx context.Context, code string) (*entity.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", errs.ErrProductNotFound)
	}
	var product entity.Product
	err := conn(ctx, r.db).First(&product, "barcode = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = conn(ctx, r.db).First(&product, "sku = ?", code).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	var product entity.Product
	err := conn(ctx, r.db).First(&product, "sku = ?", sku).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the editable fields guarded by the product version. A stale
// version fails with errs.ErrConcurrencyConflict.
func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	now := time.Now().UTC()
	result := conn(ctx, r.db).Model(&entity.Product{}).
		Where("id = ? AND version = ?", product.ID, product.Version).
		Updates(map[string]interface{}{
			"sku":                 product.SKU,
			"barcode":             product.Barcode,
			"name":                product.Name,
			"category":            product.Category,
			"unit_type":           product.UnitType,
			"quantity_scale":      product.QuantityScale,
			"unit_price":          product.UnitPrice,
			"tax_rate":            product.TaxRate,
			"low_stock_threshold": product.LowStockThreshold,
			"version":             gorm.Expr("version + 1"),
			"updated_at":          now,
		})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: %s", errs.ErrDuplicateProduct, product.SKU)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, product.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: product %s was modified", errs.ErrConcurrencyConflict, product.SKU)
	}
	product.Version++
	product.UpdatedAt = now
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&entity.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, params *domainRepo.ProductFilterParams) ([]entity.Product, int64, error) {
	var products []entity.Product
	var total int64

	query := conn(ctx, r.db).Model(&entity.Product{})

	if params.Search != "" {
		like := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR barcode = ?",
			like, like, params.Search)
	}

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if params.LowStock {
		query = query.Where("low_stock_threshold > 0 AND stock <= low_stock_threshold")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Sorting
	sortBy := "name"
	sortOrder := "ASC"
	if col, ok := productSortColumns[params.SortBy]; ok {
		sortBy = col
	}
	if strings.EqualFold(params.SortOrder, "desc") {
		sortOrder = "DESC"
	}

	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Order(sortBy + " " + sortOrder).Order("id ASC").
		Find(&products).Error

	return products, total, err
}

func (r *productRepository) GetLowStock(ctx context.Context) ([]entity.Product, error) {
	var products []entity.Product
	err := conn(ctx, r.db).
		Where("low_stock_threshold > 0 AND stock <= low_stock_threshold").
		Order("stock ASC").Order("sku ASC").
		Find(&products).Error
	return products, err
}

// ReserveAndDecrement reads the product and writes the new stock only if the
// row still has the version that was read and enough stock:
//
//	UPDATE products SET stock = stock - ?, version = version + 1
//	WHERE id = ? AND version = ? AND stock >= ?
//
// On postgres the read also takes a row lock so that concurrent commits of
// the same product queue instead of spinning.
func (r *productRepository) ReserveAndDecrement(ctx context.Context, id uuid.UUID, qty money.Quantity) (*entity.Product, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: %s must be greater than zero", errs.ErrInvalidQuantity, qty)
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		product, err := r.readForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if product.Stock < qty {
			return nil, &errs.InsufficientStockError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Available: product.Stock,
				Requested: qty,
			}
		}

		now := time.Now().UTC()
		result := conn(ctx, r.db).Model(&entity.Product{}).
			Where("id = ? AND version = ? AND stock >= ?", id, product.Version, qty).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock - ?", qty),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			product.Stock -= qty
			product.Version++
			product.UpdatedAt = now
			return product, nil
		}
	}
	return nil, fmt.Errorf("%w: stock of product %s", errs.ErrConcurrencyConflict, id)
}

// AdjustStock applies a signed delta with the same compare-and-swap guard.
// A delta that would leave stock negative is rejected.
func (r *productRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta money.Quantity) (*entity.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta cannot be zero", errs.ErrInvalidAdjustment)
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		product, err := r.readForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if product.Stock+delta < 0 {
			return nil, &errs.InsufficientStockError{
				ProductID: product.ID,
				SKU:       product.SKU,
				Available: product.Stock,
				Requested: -delta,
			}
		}
		if product.Stock+delta > money.MaxQuantity {
			return nil, fmt.Errorf("%w: stock of %s would exceed %s", errs.ErrInvalidAdjustment, product.SKU, money.MaxQuantity)
		}

		now := time.Now().UTC()
		result := conn(ctx, r.db).Model(&entity.Product{}).
			Where("id = ? AND version = ? AND stock + ? >= 0", id, product.Version, delta).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock + ?", delta),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 1 {
			product.Stock += delta
			product.Version++
			product.UpdatedAt = now
			return product, nil
		}
	}
	return nil, fmt.Errorf("%w: stock of product %s", errs.ErrConcurrencyConflict, id)
}

func (r *productRepository) readForUpdate(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	query := conn(ctx, r.db)
	if _, inTx := ctx.Value(txKey).(*gorm.DB); inTx && isPostgres(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var product entity.Product
	err := query.First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) RecordMovement(ctx context.Context, movement *entity.StockMovement) error {
	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	}
	return conn(ctx, r.db).Create(movement).Error
}

func (r *productRepository) ListMovements(ctx context.Context, productID uuid.UUID, params *pagination.CursorParams) ([]entity.StockMovement, error) {
	var movements []entity.StockMovement

	params.Validate()
	query := conn(ctx, r.db).Model(&entity.StockMovement{}).Where("product_id = ?", productID)

	cursor, err := params.DecodeCursor()
	if err != nil {
		return nil, err
	}

	// newest first; "next" walks towards older movements
	order := "created_at DESC, id DESC"
	if params.Direction == pagination.CursorDirectionPrev {
		order = "created_at ASC, id ASC"
	}
	if cursor != nil {
		if params.Direction == pagination.CursorDirectionPrev {
			query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		} else {
			query = query.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
	}

	err = query.Limit(params.Limit + 1).
		Order(order).
		Find(&movements).Error

	return movements, err
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	domainRepo "github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type saleRepository struct {
	db *gorm.DB
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *gorm.DB) domainRepo.SaleRepository {
	return &saleRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// Create inserts the sale header and then its lines. The caller is expected
// to run it inside a transaction together with the stock changes.
func (r *saleRepository) Create(ctx context.Context, sale *entity.Sale) error {
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(sale).Error; err != nil {
		if isUniqueViolation(err) && sale.ReferenceSaleID != nil {
			return fmt.Errorf("%w: %s", errs.ErrAlreadyVoided, sale.ReferenceSaleID)
		}
		return err
	}
	if len(sale.Lines) == 0 {
		return nil
	}
	for i := range sale.Lines {
		sale.Lines[i].SaleID = sale.ID
	}
	return db.Create(&sale.Lines).Error
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Sale, error) {
	var sale entity.Sale
	err := conn(ctx, r.db).
		Preload("Lines", orderedLines).
		First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrSaleNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) GetByNumber(ctx context.Context, number string) (*entity.Sale, error) {
	var sale entity.Sale
	err := conn(ctx, r.db).
		Preload("Lines", orderedLines).
		First(&sale, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrSaleNotFound, number)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Sale, error) {
	if len(ids) == 0 {
		return []entity.Sale{}, nil
	}
	var sales []entity.Sale
	err := conn(ctx, r.db).
		Preload("Lines", orderedLines).
		Where("id IN ?", ids).
		Order("created_at ASC").Order("id ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepository) GetVoidFor(ctx context.Context, saleID uuid.UUID) (*entity.Sale, error) {
	var sale entity.Sale
	err := conn(ctx, r.db).First(&sale, "reference_sale_id = ?", saleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, params *domainRepo.SaleFilterParams) ([]entity.Sale, int64, error) {
	var sales []entity.Sale
	var total int64

	query := conn(ctx, r.db).Model(&entity.Sale{})

	if params.From != nil {
		query = query.Where("created_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("created_at < ?", params.To.UTC())
	}
	if params.Kind != "" {
		query = query.Where("kind = ?", params.Kind)
	}
	if params.PaymentMethod != "" {
		query = query.Where("payment_method = ?", params.PaymentMethod)
	}
	if params.OperatorID != nil {
		query = query.Where("operator_id = ?", *params.OperatorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()
	err := query.Offset(params.Pagination.Offset()).Limit(params.Pagination.PerPage).
		Preload("Lines", orderedLines).
		Order("created_at DESC").Order("id ASC").
		Find(&sales).Error

	return sales, total, err
}

// ListInWindow returns the sales of [start, end). Timestamps are stored in
// UTC so the comparison is the same on every supported database.
func (r *saleRepository) ListInWindow(ctx context.Context, window entity.Window, lock bool) ([]entity.Sale, error) {
	query := conn(ctx, r.db).
		Where("created_at >= ? AND created_at < ?", window.Start.UTC(), window.End.UTC())
	if lock && isPostgres(r.db) {
		query = query.Clauses(clause.Locking{Strength: "SHARE"})
	}

	var sales []entity.Sale
	err := query.
		Preload("Lines", orderedLines).
		Order("created_at ASC").Order("id ASC").
		Find(&sales).Error
	return sales, err
}

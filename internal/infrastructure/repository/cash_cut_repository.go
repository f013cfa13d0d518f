package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	domainRepo "github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sealLockKey is the postgres advisory lock taken while sealing a cut
const sealLockKey int64 = 0x636173685f637574

type cashCutRepository struct {
	db *gorm.DB
}

// NewCashCutRepository creates a new cash cut repository
func NewCashCutRepository(db *gorm.DB) domainRepo.CashCutRepository {
	return &cashCutRepository{db: db}
}

func withBreakdown(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("method ASC") }).
		Preload("Categories", func(db *gorm.DB) *gorm.DB { return db.Order("total DESC").Order("category ASC") }).
		Preload("TopProducts", func(db *gorm.DB) *gorm.DB { return db.Order("rank ASC") }).
		Preload("Sales")
}

// Create stores the sealed cut with its breakdown rows and the list of
// sales it covers
func (r *cashCutRepository) Create(ctx context.Context, cut *entity.CashCut) error {
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(cut).Error; err != nil {
		return err
	}

	for i := range cut.Payments {
		cut.Payments[i].CashCutID = cut.ID
	}
	for i := range cut.Categories {
		cut.Categories[i].CashCutID = cut.ID
	}
	for i := range cut.TopProducts {
		cut.TopProducts[i].CashCutID = cut.ID
	}
	cut.Sales = make([]entity.CashCutSale, len(cut.SaleIDs))
	for i, id := range cut.SaleIDs {
		cut.Sales[i] = entity.CashCutSale{CashCutID: cut.ID, SaleID: id}
	}

	if len(cut.Payments) > 0 {
		if err := db.Create(&cut.Payments).Error; err != nil {
			return err
		}
	}
	if len(cut.Categories) > 0 {
		if err := db.Create(&cut.Categories).Error; err != nil {
			return err
		}
	}
	if len(cut.TopProducts) > 0 {
		if err := db.Create(&cut.TopProducts).Error; err != nil {
			return err
		}
	}
	if len(cut.Sales) > 0 {
		if err := db.CreateInBatches(&cut.Sales, 500).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *cashCutRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.CashCut, error) {
	var cut entity.CashCut
	err := withBreakdown(conn(ctx, r.db)).First(&cut, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", errs.ErrCashCutNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	fillSaleIDs(&cut)
	return &cut, nil
}

func (r *cashCutRepository) List(ctx context.Context, params *pagination.PaginationParams) ([]entity.CashCut, int64, error) {
	var cuts []entity.CashCut
	var total int64

	query := conn(ctx, r.db).Model(&entity.CashCut{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params == nil {
		params = pagination.DefaultPagination()
	}
	params.Validate()
	err := withBreakdown(query).
		Offset(params.Offset()).Limit(params.PerPage).
		Order("window_start DESC").
		Find(&cuts).Error
	for i := range cuts {
		fillSaleIDs(&cuts[i])
	}
	return cuts, total, err
}

func (r *cashCutRepository) FindOverlapping(ctx context.Context, window entity.Window) (*entity.CashCut, error) {
	var cut entity.CashCut
	err := conn(ctx, r.db).
		Where("status = ? AND window_start < ? AND window_end > ?",
			enum.CashCutStatusSealed, window.End.UTC(), window.Start.UTC()).
		Order("window_start ASC").
		First(&cut).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cut, nil
}

// LockSealing takes a transaction scoped advisory lock on postgres. SQLite
// allows a single writer, so the write transaction is already exclusive.
func (r *cashCutRepository) LockSealing(ctx context.Context) error {
	if !isPostgres(r.db) {
		return nil
	}
	return conn(ctx, r.db).Exec("SELECT pg_advisory_xact_lock(?)", sealLockKey).Error
}

func fillSaleIDs(cut *entity.CashCut) {
	cut.SaleIDs = make([]uuid.UUID, len(cut.Sales))
	for i, s := range cut.Sales {
		cut.SaleIDs[i] = s.SaleID
	}
}

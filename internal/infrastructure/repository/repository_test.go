package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/infrastructure/database"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, zap.NewNop(), false)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createProduct(t *testing.T, repo *productRepository, sku string, stock int64) *entity.Product {
	t.Helper()
	p := &entity.Product{SKU: sku, Name: sku, UnitType: enum.UnitTypePiece, UnitPrice: 100, Stock: money.Units(stock)}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProductRepository_ReserveAndDecrement(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db).(*productRepository)
	ctx := context.Background()
	p := createProduct(t, repo, "A", 3)

	updated, err := repo.ReserveAndDecrement(ctx, p.ID, money.Units(2))
	require.NoError(t, err)
	assert.Equal(t, money.Units(1), updated.Stock)
	assert.Equal(t, int64(2), updated.Version)

	_, err = repo.ReserveAndDecrement(ctx, p.ID, money.Units(2))
	var stockErr *errs.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, money.Units(1), stockErr.Available)

	_, err = repo.ReserveAndDecrement(ctx, p.ID, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidQuantity)

	_, err = repo.ReserveAndDecrement(ctx, uuid.New(), money.Units(1))
	assert.ErrorIs(t, err, errs.ErrProductNotFound)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Units(1), stored.Stock)
}

func TestProductRepository_AdjustStock(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db).(*productRepository)
	ctx := context.Background()
	p := createProduct(t, repo, "A", 1)

	updated, err := repo.AdjustStock(ctx, p.ID, money.Units(4))
	require.NoError(t, err)
	assert.Equal(t, money.Units(5), updated.Stock)

	_, err = repo.AdjustStock(ctx, p.ID, money.Units(-6))
	assert.ErrorIs(t, err, errs.ErrInsufficientStock)

	_, err = repo.AdjustStock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, errs.ErrInvalidAdjustment)

	_, err = repo.AdjustStock(ctx, p.ID, money.MaxQuantity)
	assert.ErrorIs(t, err, errs.ErrInvalidAdjustment)
}

func TestProductRepository_StaleUpdateConflicts(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db).(*productRepository)
	ctx := context.Background()
	p := createProduct(t, repo, "A", 1)

	stale := *p
	p.Name = "first"
	require.NoError(t, repo.Update(ctx, p))

	stale.Name = "second"
	err := repo.Update(ctx, &stale)
	assert.ErrorIs(t, err, errs.ErrConcurrencyConflict)
	assert.True(t, IsRetryable(err))

	createProduct(t, repo, "B", 0)
	p.SKU = "B"
	assert.ErrorIs(t, repo.Update(ctx, p), errs.ErrDuplicateProduct)
}

func TestProductRepository_GetByCode(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db).(*productRepository)
	ctx := context.Background()

	barcode := "7501"
	p := &entity.Product{SKU: "A", Barcode: &barcode, Name: "A", UnitType: enum.UnitTypePiece}
	require.NoError(t, repo.Create(ctx, p))

	byBarcode, err := repo.GetByCode(ctx, "7501")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byBarcode.ID)

	bySKU, err := repo.GetByCode(ctx, " A ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySKU.ID)

	_, err = repo.GetByCode(ctx, "")
	assert.ErrorIs(t, err, errs.ErrProductNotFound)

	dup := &entity.Product{SKU: "B", Barcode: &barcode, Name: "B", UnitType: enum.UnitTypePiece}
	assert.ErrorIs(t, repo.Create(ctx, dup), errs.ErrDuplicateProduct)
}

func TestTransactor_RollsBackAndJoins(t *testing.T) {
	db := openTestDB(t)
	repo := NewProductRepository(db).(*productRepository)
	tx := NewTransactor(db)
	ctx := context.Background()
	p := createProduct(t, repo, "A", 5)

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := repo.ReserveAndDecrement(ctx, p.ID, money.Units(2)); err != nil {
			return err
		}
		// A nested call joins the outer transaction
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			if _, err := repo.ReserveAndDecrement(ctx, p.ID, money.Units(1)); err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, money.Units(5), stored.Stock)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errs.ErrConcurrencyConflict))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.False(t, IsRetryable(errs.ErrInsufficientStock))
}

func TestSaleRepository_VoidIsUniquePerSale(t *testing.T) {
	db := openTestDB(t)
	repo := NewSaleRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	original := &entity.Sale{
		Number: "S-1", Kind: enum.SaleKindSale, OperatorID: uuid.New(),
		PaymentMethod: enum.PaymentMethodCash, DiscountKind: enum.DiscountKindNone,
		Subtotal: 100, GrandTotal: 100, AmountTendered: 100, CreatedAt: now,
		Lines: []entity.SaleLine{{LineNo: 1, ProductID: uuid.New(), SKU: "A", Name: "A", UnitType: enum.UnitTypePiece, Quantity: money.Units(1), UnitPrice: 100, Subtotal: 100}},
	}
	require.NoError(t, repo.Create(ctx, original))

	void := func(number string) *entity.Sale {
		ref := original.ID
		return &entity.Sale{
			Number: number, Kind: enum.SaleKindVoid, ReferenceSaleID: &ref, OperatorID: original.OperatorID,
			PaymentMethod: original.PaymentMethod, DiscountKind: enum.DiscountKindNone,
			Subtotal: -100, GrandTotal: -100, AmountTendered: -100, CreatedAt: now,
		}
	}
	require.NoError(t, repo.Create(ctx, void("V-1")))
	assert.ErrorIs(t, repo.Create(ctx, void("V-2")), errs.ErrAlreadyVoided)

	found, err := repo.GetVoidFor(ctx, original.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "V-1", found.Number)

	window, err := entity.NewWindow(now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	inWindow, err := repo.ListInWindow(ctx, window, false)
	require.NoError(t, err)
	assert.Len(t, inWindow, 2)

	later, err := entity.NewWindow(now.Add(time.Microsecond), now.Add(time.Hour))
	require.NoError(t, err)
	none, err := repo.ListInWindow(ctx, later, false)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIdempotencyRepository_ReplacesExpiredKey(t *testing.T) {
	db := openTestDB(t)
	repo := NewIdempotencyRepository(db)
	ctx := context.Background()
	operatorID := uuid.New()

	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k1", OperatorID: operatorID, Endpoint: "checkout", RequestHash: "old",
		ResponseCode: 201, ResponseBody: "{}", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	stored, err := repo.GetByKey(ctx, "k1", operatorID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsExpired())

	require.NoError(t, repo.Create(ctx, &entity.IdempotencyKey{
		Key: "k1", OperatorID: operatorID, Endpoint: "checkout", RequestHash: "new",
		ResponseCode: 201, ResponseBody: "{}", ExpiresAt: time.Now().Add(time.Hour),
	}))
	stored, err = repo.GetByKey(ctx, "k1", operatorID)
	require.NoError(t, err)
	assert.Equal(t, "new", stored.RequestHash)

	missing, err := repo.GetByKey(ctx, "k1", uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	n, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/internal/infrastructure/database"
	"github.com/sangkips/pos-engine/internal/infrastructure/repository"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// recorder collects dispatched events
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Dispatch(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) ofType(t string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	db       *gorm.DB
	events   *recorder
	catalog  *CatalogService
	sales    *SaleService
	carts    *CartService
	cuts     *CashCutService
	settings *SettingsService
	operator entity.Operator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := zap.NewNop()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, log, false)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	store := &config.StoreConfig{CurrencyCode: "USD", CurrencySymbol: "$"}
	require.NoError(t, database.SeedDefaultData(context.Background(), db, store))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	tx := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	cutRepo := repository.NewCashCutRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	rec := &recorder{}
	h := &harness{
		db:       db,
		events:   rec,
		catalog:  NewCatalogService(productRepo, tx, rec, log, 3),
		sales:    NewSaleService(tx, productRepo, saleRepo, settingsRepo, rec, log, nil),
		cuts:     NewCashCutService(tx, saleRepo, cutRepo, rec, log, time.UTC, 0),
		settings: NewSettingsService(settingsRepo, database.DefaultSettings(store)),
		operator: entity.Operator{ID: uuid.New(), Name: "Ana", Permissions: []string{"*"}},
	}
	h.carts = NewCartService(h.catalog, h.sales, log, time.Hour)
	t.Cleanup(h.carts.Close)
	return h
}

func (h *harness) piece(t *testing.T, sku, price string, rate money.Rate, stock int64) *entity.Product {
	t.Helper()
	p, err := h.catalog.CreateProduct(context.Background(), &ProductInput{
		SKU:       sku,
		Barcode:   "75" + sku,
		Name:      "Product " + sku,
		Category:  "grocery",
		UnitType:  enum.UnitTypePiece,
		UnitPrice: money.MustParseAmount(price),
		TaxRate:   rate,
		Stock:     money.Units(stock),
	})
	require.NoError(t, err)
	return p
}

func (h *harness) weighed(t *testing.T, sku, price, stock string) *entity.Product {
	t.Helper()
	p, err := h.catalog.CreateProduct(context.Background(), &ProductInput{
		SKU:       sku,
		Name:      "Bulk " + sku,
		Category:  "bulk",
		UnitType:  enum.UnitTypeWeight,
		UnitPrice: money.MustParseAmount(price),
		Stock:     money.MustParseQuantity(stock),
	})
	require.NoError(t, err)
	return p
}

func (h *harness) stock(t *testing.T, id uuid.UUID) money.Quantity {
	t.Helper()
	p, err := h.catalog.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (h *harness) countSales(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&entity.Sale{}).Count(&n).Error)
	return n
}

// sell checks out a cart holding qty of each product, paid by card
func (h *harness) sell(t *testing.T, products map[*entity.Product]int64) *CommitResult {
	t.Helper()
	ctx := context.Background()
	snap := h.carts.Open(h.operator)
	for p, qty := range products {
		_, err := h.carts.AddItem(ctx, snap.ID, h.operator, p.Code(), money.Units(qty))
		require.NoError(t, err)
	}
	result, err := h.carts.Checkout(ctx, snap.ID, &CheckoutInput{
		Payment:  PaymentInput{Method: enum.PaymentMethodCard},
		Operator: h.operator,
	})
	require.NoError(t, err)
	return result
}

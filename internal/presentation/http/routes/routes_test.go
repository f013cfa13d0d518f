package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/infrastructure/database"
	"github.com/sangkips/pos-engine/internal/infrastructure/events"
	"github.com/sangkips/pos-engine/internal/infrastructure/repository"
	"github.com/sangkips/pos-engine/internal/presentation/http/handler"
	"github.com/sangkips/pos-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/printer"
	"github.com/sangkips/pos-engine/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router  *gin.Engine
	catalog *service.CatalogService
	admin   string
	cashier string
}

func newTestServer(t *testing.T, limiter *middleware.OperatorRateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	cfg := &config.Config{
		App:   config.AppConfig{Name: "pos-engine"},
		Store: config.StoreConfig{CurrencyCode: "USD", CurrencySymbol: "$"},
	}

	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, log, false)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultData(context.Background(), db, &cfg.Store))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	tx := repository.NewTransactor(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	bus := events.NewBus(log)

	catalog := service.NewCatalogService(productRepo, tx, bus, log, 3)
	sales := service.NewSaleService(tx, productRepo, saleRepo, settingsRepo, bus, log, nil)
	carts := service.NewCartService(catalog, sales, log, time.Hour)
	t.Cleanup(carts.Close)
	cuts := service.NewCashCutService(tx, saleRepo, repository.NewCashCutRepository(db), bus, log, time.UTC, 0)
	settings := service.NewSettingsService(settingsRepo, database.DefaultSettings(&cfg.Store))
	printers := service.NewPrinterService(printer.NewMemoryPrinter(), sales, settingsRepo, log, "memory", 32)

	jwtManager := utils.NewJWTManager("test-secret", "pos-engine", time.Hour)
	admin, err := jwtManager.GenerateAccessToken(uuid.New(), "Admin", []string{"*"})
	require.NoError(t, err)
	cashier, err := jwtManager.GenerateAccessToken(uuid.New(), "Ana", nil)
	require.NoError(t, err)

	router := Setup(&Handlers{
		Health:   handler.NewHealthHandler(cfg.App.Name, sqlDB, carts),
		Product:  handler.NewProductHandler(catalog),
		Purchase: handler.NewPurchaseHandler(catalog),
		Cart:     handler.NewCartHandler(carts),
		Sale:     handler.NewSaleHandler(sales, cuts),
		CashCut:  handler.NewCashCutHandler(cuts),
		Settings: handler.NewSettingsHandler(settings),
		Printer:  handler.NewPrinterHandler(printers),
	}, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		Logger:          log,
		IdempotencyRepo: repository.NewIdempotencyRepository(db),
		RateLimiter:     limiter,
	})

	return &testServer{router: router, catalog: catalog, admin: admin, cashier: cashier}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (s *testServer) createProduct(t *testing.T, sku, price string, stock int) uuid.UUID {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/products", s.admin, gin.H{
		"sku":        sku,
		"barcode":    "75" + sku,
		"name":       "Product " + sku,
		"category":   "grocery",
		"unit_type":  "piece",
		"unit_price": price,
		"tax_rate":   "16",
		"stock":      stock,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, w, &product)
	return product.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAuthAndPermissions(t *testing.T) {
	s := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/products", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/products", "garbage", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/products", s.cashier, nil).Code)

	w := s.do(t, http.MethodPost, "/api/v1/products", s.cashier, gin.H{"sku": "A", "name": "A", "unit_type": "piece"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/cash-cuts", s.cashier, gin.H{})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProductErrors(t *testing.T) {
	s := newTestServer(t, nil)
	s.createProduct(t, "1001", "10.00", 5)

	w := s.do(t, http.MethodPost, "/api/v1/products", s.admin, gin.H{
		"sku": "1001", "name": "Again", "unit_type": "piece", "unit_price": "1.00",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/products", s.admin, gin.H{
		"sku": "1002", "name": "Broken", "unit_type": "piece", "unit_price": "-1.00",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString(), s.admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/v1/products/not-a-uuid", s.admin, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/products/lookup/751001", s.cashier, nil).Code)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createProduct(t, "1001", "10.00", 5)

	var cart struct {
		ID uuid.UUID `json:"id"`
	}
	w := s.do(t, http.MethodPost, "/api/v1/carts", s.cashier, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	decode(t, w, &cart)
	base := "/api/v1/carts/" + cart.ID.String()

	w = s.do(t, http.MethodPost, base+"/items", s.cashier, gin.H{"code": "751001", "quantity": "0.5"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPost, base+"/items", s.cashier, gin.H{"code": "751001", "quantity": "3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Another operator cannot see the cart
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, base, s.admin, nil).Code)

	checkout := gin.H{"payment_method": "cash", "amount_tendered": "50.00"}
	w = s.do(t, http.MethodPost, base+"/checkout", s.cashier, checkout, middleware.IdempotencyKeyHeader, "k-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result struct {
		Sale struct {
			ID         uuid.UUID    `json:"id"`
			Number     string       `json:"number"`
			GrandTotal money.Amount `json:"grand_total"`
			ChangeDue  money.Amount `json:"change_due"`
		} `json:"sale"`
	}
	decode(t, w, &result)
	assert.Equal(t, money.MustParseAmount("34.80"), result.Sale.GrandTotal)
	assert.Equal(t, money.MustParseAmount("15.20"), result.Sale.ChangeDue)

	// A retried request with the same key replays the stored response
	replay := s.do(t, http.MethodPost, base+"/checkout", s.cashier, checkout, middleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("X-Idempotency-Replayed"))
	assert.JSONEq(t, w.Body.String(), replay.Body.String())

	reused := s.do(t, http.MethodPost, base+"/checkout", s.cashier, gin.H{"payment_method": "card"}, middleware.IdempotencyKeyHeader, "k-1")
	assert.Equal(t, http.StatusUnprocessableEntity, reused.Code)

	product, err := s.catalog.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, money.Units(2), product.Stock)

	w = s.do(t, http.MethodGet, "/api/v1/sales/number/"+result.Sale.Number, s.cashier, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	saleURL := "/api/v1/sales/" + result.Sale.ID.String()
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPost, saleURL+"/void", s.cashier, gin.H{"reason": "customer changed mind"}).Code)
	assert.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, saleURL+"/void", s.admin, gin.H{"reason": "customer changed mind"}).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, saleURL+"/void", s.admin, gin.H{"reason": "customer changed mind"}).Code)
}

func TestCheckoutKeyIsBoundToCart(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createProduct(t, "1001", "10.00", 5)

	openCart := func() string {
		var cart struct {
			ID uuid.UUID `json:"id"`
		}
		decode(t, s.do(t, http.MethodPost, "/api/v1/carts", s.cashier, nil), &cart)
		base := "/api/v1/carts/" + cart.ID.String()
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/items", s.cashier, gin.H{"code": "1001", "quantity": "1"}).Code)
		return base
	}
	first, second := openCart(), openCart()

	checkout := gin.H{"payment_method": "card"}
	w := s.do(t, http.MethodPost, first+"/checkout", s.cashier, checkout, middleware.IdempotencyKeyHeader, "same")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Same key and body against another cart is a different request
	w = s.do(t, http.MethodPost, second+"/checkout", s.cashier, checkout, middleware.IdempotencyKeyHeader, "same")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Idempotency-Replayed"))

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, second, s.cashier, nil).Code)
	w = s.do(t, http.MethodPost, second+"/checkout", s.cashier, checkout, middleware.IdempotencyKeyHeader, "other")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	product, err := s.catalog.GetProductByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, money.Units(3), product.Stock)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	s := newTestServer(t, nil)
	id := s.createProduct(t, "1001", "10.00", 2)

	var cart struct {
		ID uuid.UUID `json:"id"`
	}
	decode(t, s.do(t, http.MethodPost, "/api/v1/carts", s.cashier, nil), &cart)
	base := "/api/v1/carts/" + cart.ID.String()
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/items", s.cashier, gin.H{"code": "1001", "quantity": "3"}).Code)

	w := s.do(t, http.MethodPost, base+"/checkout", s.cashier, gin.H{"payment_method": "card"}, middleware.IdempotencyKeyHeader, "k-2")
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Contains(t, string(env.Details), id.String())

	// Failed checkouts are not stored, so the same key can be retried
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, base+"/items/0", s.cashier, gin.H{"quantity": "2"}).Code)
	w = s.do(t, http.MethodPost, base+"/checkout", s.cashier, gin.H{"payment_method": "card"}, middleware.IdempotencyKeyHeader, "k-2")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewOperatorRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	})
	t.Cleanup(limiter.Close)
	s := newTestServer(t, limiter)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/settings", s.cashier, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/settings", s.cashier, nil).Code)
	w := s.do(t, http.MethodGet, "/api/v1/settings", s.cashier, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Limits are per operator
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/settings", s.admin, nil).Code)
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/config"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	domainRepo "github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/internal/presentation/http/handler"
	"github.com/sangkips/pos-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pos-engine/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Health   *handler.HealthHandler
	Product  *handler.ProductHandler
	Purchase *handler.PurchaseHandler
	Cart     *handler.CartHandler
	Sale     *handler.SaleHandler
	CashCut  *handler.CashCutHandler
	Settings *handler.SettingsHandler
	Printer  *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	Logger          *zap.Logger
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.OperatorRateLimiter
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		if deps.RateLimiter != nil {
			protected.Use(deps.RateLimiter.Middleware())
		}

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	// Settings
	protected.GET("/settings", h.Settings.GetSettings)
	protected.PUT("/settings", middleware.RequirePermission(entity.PermissionCatalogWrite), h.Settings.UpdateSettings)

	registerProductRoutes(protected, h)
	registerPurchaseRoutes(protected, h)
	registerCartRoutes(protected, h, deps)
	registerSaleRoutes(protected, h)
	registerCashCutRoutes(protected, h)

	// Printer
	protected.GET("/printer/status", h.Printer.GetStatus)
}

func registerProductRoutes(protected *gin.RouterGroup, h *Handlers) {
	canWrite := middleware.RequirePermission(entity.PermissionCatalogWrite)

	products := protected.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", canWrite, h.Product.Create)
		products.GET("/low-stock", h.Product.GetLowStock)
		products.GET("/lookup/:code", h.Product.Lookup)
		products.GET("/export", h.Product.Export)
		products.POST("/import", canWrite, h.Product.Import)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", canWrite, h.Product.Update)
		products.DELETE("/:id", canWrite, h.Product.Delete)
		products.POST("/:id/adjust", canWrite, h.Product.AdjustStock)
		products.GET("/:id/movements", h.Product.Movements)
	}
}

func registerPurchaseRoutes(protected *gin.RouterGroup, h *Handlers) {
	protected.POST("/purchases", middleware.RequirePermission(entity.PermissionCatalogWrite), h.Purchase.Receive)
}

func registerCartRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	carts := protected.Group("/carts")
	{
		carts.POST("", h.Cart.Open)
		carts.GET("/:id", h.Cart.Get)
		carts.DELETE("/:id", h.Cart.Cancel)
		carts.POST("/:id/items", h.Cart.AddItem)
		carts.PUT("/:id/items/:index", h.Cart.UpdateQuantity)
		carts.DELETE("/:id/items/:index", h.Cart.RemoveLine)
		carts.PUT("/:id/discount", h.Cart.SetDiscount)
		carts.DELETE("/:id/discount", h.Cart.ClearDiscount)
		carts.POST("/:id/reprice", h.Cart.Reprice)

		// Checkout with idempotency protection
		carts.POST("/:id/checkout",
			middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo, Logger: deps.Logger}),
			h.Cart.Checkout,
		)
	}
}

func registerSaleRoutes(protected *gin.RouterGroup, h *Handlers) {
	sales := protected.Group("/sales")
	{
		sales.GET("", h.Sale.List)
		sales.GET("/number/:number", h.Sale.GetByNumber)
		sales.GET("/:id", h.Sale.Get)
		sales.POST("/:id/void", middleware.RequirePermission(entity.PermissionSalesVoid), h.Sale.Void)
		sales.GET("/:id/receipt", h.Sale.Receipt)
		sales.POST("/:id/print", h.Printer.PrintSale)
	}
}

func registerCashCutRoutes(protected *gin.RouterGroup, h *Handlers) {
	cuts := protected.Group("/cash-cuts")
	{
		cuts.GET("", h.CashCut.List)
		cuts.POST("", middleware.RequirePermission(entity.PermissionCashCutSeal), h.CashCut.Seal)
		cuts.GET("/preview", h.CashCut.Preview)
		cuts.GET("/:id", h.CashCut.Get)
		cuts.GET("/:id/verify", h.CashCut.Verify)
		cuts.GET("/:id/export", h.CashCut.Export)
	}
}

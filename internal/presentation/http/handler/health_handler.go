package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/application/service"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service liveness
type HealthHandler struct {
	service     string
	db          Pinger
	cartService *service.CartService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(serviceName string, db Pinger, cartService *service.CartService) *HealthHandler {
	return &HealthHandler{service: serviceName, db: db, cartService: cartService}
}

// Check pings the database and reports the number of open carts
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"service":    h.service,
		"open_carts": h.cartService.Len(),
	})
}

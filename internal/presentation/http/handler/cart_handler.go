package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/pkg/money"
)

// CartHandler handles the cart session endpoints of a register
type CartHandler struct {
	cartService *service.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// Open starts an empty cart owned by the operator
func (h *CartHandler) Open(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	response.Created(c, "Cart opened", h.cartService.Open(op))
}

// Get returns the cart's lines and totals
func (h *CartHandler) Get(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	snap, err := h.cartService.Get(id, op)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cart retrieved successfully", snap)
}

// Cancel discards the cart
func (h *CartHandler) Cancel(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.Cancel(id, op); err != nil {
		respondError(c, err)
		return
	}

	response.NoContent(c)
}

// AddItem scans a barcode or SKU into the cart
func (h *CartHandler) AddItem(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	qty := money.Units(1)
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	snap, err := h.cartService.AddItem(c.Request.Context(), id, op, req.Code, qty)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Item added to cart", snap)
}

// UpdateQuantity changes the quantity of one line
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	var req request.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snap, err := h.cartService.UpdateQuantity(id, op, index, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cart line updated", snap)
}

// RemoveLine deletes one line
func (h *CartHandler) RemoveLine(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	index, ok := parseIndex(c)
	if !ok {
		return
	}

	snap, err := h.cartService.RemoveLine(id, op, index)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cart line removed", snap)
}

// SetDiscount applies a cart-wide discount
func (h *CartHandler) SetDiscount(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	snap, err := h.cartService.SetDiscount(id, op, pricing.Discount{
		Kind:    req.Kind,
		Percent: req.Percent,
		Amount:  req.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Discount applied", snap)
}

// ClearDiscount removes the cart-wide discount
func (h *CartHandler) ClearDiscount(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	snap, err := h.cartService.ClearDiscount(id, op)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Discount removed", snap)
}

// Reprice refreshes captured prices after a price change was reported
func (h *CartHandler) Reprice(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	snap, changed, err := h.cartService.Reprice(c.Request.Context(), id, op)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cart repriced", gin.H{
		"cart":          snap,
		"changed_lines": changed,
	})
}

// Checkout commits the cart as a sale
func (h *CartHandler) Checkout(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.cartService.Checkout(c.Request.Context(), id, &service.CheckoutInput{
		Payment: service.PaymentInput{
			Method:         req.PaymentMethod,
			AmountTendered: req.AmountTendered,
		},
		Operator: op,
		Note:     req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Sale committed successfully", result)
}

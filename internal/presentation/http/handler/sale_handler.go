package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/repository"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

// SaleHandler handles committed sales, voids and receipts
type SaleHandler struct {
	saleService    *service.SaleService
	cashCutService *service.CashCutService
}

// NewSaleHandler creates a new sale handler. The cash cut service resolves
// business-day dates in filters.
func NewSaleHandler(saleService *service.SaleService, cashCutService *service.CashCutService) *SaleHandler {
	return &SaleHandler{saleService: saleService, cashCutService: cashCutService}
}

// List handles listing sales
func (h *SaleHandler) List(c *gin.Context) {
	var filter request.SaleFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.SaleFilterParams{
		Pagination: &pagination.PaginationParams{
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
		Kind:          enum.SaleKind(filter.Kind),
		PaymentMethod: enum.PaymentMethod(filter.PaymentMethod),
	}

	if filter.From != "" {
		from, err := h.bound(filter.From, false)
		if err != nil {
			response.BadRequest(c, "Invalid from: "+err.Error())
			return
		}
		params.From = &from
	}
	if filter.To != "" {
		to, err := h.bound(filter.To, true)
		if err != nil {
			response.BadRequest(c, "Invalid to: "+err.Error())
			return
		}
		params.To = &to
	}
	if filter.OperatorID != "" {
		id, err := uuid.Parse(filter.OperatorID)
		if err != nil {
			response.BadRequest(c, "Invalid operator_id format")
			return
		}
		params.OperatorID = &id
	}

	result, err := h.saleService.ListSales(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Sales retrieved successfully", result)
}

// bound turns a filter value into an instant. A bare date stands for the
// opening (or, for upper bounds, the closing) of that business day.
func (h *SaleHandler) bound(value string, upper bool) (time.Time, error) {
	if !strings.Contains(value, "T") {
		w, err := h.cashCutService.BusinessDate(value)
		if err != nil {
			return time.Time{}, err
		}
		if upper {
			return w.End, nil
		}
		return w.Start, nil
	}
	return parseInstant(value)
}

// Get handles getting a single sale
func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	sale, err := h.saleService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", sale)
}

// GetByNumber handles looking a sale up by its receipt number
func (h *SaleHandler) GetByNumber(c *gin.Context) {
	sale, err := h.saleService.GetSaleByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Sale retrieved successfully", sale)
}

// Void stores a compensating sale and restocks the voided lines
func (h *SaleHandler) Void(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req request.VoidSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	void, err := h.saleService.VoidSale(c.Request.Context(), &service.VoidInput{
		SaleID:   id,
		Operator: op,
		Reason:   req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Sale voided successfully", void)
}

// Receipt returns the receipt payload of a sale
func (h *SaleHandler) Receipt(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.saleService.GetReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}

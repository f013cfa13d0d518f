package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/application/service"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/request"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/pkg/pagination"
)

// CashCutHandler handles daily cash cut endpoints
type CashCutHandler struct {
	cashCutService *service.CashCutService
}

// NewCashCutHandler creates a new cash cut handler
func NewCashCutHandler(cashCutService *service.CashCutService) *CashCutHandler {
	return &CashCutHandler{cashCutService: cashCutService}
}

// window resolves the requested window, defaulting to the business day in
// progress
func (h *CashCutHandler) window(req *request.CashCutWindowRequest) (entity.Window, error) {
	switch {
	case req.Start != "" || req.End != "":
		start, err := parseInstant(req.Start)
		if err != nil {
			return entity.Window{}, err
		}
		end, err := parseInstant(req.End)
		if err != nil {
			return entity.Window{}, err
		}
		return entity.NewWindow(start, end)
	case req.Date != "":
		return h.cashCutService.BusinessDate(req.Date)
	default:
		return h.cashCutService.BusinessDay(time.Now()), nil
	}
}

// Preview computes a draft cut without storing it
func (h *CashCutHandler) Preview(c *gin.Context) {
	var req request.CashCutWindowRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	window, err := h.window(&req)
	if err != nil {
		response.BadRequest(c, "Invalid window: "+err.Error())
		return
	}

	cut, err := h.cashCutService.ComputeCut(c.Request.Context(), window)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cash cut computed", cut)
}

// Seal stores the cut of the window. Sales committed afterwards are not
// added to it.
func (h *CashCutHandler) Seal(c *gin.Context) {
	op, ok := currentOperator(c)
	if !ok {
		return
	}

	var req request.CashCutWindowRequest
	// an empty body seals the current business day
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	window, err := h.window(&req)
	if err != nil {
		response.BadRequest(c, "Invalid window: "+err.Error())
		return
	}

	cut, err := h.cashCutService.SealCut(c.Request.Context(), window, op)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, "Cash cut sealed", cut)
}

// List handles listing sealed cuts
func (h *CashCutHandler) List(c *gin.Context) {
	params := pagination.DefaultPagination()
	if err := c.ShouldBindQuery(params); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.cashCutService.ListCuts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Cash cuts retrieved successfully", result)
}

// Get handles getting a sealed cut
func (h *CashCutHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	cut, err := h.cashCutService.GetCut(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cash cut retrieved successfully", cut)
}

// Verify recomputes the checksum of a sealed cut
func (h *CashCutHandler) Verify(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := h.cashCutService.VerifyCut(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.OK(c, "Cash cut verified", result)
}

// Export downloads a sealed cut as a spreadsheet
func (h *CashCutHandler) Export(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.cashCutService.ExportCut(c.Request.Context(), id, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="cash-cut-`+id.String()+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

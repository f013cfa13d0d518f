package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/presentation/http/dto/response"
	"github.com/sangkips/pos-engine/internal/presentation/http/middleware"
	"github.com/sangkips/pos-engine/pkg/apperror"
	"github.com/sangkips/pos-engine/pkg/logger"
	"github.com/sangkips/pos-engine/pkg/money"
	"go.uber.org/zap"
)

// errorStatus maps domain errors to HTTP status codes. Order matters: typed
// errors wrapped in a CommitError are matched before the generic cases.
var errorStatus = []struct {
	target error
	code   int
}{
	{errs.ErrProductNotFound, http.StatusNotFound},
	{errs.ErrSaleNotFound, http.StatusNotFound},
	{errs.ErrCashCutNotFound, http.StatusNotFound},
	{errs.ErrCartNotFound, http.StatusNotFound},
	{errs.ErrIndexOutOfRange, http.StatusNotFound},
	{errs.ErrInsufficientStock, http.StatusConflict},
	{errs.ErrPriceChanged, http.StatusConflict},
	{errs.ErrConcurrencyConflict, http.StatusConflict},
	{errs.ErrAlreadySealed, http.StatusConflict},
	{errs.ErrAlreadyVoided, http.StatusConflict},
	{errs.ErrDuplicateProduct, http.StatusConflict},
	{errs.ErrNotVoidable, http.StatusConflict},
	{errs.ErrImmutableRecord, http.StatusConflict},
	{errs.ErrInvalidProduct, http.StatusUnprocessableEntity},
	{errs.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{errs.ErrInvalidDiscount, http.StatusUnprocessableEntity},
	{errs.ErrAmountOutOfRange, http.StatusUnprocessableEntity},
	{errs.ErrEmptyCart, http.StatusUnprocessableEntity},
	{errs.ErrInvalidPayment, http.StatusUnprocessableEntity},
	{errs.ErrInsufficientPayment, http.StatusUnprocessableEntity},
	{errs.ErrInvalidWindow, http.StatusUnprocessableEntity},
	{errs.ErrInvalidAdjustment, http.StatusUnprocessableEntity},
	{money.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{money.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{money.ErrInvalidRate, http.StatusUnprocessableEntity},
}

// toAppError converts any service error into an AppError. Unknown errors are
// logged and reported as 500 without leaking their text.
func toAppError(c *gin.Context, err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range errorStatus {
		if !errors.Is(err, m.target) {
			continue
		}
		out := apperror.NewAppError(m.code, err.Error())

		var stockErr *errs.InsufficientStockError
		var priceErr *errs.PriceChangedError
		switch {
		case errors.As(err, &stockErr):
			out = out.WithDetails(stockErr)
		case errors.As(err, &priceErr):
			out = out.WithDetails(priceErr)
		}
		return out
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.NewAppError(http.StatusServiceUnavailable, "Request cancelled")
	}

	logger.FromContext(c.Request.Context(), zap.NewNop()).Error("unhandled error", zap.Error(err))
	return apperror.ErrInternalServer
}

// respondError writes err using the standard error envelope
func respondError(c *gin.Context, err error) {
	response.Error(c, toAppError(c, err))
}

// parseID parses a uuid path parameter, writing a 400 on failure
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		response.BadRequest(c, "Invalid "+param+" format")
		return uuid.Nil, false
	}
	return id, true
}

// parseIndex parses a non-negative line index path parameter
func parseIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		response.BadRequest(c, "Invalid line index")
		return 0, false
	}
	return index, true
}

// currentOperator returns the authenticated operator, writing a 401 when
// there is none
func currentOperator(c *gin.Context) (entity.Operator, bool) {
	op, ok := middleware.GetOperator(c)
	if !ok || op.ID == uuid.Nil {
		response.Unauthorized(c, "Operator not authenticated")
		return entity.Operator{}, false
	}
	return op, true
}

// operatorID returns a pointer to the authenticated operator id, if any
func operatorID(c *gin.Context) *uuid.UUID {
	id := middleware.GetOperatorID(c)
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// parseInstant accepts an RFC 3339 timestamp
func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

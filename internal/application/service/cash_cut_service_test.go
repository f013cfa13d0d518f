package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/event"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/sangkips/pos-engine/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func aroundNow(t *testing.T) entity.Window {
	t.Helper()
	n := time.Now()
	w, err := entity.NewWindow(n.Add(-time.Hour), n.Add(time.Hour))
	require.NoError(t, err)
	return w
}

func TestCashCutService_ComputeIsRepeatable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a := h.piece(t, "1001", "10.00", money.Percent(16), 20)
	b := h.piece(t, "1002", "4.00", 0, 20)

	h.sell(t, map[*entity.Product]int64{a: 2, b: 1})
	voided := h.sell(t, map[*entity.Product]int64{b: 3}).Sale
	_, err := h.sales.VoidSale(ctx, &VoidInput{SaleID: voided.ID, Operator: h.operator, Reason: "wrong item"})
	require.NoError(t, err)

	window := aroundNow(t)
	first, err := h.cuts.ComputeCut(ctx, window)
	require.NoError(t, err)
	second, err := h.cuts.ComputeCut(ctx, window)
	require.NoError(t, err)

	assert.Equal(t, first.ComputeChecksum(), second.ComputeChecksum())
	assert.Equal(t, enum.CashCutStatusDraft, first.Status)
	assert.Equal(t, 2, first.SaleCount)
	assert.Equal(t, 1, first.VoidCount)
	// 2 x 10.00 + 16% tax + 4.00; the voided 12.00 nets out
	assert.Equal(t, money.MustParseAmount("27.20"), first.GrandTotal)
	assert.Equal(t, money.MustParseAmount("3.20"), first.Tax)

	require.Len(t, first.Payments, 1)
	assert.Equal(t, enum.PaymentMethodCard, first.Payments[0].Method)
	assert.Equal(t, 2, first.Payments[0].Count)
	assert.Equal(t, money.MustParseAmount("27.20"), first.Payments[0].Total)

	var none int64
	require.NoError(t, h.db.Model(&entity.CashCut{}).Count(&none).Error)
	assert.Zero(t, none)
}

func TestCashCutService_SealExcludesLaterSales(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", 0, 20)
	h.sell(t, map[*entity.Product]int64{p: 1})

	window := aroundNow(t)
	cut, err := h.cuts.SealCut(ctx, window, h.operator)
	require.NoError(t, err)
	assert.Equal(t, enum.CashCutStatusSealed, cut.Status)
	assert.Equal(t, 1, cut.SaleCount)
	assert.NotEmpty(t, cut.Checksum)
	require.NotNil(t, cut.SealedBy)
	assert.Equal(t, h.operator.ID, *cut.SealedBy)

	// Committed inside the window but after the seal
	h.sell(t, map[*entity.Product]int64{p: 2})

	stored, err := h.cuts.GetCut(ctx, cut.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SaleCount)
	assert.Equal(t, money.MustParseAmount("10.00"), stored.GrandTotal)
	assert.Equal(t, cut.Checksum, stored.Checksum)
	assert.Len(t, stored.SaleIDs, 1)

	draft, err := h.cuts.ComputeCut(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 2, draft.SaleCount)

	_, err = h.cuts.SealCut(ctx, window, h.operator)
	assert.ErrorIs(t, err, errs.ErrAlreadySealed)

	overlapping, err := entity.NewWindow(window.End.Add(-time.Minute), window.End.Add(time.Hour))
	require.NoError(t, err)
	_, err = h.cuts.SealCut(ctx, overlapping, h.operator)
	assert.ErrorIs(t, err, errs.ErrAlreadySealed)

	adjacent, err := entity.NewWindow(window.End, window.End.Add(time.Hour))
	require.NoError(t, err)
	_, err = h.cuts.SealCut(ctx, adjacent, h.operator)
	assert.NoError(t, err)

	assert.Len(t, h.events.ofType(event.TypeCashCutSealed), 2)
}

func TestCashCutService_InvalidWindow(t *testing.T) {
	h := newHarness(t)
	n := time.Now()

	_, err := h.cuts.ComputeCut(context.Background(), entity.Window{Start: n, End: n})
	assert.ErrorIs(t, err, errs.ErrInvalidWindow)

	_, err = h.cuts.SealCut(context.Background(), entity.Window{Start: n, End: n.Add(-time.Hour)}, h.operator)
	assert.ErrorIs(t, err, errs.ErrInvalidWindow)

	_, err = h.cuts.BusinessDate("18/10/2026")
	assert.ErrorIs(t, err, errs.ErrInvalidWindow)
}

func TestCashCutService_VerifyDetectsTampering(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", 0, 20)
	h.sell(t, map[*entity.Product]int64{p: 2})

	cut, err := h.cuts.SealCut(ctx, aroundNow(t), h.operator)
	require.NoError(t, err)

	result, err := h.cuts.VerifyCut(ctx, cut.ID)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Problems)
	assert.Equal(t, result.StoredChecksum, result.ComputedChecksum)

	require.NoError(t, h.db.Exec("UPDATE cash_cuts SET grand_total = ? WHERE id = ?", 1, cut.ID).Error)

	result, err = h.cuts.VerifyCut(ctx, cut.ID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEqual(t, result.StoredChecksum, result.ComputedChecksum)
	assert.NotEmpty(t, result.Problems)

	_, err = h.cuts.VerifyCut(ctx, uuid.New())
	assert.ErrorIs(t, err, errs.ErrCashCutNotFound)
}

func TestCashCutService_SealedCutsAreImmutable(t *testing.T) {
	h := newHarness(t)
	cut, err := h.cuts.SealCut(context.Background(), aroundNow(t), h.operator)
	require.NoError(t, err)
	assert.Zero(t, cut.SaleCount)

	assert.ErrorIs(t, h.db.Model(cut).Update("grand_total", 1).Error, errs.ErrImmutableRecord)
	assert.ErrorIs(t, h.db.Delete(cut).Error, errs.ErrImmutableRecord)
}

func TestCashCutService_ListAndExport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", 0, 20)
	h.sell(t, map[*entity.Product]int64{p: 1})

	cut, err := h.cuts.SealCut(ctx, aroundNow(t), h.operator)
	require.NoError(t, err)

	list, err := h.cuts.ListCuts(ctx, pagination.DefaultPagination())
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, cut.ID, list.Items[0].ID)

	var buf bytes.Buffer
	require.NoError(t, h.cuts.ExportCut(ctx, cut.ID, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestCashCutService_BusinessDay(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*3600)
	s := NewCashCutService(nil, nil, nil, nil, zap.NewNop(), loc, 6*time.Hour)

	// 03:00 local belongs to the previous business day
	w := s.BusinessDay(time.Date(2026, 3, 10, 3, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 9, 6, 0, 0, 0, loc).UTC(), w.Start)
	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, loc).UTC(), w.End)

	w = s.BusinessDay(time.Date(2026, 3, 10, 7, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, loc).UTC(), w.Start)

	byDate, err := s.BusinessDate("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, w, byDate)
}

func TestAggregate(t *testing.T) {
	window, err := entity.NewWindow(
		time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 6, 6, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	apple, pear, fig := uuid.New(), uuid.New(), uuid.New()
	at := window.Start.Add(time.Hour)
	line := func(id uuid.UUID, sku, category string, qty int64, subtotal string) entity.SaleLine {
		return entity.SaleLine{ProductID: id, SKU: sku, Category: category, Quantity: money.Units(qty), Subtotal: money.MustParseAmount(subtotal)}
	}
	sale := func(method enum.PaymentMethod, total string, createdAt time.Time, lines ...entity.SaleLine) entity.Sale {
		amount := money.MustParseAmount(total)
		return entity.Sale{ID: uuid.New(), Kind: enum.SaleKindSale, PaymentMethod: method, Subtotal: amount, GrandTotal: amount, CreatedAt: createdAt, Lines: lines}
	}

	sales := []entity.Sale{
		sale(enum.PaymentMethodCash, "30.00", at, line(apple, "APL", "fruit", 3, "30.00")),
		sale(enum.PaymentMethodCard, "20.00", at, line(pear, "PER", "fruit", 1, "5.00"), line(fig, "FIG", "dried", 3, "15.00")),
		sale(enum.PaymentMethodCash, "99.00", window.End, line(apple, "APL", "fruit", 9, "99.00")),
	}
	voidOf := sales[1]
	void := entity.Sale{
		ID:            uuid.New(),
		Kind:          enum.SaleKindVoid,
		PaymentMethod: enum.PaymentMethodCard,
		Subtotal:      -voidOf.Subtotal,
		GrandTotal:    -voidOf.GrandTotal,
		CreatedAt:     at.Add(time.Minute),
		Lines: []entity.SaleLine{
			line(pear, "PER", "fruit", -1, "-5.00"),
			line(fig, "FIG", "dried", -3, "-15.00"),
		},
	}
	sales = append(sales, void)

	cut := Aggregate(window, sales)

	assert.Equal(t, 2, cut.SaleCount)
	assert.Equal(t, 1, cut.VoidCount)
	assert.Len(t, cut.SaleIDs, 3, "the sale at the window end is excluded")
	assert.Equal(t, money.MustParseAmount("30.00"), cut.GrandTotal)

	require.Len(t, cut.Payments, 2)
	assert.Equal(t, enum.PaymentMethodCard, cut.Payments[0].Method)
	assert.Equal(t, 1, cut.Payments[0].Count)
	assert.Equal(t, money.Amount(0), cut.Payments[0].Total)
	assert.Equal(t, enum.PaymentMethodCash, cut.Payments[1].Method)
	assert.Equal(t, money.MustParseAmount("30.00"), cut.Payments[1].Total)

	require.Len(t, cut.Categories, 2)
	assert.Equal(t, "fruit", cut.Categories[0].Category)
	assert.Equal(t, money.MustParseAmount("30.00"), cut.Categories[0].Total)
	assert.Equal(t, "dried", cut.Categories[1].Category)
	assert.Equal(t, money.Amount(0), cut.Categories[1].Total)

	require.Len(t, cut.TopProducts, 1, "fully voided products drop out of the ranking")
	assert.Equal(t, apple, cut.TopProducts[0].ProductID)
	assert.Equal(t, 1, cut.TopProducts[0].Rank)
	assert.Equal(t, money.Units(3), cut.TopProducts[0].Quantity)
}

func TestAggregate_EmptyWindow(t *testing.T) {
	window, err := entity.NewWindow(time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)

	cut := Aggregate(window, nil)
	assert.Zero(t, cut.SaleCount)
	assert.Zero(t, cut.GrandTotal)
	assert.NotNil(t, cut.Payments)
	assert.NotNil(t, cut.TopProducts)
	assert.Empty(t, cut.SaleIDs)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_Lifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", money.Percent(16), 10)

	snap := h.carts.Open(h.operator)
	assert.Equal(t, h.operator.ID, snap.OperatorID)
	assert.Equal(t, 1, h.carts.Len())

	snap, err := h.carts.AddItem(ctx, snap.ID, h.operator, p.Code(), money.Units(3))
	require.NoError(t, err)
	require.Len(t, snap.Lines, 1)

	snap, err = h.carts.SetDiscount(snap.ID, h.operator, pricing.FixedDiscount(money.MustParseAmount("5.00")))
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("29.80"), snap.Totals.GrandTotal)

	snap, err = h.carts.UpdateQuantity(snap.ID, h.operator, 0, money.Units(2))
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("20.00"), snap.Totals.Subtotal)

	_, err = h.carts.UpdateQuantity(snap.ID, h.operator, 3, money.Units(1))
	assert.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	snap, err = h.carts.ClearDiscount(snap.ID, h.operator)
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("23.20"), snap.Totals.GrandTotal)

	result, err := h.carts.Checkout(ctx, snap.ID, &CheckoutInput{
		Payment:  PaymentInput{Method: enum.PaymentMethodCash, AmountTendered: money.MustParseAmount("25.00")},
		Operator: h.operator,
	})
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("1.80"), result.Sale.ChangeDue)
	assert.Equal(t, money.Units(8), h.stock(t, p.ID))

	assert.Zero(t, h.carts.Len())
	_, err = h.carts.Get(snap.ID, h.operator)
	assert.ErrorIs(t, err, errs.ErrCartNotFound)
}

func TestCartService_FailedCheckoutKeepsCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", 0, 10)

	snap := h.carts.Open(h.operator)
	_, err := h.carts.AddItem(ctx, snap.ID, h.operator, p.Code(), money.Units(1))
	require.NoError(t, err)

	_, err = h.catalog.UpdateProduct(ctx, p.ID, &ProductInput{
		SKU:       p.SKU,
		Barcode:   p.Code(),
		Name:      p.Name,
		UnitType:  p.UnitType,
		UnitPrice: money.MustParseAmount("11.00"),
	})
	require.NoError(t, err)

	checkout := &CheckoutInput{Payment: PaymentInput{Method: enum.PaymentMethodCard}, Operator: h.operator}
	_, err = h.carts.Checkout(ctx, snap.ID, checkout)
	assert.ErrorIs(t, err, errs.ErrPriceChanged)
	assert.Equal(t, 1, h.carts.Len())

	repriced, changed, err := h.carts.Reprice(ctx, snap.ID, h.operator)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, changed)
	assert.Equal(t, money.MustParseAmount("11.00"), repriced.Totals.GrandTotal)

	result, err := h.carts.Checkout(ctx, snap.ID, checkout)
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("11.00"), result.Sale.GrandTotal)
}

func TestCartService_CartsBelongToTheirOperator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "10.00", 0, 10)
	other := entity.Operator{ID: uuid.New(), Name: "Luis"}

	snap := h.carts.Open(h.operator)

	_, err := h.carts.Get(snap.ID, other)
	assert.ErrorIs(t, err, errs.ErrCartNotFound)
	_, err = h.carts.AddItem(ctx, snap.ID, other, p.Code(), money.Units(1))
	assert.ErrorIs(t, err, errs.ErrCartNotFound)
	assert.ErrorIs(t, h.carts.Cancel(snap.ID, other), errs.ErrCartNotFound)
	_, err = h.carts.Checkout(ctx, snap.ID, &CheckoutInput{Payment: PaymentInput{Method: enum.PaymentMethodCard}, Operator: other})
	assert.ErrorIs(t, err, errs.ErrCartNotFound)

	_, err = h.carts.Get(uuid.New(), h.operator)
	assert.ErrorIs(t, err, errs.ErrCartNotFound)

	require.NoError(t, h.carts.Cancel(snap.ID, h.operator))
	assert.Zero(t, h.carts.Len())
	assert.Equal(t, money.Units(10), h.stock(t, p.ID))
}

func TestCartService_EmptyCartCheckout(t *testing.T) {
	h := newHarness(t)
	snap := h.carts.Open(h.operator)

	_, err := h.carts.Checkout(context.Background(), snap.ID, &CheckoutInput{Payment: PaymentInput{Method: enum.PaymentMethodCard}, Operator: h.operator})
	assert.ErrorIs(t, err, errs.ErrEmptyCart)
	assert.Equal(t, 1, h.carts.Len())
}

func TestCartService_Sweep(t *testing.T) {
	h := newHarness(t)
	stale := h.carts.Open(h.operator)
	fresh := h.carts.Open(h.operator)

	h.carts.mu.Lock()
	h.carts.sessions[stale.ID].lastSeen = time.Now().Add(-2 * time.Hour)
	h.carts.mu.Unlock()

	assert.Equal(t, 1, h.carts.sweep(time.Now()))
	_, err := h.carts.Get(stale.ID, h.operator)
	assert.ErrorIs(t, err, errs.ErrCartNotFound)
	_, err = h.carts.Get(fresh.ID, h.operator)
	assert.NoError(t, err)
}

func TestCartService_ConcurrentCartsAreIndependent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.piece(t, "1001", "1.00", 0, 100)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = h.carts.Open(h.operator).ID
	}
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			for j := 0; j < 3; j++ {
				_, err := h.carts.AddItem(ctx, id, h.operator, p.Code(), money.Units(1))
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		snap, err := h.carts.Get(id, h.operator)
		require.NoError(t, err)
		assert.Len(t, snap.Lines, 3)
		assert.Equal(t, money.MustParseAmount("3.00"), snap.Totals.GrandTotal)
	}
}

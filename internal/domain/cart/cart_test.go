package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/internal/domain/pricing"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct {
	products map[string]*entity.Product
}

func newStubCatalog(products ...*entity.Product) *stubCatalog {
	c := &stubCatalog{products: make(map[string]*entity.Product)}
	for _, p := range products {
		c.products[p.Code()] = p
	}
	return c
}

func (c *stubCatalog) LookupByBarcode(_ context.Context, code string) (*entity.Product, error) {
	if p, ok := c.products[code]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", errs.ErrProductNotFound, code)
}

func (c *stubCatalog) GetProduct(_ context.Context, id uuid.UUID) (*entity.Product, error) {
	for _, p := range c.products {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errs.ErrProductNotFound
}

func pieceProduct(barcode, price string, rate money.Rate) *entity.Product {
	code := barcode
	return &entity.Product{
		ID:        uuid.New(),
		SKU:       "SKU-" + barcode,
		Barcode:   &code,
		Name:      "Item " + barcode,
		UnitType:  enum.UnitTypePiece,
		UnitPrice: money.MustParseAmount(price),
		TaxRate:   rate,
		Stock:     money.Units(10),
	}
}

func weightProduct(barcode, price string) *entity.Product {
	p := pieceProduct(barcode, price, 0)
	p.UnitType = enum.UnitTypeWeight
	p.QuantityScale = 3
	return p
}

func TestCart_TotalsWithDiscountAndTax(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("7501234", "10.00", money.Percent(16))), uuid.New())

	line, err := c.AddItem(ctx, "7501234", money.Units(3))
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("30.00"), line.Subtotal)
	assert.Equal(t, money.MustParseAmount("4.80"), line.Tax)

	require.NoError(t, c.SetDiscount(pricing.FixedDiscount(money.MustParseAmount("5.00"))))

	snap := c.Snapshot()
	assert.Equal(t, money.MustParseAmount("30.00"), snap.Totals.Subtotal)
	assert.Equal(t, money.MustParseAmount("5.00"), snap.Totals.Discount)
	assert.Equal(t, money.MustParseAmount("4.80"), snap.Totals.Tax)
	assert.Equal(t, money.MustParseAmount("29.80"), snap.Totals.GrandTotal)
}

func TestCart_WeightItems(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(weightProduct("2000001", "25.00")), uuid.New())

	line, err := c.AddItem(ctx, "2000001", money.MustParseQuantity("0.250"))
	require.NoError(t, err)
	assert.Equal(t, money.MustParseAmount("6.25"), line.Subtotal)

	_, err = c.AddItem(ctx, "2000001", money.Units(-1))
	assert.ErrorIs(t, err, errs.ErrInvalidQuantity)
	assert.Equal(t, 1, c.Len())
}

func TestCart_AddItemValidation(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("111", "1.00", 0)), uuid.New())

	_, err := c.AddItem(ctx, "111", money.MustParseQuantity("1.5"))
	assert.ErrorIs(t, err, errs.ErrInvalidQuantity)

	_, err = c.AddItem(ctx, "111", 0)
	assert.ErrorIs(t, err, errs.ErrInvalidQuantity)

	_, err = c.AddItem(ctx, "999", money.Units(1))
	assert.ErrorIs(t, err, errs.ErrProductNotFound)

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, pricing.Totals{}, c.Snapshot().Totals)
}

func TestCart_RejectsTotalsOutOfRange(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "10000000000.00", 0)), uuid.New())

	_, err := c.AddItem(ctx, "1", money.Units(1000000))
	assert.ErrorIs(t, err, errs.ErrAmountOutOfRange)
	assert.Equal(t, 0, c.Len())

	_, err = c.AddItem(ctx, "1", money.Units(600))
	require.NoError(t, err)
	before := c.Snapshot()

	// A second line would push the subtotal past the limit
	_, err = c.AddItem(ctx, "1", money.Units(600))
	assert.ErrorIs(t, err, errs.ErrAmountOutOfRange)
	assert.Equal(t, before, c.Snapshot())

	assert.ErrorIs(t, c.UpdateQuantity(0, money.Units(2000)), errs.ErrAmountOutOfRange)
	assert.Equal(t, before, c.Snapshot())
}

func TestCart_AddItemAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "1.00", 0), pieceProduct("2", "2.00", 0)), uuid.New())

	_, err := c.AddItem(ctx, "1", money.Units(1))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, "2", money.Units(1))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, "1", money.Units(2))
	require.NoError(t, err)

	snap := c.Snapshot()
	require.Len(t, snap.Lines, 3)
	assert.Equal(t, "SKU-1", snap.Lines[0].SKU)
	assert.Equal(t, "SKU-2", snap.Lines[1].SKU)
	assert.Equal(t, "SKU-1", snap.Lines[2].SKU)
	assert.Equal(t, money.MustParseAmount("5.00"), snap.Totals.GrandTotal)
}

func TestCart_UpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "1.00", 0), pieceProduct("2", "2.00", 0)), uuid.New())
	_, _ = c.AddItem(ctx, "1", money.Units(1))
	_, _ = c.AddItem(ctx, "2", money.Units(1))

	require.NoError(t, c.UpdateQuantity(0, money.Units(4)))
	assert.Equal(t, money.MustParseAmount("6.00"), c.Snapshot().Totals.GrandTotal)

	assert.ErrorIs(t, c.UpdateQuantity(2, money.Units(1)), errs.ErrIndexOutOfRange)
	assert.ErrorIs(t, c.UpdateQuantity(-1, money.Units(1)), errs.ErrIndexOutOfRange)
	assert.ErrorIs(t, c.UpdateQuantity(1, money.MustParseQuantity("0.5")), errs.ErrInvalidQuantity)

	require.NoError(t, c.RemoveLine(0))
	snap := c.Snapshot()
	require.Len(t, snap.Lines, 1)
	assert.Equal(t, "SKU-2", snap.Lines[0].SKU)
	assert.Equal(t, money.MustParseAmount("2.00"), snap.Totals.GrandTotal)

	assert.ErrorIs(t, c.RemoveLine(1), errs.ErrIndexOutOfRange)
}

func TestCart_PriceCapturedAtAddTime(t *testing.T) {
	ctx := context.Background()
	p := pieceProduct("1", "10.00", 0)
	catalog := newStubCatalog(p)
	c := New(catalog, uuid.New())

	_, err := c.AddItem(ctx, "1", money.Units(1))
	require.NoError(t, err)

	p.UnitPrice = money.MustParseAmount("12.00")
	assert.Equal(t, money.MustParseAmount("10.00"), c.Snapshot().Lines[0].UnitPrice)

	changed, err := c.Reprice(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, changed)
	assert.Equal(t, money.MustParseAmount("12.00"), c.Snapshot().Totals.GrandTotal)
}

func TestCart_SetDiscount(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "10.00", 0)), uuid.New())
	_, _ = c.AddItem(ctx, "1", money.Units(1))

	assert.ErrorIs(t, c.SetDiscount(pricing.FixedDiscount(money.MustParseAmount("10.01"))), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, c.SetDiscount(pricing.FixedDiscount(-1)), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, c.SetDiscount(pricing.PercentageDiscount(money.Percent(120))), errs.ErrInvalidDiscount)

	require.NoError(t, c.SetDiscount(pricing.PercentageDiscount(money.Percent(25))))
	assert.Equal(t, money.MustParseAmount("7.50"), c.Snapshot().Totals.GrandTotal)

	c.ClearDiscount()
	assert.Equal(t, money.MustParseAmount("10.00"), c.Snapshot().Totals.GrandTotal)
}

func TestCart_FixedDiscountCappedAfterRemoval(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "10.00", 0), pieceProduct("2", "2.00", 0)), uuid.New())
	_, _ = c.AddItem(ctx, "1", money.Units(1))
	_, _ = c.AddItem(ctx, "2", money.Units(1))
	require.NoError(t, c.SetDiscount(pricing.FixedDiscount(money.MustParseAmount("8.00"))))

	require.NoError(t, c.RemoveLine(0))
	totals := c.Snapshot().Totals
	assert.Equal(t, money.MustParseAmount("2.00"), totals.Discount)
	assert.Equal(t, money.Amount(0), totals.GrandTotal)
}

func TestCart_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	c := New(newStubCatalog(pieceProduct("1", "10.00", 0)), uuid.New())
	_, _ = c.AddItem(ctx, "1", money.Units(1))

	snap := c.Snapshot()
	snap.Lines[0].Quantity = money.Units(99)

	assert.Equal(t, money.Units(1), c.Snapshot().Lines[0].Quantity)
	assert.Equal(t, c.Snapshot(), c.Snapshot())
}

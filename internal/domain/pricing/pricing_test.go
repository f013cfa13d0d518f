package pricing

import (
	"testing"

	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name         string
		price        string
		rate         money.Rate
		qty          string
		wantSubtotal string
		wantTax      string
	}{
		{name: "pieces with tax", price: "10.00", rate: money.Percent(16), qty: "3", wantSubtotal: "30.00", wantTax: "4.80"},
		{name: "weight", price: "25.00", rate: 0, qty: "0.250", wantSubtotal: "6.25", wantTax: "0.00"},
		{name: "half rounds to even down", price: "0.50", rate: 0, qty: "0.250", wantSubtotal: "0.12", wantTax: "0.00"},
		{name: "half rounds to even up", price: "0.54", rate: 0, qty: "0.250", wantSubtotal: "0.14", wantTax: "0.00"},
		{name: "tax rounds per line", price: "1.15", rate: money.Percent(10), qty: "1", wantSubtotal: "1.15", wantTax: "0.12"},
		{name: "fractional rate", price: "19.99", rate: money.Rate(825), qty: "2", wantSubtotal: "39.98", wantTax: "3.30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PriceLine(money.MustParseAmount(tt.price), tt.rate, money.MustParseQuantity(tt.qty))
			require.NoError(t, err)
			assert.Equal(t, money.MustParseAmount(tt.wantSubtotal), got.Subtotal)
			assert.Equal(t, money.MustParseAmount(tt.wantTax), got.Tax)
		})
	}
}

func TestPriceProduct(t *testing.T) {
	p := &entity.Product{UnitPrice: money.MustParseAmount("10.00"), TaxRate: money.Percent(16)}
	got, err := PriceProduct(p, money.Units(3))
	require.NoError(t, err)
	assert.Equal(t, LinePrice{Subtotal: 3000, Tax: 480}, got)
}

func TestPriceLineRejectsOverflow(t *testing.T) {
	price := money.MustParseAmount("10000000000.00")
	qty := money.MustParseQuantity("1000000")

	_, err := PriceLine(price, 0, qty)
	assert.ErrorIs(t, err, errs.ErrAmountOutOfRange)

	_, err = PriceLine(money.MaxAmount, money.Percent(200), money.Units(1))
	assert.ErrorIs(t, err, errs.ErrAmountOutOfRange)

	got, err := PriceLine(money.MaxAmount, 0, money.Units(1))
	require.NoError(t, err)
	assert.Equal(t, money.MaxAmount, got.Subtotal)
}

func TestTotals_CheckRange(t *testing.T) {
	ok := Compute([]LinePrice{{Subtotal: money.MaxAmount}}, NoDiscount())
	assert.NoError(t, ok.CheckRange())

	over := Compute([]LinePrice{{Subtotal: money.MaxAmount}, {Subtotal: 1}}, NoDiscount())
	assert.ErrorIs(t, over.CheckRange(), errs.ErrAmountOutOfRange)
}

func TestCompute(t *testing.T) {
	lines := []LinePrice{{Subtotal: 3000, Tax: 480}}

	t.Run("fixed discount", func(t *testing.T) {
		totals := Compute(lines, FixedDiscount(money.MustParseAmount("5.00")))
		assert.Equal(t, money.MustParseAmount("30.00"), totals.Subtotal)
		assert.Equal(t, money.MustParseAmount("5.00"), totals.Discount)
		assert.Equal(t, money.MustParseAmount("4.80"), totals.Tax)
		assert.Equal(t, money.MustParseAmount("29.80"), totals.GrandTotal)
		assert.True(t, totals.Balanced())
	})

	t.Run("percentage discount", func(t *testing.T) {
		totals := Compute(lines, PercentageDiscount(money.Percent(10)))
		assert.Equal(t, money.MustParseAmount("3.00"), totals.Discount)
		assert.Equal(t, money.MustParseAmount("31.80"), totals.GrandTotal)
	})

	t.Run("fixed discount is capped at subtotal", func(t *testing.T) {
		totals := Compute(lines, FixedDiscount(money.MustParseAmount("50.00")))
		assert.Equal(t, totals.Subtotal, totals.Discount)
		assert.Equal(t, money.MustParseAmount("4.80"), totals.GrandTotal)
		assert.True(t, totals.Balanced())
	})

	t.Run("no lines", func(t *testing.T) {
		totals := Compute(nil, FixedDiscount(500))
		assert.Equal(t, Totals{}, totals)
	})

	t.Run("deterministic", func(t *testing.T) {
		d := PercentageDiscount(money.Rate(333))
		assert.Equal(t, Compute(lines, d), Compute(lines, d))
	})
}

func TestApplyDiscount(t *testing.T) {
	lines := []LinePrice{{Subtotal: 1000, Tax: 160}, {Subtotal: 2000, Tax: 320}}

	assert.Equal(t, money.Amount(3000), ApplyDiscount(lines, NoDiscount()))
	assert.Equal(t, money.Amount(2500), ApplyDiscount(lines, FixedDiscount(500)))
	assert.Equal(t, money.Amount(1500), ApplyDiscount(lines, PercentageDiscount(money.Percent(50))))
	assert.Equal(t, money.Amount(0), ApplyDiscount(lines, FixedDiscount(9999)))
}

func TestDiscountValidate(t *testing.T) {
	subtotal := money.MustParseAmount("30.00")

	assert.NoError(t, NoDiscount().Validate(subtotal))
	assert.NoError(t, FixedDiscount(subtotal).Validate(subtotal))
	assert.NoError(t, PercentageDiscount(money.Percent(100)).Validate(subtotal))

	assert.ErrorIs(t, FixedDiscount(-1).Validate(subtotal), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, FixedDiscount(subtotal+1).Validate(subtotal), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, PercentageDiscount(money.Percent(101)).Validate(subtotal), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, PercentageDiscount(-1).Validate(subtotal), errs.ErrInvalidDiscount)
	assert.ErrorIs(t, Discount{Kind: enum.DiscountKind("bogus")}.Validate(subtotal), errs.ErrInvalidDiscount)
}

func TestTotalsNegate(t *testing.T) {
	totals := Compute([]LinePrice{{Subtotal: 3000, Tax: 480}}, FixedDiscount(500))
	neg := totals.Negate()
	assert.Equal(t, -totals.GrandTotal, neg.GrandTotal)
	assert.True(t, neg.Balanced())
}

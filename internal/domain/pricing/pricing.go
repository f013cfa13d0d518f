// Package pricing turns quantities into money. Every function here is pure:
// the same inputs always produce the same totals, which keeps receipts and
// audits reproducible.
//
// Rounding rule: each line subtotal and each line tax is rounded half-to-even
// to two decimals, then the rounded values are summed. Discounts apply to the
// pre-tax subtotal and do not change the per-line tax.
package pricing

import (
	"fmt"

	"github.com/sangkips/pos-engine/internal/domain/entity"
	"github.com/sangkips/pos-engine/internal/domain/enum"
	"github.com/sangkips/pos-engine/internal/domain/errs"
	"github.com/sangkips/pos-engine/pkg/money"
)

// LinePrice is the priced result of one line
type LinePrice struct {
	Subtotal money.Amount `json:"subtotal"`
	Tax      money.Amount `json:"tax"`
}

// PriceLine computes subtotal = unitPrice x quantity and tax = subtotal x rate.
// A line whose subtotal or tax would exceed money.MaxAmount is rejected.
func PriceLine(unitPrice money.Amount, taxRate money.Rate, qty money.Quantity) (LinePrice, error) {
	subtotal, err := money.NewAmount(unitPrice.Decimal().Mul(qty.Decimal()))
	if err != nil {
		return LinePrice{}, fmt.Errorf("%w: %s x %s", errs.ErrAmountOutOfRange, unitPrice, qty)
	}
	tax, err := money.NewAmount(subtotal.Decimal().Mul(taxRate.Fraction()))
	if err != nil {
		return LinePrice{}, fmt.Errorf("%w: tax on %s at %s%%", errs.ErrAmountOutOfRange, subtotal, taxRate)
	}
	return LinePrice{Subtotal: subtotal, Tax: tax}, nil
}

// PriceProduct prices qty of p at its current catalog price and tax rate
func PriceProduct(p *entity.Product, qty money.Quantity) (LinePrice, error) {
	return PriceLine(p.UnitPrice, p.TaxRate, qty)
}

// Discount is an optional cart-wide discount
type Discount struct {
	Kind    enum.DiscountKind `json:"kind"`
	Percent money.Rate        `json:"percent"`
	Amount  money.Amount      `json:"amount"`
}

// NoDiscount returns the empty discount
func NoDiscount() Discount {
	return Discount{Kind: enum.DiscountKindNone}
}

// PercentageDiscount returns a discount of r percent of the subtotal
func PercentageDiscount(r money.Rate) Discount {
	return Discount{Kind: enum.DiscountKindPercentage, Percent: r}
}

// FixedDiscount returns a discount of a fixed amount
func FixedDiscount(a money.Amount) Discount {
	return Discount{Kind: enum.DiscountKindFixed, Amount: a}
}

// IsZero reports whether the discount takes nothing off
func (d Discount) IsZero() bool {
	switch d.Kind {
	case enum.DiscountKindPercentage:
		return d.Percent == 0
	case enum.DiscountKindFixed:
		return d.Amount == 0
	default:
		return true
	}
}

// Validate checks the discount against the current subtotal
func (d Discount) Validate(subtotal money.Amount) error {
	switch d.Kind {
	case "", enum.DiscountKindNone:
		return nil
	case enum.DiscountKindPercentage:
		if d.Percent < 0 || d.Percent > money.Percent(100) {
			return fmt.Errorf("%w: percentage must be between 0 and 100, got %s", errs.ErrInvalidDiscount, d.Percent)
		}
		return nil
	case enum.DiscountKindFixed:
		if d.Amount < 0 {
			return fmt.Errorf("%w: amount cannot be negative", errs.ErrInvalidDiscount)
		}
		if d.Amount > subtotal {
			return fmt.Errorf("%w: %s exceeds the subtotal %s", errs.ErrInvalidDiscount, d.Amount, subtotal)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", errs.ErrInvalidDiscount, d.Kind)
	}
}

// AmountOn returns how much the discount takes off subtotal. The result is
// never negative and never larger than subtotal.
func (d Discount) AmountOn(subtotal money.Amount) money.Amount {
	if subtotal <= 0 {
		return 0
	}

	var off money.Amount
	switch d.Kind {
	case enum.DiscountKindPercentage:
		var err error
		if off, err = money.NewAmount(subtotal.Decimal().Mul(d.Percent.Fraction())); err != nil {
			return subtotal
		}
	case enum.DiscountKindFixed:
		off = d.Amount
	}

	if off < 0 {
		return 0
	}
	if off > subtotal {
		return subtotal
	}
	return off
}

// ApplyDiscount returns the pre-tax total of lines after the discount
func ApplyDiscount(lines []LinePrice, d Discount) money.Amount {
	subtotal := sumSubtotals(lines)
	return subtotal - d.AmountOn(subtotal)
}

// Totals are the derived figures of a cart or sale
type Totals struct {
	Subtotal   money.Amount `json:"subtotal"`
	Discount   money.Amount `json:"discount"`
	Tax        money.Amount `json:"tax"`
	GrandTotal money.Amount `json:"grand_total"`
}

// Compute sums the priced lines and applies the discount
func Compute(lines []LinePrice, d Discount) Totals {
	var t Totals
	t.Subtotal = sumSubtotals(lines)
	for _, l := range lines {
		t.Tax += l.Tax
	}
	t.Discount = d.AmountOn(t.Subtotal)
	t.GrandTotal = t.Subtotal - t.Discount + t.Tax
	return t
}

// Balanced reports whether subtotal - discount + tax == grand total
func (t Totals) Balanced() bool {
	return t.Subtotal-t.Discount+t.Tax == t.GrandTotal
}

// CheckRange reports figures beyond money.MaxAmount
func (t Totals) CheckRange() error {
	for _, a := range []money.Amount{t.Subtotal, t.Tax, t.GrandTotal} {
		if a > money.MaxAmount || a < -money.MaxAmount {
			return fmt.Errorf("%w: total %s", errs.ErrAmountOutOfRange, a)
		}
	}
	return nil
}

// Negate returns the totals with every figure sign-flipped
func (t Totals) Negate() Totals {
	return Totals{
		Subtotal:   -t.Subtotal,
		Discount:   -t.Discount,
		Tax:        -t.Tax,
		GrandTotal: -t.GrandTotal,
	}
}

func sumSubtotals(lines []LinePrice) money.Amount {
	var total money.Amount
	for _, l := range lines {
		total += l.Subtotal
	}
	return total
}

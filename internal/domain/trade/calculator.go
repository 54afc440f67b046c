package trade

import (
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared"
	"github.com/Massea0/entrepriseOS-complete-sub002/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places kept for prices, percentages and line amounts.
// It matches the DECIMAL(18,4) and DECIMAL(7,4) columns, so stored values reload unchanged.
const AmountScale int32 = 4

var hundred = decimal.NewFromInt(100)

// fitsScale reports whether d needs no rounding at AmountScale
func fitsScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(AmountScale))
}

// LineAmounts holds the money breakdown of one line
type LineAmounts struct {
	Subtotal valueobject.Money
	Discount valueobject.Money
	Tax      valueobject.Money
	Total    valueobject.Money
}

// OrderTotals holds the money breakdown of a whole order
type OrderTotals struct {
	Subtotal      valueobject.Money
	DiscountTotal valueobject.Money
	TaxTotal      valueobject.Money
	Total         valueobject.Money
}

// ZeroTotals returns all-zero totals in the given currency
func ZeroTotals(currency valueobject.Currency) OrderTotals {
	zero := valueobject.Zero(currency)
	return OrderTotals{Subtotal: zero, DiscountTotal: zero, TaxTotal: zero, Total: zero}
}

// Equals compares every component of both totals exactly
func (t OrderTotals) Equals(other OrderTotals) bool {
	return t.Subtotal.Equals(other.Subtotal) &&
		t.DiscountTotal.Equals(other.DiscountTotal) &&
		t.TaxTotal.Equals(other.TaxTotal) &&
		t.Total.Equals(other.Total)
}

// ComputeLine prices a single line:
//
//	subtotal = quantity × unitPrice
//	discount = subtotal × discount% / 100
//	tax      = (subtotal − discount) × tax% / 100
//	total    = subtotal − discount + tax
//
// Subtotal, discount and tax are rounded half away from zero to AmountScale.
// The total is the exact sum of the rounded parts.
func ComputeLine(quantity int64, unitPrice valueobject.Money, discountPercent, taxPercent decimal.Decimal) LineAmounts {
	currency := unitPrice.Currency()
	subtotal := unitPrice.Amount().Mul(decimal.NewFromInt(quantity)).Round(AmountScale)
	discount := subtotal.Mul(discountPercent).Div(hundred).Round(AmountScale)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxPercent).Div(hundred).Round(AmountScale)

	return LineAmounts{
		Subtotal: valueobject.MustMoney(subtotal, currency),
		Discount: valueobject.MustMoney(discount, currency),
		Tax:      valueobject.MustMoney(tax, currency),
		Total:    valueobject.MustMoney(taxable.Add(tax), currency),
	}
}

// ComputeTotals sums line amounts into order totals.
// Every line must be priced in the order currency.
func ComputeTotals(currency valueobject.Currency, lines []OrderLineItem) (OrderTotals, error) {
	totals := ZeroTotals(currency)
	for i := range lines {
		line := &lines[i]
		if line.UnitPrice.Currency() != currency {
			return OrderTotals{}, shared.NewDomainErrorf(shared.CodeCurrencyMismatch,
				"line %s is priced in %s but the order currency is %s", line.ProductCode, line.UnitPrice.Currency(), currency)
		}
		amounts := line.Amounts()

		var err error
		if totals.Subtotal, err = totals.Subtotal.Add(amounts.Subtotal); err != nil {
			return OrderTotals{}, shared.NewDomainError(shared.CodeCurrencyMismatch, err.Error())
		}
		if totals.DiscountTotal, err = totals.DiscountTotal.Add(amounts.Discount); err != nil {
			return OrderTotals{}, shared.NewDomainError(shared.CodeCurrencyMismatch, err.Error())
		}
		if totals.TaxTotal, err = totals.TaxTotal.Add(amounts.Tax); err != nil {
			return OrderTotals{}, shared.NewDomainError(shared.CodeCurrencyMismatch, err.Error())
		}
		if totals.Total, err = totals.Total.Add(amounts.Total); err != nil {
			return OrderTotals{}, shared.NewDomainError(shared.CodeCurrencyMismatch, err.Error())
		}
	}
	return totals, nil
}

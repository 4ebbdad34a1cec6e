package pricing

import (
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var (
	DefaultProfitMargin = decimal.RequireFromString("0.40")
	DefaultVAT          = decimal.RequireFromString("0.09")

	hundred = decimal.NewFromInt(100)
)

// Engine prices menu items with a fixed margin and VAT. All arithmetic is
// fixed point; results are rounded half up to cents.
type Engine struct {
	margin decimal.Decimal
	vat    decimal.Decimal
}

func NewEngine(margin, vat decimal.Decimal) *Engine {
	return &Engine{margin: margin, vat: vat}
}

func NewDefaultEngine() *Engine {
	return NewEngine(DefaultProfitMargin, DefaultVAT)
}

func (e *Engine) FinalUnitPrice(basePrice decimal.Decimal) decimal.Decimal {
	return FinalUnitPrice(basePrice, e.margin, e.vat)
}

func FinalUnitPrice(basePrice, margin, vat decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	return basePrice.Mul(one.Add(margin)).Mul(one.Add(vat)).Round(moneyPlaces)
}

// ApplyDiscount returns the discount amount and the discounted total for a
// subtotal and a percentage in the 0..100 range.
func ApplyDiscount(subtotal, percentage decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	discount := subtotal.Mul(percentage).Div(hundred).Round(moneyPlaces)
	return discount, subtotal.Sub(discount)
}

// CombinePercentages sums discount percentages additively, capped at 100.
func CombinePercentages(percentages ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range percentages {
		if p.IsNegative() {
			continue
		}
		total = total.Add(p)
	}
	if total.GreaterThan(hundred) {
		return hundred
	}
	return total
}

func Subtotal(lines ...decimal.Decimal) decimal.Decimal {
	return decimal.Sum(decimal.Zero, lines...)
}

package services

import "github.com/shopspring/decimal"

var (
	// QuantityDiscountRate applies when a checkout holds at least QuantityDiscountMinItems units.
	QuantityDiscountRate = decimal.RequireFromString("0.05")
	// LoyaltyDiscountRate applies when the buyer has at least LoyaltyMinOpenOrders open orders.
	LoyaltyDiscountRate = decimal.RequireFromString("0.10")
)

const (
	QuantityDiscountMinItems = 5
	LoyaltyMinOpenOrders     = 10
)

func QuantityDiscount(totalItems int) decimal.Decimal {
	if totalItems >= QuantityDiscountMinItems {
		return QuantityDiscountRate
	}
	return decimal.Zero
}

func LoyaltyDiscount(openOrders int) decimal.Decimal {
	if openOrders >= LoyaltyMinOpenOrders {
		return LoyaltyDiscountRate
	}
	return decimal.Zero
}

// CombineDiscounts compounds two rates so neither is counted twice: q + l - q*l.
func CombineDiscounts(q, l decimal.Decimal) decimal.Decimal {
	return q.Add(l).Sub(q.Mul(l))
}

// DiscountedPrice is price * (1 - fraction), unrounded.
func DiscountedPrice(price, fraction decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(fraction))
}

// LineTotal is unit * qty * (1 - combined), rounded to cents.
func LineTotal(unit decimal.Decimal, qty int, combined decimal.Decimal) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty))).Mul(decimal.NewFromInt(1).Sub(combined)).Round(2)
}

package commission

import (
	"github.com/shopspring/decimal"
)

// Marketplace split percentages. These are design constants of the
// marketplace, not per-order configuration.
var (
	merchantRate = decimal.New(75, -2)
	platformRate = decimal.New(20, -2)
	hotelRate    = decimal.New(5, -2)
)

// Split is the three-way division of an order total.
type Split struct {
	Merchant decimal.Decimal `json:"merchant"`
	Platform decimal.Decimal `json:"platform"`
	Hotel    decimal.Decimal `json:"hotel"`
}

// Calculate computes the merchant/platform/hotel split of a total. Each
// component rounds independently to 2 decimal places; rounding drift of up to
// a cent against the total is accepted and never redistributed.
func Calculate(total decimal.Decimal) Split {
	return Split{
		Merchant: total.Mul(merchantRate).Round(2),
		Platform: total.Mul(platformRate).Round(2),
		Hotel:    total.Mul(hotelRate).Round(2),
	}
}

package order

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/catering-kart/pkg/kartclient/cart"
)

var (
	// DeliveryFee is the flat fee added to every order.
	DeliveryFee = decimal.NewFromInt(50)
	// TaxRate is applied to the subtotal.
	TaxRate = decimal.RequireFromString("0.05")
	// MaxTotal is the largest order total accepted at checkout.
	MaxTotal = decimal.NewFromInt(1_000_000_000)
)

// Quote is the server-side price breakdown of a set of lines.
type Quote struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// QuoteLines prices lines: subtotal is the sum of unit price × guests ×
// quantity, tax is TaxRate of the subtotal, and the total adds DeliveryFee.
// Monetary results are rounded to 2 decimal places.
func QuoteLines(lines []cart.Line) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(cart.LineTotal(l.UnitPrice, l.GuestCount, l.Quantity))
	}
	tax := subtotal.Mul(TaxRate).Round(2)
	subtotal = subtotal.Round(2)
	return Quote{
		Subtotal:    subtotal,
		DeliveryFee: DeliveryFee,
		Tax:         tax,
		Total:       subtotal.Add(DeliveryFee).Add(tax).Round(2),
	}
}

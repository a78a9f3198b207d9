package basket

import (
	"github.com/shopspring/decimal"
)

// ReceiptLine is a priced line item.
type ReceiptLine struct {
	Code      string
	Name      string
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
	Rule      string
}

// Offer tells the customer how many more units of a product complete the
// next discount group.
type Offer struct {
	Code   string
	Rule   string
	Needed int
}

// Receipt is a priced snapshot of the basket.
type Receipt struct {
	Lines    []ReceiptLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Offers   []Offer
}

// Receipt prices the basket and returns the itemised result. Total matches
// what Total returns for the same contents.
func (b *Basket) Receipt() Receipt {
	priced := priceItems(b.items, b.rules)

	rc := Receipt{
		Lines:    make([]ReceiptLine, len(priced)),
		Subtotal: b.subtotal.Round(2),
	}
	sum := decimal.Zero
	for i, p := range priced {
		rc.Lines[i] = ReceiptLine{
			Code:      p.Code,
			Name:      p.Name,
			UnitPrice: p.UnitPrice,
			Price:     p.Price,
			Rule:      p.Rule,
		}
		sum = sum.Add(p.Price)
	}
	rc.Total = sum.Round(2)
	rc.Discount = rc.Subtotal.Sub(rc.Total)

	for _, code := range uniqueCodes(b.items) {
		r, ok := b.rules.Lookup(code)
		if !ok {
			continue
		}
		if n := r.UnitsToNextGroup(quantityOf(b.items, code)); n > 0 {
			rc.Offers = append(rc.Offers, Offer{Code: code, Rule: r.Name, Needed: n})
		}
	}
	return rc
}

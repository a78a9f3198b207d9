package basket

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/basket-checkout/internal/domain/pricing"
)

// pricedItem is a line item together with the price charged for it.
type pricedItem struct {
	LineItem
	Price decimal.Decimal
	// Rule is the name of the promotion that priced the item, empty when the
	// item is charged its full unit price.
	Rule string
}

// priceItems computes the charged price of every item without mutating the
// items. Each product's complete discount groups are priced by its rule in
// add order; the remainder is charged full price.
func priceItems(items []LineItem, rules pricing.Table) []pricedItem {
	out := make([]pricedItem, len(items))
	for i, it := range items {
		out[i] = pricedItem{LineItem: it, Price: it.UnitPrice}
	}

	for _, code := range uniqueCodes(items) {
		r, ok := rules.Lookup(code)
		if !ok {
			continue
		}
		n := r.QuantifyingCount(quantityOf(items, code))
		if n == 0 {
			continue
		}
		applyRule(out, code, r, n)
	}
	return out
}

// applyRule prices the first n items with the given code.
func applyRule(items []pricedItem, code string, r pricing.Rule, n int) {
	applied := 0
	for i := range items {
		if applied == n {
			return
		}
		if items[i].Code != code {
			continue
		}
		items[i].Price = r.PriceAt(applied, items[i].UnitPrice)
		items[i].Rule = r.Name
		applied++
	}
}

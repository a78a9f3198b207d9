// Package basket holds the items of a single checkout session and prices
// them against a rule table.
//
// A Basket is not safe for concurrent use; callers must serialise Add and
// Total for a given instance.
package basket

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
)

// LineItem is a single unit added to the basket. UnitPrice is copied from the
// catalog when the item is added.
type LineItem struct {
	Code      string
	Name      string
	UnitPrice decimal.Decimal
}

// Option configures a Basket.
type Option func(*Basket)

// WithLogger sets the logger used to report ignored product codes.
func WithLogger(lg *zap.Logger) Option {
	return func(b *Basket) {
		if lg != nil {
			b.lg = lg
		}
	}
}

// Basket is an ordered collection of line items bound to a catalog and an
// immutable rule table.
type Basket struct {
	catalog  product.Resolver
	rules    pricing.Table
	items    []LineItem
	subtotal decimal.Decimal
	lg       *zap.Logger
}

// New creates an empty basket.
func New(catalog product.Resolver, rules pricing.Table, opts ...Option) *Basket {
	b := &Basket{
		catalog:  catalog,
		rules:    rules,
		subtotal: decimal.Zero,
		lg:       zap.NewNop(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Add appends one unit of the product identified by code. Codes missing from
// the catalog are ignored.
func (b *Basket) Add(code string) {
	p, ok := b.catalog.Resolve(code)
	if !ok {
		b.lg.Debug("Ignoring unknown product code", zap.String("code", code))
		return
	}
	b.items = append(b.items, LineItem{
		Code:      p.Code,
		Name:      p.Name,
		UnitPrice: p.Price,
	})
	b.subtotal = b.subtotal.Add(p.Price)
}

// Total returns the basket price after discounts, rounded to two decimal places.
func (b *Basket) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range priceItems(b.items, b.rules) {
		sum = sum.Add(l.Price)
	}
	return sum.Round(2)
}

// Subtotal returns the sum of full unit prices of all items.
func (b *Basket) Subtotal() decimal.Decimal {
	return b.subtotal
}

// ItemCount returns the number of units in the basket.
func (b *Basket) ItemCount() int {
	return len(b.items)
}

// Items returns a copy of the line items in add order.
func (b *Basket) Items() []LineItem {
	out := make([]LineItem, len(b.items))
	copy(out, b.items)
	return out
}

// SimilarItems returns the items with the given code in add order.
func (b *Basket) SimilarItems(code string) []LineItem {
	var out []LineItem
	for _, it := range b.items {
		if it.Code == code {
			out = append(out, it)
		}
	}
	return out
}

// QuantityOf returns the number of units held for code.
func (b *Basket) QuantityOf(code string) int {
	return quantityOf(b.items, code)
}

// UniqueCodes returns the distinct product codes in first-seen order.
func (b *Basket) UniqueCodes() []string {
	return uniqueCodes(b.items)
}

// QuantifyingCount returns how many units of code are covered by complete
// discount groups. Products without a rule never qualify.
func (b *Basket) QuantifyingCount(code string) int {
	r, ok := b.rules.Lookup(code)
	if !ok {
		return 0
	}
	return r.QuantifyingCount(b.QuantityOf(code))
}

// UnitsToNextDiscount reports how many more units of code would complete the
// next discount group. The second value is false when code has no rule.
func (b *Basket) UnitsToNextDiscount(code string) (int, bool) {
	r, ok := b.rules.Lookup(code)
	if !ok {
		return 0, false
	}
	return r.UnitsToNextGroup(b.QuantityOf(code)), true
}

func quantityOf(items []LineItem, code string) int {
	n := 0
	for _, it := range items {
		if it.Code == code {
			n++
		}
	}
	return n
}

func uniqueCodes(items []LineItem) []string {
	seen := make(map[string]struct{}, len(items))
	var codes []string
	for _, it := range items {
		if _, ok := seen[it.Code]; ok {
			continue
		}
		seen[it.Code] = struct{}{}
		codes = append(codes, it.Code)
	}
	return codes
}

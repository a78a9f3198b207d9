package pricing

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidRule is returned when a rule loaded from an external source
// cannot be applied.
var ErrInvalidRule = errors.New("invalid pricing rule")

// Rule describes a per-product multi-unit promotion.
//
// Every complete group of QualifyingQuantity units is discounted. Units inside
// the discounted groups are priced from UnitPrices in add order, cycling
// through the sequence when there are more discounted units than entries. A
// null entry keeps the unit at its full catalog price.
type Rule struct {
	// Name is the promotion label, e.g. "BOGOF".
	Name               string
	ProductCode        string
	QualifyingQuantity int
	UnitPrices         []decimal.NullDecimal
}

// QuantifyingCount returns how many of quantity units fall into complete
// discount groups.
func (r Rule) QuantifyingCount(quantity int) int {
	if r.QualifyingQuantity < 1 || quantity < r.QualifyingQuantity {
		return 0
	}
	return quantity - quantity%r.QualifyingQuantity
}

// PriceAt returns the price for the discounted unit at position pos (zero
// based, counted in add order) whose catalog price is full.
func (r Rule) PriceAt(pos int, full decimal.Decimal) decimal.Decimal {
	if len(r.UnitPrices) == 0 || pos < 0 {
		return full
	}
	p := r.UnitPrices[pos%len(r.UnitPrices)]
	if !p.Valid {
		return full
	}
	return p.Decimal
}

// UnitsToNextGroup reports how many more units complete the next discount
// group when quantity units are held. It returns 0 when the held units already
// form complete groups.
func (r Rule) UnitsToNextGroup(quantity int) int {
	if r.QualifyingQuantity < 1 || quantity < 0 {
		return 0
	}
	rem := quantity % r.QualifyingQuantity
	if rem == 0 && quantity > 0 {
		return 0
	}
	return r.QualifyingQuantity - rem
}

// Validate checks that the rule is applicable.
func (r Rule) Validate() error {
	if r.ProductCode == "" {
		return errors.Wrap(ErrInvalidRule, "product code is empty")
	}
	if r.QualifyingQuantity < 1 {
		return errors.Wrapf(ErrInvalidRule, "rule for %s: qualifying quantity %d must be at least 1",
			r.ProductCode, r.QualifyingQuantity)
	}
	if len(r.UnitPrices) == 0 {
		return errors.Wrapf(ErrInvalidRule, "rule for %s: no unit prices", r.ProductCode)
	}
	for i, p := range r.UnitPrices {
		if p.Valid && p.Decimal.IsNegative() {
			return errors.Wrapf(ErrInvalidRule, "rule for %s: unit price %d is negative", r.ProductCode, i)
		}
	}
	return nil
}

// Repository provides the rule table from an external source.
type Repository interface {
	List(ctx context.Context) ([]Rule, error)
}

package pricing

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// Table maps product codes to their pricing rule. It is read-only once built.
type Table map[string]Rule

// NewTable indexes rules by product code. Later duplicates replace earlier ones.
func NewTable(rules ...Rule) Table {
	t := make(Table, len(rules))
	for _, r := range rules {
		t[r.ProductCode] = r
	}
	return t
}

// BuildTable validates rules and indexes them by product code. At most one
// rule per product is allowed.
func BuildTable(rules []Rule) (Table, error) {
	t := make(Table, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t[r.ProductCode]; dup {
			return nil, errors.Wrapf(ErrInvalidRule, "duplicate rule for %s", r.ProductCode)
		}
		t[r.ProductCode] = r
	}
	return t, nil
}

// Lookup returns the rule for the product code, if any.
func (t Table) Lookup(code string) (Rule, bool) {
	r, ok := t[code]
	return r, ok
}

// List returns all rules ordered by product code.
func (t Table) List() []Rule {
	out := make([]Rule, 0, len(t))
	for _, r := range t {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Rule) int {
		return strings.Compare(a.ProductCode, b.ProductCode)
	})
	return out
}

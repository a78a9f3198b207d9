package product

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

// Resolver looks up a product by its code.
type Resolver interface {
	Resolve(code string) (Product, bool)
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
}

var _ Resolver = Catalog(nil)

// Catalog is an immutable mapping from product code to product.
type Catalog map[string]Product

// NewCatalog indexes products by code. Later duplicates replace earlier ones.
func NewCatalog(products ...Product) Catalog {
	c := make(Catalog, len(products))
	for _, p := range products {
		c[p.Code] = p
	}
	return c
}

// Resolve returns the product registered under code. Unknown codes report false.
func (c Catalog) Resolve(code string) (Product, bool) {
	p, ok := c[code]
	return p, ok
}

// Get is like Resolve but returns ErrNotFound for unknown codes.
func (c Catalog) Get(code string) (Product, error) {
	p, ok := c[code]
	if !ok {
		return Product{}, errors.Wrapf(ErrNotFound, "code %q", code)
	}
	return p, nil
}

// List returns all products ordered by code.
func (c Catalog) List() []Product {
	out := make([]Product, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int {
		return strings.Compare(a.Code, b.Code)
	})
	return out
}

// Package yamlfile loads the product catalog and pricing rules from a YAML
// document.
//
// The document has the form:
//
//	products:
//	  - code: FR1
//	    name: Fruit tea
//	    price: "3.11"
//	rules:
//	  - name: BOGOF
//	    product: FR1
//	    qualifying_quantity: 2
//	    unit_prices: [null, "0"]
//
// A null unit price keeps the unit at its catalog price. Files ending in .gz
// are decompressed transparently.
package yamlfile

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/xenking/basket-checkout/db"
	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
)

type document struct {
	Products []productDoc `yaml:"products"`
	Rules    []ruleDoc    `yaml:"rules"`
}

type productDoc struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
}

type ruleDoc struct {
	Name               string    `yaml:"name"`
	Product            string    `yaml:"product"`
	QualifyingQuantity int       `yaml:"qualifying_quantity"`
	UnitPrices         []*string `yaml:"unit_prices"`
}

// Store holds a parsed catalog and rule table in memory.
type Store struct {
	catalog product.Catalog
	rules   pricing.Table
}

// Open reads the document at path.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	s, err := Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return s, nil
}

// Default returns the store built from the embedded default catalog.
func Default() (*Store, error) {
	return Parse(bytes.NewReader(db.DefaultCatalog))
}

// Parse decodes and validates a document.
func Parse(r io.Reader) (*Store, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decode yaml")
	}

	catalog, err := buildCatalog(doc.Products)
	if err != nil {
		return nil, err
	}

	rules := make([]pricing.Rule, len(doc.Rules))
	for i, rd := range doc.Rules {
		r, err := rd.rule()
		if err != nil {
			return nil, err
		}
		if _, ok := catalog.Resolve(r.ProductCode); !ok {
			return nil, errors.Wrapf(pricing.ErrInvalidRule, "rule %s: unknown product %q", r.Name, r.ProductCode)
		}
		rules[i] = r
	}
	table, err := pricing.BuildTable(rules)
	if err != nil {
		return nil, err
	}

	return &Store{catalog: catalog, rules: table}, nil
}

func buildCatalog(docs []productDoc) (product.Catalog, error) {
	catalog := make(product.Catalog, len(docs))
	for _, pd := range docs {
		if pd.Code == "" {
			return nil, errors.New("product with empty code")
		}
		if _, dup := catalog[pd.Code]; dup {
			return nil, errors.Errorf("duplicate product %q", pd.Code)
		}
		price, err := decimal.NewFromString(pd.Price)
		if err != nil {
			return nil, errors.Wrapf(err, "product %s: parse price", pd.Code)
		}
		if price.IsNegative() {
			return nil, errors.Errorf("product %s: negative price %s", pd.Code, price)
		}
		catalog[pd.Code] = product.Product{Code: pd.Code, Name: pd.Name, Price: price}
	}
	return catalog, nil
}

func (rd ruleDoc) rule() (pricing.Rule, error) {
	r := pricing.Rule{
		Name:               rd.Name,
		ProductCode:        rd.Product,
		QualifyingQuantity: rd.QualifyingQuantity,
		UnitPrices:         make([]decimal.NullDecimal, len(rd.UnitPrices)),
	}
	for i, p := range rd.UnitPrices {
		if p == nil {
			continue
		}
		v, err := decimal.NewFromString(*p)
		if err != nil {
			return pricing.Rule{}, errors.Wrapf(err, "rule %s: parse unit price %d", rd.Name, i)
		}
		r.UnitPrices[i] = decimal.NewNullDecimal(v)
	}
	return r, nil
}

// Catalog returns the parsed catalog.
func (s *Store) Catalog() product.Catalog {
	return s.catalog
}

// Rules returns the parsed rule table.
func (s *Store) Rules() pricing.Table {
	return s.rules
}

// ProductRepository returns a product.Repository view of the store.
func (s *Store) ProductRepository() product.Repository {
	return productRepository{catalog: s.catalog}
}

// RuleRepository returns a pricing.Repository view of the store.
func (s *Store) RuleRepository() pricing.Repository {
	return ruleRepository{rules: s.rules}
}

type productRepository struct {
	catalog product.Catalog
}

func (r productRepository) List(_ context.Context) ([]product.Product, error) {
	return r.catalog.List(), nil
}

type ruleRepository struct {
	rules pricing.Table
}

func (r ruleRepository) List(_ context.Context) ([]pricing.Rule, error) {
	return r.rules.List(), nil
}

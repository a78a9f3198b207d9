package yamlfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/basket-checkout/internal/domain/basket"
	"github.com/xenking/basket-checkout/internal/domain/pricing"
)

const sampleDoc = `
products:
  - code: FR1
    name: Fruit tea
    price: 3.11
  - code: SR1
    name: Strawberries
    price: "5.00"
rules:
  - name: BOGOF
    product: FR1
    qualifying_quantity: 2
    unit_prices: [null, 0]
`

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	products := s.Catalog().List()
	require.Len(t, products, 3)
	assert.Equal(t, "CF1", products[0].Code)
	assert.Equal(t, "Coffee", products[0].Name)
	assert.True(t, decimal.RequireFromString("11.23").Equal(products[0].Price))

	bogof, ok := s.Rules().Lookup("FR1")
	require.True(t, ok)
	assert.Equal(t, "BOGOF", bogof.Name)
	assert.Equal(t, 2, bogof.QualifyingQuantity)
	require.Len(t, bogof.UnitPrices, 2)
	assert.False(t, bogof.UnitPrices[0].Valid)
	assert.True(t, bogof.UnitPrices[1].Valid)
	assert.True(t, bogof.UnitPrices[1].Decimal.IsZero())

	multibuy, ok := s.Rules().Lookup("SR1")
	require.True(t, ok)
	assert.Equal(t, 3, multibuy.QualifyingQuantity)
	assert.Len(t, multibuy.UnitPrices, 3)
}

func TestDefault_PricesBasket(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	b := basket.New(s.Catalog(), s.Rules())
	for _, c := range []string{"SR1", "SR1", "FR1", "SR1"} {
		b.Add(c)
	}
	assert.Equal(t, "16.61", b.Total().StringFixed(2))
}

func TestParse_UnquotedNumbers(t *testing.T) {
	s, err := Parse(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	p, ok := s.Catalog().Resolve("FR1")
	require.True(t, ok)
	assert.Equal(t, "3.11", p.Price.StringFixed(2))

	r, ok := s.Rules().Lookup("FR1")
	require.True(t, ok)
	assert.True(t, r.UnitPrices[1].Valid)
}

func TestParse_Empty(t *testing.T) {
	s, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, s.Catalog())
	assert.Empty(t, s.Rules())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
		wantIs  error
	}{
		{
			name:    "unknown field",
			doc:     "products:\n  - code: A\n    name: A\n    price: '1'\n    colour: red\n",
			wantErr: "decode yaml",
		},
		{
			name:    "duplicate product",
			doc:     "products:\n  - {code: A, name: A, price: '1'}\n  - {code: A, name: B, price: '2'}\n",
			wantErr: `duplicate product "A"`,
		},
		{
			name:    "bad price",
			doc:     "products:\n  - {code: A, name: A, price: cheap}\n",
			wantErr: "product A: parse price",
		},
		{
			name:    "negative price",
			doc:     "products:\n  - {code: A, name: A, price: '-1'}\n",
			wantErr: "negative price",
		},
		{
			name:   "rule for unknown product",
			doc:    "rules:\n  - {name: X, product: ZZ, qualifying_quantity: 2, unit_prices: ['1']}\n",
			wantIs: pricing.ErrInvalidRule,
		},
		{
			name:   "rule without prices",
			doc:    "products:\n  - {code: A, name: A, price: '1'}\nrules:\n  - {name: X, product: A, qualifying_quantity: 2}\n",
			wantIs: pricing.ErrInvalidRule,
		},
		{
			name:   "duplicate rule",
			doc:    "products:\n  - {code: A, name: A, price: '1'}\nrules:\n  - {name: X, product: A, qualifying_quantity: 2, unit_prices: ['1']}\n  - {name: Y, product: A, qualifying_quantity: 3, unit_prices: ['1']}\n",
			wantIs: pricing.ErrInvalidRule,
		},
		{
			name:    "bad rule price",
			doc:     "products:\n  - {code: A, name: A, price: '1'}\nrules:\n  - {name: X, product: A, qualifying_quantity: 2, unit_prices: [free]}\n",
			wantErr: "rule X: parse unit price 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestOpen_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml.gz")
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(sampleDoc))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	s, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, s.Catalog(), 2)
	assert.Len(t, s.Rules(), 1)
}

func TestOpen_Plain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDoc), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, s.Catalog(), 2)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositories(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)
	ctx := context.Background()

	products, err := s.ProductRepository().List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	rules, err := s.RuleRepository().List(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "FR1", rules[0].ProductCode)
}

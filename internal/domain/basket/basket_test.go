package basket

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
)

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(v))
}

func testCatalog() product.Catalog {
	return product.NewCatalog(
		product.Product{Code: "FR1", Name: "Fruit tea", Price: d("3.11")},
		product.Product{Code: "SR1", Name: "Strawberries", Price: d("5.00")},
		product.Product{Code: "CF1", Name: "Coffee", Price: d("11.23")},
	)
}

func testRules() pricing.Table {
	return pricing.NewTable(
		pricing.Rule{
			Name:               "BOGOF",
			ProductCode:        "FR1",
			QualifyingQuantity: 2,
			UnitPrices:         []decimal.NullDecimal{{}, price("0")},
		},
		pricing.Rule{
			Name:               "MULTIBUY3",
			ProductCode:        "SR1",
			QualifyingQuantity: 3,
			UnitPrices:         []decimal.NullDecimal{price("4.50"), price("4.50"), price("4.50")},
		},
	)
}

func newTestBasket(codes ...string) *Basket {
	b := New(testCatalog(), testRules())
	for _, c := range codes {
		b.Add(c)
	}
	return b
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "expected %s, got %s", want, got)
}

// --- Tests ---

func TestBasket_Empty(t *testing.T) {
	b := newTestBasket()

	assert.Equal(t, 0, b.ItemCount())
	assertDecimal(t, "0", b.Subtotal())
	assertDecimal(t, "0", b.Total())
	assert.Empty(t, b.UniqueCodes())
}

func TestBasket_Add(t *testing.T) {
	b := newTestBasket("FR1")
	assert.Equal(t, 1, b.ItemCount())
	assertDecimal(t, "3.11", b.Total())

	b.Add("SR1")
	assert.Equal(t, 2, b.ItemCount())
	assertDecimal(t, "8.11", b.Total())

	items := b.Items()
	require.Len(t, items, 2)
	assert.Equal(t, LineItem{Code: "FR1", Name: "Fruit tea", UnitPrice: d("3.11")}, items[0])
	assert.Equal(t, "SR1", items[1].Code)
}

func TestBasket_AddUnknownCode(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	b := New(testCatalog(), testRules(), WithLogger(zap.New(core)))
	b.Add("FR1")

	b.Add("XX9")

	assert.Equal(t, 1, b.ItemCount())
	assertDecimal(t, "3.11", b.Subtotal())
	assertDecimal(t, "3.11", b.Total())
	assert.Equal(t, 1, logs.FilterField(zap.String("code", "XX9")).Len())
}

func TestBasket_Items_ReturnsCopy(t *testing.T) {
	b := newTestBasket("FR1")

	items := b.Items()
	items[0].UnitPrice = d("0")

	assertDecimal(t, "3.11", b.Total())
}

func TestBasket_SimilarItems(t *testing.T) {
	b := newTestBasket("FR1", "FR1", "SR1")

	assert.Len(t, b.SimilarItems("FR1"), 2)
	assert.Len(t, b.SimilarItems("SR1"), 1)
	assert.Empty(t, b.SimilarItems("CF1"))
}

func TestBasket_UniqueCodes(t *testing.T) {
	b := newTestBasket("FR1", "FR1", "SR1", "SR1", "CF1")

	assert.Equal(t, []string{"FR1", "SR1", "CF1"}, b.UniqueCodes())
}

func TestBasket_UniqueCodes_FirstSeenOrder(t *testing.T) {
	b := newTestBasket("CF1", "FR1", "CF1", "SR1", "FR1")

	assert.Equal(t, []string{"CF1", "FR1", "SR1"}, b.UniqueCodes())
}

func TestBasket_RunningTotals(t *testing.T) {
	b := newTestBasket()

	steps := []struct {
		add      string
		count    int
		quantity int
		subtotal string
		total    string
	}{
		{add: "FR1", count: 1, quantity: 1, subtotal: "3.11", total: "3.11"},
		{add: "SR1", count: 2, quantity: 1, subtotal: "8.11", total: "8.11"},
		{add: "CF1", count: 3, quantity: 1, subtotal: "19.34", total: "19.34"},
	}

	for _, s := range steps {
		b.Add(s.add)
		assert.Equal(t, s.count, b.ItemCount())
		assert.Equal(t, s.quantity, b.QuantityOf(s.add))
		assertDecimal(t, s.subtotal, b.Subtotal())
		assertDecimal(t, s.total, b.Total())
	}
}

func TestBasket_BOGOF(t *testing.T) {
	b := newTestBasket()

	steps := []struct {
		subtotal string
		total    string
	}{
		{subtotal: "3.11", total: "3.11"},
		{subtotal: "6.22", total: "3.11"},
		{subtotal: "9.33", total: "6.22"},
	}

	for i, s := range steps {
		b.Add("FR1")
		assert.Equal(t, i+1, b.QuantityOf("FR1"))
		assertDecimal(t, s.subtotal, b.Subtotal())
		assertDecimal(t, s.total, b.Total())
	}
}

func TestBasket_Multibuy(t *testing.T) {
	b := newTestBasket()

	steps := []struct {
		subtotal string
		total    string
	}{
		{subtotal: "5.00", total: "5.00"},
		{subtotal: "10.00", total: "10.00"},
		{subtotal: "15.00", total: "13.50"},
	}

	for i, s := range steps {
		b.Add("SR1")
		assert.Equal(t, i+1, b.QuantityOf("SR1"))
		assertDecimal(t, s.subtotal, b.Subtotal())
		assertDecimal(t, s.total, b.Total())
	}
}

func TestBasket_Total_Scenarios(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{name: "single fruit tea", codes: []string{"FR1"}, want: "3.11"},
		{name: "two fruit teas", codes: []string{"FR1", "FR1"}, want: "3.11"},
		{name: "three fruit teas", codes: []string{"FR1", "FR1", "FR1"}, want: "6.22"},
		{name: "two BOGOF groups and one remainder", codes: []string{"FR1", "FR1", "FR1", "FR1", "FR1"}, want: "9.33"},
		{name: "three strawberries", codes: []string{"SR1", "SR1", "SR1"}, want: "13.50"},
		{
			name:  "two MULTIBUY3 groups and one remainder",
			codes: []string{"SR1", "SR1", "SR1", "SR1", "SR1", "SR1", "SR1"},
			want:  "32.00",
		},
		{name: "mixed basket", codes: []string{"FR1", "SR1", "FR1", "CF1"}, want: "19.34"},
		{name: "interleaved strawberries", codes: []string{"SR1", "SR1", "FR1", "SR1"}, want: "16.61"},
		{name: "unknown codes ignored", codes: []string{"XX1", "FR1", "", "FR1"}, want: "3.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBasket(tt.codes...)
			assertDecimal(t, tt.want, b.Total())
		})
	}
}

func TestBasket_Total_Idempotent(t *testing.T) {
	b := newTestBasket("FR1", "SR1", "FR1", "SR1", "SR1", "FR1")

	first := b.Total()
	second := b.Total()

	assert.True(t, first.Equal(second))
	assertDecimal(t, "19.72", first)
	assertDecimal(t, "24.33", b.Subtotal())
}

func TestBasket_Total_RecomputedAfterAdd(t *testing.T) {
	b := newTestBasket("FR1", "FR1")
	assertDecimal(t, "3.11", b.Total())

	// The third unit starts a new, incomplete group.
	b.Add("FR1")
	assertDecimal(t, "6.22", b.Total())

	b.Add("FR1")
	assertDecimal(t, "6.22", b.Total())
}

func TestBasket_Total_BelowQualifyingQuantity(t *testing.T) {
	for q := 1; q < 3; q++ {
		codes := make([]string, q)
		for i := range codes {
			codes[i] = "SR1"
		}
		b := newTestBasket(codes...)
		assert.True(t, b.Subtotal().Equal(b.Total()), "quantity %d", q)
	}
}

func TestBasket_Total_RemainderChargedFullPrice(t *testing.T) {
	for qty := 3; qty <= 12; qty++ {
		codes := make([]string, qty)
		for i := range codes {
			codes[i] = "SR1"
		}
		b := newTestBasket(codes...)

		discounted := qty - qty%3
		remainder := qty % 3
		want := d("4.50").Mul(decimal.NewFromInt(int64(discounted))).
			Add(d("5.00").Mul(decimal.NewFromInt(int64(remainder))))

		assert.Equal(t, discounted, b.QuantifyingCount("SR1"))
		assert.True(t, want.Round(2).Equal(b.Total()), "qty %d: expected %s, got %s", qty, want, b.Total())
	}
}

func TestBasket_Total_RoundsHalfUp(t *testing.T) {
	catalog := product.NewCatalog(
		product.Product{Code: "A", Name: "A", Price: d("1.005")},
		product.Product{Code: "B", Name: "B", Price: d("0.0025")},
	)
	b := New(catalog, pricing.Table{})
	b.Add("A")
	assertDecimal(t, "1.01", b.Total())

	b.Add("B")
	b.Add("B")
	// 1.005 + 0.005 = 1.010
	assertDecimal(t, "1.01", b.Total())
	assertDecimal(t, "1.01", b.Subtotal())
}

func TestBasket_Total_WrapsWithNullEntries(t *testing.T) {
	catalog := product.NewCatalog(product.Product{Code: "P", Name: "Pen", Price: d("2.00")})
	rules := pricing.NewTable(pricing.Rule{
		Name:               "HALFSECOND",
		ProductCode:        "P",
		QualifyingQuantity: 3,
		UnitPrices:         []decimal.NullDecimal{price("1.00"), {}},
	})
	b := New(catalog, rules)
	for range 7 {
		b.Add("P")
	}

	// Six discounted units cycle 1.00, full, 1.00, full, 1.00, full; the
	// seventh is the remainder.
	assertDecimal(t, "11.00", b.Total())
}

func TestBasket_QuantifyingCount(t *testing.T) {
	b := newTestBasket("FR1", "FR1", "FR1", "SR1", "CF1")

	assert.Equal(t, 2, b.QuantifyingCount("FR1"))
	assert.Equal(t, 0, b.QuantifyingCount("SR1"))
	assert.Equal(t, 0, b.QuantifyingCount("CF1"))
	assert.Equal(t, 0, b.QuantifyingCount("XX1"))
}

func TestBasket_DiscountsEarliestItemsFirst(t *testing.T) {
	catalog := product.NewCatalog(product.Product{Code: "T", Name: "Tea", Price: d("2.00")})
	rules := pricing.NewTable(pricing.Rule{
		Name:               "STEP",
		ProductCode:        "T",
		QualifyingQuantity: 2,
		UnitPrices:         []decimal.NullDecimal{price("0.50"), price("1.00")},
	})
	b := New(catalog, rules)
	b.Add("T")
	b.Add("T")
	b.Add("T")

	rc := b.Receipt()
	require.Len(t, rc.Lines, 3)
	assertDecimal(t, "0.50", rc.Lines[0].Price)
	assertDecimal(t, "1.00", rc.Lines[1].Price)
	assertDecimal(t, "2.00", rc.Lines[2].Price)
	assert.Equal(t, "STEP", rc.Lines[0].Rule)
	assert.Empty(t, rc.Lines[2].Rule)
}

func TestBasket_UnitsToNextDiscount(t *testing.T) {
	b := newTestBasket("FR1", "SR1", "SR1", "SR1", "SR1", "CF1")

	n, ok := b.UnitsToNextDiscount("FR1")
	require.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = b.UnitsToNextDiscount("SR1")
	require.True(t, ok)
	assert.Equal(t, 2, n)

	_, ok = b.UnitsToNextDiscount("CF1")
	assert.False(t, ok)
}

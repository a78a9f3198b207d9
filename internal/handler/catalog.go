package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ListProducts returns the catalog ordered by product code. Like every
// endpoint it reads through Service.Load, which may serve a cached snapshot.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	catalog, _, err := h.svc.Load(r.Context())
	if err != nil {
		internalError(r.Context(), w, "Load catalog", err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, p := range catalog.List() {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Str(p.Code) })
				e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
				e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
			})
		}
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// ListRules returns the pricing rules ordered by product code. A null unit
// price means the unit at that position is charged full price.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	_, table, err := h.svc.Load(r.Context())
	if err != nil {
		internalError(r.Context(), w, "Load rules", err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, rule := range table.List() {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(rule.Name) })
				e.Field("product", func(e *jx.Encoder) { e.Str(rule.ProductCode) })
				e.Field("qualifying_quantity", func(e *jx.Encoder) { e.Int(rule.QualifyingQuantity) })
				e.Field("unit_prices", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, p := range rule.UnitPrices {
							if !p.Valid {
								e.Null()
								continue
							}
							encodeMoney(e, p.Decimal)
						}
					})
				})
			})
		}
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// encodeMoney writes d as a JSON number with two decimal places.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}

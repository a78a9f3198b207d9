package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/basket-checkout/internal/domain/basket"
	"github.com/xenking/basket-checkout/internal/domain/checkout"
	"github.com/xenking/basket-checkout/pkg/httpmiddleware"
)

// PlaceCheckout prices {"items":[codes...]} in scan order and returns the
// receipt. Unknown codes are skipped by the basket, not rejected.
func (h *Handler) PlaceCheckout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	items, err := decodeItems(jx.Decode(r.Body, 512))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpmiddleware.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Checkout(r.Context(), items)
	if err != nil {
		internalError(r.Context(), w, "Checkout", err)
		return
	}
	writeJSON(w, http.StatusOK, encodeResult(res))
}

func decodeItems(d *jx.Decoder) ([]string, error) {
	items := []string{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(func(d *jx.Decoder) error {
			code, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "item")
			}
			items = append(items, code)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Only whitespace may follow the object.
	if err := d.Skip(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after object")
	}
	return items, nil
}

func encodeResult(res *checkout.Result) []byte {
	rc := res.Receipt

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(res.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range rc.Lines {
					encodeLine(e, l)
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, rc.Subtotal) })
		e.Field("discount", func(e *jx.Encoder) { encodeMoney(e, rc.Discount) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, rc.Total) })
		e.Field("offers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range rc.Offers {
					e.Obj(func(e *jx.Encoder) {
						e.Field("code", func(e *jx.Encoder) { e.Str(o.Code) })
						e.Field("rule", func(e *jx.Encoder) { e.Str(o.Rule) })
						e.Field("needed", func(e *jx.Encoder) { e.Int(o.Needed) })
					})
				}
			})
		})
	})
	return e.Bytes()
}

func encodeLine(e *jx.Encoder, l basket.ReceiptLine) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(l.Code) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("unit_price", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, l.Price) })
		if l.Rule != "" {
			e.Field("rule", func(e *jx.Encoder) { e.Str(l.Rule) })
		}
	})
}

package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/basket-checkout/internal/domain/auth"
	"github.com/xenking/basket-checkout/pkg/httpmiddleware"
)

// RequireAPIKey authenticates requests by the HMAC-SHA256 of the key sent in
// the X-API-Key (or api_key) header and requires the given scope.
func (h *Handler) RequireAPIKey(scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.Header.Get("api_key")
			}
			if key == "" {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "missing api key")
				return
			}

			hash := auth.HashKey(key, h.pepper)
			info, err := h.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				zctx.From(r.Context()).Debug("API key rejected", zap.Error(err))
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// The stored row must match what we computed, not just be found.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				httpmiddleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !info.HasScope(scope) {
				httpmiddleware.WriteError(w, http.StatusForbidden, "missing scope "+scope)
				return
			}

			ctx := zctx.With(r.Context(), zap.String("api_key", info.Name))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

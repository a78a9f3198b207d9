// Package handler implements the JSON HTTP API over the checkout service.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/basket-checkout/internal/domain/auth"
	"github.com/xenking/basket-checkout/internal/domain/checkout"
	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
	"github.com/xenking/basket-checkout/pkg/httpmiddleware"
)

// maxBodyBytes bounds checkout request bodies.
const maxBodyBytes = 1 << 20

// Service is the part of checkout.Service the API depends on.
type Service interface {
	Load(ctx context.Context) (product.Catalog, pricing.Table, error)
	Checkout(ctx context.Context, items []string) (*checkout.Result, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// APIKeys enables API key authentication of checkout requests when set.
	APIKeys auth.Repository
	// Pepper is the HMAC key API keys are hashed with.
	Pepper []byte
}

// Handler serves the catalog, rule and checkout endpoints.
type Handler struct {
	svc     Service
	apikeys auth.Repository
	pepper  []byte
}

// New constructs a Handler delegating pricing to svc.
func New(cfg Config, svc Service) *Handler {
	return &Handler{
		svc:     svc,
		apikeys: cfg.APIKeys,
		pepper:  cfg.Pepper,
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/rules", h.ListRules)

	var place http.Handler = http.HandlerFunc(h.PlaceCheckout)
	if h.apikeys != nil {
		place = h.RequireAPIKey(auth.ScopeCheckout)(place)
	}
	mux.Handle("POST /api/checkout", place)
}

// internalError logs err and answers with a generic 500.
func internalError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	zctx.From(ctx).Error(msg, zap.Error(err))
	httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/basket-checkout/internal/domain/basket"
	"github.com/xenking/basket-checkout/internal/domain/pricing"
	"github.com/xenking/basket-checkout/internal/domain/product"
)

const instrumentationName = "github.com/xenking/basket-checkout/internal/domain/checkout"

// Result is a priced basket.
type Result struct {
	ID      string
	Receipt basket.Receipt
}

// Option configures a Service.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	cacheTTL       time.Duration
}

// WithMeterProvider sets the meter provider for checkout metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithCacheTTL reuses a loaded catalog and rule table for ttl before
// querying the repositories again. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.cacheTTL = ttl }
}

// snapshot is a loaded catalog and rule table. Both are read-only once built.
type snapshot struct {
	catalog  product.Catalog
	table    pricing.Table
	loadedAt time.Time
}

// Service prices baskets against the catalog and rule table of its
// repositories. Each checkout uses a fresh basket.
type Service struct {
	products product.Repository
	rules    pricing.Repository

	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	snap *snapshot

	tracer    trace.Tracer
	checkouts metric.Int64Counter
	ignored   metric.Int64Counter
	units     metric.Int64Histogram
}

// NewService creates a checkout Service with the required domain dependencies.
func NewService(products product.Repository, rules pricing.Repository, opts ...Option) (*Service, error) {
	o := options{
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentationName)
	s := &Service{
		products: products,
		rules:    rules,
		ttl:      o.cacheTTL,
		now:      time.Now,
		tracer:   o.tracerProvider.Tracer(instrumentationName),
	}

	var err error
	if s.checkouts, err = meter.Int64Counter("checkout.count",
		metric.WithDescription("Number of priced baskets"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout.count")
	}
	if s.ignored, err = meter.Int64Counter("checkout.ignored_codes",
		metric.WithDescription("Product codes skipped because they are not in the catalog"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout.ignored_codes")
	}
	if s.units, err = meter.Int64Histogram("checkout.units",
		metric.WithDescription("Units per priced basket"),
	); err != nil {
		return nil, errors.Wrap(err, "checkout.units")
	}

	return s, nil
}

// Load returns the catalog and the validated rule table. With a cache TTL a
// fresh enough snapshot is reused; otherwise both are fetched concurrently.
func (s *Service) Load(ctx context.Context) (product.Catalog, pricing.Table, error) {
	if s.ttl <= 0 {
		return s.fetch(ctx)
	}

	s.mu.Lock()
	snap := s.snap
	s.mu.Unlock()
	if snap != nil && s.now().Sub(snap.loadedAt) < s.ttl {
		return snap.catalog, snap.table, nil
	}

	catalog, table, err := s.fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	s.snap = &snapshot{catalog: catalog, table: table, loadedAt: s.now()}
	s.mu.Unlock()
	return catalog, table, nil
}

func (s *Service) fetch(ctx context.Context) (product.Catalog, pricing.Table, error) {
	var (
		products []product.Product
		rules    []pricing.Rule
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if products, err = s.products.List(gctx); err != nil {
			return errors.Wrap(err, "list products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rules, err = s.rules.List(gctx); err != nil {
			return errors.Wrap(err, "list rules")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	table, err := pricing.BuildTable(rules)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build rule table")
	}
	return product.NewCatalog(products...), table, nil
}

// Checkout adds items to a new basket in order and returns its receipt.
// Codes missing from the catalog are skipped.
func (s *Service) Checkout(ctx context.Context, items []string) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "Checkout",
		trace.WithAttributes(attribute.Int("checkout.codes", len(items))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	catalog, table, err := s.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}

	lg := zctx.From(ctx)
	b := basket.New(catalog, table, basket.WithLogger(lg))
	for _, code := range items {
		b.Add(code)
	}
	rc := b.Receipt()

	s.checkouts.Add(ctx, 1)
	s.units.Record(ctx, int64(b.ItemCount()))
	if n := len(items) - b.ItemCount(); n > 0 {
		s.ignored.Add(ctx, int64(n))
	}

	id := uuid.New().String()
	span.SetAttributes(
		attribute.String("checkout.id", id),
		attribute.Int("checkout.units", b.ItemCount()),
		attribute.String("checkout.total", rc.Total.StringFixed(2)),
	)
	lg.Debug("Priced basket",
		zap.String("id", id),
		zap.Int("units", b.ItemCount()),
		zap.Stringer("total", rc.Total),
	)

	return &Result{ID: id, Receipt: rc}, nil
}

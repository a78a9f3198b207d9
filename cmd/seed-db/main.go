package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/basket-checkout/internal/domain/auth"
	"github.com/xenking/basket-checkout/internal/storage/postgres"
	"github.com/xenking/basket-checkout/internal/storage/yamlfile"
)

// seedKeyNamespace derives stable API key IDs so reseeding updates in place.
var seedKeyNamespace = uuid.MustParse("6f1c1f4e-3a52-4c1e-9b0e-4f7d2c9a8b10")

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyName   string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "catalog YAML file (default: embedded catalog)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or BASKET_SEED_API_KEY env)")
	flag.StringVar(&apiKeyName, "api-key-name", "seed", "name of the seeded API key")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or BASKET_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("BASKET_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("BASKET_API_KEY_PEPPER")
	}
	if apiKey != "" && apiKeyPepper == "" {
		slog.Error("API key pepper is required to seed an API key: set --api-key-pepper or BASKET_API_KEY_PEPPER")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKeyName, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func loadCatalog(path string) (*yamlfile.Store, error) {
	if path == "" {
		slog.Info("using embedded catalog")
		return yamlfile.Default()
	}
	slog.Info("reading catalog file", slog.String("path", path))
	return yamlfile.Open(path)
}

func run(ctx context.Context, databaseURL, catalogFile, keyName, apiKey, pepper string) error {
	store, err := loadCatalog(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	products := postgres.NewProductRepository(pool)
	for _, p := range store.Catalog().List() {
		if err := products.Upsert(ctx, p); err != nil {
			return errors.Wrap(err, "seed products")
		}
	}
	slog.Info("seeded products", slog.Int("count", len(store.Catalog())))

	rules := postgres.NewRuleRepository(pool)
	for _, r := range store.Rules().List() {
		if err := rules.Upsert(ctx, r); err != nil {
			return errors.Wrap(err, "seed rules")
		}
	}
	slog.Info("seeded pricing rules", slog.Int("count", len(store.Rules())))

	if apiKey == "" {
		slog.Info("no API key provided, skipping")
		return nil
	}
	info := auth.APIKeyInfo{
		ID:      uuid.NewSHA1(seedKeyNamespace, []byte(keyName)).String(),
		KeyHash: auth.HashKeyHex(apiKey, []byte(pepper)),
		Name:    keyName,
		Scopes:  []string{auth.ScopeCheckout},
	}
	if err := postgres.NewAPIKeyRepository(pool).Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("seeded API key", slog.String("name", keyName))

	return nil
}

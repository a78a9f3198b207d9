package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no inherited config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, k := range []string{"DATABASE_URL", "PORT", "BASKET_DATABASE_URL", "BASKET_ADDR", "BASKET_API_KEY_PEPPER", "BASKET_CATALOG_FILE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, "catalog.yaml", cfg.CatalogFile)
	assert.Equal(t, 5*time.Second, cfg.CatalogTTL)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	isolate(t)
	t.Setenv("BASKET_CATALOG_FILE", "/srv/catalog.yaml.gz")
	t.Setenv("BASKET_DATABASE_URL", "postgres://localhost/basket")
	t.Setenv("BASKET_API_KEY_PEPPER", "pepper")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "/srv/catalog.yaml.gz", cfg.CatalogFile)
	assert.Equal(t, "postgres://localhost/basket", cfg.DatabaseURL)
	assert.Equal(t, "pepper", cfg.APIKeyPepper)
}

func TestLoadConfig_Flags(t *testing.T) {
	isolate(t)

	cfg, err := loadConfig([]string{"-catalog-file", "prices.yaml", "-catalog-ttl", "0s"})
	require.NoError(t, err)
	assert.Equal(t, "prices.yaml", cfg.CatalogFile)
	assert.Zero(t, cfg.CatalogTTL)
}

func TestLoadConfig_File(t *testing.T) {
	dir := isolate(t)
	doc := "addr: 127.0.0.1:9000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0o600))

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("BASKET_API_KEY_PEPPER", "pepper")
	t.Setenv("PORT", "3000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr)
}

func TestLoadConfig_DatabaseNeedsPepper(t *testing.T) {
	isolate(t)
	t.Setenv("BASKET_DATABASE_URL", "postgres://localhost/basket")

	_, err := loadConfig([]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pepper")
}

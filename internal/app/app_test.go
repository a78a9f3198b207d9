package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenCatalogFile_MissingUsesDefault(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	store, err := openCatalogFile(zap.New(core), filepath.Join(t.TempDir(), "catalog.yaml"))
	require.NoError(t, err)
	assert.Len(t, store.Catalog(), 3)
	assert.Equal(t, 1, logs.FilterMessage("Catalog file not found, using default catalog").Len())
}

func TestOpenCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	doc := "products:\n  - {code: TEA, name: Tea, price: '2.00'}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	store, err := openCatalogFile(zap.NewNop(), path)
	require.NoError(t, err)

	p, ok := store.Catalog().Resolve("TEA")
	require.True(t, ok)
	assert.Equal(t, "2.00", p.Price.StringFixed(2))
	assert.Empty(t, store.Rules())
}

func TestOpenCatalogFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("products: [{code: A}]\n"), 0o600))

	_, err := openCatalogFile(zap.NewNop(), path)
	require.Error(t, err)
}

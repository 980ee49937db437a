package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"workshop/internal/access"
	"workshop/internal/events"
	"workshop/internal/model"
	"workshop/internal/repository/memory"
	"workshop/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const catalogYAML = `
products:
  - name: Oak table
    price: "250.00"
    cost: "120"
    stages:
      - name: Cutting
        payment: "12.50"
      - name: Assembly
        payment: "20"
  - name: Stool
    price: "40"
    stages:
      - name: Assembly
        payment: "5"
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)
	require.Len(t, cat.Products, 2)

	req, err := cat.Products[0].Request()
	require.NoError(t, err)
	require.Equal(t, "250", req.Price.String())
	require.Len(t, req.Stages, 2)
	require.Equal(t, "12.5", req.Stages[0].Payment.String())
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	_, err := ParseCatalog([]byte("  "))
	require.Error(t, err)

	_, err = ParseCatalog([]byte("products:\n  - price: \"1\"\n"))
	require.ErrorContains(t, err, "no name")

	cat, err := ParseCatalog([]byte("products:\n  - name: X\n    price: cheap\n"))
	require.NoError(t, err)
	_, err = cat.Products[0].Request()
	require.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cat, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, cat.Products, 2)

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyIsIdempotent(t *testing.T) {
	deps := &service.Deps{
		Repos:     memory.NewStore().Repositories(),
		Publisher: events.Nop(),
		Log:       zap.NewNop(),
	}
	products := service.NewProductService(deps)
	admin := access.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	created, err := Apply(context.Background(), products, admin, cat, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 2, created)

	created, err = Apply(context.Background(), products, admin, cat, zap.NewNop())
	require.NoError(t, err)
	require.Zero(t, created)

	list, total, err := products.ListProducts(context.Background(), admin, 1, 10, "")
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, list, 2)
}

func TestApplyRequiresWriteAccess(t *testing.T) {
	deps := &service.Deps{Repos: memory.NewStore().Repositories(), Log: zap.NewNop()}
	cat, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	_, err = Apply(context.Background(), service.NewProductService(deps), access.Actor{Role: model.RoleWorker}, cat, zap.NewNop())
	require.Error(t, err)
}

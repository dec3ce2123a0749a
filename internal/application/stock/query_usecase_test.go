package stock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/memory"
)

func newQuery(store *memory.Store) *stock.QueryUseCase {
	return stock.NewQueryUseCase(store.Stock(), store.Movements(), store.Products(), store.Sectors())
}

func seedForQueries(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 10)
	receive(t, uc, "P", entity.UnsectoredPool, 5)
	receive(t, uc, "Q", "B", 4)
	_, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "Q", FromSectorID: "B", ToSectorID: "C", Quantity: 4})
	require.NoError(t, err)
	// Q queda con B=0 y C=4; sacamos todo de C hacia A para dejar filas en cero
	_, err = uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "Q", FromSectorID: "C", ToSectorID: "A", Quantity: 4})
	require.NoError(t, err)
	return store
}

func TestConsolidatedStock_SumaTodosLosSectores(t *testing.T) {
	store := seedForQueries(t)

	rows, err := newQuery(store).ConsolidatedStock(context.Background(), company, dto.ConsolidatedStockFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "P", rows[0].ProductID)
	assert.Equal(t, int64(15), rows[0].TotalQuantity)
	assert.Equal(t, 2, rows[0].SectorCount)
	assert.Equal(t, "Azúcar morena", rows[0].ProductName)

	assert.Equal(t, "Q", rows[1].ProductID)
	assert.Equal(t, int64(4), rows[1].TotalQuantity)
	assert.Equal(t, 3, rows[1].SectorCount, "las filas en cero se conservan hasta limpiarlas")
}

func TestConsolidatedStock_BusquedaSinTildesNiMayusculas(t *testing.T) {
	store := seedForQueries(t)
	q := newQuery(store)

	rows, err := q.ConsolidatedStock(context.Background(), company, dto.ConsolidatedStockFilter{Search: "AZUCAR"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "P", rows[0].ProductID)

	rows, err = q.ConsolidatedStock(context.Background(), company, dto.ConsolidatedStockFilter{Search: "cf-0"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Q", rows[0].ProductID)
}

func TestConsolidatedStock_FiltroPorSectorYCeros(t *testing.T) {
	ctx := context.Background()
	store := seedForQueries(t)
	q := newQuery(store)

	rows, err := q.ConsolidatedStock(ctx, company, dto.ConsolidatedStockFilter{SectorID: "C"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Q", rows[0].ProductID)
	assert.Equal(t, int64(4), rows[0].TotalQuantity, "el total no se limita al sector filtrado")

	_, err = q.ConsolidatedStock(ctx, company, dto.ConsolidatedStockFilter{SectorID: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// un producto cuyo total es cero solo aparece con include_zero
	store.PutProduct(entity.Product{ID: "R", CompanyID: company, Name: "Agotado"})
	require.NoError(t, store.Stock().Upsert(ctx, &entity.StockEntry{CompanyID: company, ProductID: "R", SectorID: "A"}))

	rows, err = q.ConsolidatedStock(ctx, company, dto.ConsolidatedStockFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = q.ConsolidatedStock(ctx, company, dto.ConsolidatedStockFilter{IncludeZero: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "R", rows[2].ProductID)
}

func TestSectorStock(t *testing.T) {
	store := seedForQueries(t)

	res, err := newQuery(store).SectorStock(context.Background(), company, "A")
	require.NoError(t, err)
	assert.Equal(t, "Bodega A", res.SectorName)
	assert.Equal(t, int64(14), res.TotalUnits)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Café molido", res.Items[1].ProductName)
}

func TestMovements_HistorialDelProducto(t *testing.T) {
	ctx := context.Background()
	store := seedForQueries(t)
	q := newQuery(store)

	list, err := q.Movements(ctx, company, "Q", nil, nil, 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	all, err := q.Movements(ctx, company, "Q", nil, nil, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5, "un ingreso y dos traslados de dos filas cada uno")

	_, err = q.Movements(ctx, company, "X", nil, nil, 0, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

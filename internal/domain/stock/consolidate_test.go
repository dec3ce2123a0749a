package stock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/stock"
)

func TestConsolidate_ListaVacia(t *testing.T) {
	out := stock.Consolidate(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestConsolidate_AgrupaPorProducto(t *testing.T) {
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	rows := []*entity.StockEntry{
		{ProductID: "p1", SectorID: "a", Quantity: 30, UpdatedAt: t1},
		{ProductID: "p2", SectorID: "a", Quantity: 5, UpdatedAt: t1},
		{ProductID: "p1", SectorID: "b", Quantity: 20, UpdatedAt: t2},
		{ProductID: "p1", SectorID: entity.UnsectoredPool, Quantity: 7, UpdatedAt: t1},
	}

	out := stock.Consolidate(rows)
	require.Len(t, out, 2)

	assert.Equal(t, "p1", out[0].ProductID)
	assert.Equal(t, int64(57), out[0].TotalQuantity)
	assert.Equal(t, 3, out[0].SectorCount)
	assert.Equal(t, t2, out[0].LastUpdated, "debe reportar la actualización más reciente")

	assert.Equal(t, "p2", out[1].ProductID)
	assert.Equal(t, int64(5), out[1].TotalQuantity)
}

func TestConsolidate_EstableAnteReordenamiento(t *testing.T) {
	now := time.Now()
	a := &entity.StockEntry{ProductID: "z", SectorID: "s1", Quantity: 1, UpdatedAt: now}
	b := &entity.StockEntry{ProductID: "m", SectorID: "s1", Quantity: 2, UpdatedAt: now}
	c := &entity.StockEntry{ProductID: "z", SectorID: "s2", Quantity: 3, UpdatedAt: now.Add(time.Minute)}

	first := stock.Consolidate([]*entity.StockEntry{a, b, c})
	second := stock.Consolidate([]*entity.StockEntry{c, b, a})
	assert.Equal(t, first, second)
}

func TestTotalFor(t *testing.T) {
	rows := []*entity.StockEntry{
		{ProductID: "p1", SectorID: "a", Quantity: 30},
		{ProductID: "p1", SectorID: "b", Quantity: 20},
		{ProductID: "p2", SectorID: "b", Quantity: 99},
	}
	assert.Equal(t, int64(50), stock.TotalFor("p1", rows))
	assert.Equal(t, int64(0), stock.TotalFor("nada", rows))
}

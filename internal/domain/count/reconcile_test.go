package count_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/count"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

func counted(productID string, stockAtSystem, c1, c2 int64) *entity.ProductCountDetail {
	d := &entity.ProductCountDetail{ProductID: productID, StockAtSystem: stockAtSystem}
	if c1 > 0 {
		d.SubCounts = append(d.SubCounts, entity.SubCount{UserSlot: 1, Quantity: c1})
	}
	if c2 > 0 {
		d.SubCounts = append(d.SubCounts, entity.SubCount{UserSlot: 2, Quantity: c2})
	}
	d.Recount()
	return d
}

// ──────────────────────────────────────────────────────────────────────────────
// Desempate y diferencias
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile_DesempateUsaElConteoMayor(t *testing.T) {
	rows := count.Reconcile([]*entity.ProductCountDetail{counted("p1", 11, 10, 12)})
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, int64(12), r.ResolvedQuantity, "la cantidad provisional es max(count1, count2)")
	assert.Equal(t, int64(1), r.DiffVsSystem)
	assert.Equal(t, int64(-2), r.DiffBetweenCounts)
	assert.True(t, r.HasDifference)
	assert.False(t, r.Overridden)
}

func TestReconcile_OperariosCoinciden(t *testing.T) {
	rows := count.Reconcile([]*entity.ProductCountDetail{counted("p1", 40, 38, 38)})
	r := rows[0]
	assert.Equal(t, int64(38), r.ResolvedQuantity)
	assert.Equal(t, int64(-2), r.DiffVsSystem)
	assert.Zero(t, r.DiffBetweenCounts)
	assert.False(t, r.HasDifference)
}

func TestReconcile_SoloUnOperarioContó(t *testing.T) {
	d := counted("p1", 5, 0, 9)
	require.True(t, d.WasCounted)
	require.False(t, d.Counted1)

	r := count.Reconcile([]*entity.ProductCountDetail{d})[0]
	assert.Equal(t, int64(9), r.ResolvedQuantity)
	assert.Equal(t, int64(4), r.DiffVsSystem)
	assert.True(t, r.HasDifference, "un operario sin conteo no coincide con el otro")
}

func TestReconcile_SubconteosSeSuman(t *testing.T) {
	d := &entity.ProductCountDetail{ProductID: "p1", StockAtSystem: 200}
	d.SubCounts = []entity.SubCount{
		{UserSlot: 1, Quantity: 180, Formula: "3x60"},
		{UserSlot: 1, Quantity: 12},
		{UserSlot: 2, Quantity: 192, Formula: "16x12"},
	}
	d.Recount()

	r := count.Reconcile([]*entity.ProductCountDetail{d})[0]
	assert.Equal(t, int64(192), r.Count1)
	assert.Equal(t, int64(192), r.Count2)
	assert.False(t, r.HasDifference)
	assert.Equal(t, int64(-8), r.DiffVsSystem)
}

// ──────────────────────────────────────────────────────────────────────────────
// Productos no contados
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile_NoContadoPorDefectoConservaStock(t *testing.T) {
	d := &entity.ProductCountDetail{ProductID: "p1", StockAtSystem: 25}

	r := count.Reconcile([]*entity.ProductCountDetail{d})[0]
	assert.False(t, r.WasCounted)
	assert.Equal(t, entity.ActionOmit, r.Action)
	assert.Equal(t, int64(25), r.ResolvedQuantity)
	assert.Zero(t, r.DiffVsSystem)
	assert.False(t, r.HasDifference)
}

func TestSetAction_ZeroRecalculaSinTocarStockDelSistema(t *testing.T) {
	d := &entity.ProductCountDetail{ProductID: "p1", StockAtSystem: 25}

	require.NoError(t, count.SetAction(d, entity.ActionZero))
	require.NotNil(t, d.ResolvedQuantity)
	assert.Equal(t, int64(0), *d.ResolvedQuantity)
	assert.Equal(t, int64(25), d.StockAtSystem)

	r := count.Reconcile([]*entity.ProductCountDetail{d})[0]
	assert.Equal(t, int64(0), r.ResolvedQuantity)
	assert.Equal(t, int64(-25), r.DiffVsSystem)

	require.NoError(t, count.SetAction(d, entity.ActionOmit))
	assert.Equal(t, int64(25), *d.ResolvedQuantity, "volver a OMIT restaura el stock del sistema")
}

func TestSetAction_RechazaProductoContadoOAccionInvalida(t *testing.T) {
	d := counted("p1", 10, 10, 10)
	assert.ErrorIs(t, count.SetAction(d, entity.ActionZero), domain.ErrInvalidInput)

	u := &entity.ProductCountDetail{ProductID: "p2"}
	assert.ErrorIs(t, count.SetAction(u, entity.UncountedAction("BORRAR")), domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Decisión manual del supervisor
// ──────────────────────────────────────────────────────────────────────────────

func TestOverride_ColapsaAmbosConteos(t *testing.T) {
	d := counted("p1", 11, 10, 12)
	require.NoError(t, count.Override(d, 11))

	assert.Equal(t, int64(11), d.Count1)
	assert.Equal(t, int64(11), d.Count2)
	assert.True(t, d.Overridden)

	r := count.Reconcile([]*entity.ProductCountDetail{d})[0]
	assert.Equal(t, int64(11), r.ResolvedQuantity)
	assert.Zero(t, r.DiffVsSystem)
	assert.False(t, r.HasDifference)

	// nuevos subconteos no deshacen la decisión
	d.SubCounts = append(d.SubCounts, entity.SubCount{UserSlot: 1, Quantity: 50})
	d.Recount()
	assert.Equal(t, int64(11), count.Resolve(d))
}

func TestOverride_Validaciones(t *testing.T) {
	d := counted("p1", 11, 10, 12)
	err := count.Override(d, -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "p1", stockErr.ProductID)

	u := &entity.ProductCountDetail{ProductID: "p2", StockAtSystem: 3}
	assert.ErrorIs(t, count.Override(u, 3), domain.ErrInvalidInput, "los no contados se resuelven con OMIT/ZERO")

	require.NoError(t, count.Override(d, 0), "cero es una decisión válida")
}

// ──────────────────────────────────────────────────────────────────────────────
// Estado de cierre, filtros y estadísticas
// ──────────────────────────────────────────────────────────────────────────────

func TestOutcome(t *testing.T) {
	same := []*entity.ProductCountDetail{counted("p1", 5, 5, 5), {ProductID: "p2", StockAtSystem: 3}}
	assert.Equal(t, entity.CountStateCompleted, count.Outcome(same))

	diff := append(same, counted("p3", 1, 1, 2))
	assert.Equal(t, entity.CountStateWithDifferences, count.Outcome(diff))
}

func TestApplyFilterYSummarize(t *testing.T) {
	details := []*entity.ProductCountDetail{
		counted("p1", 11, 10, 12),
		counted("p2", 5, 5, 5),
		{ProductID: "p3", StockAtSystem: 8},
		counted("p4", 0, 3, 0),
	}
	rows := count.Reconcile(details)

	assert.Len(t, count.Apply(rows, count.FilterAll), 4)

	withDiff := count.Apply(rows, count.FilterWithDifferences)
	require.Len(t, withDiff, 2)
	assert.Equal(t, "p1", withDiff[0].ProductID)
	assert.Equal(t, "p4", withDiff[1].ProductID)

	assert.Len(t, count.Apply(rows, count.FilterWithoutDifferences), 2)

	s := count.Summarize(rows)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Counted)
	assert.Equal(t, 1, s.Uncounted)
	assert.Equal(t, 2, s.WithDifferences)
	assert.Equal(t, 2, s.WithoutDifferences)
	assert.True(t, decimal.NewFromInt(75).Equal(s.CompletionPct), "3 de 4 = 75%%, llegó %s", s.CompletionPct)
	assert.Equal(t, int64(1+0+0+3), s.NetDiffVsSystem)
}

func TestCompletionPct(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(count.CompletionPct(0, 0)))
	assert.Equal(t, "33.33", count.CompletionPct(1, 3).StringFixed(2))
	assert.Equal(t, "100.00", count.CompletionPct(7, 7).StringFixed(2))
}

func TestParseFilter(t *testing.T) {
	f, err := count.ParseFilter("con_diferencia")
	require.NoError(t, err)
	assert.Equal(t, count.FilterWithDifferences, f)

	f, err = count.ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, count.FilterAll, f)

	_, err = count.ParseFilter("ALGUNOS")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

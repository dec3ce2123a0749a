package stock_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/application/stock"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/expression"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/memory"
)

const company = "c1"

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	store.PutProduct(entity.Product{ID: "P", CompanyID: company, Name: "Azúcar morena", CustomCode: "AZ-01", UnitMeasure: "UND"})
	store.PutProduct(entity.Product{ID: "Q", CompanyID: company, Name: "Café molido", CustomCode: "CF-02", UnitMeasure: "UND"})
	store.PutProduct(entity.Product{ID: "X", CompanyID: "otra", Name: "Ajeno"})

	for _, s := range []entity.Sector{
		{ID: "A", CompanyID: company, Name: "Bodega A", Active: true},
		{ID: "B", CompanyID: company, Name: "Bodega B", Active: true},
		{ID: "C", CompanyID: company, Name: "Góndola C", Active: true},
		{ID: "Z", CompanyID: company, Name: "Cerrado", Active: false},
	} {
		s := s
		require.NoError(t, store.Sectors().Create(ctx, &s))
	}
	return store
}

func newUseCase(store *memory.Store) *stock.TransferUseCase {
	return stock.NewTransferUseCase(store, store.Products(), store.Sectors(), nil, nil)
}

func qty(t *testing.T, store *memory.Store, productID, sectorID string) int64 {
	t.Helper()
	e, err := store.Stock().Get(context.Background(), company, productID, sectorID)
	require.NoError(t, err)
	return e.Quantity
}

func receive(t *testing.T, uc *stock.TransferUseCase, productID, sectorID string, q int64) {
	t.Helper()
	_, err := uc.Receive(context.Background(), stock.ReceiveInput{CompanyID: company, UserID: "u1", ProductID: productID, SectorID: sectorID, Quantity: q})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestTransfer_Escenario50Unidades(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 50)

	res, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, UserID: "u1", ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 20})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(30), res.NewOriginQty)
	assert.Equal(t, int64(20), res.NewDestQty)
	assert.Equal(t, int64(30), qty(t, store, "P", "A"))
	assert.Equal(t, int64(20), qty(t, store, "P", "B"))

	_, err = uc.Transfer(ctx, stock.TransferInput{CompanyID: company, UserID: "u1", ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 40})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(40), stockErr.Requested)
	assert.Equal(t, int64(30), stockErr.Available)
	assert.Equal(t, "A", stockErr.SectorID)

	assert.Equal(t, int64(30), qty(t, store, "P", "A"), "el intento fallido no cambia el estado")
	assert.Equal(t, int64(20), qty(t, store, "P", "B"))
}

func TestTransfer_RegistraDosMovimientosConLaMismaTransaccion(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 10)

	res, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, UserID: "u7", ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 4})
	require.NoError(t, err)

	movs, err := store.Movements().ListByProduct(ctx, company, "P", nil, nil, 0, 0)
	require.NoError(t, err)

	var transfers []*entity.StockMovement
	for _, m := range movs {
		if m.Type == entity.MovementTypeTRANSFER {
			transfers = append(transfers, m)
		}
	}
	require.Len(t, transfers, 2)
	var net int64
	for _, m := range transfers {
		assert.Equal(t, res.TransactionID, m.TransactionID)
		assert.Equal(t, "u7", m.CreatedBy)
		net += m.Quantity
	}
	assert.Zero(t, net)
}

func TestTransfer_Validaciones(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 10)

	base := stock.TransferInput{CompanyID: company, ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 1}

	cases := []struct {
		name string
		edit func(in *stock.TransferInput)
		want error
	}{
		{"mismo sector", func(in *stock.TransferInput) { in.ToSectorID = "A" }, domain.ErrSameSector},
		{"cantidad cero", func(in *stock.TransferInput) { in.Quantity = 0 }, domain.ErrInvalidQuantity},
		{"cantidad negativa", func(in *stock.TransferInput) { in.Quantity = -3 }, domain.ErrInvalidQuantity},
		{"destino pool sin sector", func(in *stock.TransferInput) { in.ToSectorID = entity.UnsectoredPool }, domain.ErrInvalidInput},
		{"destino inactivo", func(in *stock.TransferInput) { in.ToSectorID = "Z" }, domain.ErrInvalidInput},
		{"destino inexistente", func(in *stock.TransferInput) { in.ToSectorID = "NOPE" }, domain.ErrNotFound},
		{"producto de otra empresa", func(in *stock.TransferInput) { in.ProductID = "X" }, domain.ErrForbidden},
		{"producto inexistente", func(in *stock.TransferInput) { in.ProductID = "NOPE" }, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.edit(&in)
			_, err := uc.Transfer(ctx, in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, int64(10), qty(t, store, "P", "A"))
}

func TestTransfer_DesdePoolSinSector(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", entity.UnsectoredPool, 8)

	res, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "P", FromSectorID: entity.UnsectoredPool, ToSectorID: "C", Quantity: 8})
	require.NoError(t, err)
	assert.Zero(t, res.NewOriginQty)
	assert.Equal(t, int64(8), qty(t, store, "P", "C"))
}

func TestTransfer_ConservacionEnSecuenciaAleatoria(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 60)
	receive(t, uc, "P", "B", 25)
	receive(t, uc, "P", entity.UnsectoredPool, 15)

	origins := []string{entity.UnsectoredPool, "A", "B", "C"}
	dests := []string{"A", "B", "C"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 300; i++ {
		in := stock.TransferInput{
			CompanyID:    company,
			ProductID:    "P",
			FromSectorID: origins[rng.Intn(len(origins))],
			ToSectorID:   dests[rng.Intn(len(dests))],
			Quantity:     int64(rng.Intn(40)) - 5,
		}
		_, _ = uc.Transfer(ctx, in)

		rows, err := store.Stock().ListByProduct(ctx, company, "P")
		require.NoError(t, err)
		var total int64
		for _, r := range rows {
			require.GreaterOrEqual(t, r.Quantity, int64(0), "ninguna fila queda negativa (paso %d)", i)
			total += r.Quantity
		}
		require.Equal(t, int64(100), total, "el total se conserva (paso %d)", i)
	}
}

func TestTransfer_ConcurrentesDesdeElMismoOrigen(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 50)

	const workers = 20
	const each = int64(5)
	dests := []string{"B", "C"}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Transfer(ctx, stock.TransferInput{
				CompanyID:    company,
				UserID:       "u1",
				ProductID:    "P",
				FromSectorID: "A",
				ToSectorID:   dests[i%len(dests)],
				Quantity:     each,
			})
		}(i)
	}
	wg.Wait()

	var ok int64
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrConcurrentModification),
			"error inesperado: %v", err)
	}
	assert.Equal(t, int64(10), ok, "el origen alcanza para exactamente diez traslados")

	origin := qty(t, store, "P", "A")
	assert.GreaterOrEqual(t, origin, int64(0))
	assert.Equal(t, int64(50)-ok*each, origin)
	assert.Equal(t, ok*each, qty(t, store, "P", "B")+qty(t, store, "P", "C"))

	rows, err := store.Stock().ListByProduct(ctx, company, "P")
	require.NoError(t, err)
	var total int64
	for _, r := range rows {
		total += r.Quantity
	}
	assert.Equal(t, int64(50), total)

	movs, err := store.Movements().ListByProduct(ctx, company, "P", nil, nil, 0, 0)
	require.NoError(t, err)
	var transfers int64
	for _, m := range movs {
		if m.Type == entity.MovementTypeTRANSFER {
			transfers++
		}
	}
	assert.Equal(t, 2*ok, transfers, "cada traslado exitoso deja salida y entrada")
}

// ──────────────────────────────────────────────────────────────────────────────
// Atomicidad ante fallas
// ──────────────────────────────────────────────────────────────────────────────

var errInjected = errors.New("falla inyectada")

// failingStock falla en la escritura número failAt (1-based).
type failingStock struct {
	repository.StockRepository
	failAt int
	writes int
}

func (f *failingStock) Upsert(ctx context.Context, e *entity.StockEntry) error {
	f.writes++
	if f.writes == f.failAt {
		return errInjected
	}
	return f.StockRepository.Upsert(ctx, e)
}

type faultyRunner struct {
	store  *memory.Store
	failAt int
}

func (r faultyRunner) Run(ctx context.Context, fn func(repository.StockRepository, repository.StockMovementRepository) error) error {
	return r.store.Run(ctx, func(s repository.StockRepository, m repository.StockMovementRepository) error {
		return fn(&failingStock{StockRepository: s, failAt: r.failAt}, m)
	})
}

func TestTransfer_FallaEnElSegundoPasoNoDejaDescuentoParcial(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	receive(t, newUseCase(store), "P", "A", 50)

	uc := stock.NewTransferUseCase(faultyRunner{store: store, failAt: 2}, store.Products(), store.Sectors(), nil, nil)
	_, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 20})
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, int64(50), qty(t, store, "P", "A"))
	assert.Zero(t, qty(t, store, "P", "B"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Asignación en lote
// ──────────────────────────────────────────────────────────────────────────────

func TestAssign_LoteQueExcedeElPoolSeRechazaEntero(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", entity.UnsectoredPool, 10)
	receive(t, uc, "Q", entity.UnsectoredPool, 5)

	_, err := uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: "A", Items: []stock.AssignItem{
		{ProductID: "Q", Quantity: 5},
		{ProductID: "P", Quantity: 6},
		{ProductID: "P", Quantity: 5},
	}})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "P", stockErr.ProductID)
	assert.Equal(t, int64(11), stockErr.Requested, "se valida la suma del lote")
	assert.Equal(t, int64(10), stockErr.Available)

	assert.Equal(t, int64(10), qty(t, store, "P", entity.UnsectoredPool))
	assert.Equal(t, int64(5), qty(t, store, "Q", entity.UnsectoredPool), "tampoco se aplica el producto que sí alcanzaba")
	assert.Zero(t, qty(t, store, "Q", "A"))
}

func TestAssign_LoteValidoMueveDelPoolAlSector(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", entity.UnsectoredPool, 10)

	res, err := uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: "A", Items: []stock.AssignItem{
		{ProductID: "P", Quantity: 4},
		{ProductID: "P", Quantity: 6},
	}})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, int64(6), res.Results[0].NewPoolQty)
	assert.Equal(t, int64(0), res.Results[1].NewPoolQty)
	assert.Equal(t, int64(10), res.Results[1].NewSectorQty)

	assert.Zero(t, qty(t, store, "P", entity.UnsectoredPool))
	assert.Equal(t, int64(10), qty(t, store, "P", "A"))
}

func TestAssign_Validaciones(t *testing.T) {
	ctx := context.Background()
	uc := newUseCase(newStore(t))

	_, err := uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: entity.UnsectoredPool, Items: []stock.AssignItem{{ProductID: "P", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrSameSector)

	_, err = uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: "A", Items: []stock.AssignItem{{ProductID: "P", Quantity: 0}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = uc.Assign(ctx, stock.AssignInput{CompanyID: company, SectorID: "Z", Items: []stock.AssignItem{{ProductID: "P", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssignFromRequest_ExpresionInvalidaRechazaElLote(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", entity.UnsectoredPool, 100)

	_, err := uc.AssignFromRequest(ctx, company, "u1", dto.AssignRequest{SectorID: "A", Items: []dto.AssignItemRequest{
		{ProductID: "P", QuantityExpr: "2x5"},
		{ProductID: "P", QuantityExpr: "3/0"},
	}})
	require.ErrorIs(t, err, expression.ErrSemantic)
	assert.Equal(t, int64(100), qty(t, store, "P", entity.UnsectoredPool))

	res, err := uc.AssignFromRequest(ctx, company, "u1", dto.AssignRequest{SectorID: "A", Items: []dto.AssignItemRequest{
		{ProductID: "P", QuantityExpr: "3x10"},
	}})
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.Results[0].Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ingresos
// ──────────────────────────────────────────────────────────────────────────────

func TestReceive_AumentaElTotalYSeAuditaAparte(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)

	res, err := uc.ReceiveFromRequest(ctx, company, "u3", dto.ReceiveRequest{ProductID: "Q", SectorID: "B", QuantityExpr: "12x2", Reference: "REM-0042"})
	require.NoError(t, err)
	assert.Equal(t, int64(24), res.NewQuantity)

	movs, err := store.Movements().ListByProduct(ctx, company, "Q", nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeRECEIVE, movs[0].Type)
	assert.Equal(t, "REM-0042", movs[0].Reference)
}

func TestReceiveFromRequest_ExpresionVacia(t *testing.T) {
	_, err := newUseCase(newStore(t)).ReceiveFromRequest(context.Background(), company, "u1", dto.ReceiveRequest{ProductID: "P", SectorID: "A"})
	assert.ErrorIs(t, err, expression.ErrSyntax)
}

// ──────────────────────────────────────────────────────────────────────────────
// Limpieza de filas en cero
// ──────────────────────────────────────────────────────────────────────────────

func TestRemove_Idempotente(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 5)
	_, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 5})
	require.NoError(t, err)

	require.NoError(t, uc.Remove(ctx, company, "P", "A"))
	afterOnce, _ := store.Stock().ListByProduct(ctx, company, "P")

	require.NoError(t, uc.Remove(ctx, company, "P", "A"))
	afterTwice, _ := store.Stock().ListByProduct(ctx, company, "P")

	assert.Equal(t, afterOnce, afterTwice)
	require.Len(t, afterTwice, 1)
	assert.Equal(t, "B", afterTwice[0].SectorID)
}

func TestRemove_FilaConUnidadesFallaSiempreSinCambios(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 5)

	for i := 0; i < 2; i++ {
		err := uc.Remove(ctx, company, "P", "A")
		require.ErrorIs(t, err, domain.ErrStockNotEmpty)
		assert.Equal(t, int64(5), qty(t, store, "P", "A"))
	}
}

func TestClearZeroStock(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	uc := newUseCase(store)
	receive(t, uc, "P", "A", 5)
	receive(t, uc, "Q", "A", 3)
	_, err := uc.Transfer(ctx, stock.TransferInput{CompanyID: company, ProductID: "P", FromSectorID: "A", ToSectorID: "B", Quantity: 5})
	require.NoError(t, err)

	res, err := uc.ClearZeroStock(ctx, company, "A")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	rows, _ := store.Stock().ListBySector(ctx, company, "A")
	require.Len(t, rows, 1)
	assert.Equal(t, "Q", rows[0].ProductID)

	res, err = uc.ClearZeroStock(ctx, company, "A")
	require.NoError(t, err)
	assert.Zero(t, res.Removed)
}

func TestTransfer_UsaElRelojInyectado(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	fixed := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	uc := newUseCase(store).WithClock(func() time.Time { return fixed })
	receive(t, uc, "P", "A", 3)

	e, err := store.Stock().Get(ctx, company, "P", "A")
	require.NoError(t, err)
	assert.True(t, fixed.Equal(e.UpdatedAt))
}

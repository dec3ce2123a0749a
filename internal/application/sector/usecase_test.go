package sector_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-sectores/internal/application/dto"
	"github.com/jhoicas/stock-sectores/internal/application/sector"
	"github.com/jhoicas/stock-sectores/internal/domain"
	"github.com/jhoicas/stock-sectores/internal/infrastructure/memory"
)

func TestSector_CrearListarDesactivar(t *testing.T) {
	ctx := context.Background()
	uc := sector.NewUseCase(memory.NewStore().Sectors())

	b, err := uc.Create(ctx, "c1", dto.CreateSectorRequest{Name: "  Bodega B "})
	require.NoError(t, err)
	assert.Equal(t, "Bodega B", b.Name)
	assert.True(t, b.Active)

	_, err = uc.Create(ctx, "c1", dto.CreateSectorRequest{Name: "Bodega A"})
	require.NoError(t, err)
	_, err = uc.Create(ctx, "c2", dto.CreateSectorRequest{Name: "De otra empresa"})
	require.NoError(t, err)

	list, err := uc.List(ctx, "c1", 20, 0)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, "Bodega A", list.Items[0].Name)

	off, err := uc.Deactivate(ctx, "c1", b.ID)
	require.NoError(t, err)
	assert.False(t, off.Active)

	got, err := uc.GetByID(ctx, "c1", b.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestSector_Validaciones(t *testing.T) {
	ctx := context.Background()
	uc := sector.NewUseCase(memory.NewStore().Sectors())

	_, err := uc.Create(ctx, "c1", dto.CreateSectorRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	s, err := uc.Create(ctx, "c1", dto.CreateSectorRequest{Name: "Frío"})
	require.NoError(t, err)

	_, err = uc.GetByID(ctx, "c2", s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "un sector de otra empresa no se expone")

	_, err = uc.Deactivate(ctx, "c1", "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

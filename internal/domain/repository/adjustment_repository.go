package repository

import (
	"context"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
)

// AdjustmentRepository guarda el registro inmutable de cada conteo aplicado (sin Update ni Delete).
type AdjustmentRepository interface {
	Create(ctx context.Context, record *entity.AdjustmentRecord) error
	GetBySession(ctx context.Context, sessionID string) (*entity.AdjustmentRecord, error)
}

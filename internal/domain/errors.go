package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Ledger de stock por sector.
	ErrInvalidQuantity        = errors.New("cantidad inválida")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrSameSector             = errors.New("el sector de origen y destino son el mismo")
	ErrStockNotEmpty          = errors.New("el registro de stock todavía tiene unidades")
	ErrConservationViolated   = errors.New("la operación altera el total de unidades del producto")
	ErrConcurrentModification = errors.New("el stock fue modificado por otra operación")

	// Conteo doble por sector.
	ErrSessionState = errors.New("operación no permitida en el estado actual del conteo")
)

// StockError agrega el contexto necesario para un mensaje accionable
// (producto, sector, cantidad pedida vs. disponible). Unwrap devuelve el error de dominio.
type StockError struct {
	ProductID string
	SectorID  string
	Requested int64
	Available int64
	Err       error
}

func (e *StockError) Error() string {
	sector := e.SectorID
	if sector == "" {
		sector = "sin sector"
	}
	return fmt.Sprintf("%v: producto %s, sector %s (solicitado %d, disponible %d)",
		e.Err, e.ProductID, sector, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.Err }

// NewStockError construye un StockError sobre el sentinel indicado.
func NewStockError(err error, productID, sectorID string, requested, available int64) *StockError {
	return &StockError{
		ProductID: productID,
		SectorID:  sectorID,
		Requested: requested,
		Available: available,
		Err:       err,
	}
}

// SessionError indica que la sesión de conteo no admite la operación en su estado actual.
type SessionError struct {
	SessionID string
	State     string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%v: sesión %s en estado %s", e.Err, e.SessionID, e.State)
}

func (e *SessionError) Unwrap() error { return e.Err }

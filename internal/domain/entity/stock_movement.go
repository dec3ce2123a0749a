package entity

import "time"

// Tipos de movimiento del ledger.
const (
	MovementTypeTRANSFER   = "TRANSFER"   // traslado entre sectores (dos filas, misma transacción)
	MovementTypeASSIGN     = "ASSIGN"     // del pool sin sector a un sector
	MovementTypeRECEIVE    = "RECEIVE"    // ingreso desde fuera del sistema
	MovementTypeADJUSTMENT = "ADJUSTMENT" // corrección por conteo
)

// StockMovement es el registro de auditoría de cada cambio de cantidad.
type StockMovement struct {
	ID               string
	TransactionID    string
	CompanyID        string
	ProductID        string
	SectorID         string
	Type             string
	Quantity         int64 // positivo entrada, negativo salida
	PreviousQuantity int64
	NewQuantity      int64
	Reference        string // sesión de conteo, remito, etc.
	CreatedAt        time.Time
	CreatedBy        string // UserID
}

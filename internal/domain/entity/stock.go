package entity

import "time"

// UnsectoredPool identifica el stock todavía no asignado a un sector físico.
// En PostgreSQL se persiste como sector_id NULL.
const UnsectoredPool = ""

// StockEntry es la unidad atómica del ledger: cantidad de un producto en un sector.
// Quantity nunca es negativa. Version se incrementa en cada escritura (control optimista).
type StockEntry struct {
	CompanyID string
	ProductID string
	SectorID  string
	Quantity  int64
	Version   int64
	UpdatedAt time.Time
}

// IsUnsectored indica si la fila pertenece al pool sin sector.
func (s *StockEntry) IsUnsectored() bool {
	return s.SectorID == UnsectoredPool
}

package entity

import "time"

// AdjustmentRecord es el registro inmutable generado al aplicar un conteo al ledger.
// Es lo que el supervisor revisa después ("registro generado").
type AdjustmentRecord struct {
	ID              string
	CompanyID       string
	SessionID       string
	SectorID        string
	User1ID         string
	User2ID         string
	SupervisorID    string
	Outcome         CountSessionState // COMPLETED o WITH_DIFFERENCES
	TotalProducts   int
	CountedProducts int
	Attempts        int
	CreatedAt       time.Time
	Lines           []AdjustmentLine
}

// AdjustmentLine detalle por producto del registro.
type AdjustmentLine struct {
	ProductID        string
	StockAtSystem    int64
	Count1           int64
	Count2           int64
	WasCounted       bool
	Action           UncountedAction
	Overridden       bool
	PreviousQuantity int64
	NewQuantity      int64
	Delta            int64
}

// NetDelta suma las diferencias aplicadas.
func (r *AdjustmentRecord) NetDelta() int64 {
	var total int64
	for _, l := range r.Lines {
		total += l.Delta
	}
	return total
}

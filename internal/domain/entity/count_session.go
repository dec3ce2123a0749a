package entity

import "time"

// CountSessionState estado de una sesión de conteo doble (ConteoSector).
type CountSessionState string

const (
	CountStateInProgress      CountSessionState = "IN_PROGRESS"
	CountStateCompleted       CountSessionState = "COMPLETED"
	CountStateWithDifferences CountSessionState = "WITH_DIFFERENCES"
	CountStateArchived        CountSessionState = "ARCHIVED" // terminal, después de aplicar al ledger
)

// UncountedAction decide qué hacer con un producto que ningún operario contó.
type UncountedAction string

const (
	ActionOmit UncountedAction = "OMIT" // conserva el stock del sistema
	ActionZero UncountedAction = "ZERO" // quiebre de stock confirmado
)

// Valid indica si la acción es una de las admitidas.
func (a UncountedAction) Valid() bool {
	return a == ActionOmit || a == ActionZero
}

// CountSession es una unidad de conciliación: un sector contado por dos operarios.
type CountSession struct {
	ID              string
	CompanyID       string
	SectorID        string
	User1ID         string
	User2ID         string
	State           CountSessionState
	TotalProducts   int
	CountedProducts int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ClosedAt        *time.Time
	FinalizedAt     *time.Time
	FinalizedBy     string
}

// AcceptsCounts indica si todavía se pueden registrar subconteos.
func (s *CountSession) AcceptsCounts() bool {
	return s.State == CountStateInProgress
}

// IsArchived indica si la sesión ya fue aplicada al ledger.
func (s *CountSession) IsArchived() bool {
	return s.State == CountStateArchived
}

// UserForSlot devuelve el operario asignado al slot 1 o 2.
func (s *CountSession) UserForSlot(slot int) (string, bool) {
	switch slot {
	case 1:
		return s.User1ID, true
	case 2:
		return s.User2ID, true
	}
	return "", false
}

// SubCount es un conteo parcial de un operario (p. ej. "3x60" de una estantería).
type SubCount struct {
	ID         string
	SessionID  string
	ProductID  string
	UserSlot   int
	UserID     string
	Quantity   int64
	Expression string // lo que tipeó el operario
	Formula    string // etiqueta libre para auditoría
	CreatedAt  time.Time
}

// ProductCountDetail acumula los conteos de ambos operarios para un producto de la sesión.
type ProductCountDetail struct {
	ID               string
	SessionID        string
	ProductID        string
	StockAtSystem    int64 // snapshot del ledger al iniciar la sesión
	Count1           int64
	Count2           int64
	Counted1         bool
	Counted2         bool
	WasCounted       bool
	Action           UncountedAction
	ResolvedQuantity *int64 // decisión final del supervisor (nil = provisional)
	Overridden       bool
	SubCounts        []SubCount
}

// Recount recalcula Count1/Count2 a partir de los subconteos.
// No aplica si el supervisor ya fijó la cantidad (los conteos quedaron colapsados).
func (d *ProductCountDetail) Recount() {
	if d.Overridden {
		return
	}
	d.Count1, d.Count2 = 0, 0
	d.Counted1, d.Counted2 = false, false
	for _, sc := range d.SubCounts {
		switch sc.UserSlot {
		case 1:
			d.Count1 += sc.Quantity
			d.Counted1 = true
		case 2:
			d.Count2 += sc.Quantity
			d.Counted2 = true
		}
	}
	d.WasCounted = d.Counted1 || d.Counted2
}

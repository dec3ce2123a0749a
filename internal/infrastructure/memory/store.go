// Package memory implementa los puertos de persistencia en memoria con la misma semántica
// transaccional que el adaptador PostgreSQL: un escritor a la vez y todo-o-nada por transacción
// (la tx trabaja sobre una copia del estado que solo se publica si fn no devuelve error).
//
// Se usa en tests y con STORAGE_DRIVER=memory en desarrollo.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-sectores/internal/domain/entity"
	"github.com/jhoicas/stock-sectores/internal/domain/repository"
)

type stockKey struct {
	company string
	product string
	sector  string
}

type state struct {
	sectors     map[string]entity.Sector
	products    map[string]entity.Product
	stock       map[stockKey]entity.StockEntry
	movements   []entity.StockMovement
	sessions    map[string]entity.CountSession
	details     map[string]map[string]*entity.ProductCountDetail // sessionID → productID
	adjustments map[string]entity.AdjustmentRecord               // por sessionID
}

func newState() *state {
	return &state{
		sectors:     make(map[string]entity.Sector),
		products:    make(map[string]entity.Product),
		stock:       make(map[stockKey]entity.StockEntry),
		sessions:    make(map[string]entity.CountSession),
		details:     make(map[string]map[string]*entity.ProductCountDetail),
		adjustments: make(map[string]entity.AdjustmentRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.sectors {
		c.sectors[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	c.movements = append(make([]entity.StockMovement, 0, len(s.movements)), s.movements...)
	for k, v := range s.sessions {
		c.sessions[k] = copySession(v)
	}
	for sid, byProduct := range s.details {
		m := make(map[string]*entity.ProductCountDetail, len(byProduct))
		for pid, d := range byProduct {
			m[pid] = copyDetail(d)
		}
		c.details[sid] = m
	}
	for k, v := range s.adjustments {
		c.adjustments[k] = copyRecord(v)
	}
	return c
}

// access abstrae si la operación corre suelta (toma el lock) o dentro de una tx (ya lo tiene).
type access interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

// Store estado compartido. Implementa los TxRunner de stock y de conteo.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) write(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

type txAccess struct {
	st *state
}

func (t *txAccess) read(fn func(st *state) error) error  { return fn(t.st) }
func (t *txAccess) write(fn func(st *state) error) error { return fn(t.st) }

// runTx ejecuta fn sobre una copia del estado y la publica solo si fn termina sin error.
// Dentro de fn no deben usarse repositorios atados al Store (el lock no es reentrante).
func (s *Store) runTx(ctx context.Context, fn func(tx *txAccess) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(&txAccess{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work
	return nil
}

// Run ejecuta fn con repositorios de stock atados a una transacción.
func (s *Store) Run(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	return s.runTx(ctx, func(tx *txAccess) error {
		return fn(&StockRepo{db: tx}, &MovementRepo{db: tx})
	})
}

// RunCount ejecuta fn con los repositorios de stock y de conteo en la misma transacción.
func (s *Store) RunCount(ctx context.Context, fn func(
	stockRepo repository.StockRepository,
	movRepo repository.StockMovementRepository,
	sessionRepo repository.CountSessionRepository,
	adjustmentRepo repository.AdjustmentRepository,
) error) error {
	return s.runTx(ctx, func(tx *txAccess) error {
		return fn(&StockRepo{db: tx}, &MovementRepo{db: tx}, &CountSessionRepo{db: tx}, &AdjustmentRepo{db: tx})
	})
}

// Repositorios atados al store (fuera de transacción).

func (s *Store) Stock() *StockRepo                { return &StockRepo{db: s} }
func (s *Store) Movements() *MovementRepo         { return &MovementRepo{db: s} }
func (s *Store) Sectors() *SectorRepo             { return &SectorRepo{db: s} }
func (s *Store) Products() *ProductRepo           { return &ProductRepo{db: s} }
func (s *Store) CountSessions() *CountSessionRepo { return &CountSessionRepo{db: s} }
func (s *Store) Adjustments() *AdjustmentRepo     { return &AdjustmentRepo{db: s} }

// PutProduct carga un producto del catálogo (el catálogo es externo a este servicio).
func (s *Store) PutProduct(p entity.Product) {
	_ = s.write(func(st *state) error {
		st.products[p.ID] = p
		return nil
	})
}

func copySession(v entity.CountSession) entity.CountSession {
	if v.ClosedAt != nil {
		t := *v.ClosedAt
		v.ClosedAt = &t
	}
	if v.FinalizedAt != nil {
		t := *v.FinalizedAt
		v.FinalizedAt = &t
	}
	return v
}

func copyDetail(d *entity.ProductCountDetail) *entity.ProductCountDetail {
	c := *d
	if d.ResolvedQuantity != nil {
		q := *d.ResolvedQuantity
		c.ResolvedQuantity = &q
	}
	c.SubCounts = append([]entity.SubCount(nil), d.SubCounts...)
	return &c
}

func copyRecord(r entity.AdjustmentRecord) entity.AdjustmentRecord {
	r.Lines = append([]entity.AdjustmentLine(nil), r.Lines...)
	return r
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartCountSessionRequest body para POST /api/count-sessions.
type StartCountSessionRequest struct {
	SectorID string `json:"sector_id"`
	User1ID  string `json:"user1_id"`
	User2ID  string `json:"user2_id"`
}

// CountSessionResponse cabecera de una sesión de conteo.
type CountSessionResponse struct {
	ID              string          `json:"id"`
	SectorID        string          `json:"sector_id"`
	User1ID         string          `json:"user1_id"`
	User2ID         string          `json:"user2_id"`
	State           string          `json:"state"`
	TotalProducts   int             `json:"total_products"`
	CountedProducts int             `json:"counted_products"`
	CompletionPct   decimal.Decimal `json:"completion_pct"`
	CreatedAt       time.Time       `json:"created_at"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	FinalizedAt     *time.Time      `json:"finalized_at,omitempty"`
	FinalizedBy     string          `json:"finalized_by,omitempty"`
}

// CountSessionListResponse lista paginada de sesiones.
type CountSessionListResponse struct {
	Items []CountSessionResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// SubmitSubCountRequest body para POST /api/count-sessions/:id/subcounts.
type SubmitSubCountRequest struct {
	ProductID    string `json:"product_id"`
	UserSlot     int    `json:"user_slot" example:"1"`
	QuantityExpr string `json:"quantity_expr" example:"3x60"`
	Formula      string `json:"formula"`
}

// SubCountResponse un subconteo registrado.
type SubCountResponse struct {
	ID         string    `json:"id"`
	UserSlot   int       `json:"user_slot"`
	UserID     string    `json:"user_id"`
	Quantity   int64     `json:"quantity"`
	Expression string    `json:"expression"`
	Formula    string    `json:"formula,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ProductCountDetailResponse detalle de un producto dentro de la sesión.
type ProductCountDetailResponse struct {
	SessionID        string             `json:"session_id"`
	ProductID        string             `json:"product_id"`
	StockAtSystem    int64              `json:"stock_at_system"`
	Count1           int64              `json:"count1"`
	Count2           int64              `json:"count2"`
	WasCounted       bool               `json:"was_counted"`
	Action           string             `json:"action"`
	ResolvedQuantity *int64             `json:"resolved_quantity"`
	Overridden       bool               `json:"overridden"`
	SubCounts        []SubCountResponse `json:"subcounts"`
}

// CountSessionDetailResponse sesión con todos sus detalles.
type CountSessionDetailResponse struct {
	Session CountSessionResponse         `json:"session"`
	Details []ProductCountDetailResponse `json:"details"`
}

// SetActionRequest body para PUT .../products/:product_id/action.
type SetActionRequest struct {
	Action string `json:"action" example:"ZERO"`
}

// SetResolvedQuantityRequest body para PUT .../products/:product_id/resolved.
type SetResolvedQuantityRequest struct {
	ResolvedQuantity *int64 `json:"resolved_quantity"`
}

// ReconciledRowResponse fila de la comparación.
type ReconciledRowResponse struct {
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	CustomCode        string `json:"custom_code,omitempty"`
	StockAtSystem     int64  `json:"stock_at_system"`
	Count1            int64  `json:"count1"`
	Count2            int64  `json:"count2"`
	WasCounted        bool   `json:"was_counted"`
	Action            string `json:"action"`
	DiffVsSystem      int64  `json:"diff_vs_system"`
	DiffBetweenCounts int64  `json:"diff_between_counts"`
	ResolvedQuantity  int64  `json:"resolved_quantity"`
	Overridden        bool   `json:"overridden"`
	HasDifference     bool   `json:"has_difference"`
}

// ComparisonStats estadísticas de la vista de comparación.
type ComparisonStats struct {
	Total              int             `json:"total"`
	Counted            int             `json:"counted"`
	Uncounted          int             `json:"uncounted"`
	WithDifferences    int             `json:"with_differences"`
	WithoutDifferences int             `json:"without_differences"`
	CompletionPct      decimal.Decimal `json:"completion_pct"`
	NetDiffVsSystem    int64           `json:"net_diff_vs_system"`
}

// ComparisonResponse filas filtradas más estadísticas de la sesión completa.
type ComparisonResponse struct {
	SessionID string                  `json:"session_id"`
	SectorID  string                  `json:"sector_id"`
	State     string                  `json:"state"`
	Filter    string                  `json:"filter"`
	Rows      []ReconciledRowResponse `json:"rows"`
	Stats     ComparisonStats         `json:"stats"`
}

// FinalizeRequest body para POST /api/count-sessions/:id/finalize.
// Actions y Overrides se aplican antes de escribir en el ledger.
type FinalizeRequest struct {
	Actions   map[string]string `json:"actions"`
	Overrides map[string]int64  `json:"overrides"`
}

// AdjustmentLineResponse línea del registro generado.
type AdjustmentLineResponse struct {
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name,omitempty"`
	StockAtSystem    int64  `json:"stock_at_system"`
	Count1           int64  `json:"count1"`
	Count2           int64  `json:"count2"`
	WasCounted       bool   `json:"was_counted"`
	Action           string `json:"action"`
	Overridden       bool   `json:"overridden"`
	PreviousQuantity int64  `json:"previous_quantity"`
	NewQuantity      int64  `json:"new_quantity"`
	Delta            int64  `json:"delta"`
}

// AdjustmentRecordResponse registro inmutable de un conteo aplicado.
type AdjustmentRecordResponse struct {
	ID              string                   `json:"id"`
	SessionID       string                   `json:"session_id"`
	SectorID        string                   `json:"sector_id"`
	User1ID         string                   `json:"user1_id"`
	User2ID         string                   `json:"user2_id"`
	SupervisorID    string                   `json:"supervisor_id"`
	Outcome         string                   `json:"outcome"`
	TotalProducts   int                      `json:"total_products"`
	CountedProducts int                      `json:"counted_products"`
	Attempts        int                      `json:"attempts"`
	NetDelta        int64                    `json:"net_delta"`
	CreatedAt       time.Time                `json:"created_at"`
	Lines           []AdjustmentLineResponse `json:"lines"`
}

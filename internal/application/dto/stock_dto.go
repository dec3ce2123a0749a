package dto

import "time"

// TransferRequest body para POST /api/stock/transfers.
// FromSectorID vacío toma del pool sin sector.
type TransferRequest struct {
	ProductID    string `json:"product_id"`
	FromSectorID string `json:"from_sector_id"`
	ToSectorID   string `json:"to_sector_id"`
	QuantityExpr string `json:"quantity_expr" example:"3x60"`
}

// TransferResponse resultado de un traslado.
type TransferResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	FromSectorID  string `json:"from_sector_id"`
	ToSectorID    string `json:"to_sector_id"`
	Quantity      int64  `json:"quantity"`
	NewOriginQty  int64  `json:"new_origin_qty"`
	NewDestQty    int64  `json:"new_dest_qty"`
}

// AssignItemRequest un producto del lote de asignación.
type AssignItemRequest struct {
	ProductID    string `json:"product_id"`
	QuantityExpr string `json:"quantity_expr"`
}

// AssignRequest body para POST /api/stock/assignments (todo o nada).
type AssignRequest struct {
	SectorID string              `json:"sector_id"`
	Items    []AssignItemRequest `json:"items"`
}

// AssignItemResult resultado por producto.
type AssignItemResult struct {
	ProductID    string `json:"product_id"`
	Quantity     int64  `json:"quantity"`
	NewPoolQty   int64  `json:"new_pool_qty"`
	NewSectorQty int64  `json:"new_sector_qty"`
}

// AssignResponse resultado del lote.
type AssignResponse struct {
	Success       bool               `json:"success"`
	TransactionID string             `json:"transaction_id"`
	SectorID      string             `json:"sector_id"`
	Results       []AssignItemResult `json:"results"`
}

// ReceiveRequest body para POST /api/stock/receipts. SectorID vacío ingresa al pool sin sector.
type ReceiveRequest struct {
	ProductID    string `json:"product_id"`
	SectorID     string `json:"sector_id"`
	QuantityExpr string `json:"quantity_expr"`
	Reference    string `json:"reference"`
}

// ReceiveResponse resultado de un ingreso.
type ReceiveResponse struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	SectorID      string `json:"sector_id"`
	Quantity      int64  `json:"quantity"`
	NewQuantity   int64  `json:"new_quantity"`
}

// ClearZeroStockResponse filas en cero eliminadas de un sector.
type ClearZeroStockResponse struct {
	SectorID string `json:"sector_id"`
	Removed  int    `json:"removed"`
}

// ConsolidatedStockFilter filtros de GET /api/stock/consolidated.
type ConsolidatedStockFilter struct {
	Search      string `query:"search"`
	SectorID    string `query:"sector_id"`
	IncludeZero bool   `query:"include_zero"`
}

// ConsolidatedStockRow total de un producto en todos sus sectores.
type ConsolidatedStockRow struct {
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	CustomCode    string    `json:"custom_code,omitempty"`
	UnitMeasure   string    `json:"unit_measure,omitempty"`
	TotalQuantity int64     `json:"total_quantity"`
	SectorCount   int       `json:"sector_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

// SectorStockItem cantidad de un producto en el sector.
type SectorStockItem struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SectorStockResponse stock de un sector.
type SectorStockResponse struct {
	SectorID   string            `json:"sector_id"`
	SectorName string            `json:"sector_name"`
	TotalUnits int64             `json:"total_units"`
	Items      []SectorStockItem `json:"items"`
}

// MovementResponse una fila de auditoría del ledger.
type MovementResponse struct {
	ID               string    `json:"id"`
	TransactionID    string    `json:"transaction_id"`
	ProductID        string    `json:"product_id"`
	SectorID         string    `json:"sector_id"`
	Type             string    `json:"type"`
	Quantity         int64     `json:"quantity"`
	PreviousQuantity int64     `json:"previous_quantity"`
	NewQuantity      int64     `json:"new_quantity"`
	Reference        string    `json:"reference,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	CreatedBy        string    `json:"created_by"`
}

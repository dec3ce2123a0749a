package dto

import "time"

// CreateSectorRequest entrada para crear un sector.
type CreateSectorRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
}

// SectorResponse salida de un sector.
type SectorResponse struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SectorListResponse lista paginada de sectores.
type SectorListResponse struct {
	Items []SectorResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

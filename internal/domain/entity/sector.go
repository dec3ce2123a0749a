package entity

import "time"

// Sector representa una ubicación física de almacenamiento dentro de la empresa (tenant).
type Sector struct {
	ID        string
	CompanyID string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

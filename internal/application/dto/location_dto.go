package dto

import (
	"time"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// CreateLocationRequest entrada para registrar una bodega o sucursal.
type CreateLocationRequest struct {
	Code     string `json:"code" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Kind     string `json:"kind" validate:"oneof=warehouse branch"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// LocationResponse salida de una ubicación.
type LocationResponse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LocationFromEntity mapea la entidad a la respuesta.
func LocationFromEntity(l *entity.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID,
		Code:      l.Code,
		Name:      l.Name,
		Kind:      l.Kind,
		ParentID:  l.ParentID,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

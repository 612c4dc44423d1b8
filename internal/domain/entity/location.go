package entity

import "time"

// Tipos de ubicación que mantienen stock.
const (
	LocationWarehouse = "warehouse"
	LocationBranch    = "branch"
)

// Location bodega o sucursal que mantiene stock. El núcleo la trata como un ID opaco;
// el registro solo confirma que existe y está activa.
type Location struct {
	ID        int64
	Code      string
	Name      string
	Kind      string // warehouse | branch
	ParentID  *int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

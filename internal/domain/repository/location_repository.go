package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// LocationRepository define el puerto de persistencia del registro de ubicaciones (bodegas y sucursales).
type LocationRepository interface {
	Create(ctx context.Context, location *entity.Location) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Location, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Location, error)
}

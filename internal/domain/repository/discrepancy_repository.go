package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// DiscrepancyRepository define el puerto de persistencia de discrepancias y sus líneas.
type DiscrepancyRepository interface {
	// Create asigna IDs; devuelve domain.ErrDuplicate si ya existe el par (traslado, motivo).
	Create(ctx context.Context, d *entity.Discrepancy) error
	GetByID(ctx context.Context, id int64) (*entity.Discrepancy, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.Discrepancy, error)
	// GetByTransferAndReason devuelve nil, nil si el bucket no existe.
	GetByTransferAndReason(ctx context.Context, transferID int64, reason entity.ReasonCategory) (*entity.Discrepancy, error)
	ListByTransfer(ctx context.Context, transferID int64) ([]*entity.Discrepancy, error)
	// ListUnresolved discrepancias no resueltas; locationID 0 = todas las ubicaciones.
	ListUnresolved(ctx context.Context, locationID int64) ([]*entity.Discrepancy, error)
	// Update persiste cabecera (con chequeo de Version) e inserta las líneas nuevas (ID 0)
	// o actualiza la disposición de las existentes.
	Update(ctx context.Context, d *entity.Discrepancy) error
	CountUnresolved(ctx context.Context, transferID int64) (int, error)
}

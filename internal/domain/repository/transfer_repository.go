package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// TransferFilter filtros para listar traslados. LocationID coincide con origen o destino.
type TransferFilter struct {
	Statuses   []entity.TransferStatus
	LocationID int64
	Limit      int
	Offset     int
}

// TransferRepository define el puerto de persistencia del agregado Transfer (cabecera + líneas).
type TransferRepository interface {
	// Create asigna IDs a la cabecera y a las líneas.
	Create(ctx context.Context, t *entity.Transfer) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Transfer, error)
	// GetForUpdate bloquea la fila sin esperar; si otra transacción la tiene devuelve ConcurrentModificationError.
	GetForUpdate(ctx context.Context, id int64) (*entity.Transfer, error)
	// Update persiste estado y sellos de la cabecera si Version coincide; luego la incrementa.
	Update(ctx context.Context, t *entity.Transfer) error
	List(ctx context.Context, filter TransferFilter) ([]*entity.Transfer, error)
}

// ShipmentRepository registros de despacho: se crean una vez y no se modifican.
type ShipmentRepository interface {
	// Create devuelve domain.ErrDuplicate si el traslado ya tiene despacho.
	Create(ctx context.Context, s *entity.Shipment) error
	GetByTransfer(ctx context.Context, transferID int64) (*entity.Shipment, error)
}

// ReceiptRepository registros de recepción: se crean una vez y no se modifican.
type ReceiptRepository interface {
	// Create devuelve domain.ErrDuplicate si el traslado ya tiene recepción.
	Create(ctx context.Context, r *entity.Receipt) error
	GetByTransfer(ctx context.Context, transferID int64) (*entity.Receipt, error)
}

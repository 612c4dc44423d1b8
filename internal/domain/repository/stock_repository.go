package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// StockRepository define el puerto del saldo materializado por producto+ubicación.
// Usado dentro de transacciones para garantizar consistencia con el libro.
type StockRepository interface {
	// Get devuelve saldo cero si la fila no existe.
	Get(ctx context.Context, productID, locationID int64) (*entity.StockBalance, error)
	Upsert(ctx context.Context, balance *entity.StockBalance) error
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID, locationID int64) (*entity.StockBalance, error)
}

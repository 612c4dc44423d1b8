package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// LedgerFilter filtros para listar asientos del libro. Campos cero no filtran.
type LedgerFilter struct {
	ProductID  int64
	LocationID int64
	TransferID int64
	Kind       entity.MovementKind
	From, To   *time.Time
	Limit      int
	Offset     int
}

// StockLedgerRepository define el puerto del libro de stock (solo inserción).
type StockLedgerRepository interface {
	// Insert persiste el asiento. Si la clave de idempotencia ya existe no inserta y devuelve false.
	Insert(ctx context.Context, entry *entity.StockLedgerEntry) (bool, error)
	ListByTransfer(ctx context.Context, transferID int64) ([]*entity.StockLedgerEntry, error)
	List(ctx context.Context, filter LedgerFilter) ([]*entity.StockLedgerEntry, error)
}

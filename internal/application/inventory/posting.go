package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// Posting asiento a registrar en el libro dentro de una unidad de trabajo existente.
type Posting struct {
	ProductID      int64
	LocationID     int64
	Quantity       decimal.Decimal // con signo
	Kind           entity.MovementKind
	Reference      entity.Reference
	TransferID     *int64
	TransferLineID int64
	IdempotencyKey string
	Notes          string
	Actor          string
	At             time.Time
	// RequireAvailable rechaza el asiento si el saldo quedaría negativo.
	RequireAvailable bool
}

// PostInTx bloquea el saldo (SELECT FOR UPDATE), inserta el asiento y actualiza el saldo materializado.
// Una clave de idempotencia repetida no cambia nada y devuelve posted=false.
func PostInTx(ctx context.Context, repos repository.Repositories, p Posting) (posted bool, err error) {
	if !p.Kind.Valid() {
		return false, domain.NewValidationError("kind", fmt.Sprintf("tipo de movimiento desconocido %q", p.Kind))
	}
	if p.IdempotencyKey == "" {
		return false, domain.NewValidationError("idempotency_key", "requerida")
	}
	if p.Quantity.IsZero() {
		return false, nil
	}

	balance, err := repos.Stock.GetForUpdate(ctx, p.ProductID, p.LocationID)
	if err != nil {
		return false, err
	}
	next := balance.Quantity.Add(p.Quantity)
	if p.RequireAvailable && next.IsNegative() {
		var transferID int64
		if p.TransferID != nil {
			transferID = *p.TransferID
		}
		return false, &domain.InsufficientStockError{
			TransferID: transferID,
			LineID:     p.TransferLineID,
			ProductID:  p.ProductID,
			LocationID: p.LocationID,
			Available:  balance.Quantity,
			Required:   p.Quantity.Neg(),
		}
	}

	entry := &entity.StockLedgerEntry{
		ProductID:      p.ProductID,
		LocationID:     p.LocationID,
		Quantity:       p.Quantity,
		Kind:           p.Kind,
		Reference:      p.Reference,
		TransferID:     p.TransferID,
		TransferLineID: p.TransferLineID,
		IdempotencyKey: p.IdempotencyKey,
		Notes:          p.Notes,
		CreatedBy:      p.Actor,
		CreatedAt:      p.At,
	}
	inserted, err := repos.Ledger.Insert(ctx, entry)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, nil
	}

	balance.Quantity = next
	balance.UpdatedAt = p.At
	if err := repos.Stock.Upsert(ctx, balance); err != nil {
		return false, err
	}
	return true, nil
}

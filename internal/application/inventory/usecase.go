package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// RegisterMovementUseCase registra movimientos externos al traslado (compra, venta, ajuste, devolución)
// de forma transaccional con bloqueo de fila (SELECT FOR UPDATE) y Commit/Rollback.
type RegisterMovementUseCase struct {
	txRunner     TxRunner
	locationRepo repository.LocationRepository
	now          func() time.Time
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(txRunner TxRunner, locationRepo repository.LocationRepository) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{txRunner: txRunner, locationRepo: locationRepo, now: time.Now}
}

// MovementInputDTO entrada para registrar un movimiento.
// Purchase/Return suman, Sale resta; Adjustment usa el signo de Quantity.
// ExternalRef opcional hace idempotente el registro (mismo ref = mismo asiento).
type MovementInputDTO struct {
	UserID      string
	ProductID   int64
	LocationID  int64
	Kind        entity.MovementKind
	Quantity    decimal.Decimal
	ExternalRef string
	Notes       string
}

// RegisterMovement valida, abre la transacción y asienta el movimiento.
// Devuelve el asiento; Posted=false si la referencia externa ya se había registrado.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInputDTO) (*entity.StockLedgerEntry, bool, error) {
	if input.ProductID <= 0 {
		return nil, false, domain.NewValidationError("product_id", "requerido")
	}
	if input.Quantity.IsZero() {
		return nil, false, domain.NewValidationError("quantity", "no puede ser cero")
	}

	qty := input.Quantity
	switch input.Kind {
	case entity.MovementPurchase, entity.MovementReturn:
		if qty.IsNegative() {
			return nil, false, domain.NewValidationError("quantity", "debe ser positiva")
		}
	case entity.MovementSale:
		if qty.IsNegative() {
			return nil, false, domain.NewValidationError("quantity", "debe ser positiva")
		}
		qty = qty.Neg()
	case entity.MovementAdjustment:
	default:
		return nil, false, domain.NewValidationError("kind", fmt.Sprintf("no se registra manualmente: %q", input.Kind))
	}

	loc, err := uc.locationRepo.GetByID(ctx, input.LocationID)
	if err != nil {
		return nil, false, err
	}
	if loc == nil || !loc.Active {
		return nil, false, &domain.ValidationError{Field: "location_id", Reason: "ubicación inexistente o inactiva", ID: input.LocationID}
	}

	ref := input.ExternalRef
	if ref == "" {
		ref = uuid.New().String()
	}
	now := uc.now()
	p := Posting{
		ProductID:        input.ProductID,
		LocationID:       input.LocationID,
		Quantity:         qty,
		Kind:             input.Kind,
		Reference:        entity.Reference{Kind: entity.RefManual},
		IdempotencyKey:   fmt.Sprintf("manual:%s:%s", input.Kind, ref),
		Notes:            input.Notes,
		Actor:            input.UserID,
		At:               now,
		RequireAvailable: qty.IsNegative(),
	}

	var posted bool
	err = uc.txRunner.Run(ctx, func(repos repository.Repositories) error {
		var err error
		posted, err = PostInTx(ctx, repos, p)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return &entity.StockLedgerEntry{
		ProductID:      p.ProductID,
		LocationID:     p.LocationID,
		Quantity:       p.Quantity,
		Kind:           p.Kind,
		Reference:      p.Reference,
		IdempotencyKey: p.IdempotencyKey,
		Notes:          p.Notes,
		CreatedBy:      p.Actor,
		CreatedAt:      now,
	}, posted, nil
}

// BalanceQuery consultas de lectura sobre saldos y asientos.
type BalanceQuery struct {
	stockRepo  repository.StockRepository
	ledgerRepo repository.StockLedgerRepository
}

// NewBalanceQuery construye las consultas.
func NewBalanceQuery(stockRepo repository.StockRepository, ledgerRepo repository.StockLedgerRepository) *BalanceQuery {
	return &BalanceQuery{stockRepo: stockRepo, ledgerRepo: ledgerRepo}
}

// GetLedgerBalance saldo materializado del producto en la ubicación (cero si nunca tuvo movimientos).
func (q *BalanceQuery) GetLedgerBalance(ctx context.Context, productID, locationID int64) (*entity.StockBalance, error) {
	if productID <= 0 || locationID <= 0 {
		return nil, domain.NewValidationError("product_id/location_id", "requeridos")
	}
	return q.stockRepo.Get(ctx, productID, locationID)
}

// ListEntries lista asientos filtrados, más recientes primero.
func (q *BalanceQuery) ListEntries(ctx context.Context, filter repository.LedgerFilter) ([]*entity.StockLedgerEntry, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return q.ledgerRepo.List(ctx, filter)
}

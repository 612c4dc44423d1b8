// Package financial registra el impacto monetario de discrepancias y conciliaciones
// y las recuperaciones posteriores (transportista, proveedor).
package financial

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// TxRunner ejecuta fn dentro de una transacción con repositorios atados a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// RecordInput datos de un impacto nuevo. Amount con signo; las correcciones son impactos nuevos.
type RecordInput struct {
	Cause       entity.CauseRef
	LocationID  int64
	Amount      decimal.Decimal
	Category    entity.ImpactCategory
	Recoverable bool
}

// RecoveryResult impacto tras la recuperación y el monto efectivamente aplicado.
type RecoveryResult struct {
	Impact  *entity.FinancialImpact
	Applied decimal.Decimal
}

// Service casos de uso del registro de impactos financieros.
type Service struct {
	tx      TxRunner
	impacts repository.FinancialImpactRepository
	log     *logger.Logger
	now     func() time.Time
}

// NewService construye el servicio. impacts es el repositorio de lectura (fuera de transacción).
func NewService(tx TxRunner, impacts repository.FinancialImpactRepository, log *logger.Logger) *Service {
	return &Service{tx: tx, impacts: impacts, log: log, now: time.Now}
}

// Record crea un impacto en su propia transacción.
func (s *Service) Record(ctx context.Context, actor string, in RecordInput) (*entity.FinancialImpact, error) {
	var out *entity.FinancialImpact
	err := s.tx.Run(ctx, func(repos repository.Repositories) error {
		var err error
		out, err = s.RecordInTx(ctx, repos, actor, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordInTx crea un impacto dentro de la unidad de trabajo del llamador.
// La causa debe existir; la ubicación por defecto es la de la causa.
func (s *Service) RecordInTx(ctx context.Context, repos repository.Repositories, actor string, in RecordInput) (*entity.FinancialImpact, error) {
	if !in.Cause.Kind.Valid() {
		return nil, domain.NewValidationError("cause_kind", fmt.Sprintf("desconocido %q", in.Cause.Kind))
	}
	if !in.Category.Valid() {
		return nil, domain.NewValidationError("category", fmt.Sprintf("desconocida %q", in.Category))
	}
	if in.Amount.IsZero() {
		return nil, domain.NewValidationError("amount", "no puede ser cero")
	}

	locationID, err := causeLocation(ctx, repos, in.Cause)
	if err != nil {
		return nil, err
	}
	if in.LocationID != 0 {
		locationID = in.LocationID
	}

	now := s.now()
	f := &entity.FinancialImpact{
		Cause:           in.Cause,
		LocationID:      locationID,
		Category:        in.Category,
		Amount:          in.Amount,
		Recoverable:     in.Recoverable,
		RecoveredAmount: decimal.Zero,
		CreatedBy:       actor,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := repos.Impacts.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("impact_id", f.ID).
		Str("cause", string(f.Cause.Kind)).
		Int64("cause_id", f.Cause.ID).
		Str("amount", f.Amount.String()).
		Str("actor", actor).
		Msg("impacto financiero registrado")
	return f, nil
}

func causeLocation(ctx context.Context, repos repository.Repositories, cause entity.CauseRef) (int64, error) {
	switch cause.Kind {
	case entity.CauseDiscrepancy:
		d, err := repos.Discrepancies.GetByID(ctx, cause.ID)
		if err != nil {
			return 0, err
		}
		if d == nil {
			return 0, &domain.ValidationError{Field: "cause_id", Reason: "discrepancia inexistente", ID: cause.ID}
		}
		return d.LocationID, nil
	default:
		t, err := repos.Transfers.GetByID(ctx, cause.ID)
		if err != nil {
			return 0, err
		}
		if t == nil {
			return 0, &domain.ValidationError{Field: "cause_id", Reason: "traslado inexistente", ID: cause.ID}
		}
		return t.DestinationLocationID, nil
	}
}

// RecordRecovery aplica min(amount, pendiente) bajo bloqueo de fila. Con pendiente cero no cambia nada.
// Solo impactos recuperables de monto positivo aceptan recuperaciones.
func (s *Service) RecordRecovery(ctx context.Context, actor string, impactID int64, amount decimal.Decimal, note string) (*RecoveryResult, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "debe ser positivo")
	}
	var res RecoveryResult
	err := s.tx.Run(ctx, func(repos repository.Repositories) error {
		f, err := repos.Impacts.GetForUpdate(ctx, impactID)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("impacto %d: %w", impactID, domain.ErrNotFound)
		}
		if !f.Recoverable || !f.Amount.IsPositive() {
			return &domain.ValidationError{Field: "impact_id", Reason: "el impacto no es recuperable", ID: impactID}
		}
		res.Applied = f.ApplyRecovery(amount, note, actor, s.now())
		res.Impact = f
		if res.Applied.IsZero() {
			return nil
		}
		return repos.Impacts.UpdateRecovery(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("impact_id", impactID).
		Str("applied", res.Applied.String()).
		Str("recovered", res.Impact.RecoveredAmount.String()).
		Str("actor", actor).
		Msg("recuperación registrada")
	return &res, nil
}

// Get obtiene un impacto por ID.
func (s *Service) Get(ctx context.Context, id int64) (*entity.FinancialImpact, error) {
	f, err := s.impacts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("impacto %d: %w", id, domain.ErrNotFound)
	}
	return f, nil
}

// ListByCause impactos atados a una causa.
func (s *Service) ListByCause(ctx context.Context, cause entity.CauseRef) ([]*entity.FinancialImpact, error) {
	if !cause.Kind.Valid() {
		return nil, domain.NewValidationError("cause_kind", fmt.Sprintf("desconocido %q", cause.Kind))
	}
	return s.impacts.ListByCause(ctx, cause)
}

// Package transfer implementa el ciclo de vida de traslados entre ubicaciones, la captura de
// despacho y recepción, el flujo de discrepancias y la conciliación.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
	"github.com/jhoicas/Traslados-api/internal/domain/workflow"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// Config política de recepción.
type Config struct {
	Severity variance.SeverityThresholds
	// RequireAllLines exige cantidad recibida para cada línea; si es false se asume la esperada.
	RequireAllLines bool
	// AutoReconcileClean concilia en la misma transacción una recepción sin discrepancias.
	AutoReconcileClean bool
}

// DefaultConfig valores por defecto.
func DefaultConfig() Config {
	return Config{
		Severity:           variance.DefaultSeverity(),
		RequireAllLines:    true,
		AutoReconcileClean: true,
	}
}

// Deps colaboradores del servicio.
type Deps struct {
	Tx        TxRunner
	Repos     repository.Repositories // lecturas fuera de transacción
	Tolerance ToleranceProvider
	Publisher EventPublisher
	Locker    Locker
	Impacts   ImpactRecorder
	Documents DispatchNoteRenderer // opcional
	Log       *logger.Logger
}

// Service casos de uso de traslados y discrepancias.
type Service struct {
	tx        TxRunner
	repos     repository.Repositories
	tolerance ToleranceProvider
	publisher EventPublisher
	locker    Locker
	impacts   ImpactRecorder
	documents DispatchNoteRenderer
	log       *logger.Logger
	cfg       Config
	now       func() time.Time
}

// NewService construye el servicio.
func NewService(deps Deps, cfg Config) *Service {
	return &Service{
		tx:        deps.Tx,
		repos:     deps.Repos,
		tolerance: deps.Tolerance,
		publisher: deps.Publisher,
		locker:    deps.Locker,
		impacts:   deps.Impacts,
		documents: deps.Documents,
		log:       deps.Log,
		cfg:       cfg,
		now:       time.Now,
	}
}

// unitOfWork acumula lo que se publica tras el commit.
type unitOfWork struct {
	repos  repository.Repositories
	now    time.Time
	actor  string
	events []entity.DomainEvent
}

func (u *unitOfWork) emit(typ, kind string, id int64, payload map[string]any) {
	u.events = append(u.events, entity.NewDomainEvent(typ, kind, id, u.actor, u.now, payload))
}

func lockKey(transferID int64) string { return fmt.Sprintf("transfer:%d", transferID) }

// withTransferLock serializa toda mutación sobre un traslado (y sus discrepancias).
func (s *Service) withTransferLock(ctx context.Context, transferID int64, fn func() error) error {
	release, ok, err := s.locker.TryLock(ctx, lockKey(transferID))
	if err != nil {
		return fmt.Errorf("lock traslado %d: %w", transferID, err)
	}
	if !ok {
		s.log.Warn().Int64("transfer_id", transferID).Msg("operación concurrente rechazada")
		return &domain.ConcurrentModificationError{Entity: "transfer", ID: transferID}
	}
	defer release()
	return fn()
}

// run abre la unidad de trabajo y publica los eventos sólo si hubo commit.
func (s *Service) run(ctx context.Context, actor string, fn func(u *unitOfWork) error) error {
	var u *unitOfWork
	err := s.tx.Run(ctx, func(repos repository.Repositories) error {
		u = &unitOfWork{repos: repos, now: s.now(), actor: actor}
		return fn(u)
	})
	if err != nil {
		return err
	}
	if len(u.events) > 0 {
		s.publisher.Publish(ctx, u.events...)
	}
	return nil
}

// mutateTransfer bloquea el traslado, lo carga con bloqueo de fila, aplica fn y persiste.
func (s *Service) mutateTransfer(ctx context.Context, actor string, id int64, fn func(u *unitOfWork, t *entity.Transfer) error) (*entity.Transfer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var out *entity.Transfer
	err := s.withTransferLock(ctx, id, func() error {
		return s.run(ctx, actor, func(u *unitOfWork) error {
			t, err := loadTransferForUpdate(ctx, u.repos, id)
			if err != nil {
				return err
			}
			if err := fn(u, t); err != nil {
				return err
			}
			t.UpdatedAt = u.now
			if err := u.repos.Transfers.Update(ctx, t); err != nil {
				return err
			}
			out = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func loadTransferForUpdate(ctx context.Context, repos repository.Repositories, id int64) (*entity.Transfer, error) {
	t, err := repos.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("traslado %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// transition aplica el evento según la máquina de estados y sella actor y fecha.
func (s *Service) transition(u *unitOfWork, t *entity.Transfer, ev workflow.TransferEvent) error {
	from := t.Status
	next, err := workflow.NextTransferStatus(t.ID, from, ev)
	if err != nil {
		return err
	}
	now := u.now
	t.Status = next
	switch ev {
	case workflow.EventApprove:
		t.ApprovedBy, t.ApprovedAt = u.actor, &now
	case workflow.EventDispatch:
		t.DispatchedBy, t.DispatchedAt = u.actor, &now
	case workflow.EventDepart:
		t.InTransitAt = &now
	case workflow.EventDeliver:
		t.DeliveredBy, t.DeliveredAt = u.actor, &now
	case workflow.EventReceive:
		t.ReceivedBy, t.ReceivedAt = u.actor, &now
	case workflow.EventDispute:
		t.DisputedAt = &now
	case workflow.EventReconcile:
		t.ReconciledBy, t.ReconciledAt = u.actor, &now
	case workflow.EventCancel:
		t.CancelledBy, t.CancelledAt = u.actor, &now
	}
	s.log.Info().
		Int64("transfer_id", t.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Str("actor", u.actor).
		Msg("transición de traslado")
	return nil
}

func requireActor(actor string) error {
	if actor == "" {
		return domain.NewValidationError("actor", "requerido")
	}
	return nil
}

func transferRef(id int64) entity.Reference {
	return entity.Reference{Kind: entity.RefTransfer, ID: id}
}

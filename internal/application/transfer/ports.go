package transfer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción; Commit si fn no falla, Rollback si falla.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.Repositories) error) error
}

// ToleranceProvider resuelve el porcentaje de tolerancia de una línea. found=false si no hay regla.
type ToleranceProvider interface {
	Tolerance(ctx context.Context, q policy.Query) (pct decimal.Decimal, found bool, err error)
}

// EventPublisher entrega eventos de dominio después del commit. No debe bloquear ni fallar el núcleo.
type EventPublisher interface {
	Publish(ctx context.Context, events ...entity.DomainEvent)
}

// Locker exclusión mutua por clave entre solicitudes (y entre instancias, según la implementación).
// ok=false si otra solicitud tiene la clave.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}

// ImpactRecorder registra impactos financieros dentro de la unidad de trabajo del traslado.
type ImpactRecorder interface {
	RecordInTx(ctx context.Context, repos repository.Repositories, actor string, in financial.RecordInput) (*entity.FinancialImpact, error)
}

// DispatchNoteRenderer genera la remisión imprimible de un traslado despachado.
type DispatchNoteRenderer interface {
	RenderDispatchNote(ctx context.Context, doc DispatchNote) ([]byte, error)
}

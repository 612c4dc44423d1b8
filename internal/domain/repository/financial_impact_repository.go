package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// FinancialImpactRepository define el puerto de persistencia de impactos financieros.
type FinancialImpactRepository interface {
	Create(ctx context.Context, f *entity.FinancialImpact) error
	GetByID(ctx context.Context, id int64) (*entity.FinancialImpact, error)
	GetForUpdate(ctx context.Context, id int64) (*entity.FinancialImpact, error)
	// UpdateRecovery persiste RecoveredAmount y agrega las notas que aún no estén guardadas.
	UpdateRecovery(ctx context.Context, f *entity.FinancialImpact) error
	ListByCause(ctx context.Context, cause entity.CauseRef) ([]*entity.FinancialImpact, error)
}

package repository

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/domain/policy"
)

// ToleranceRuleRepository reglas de tolerancia administradas en base de datos.
type ToleranceRuleRepository interface {
	ListRules(ctx context.Context) ([]policy.Rule, error)
	CreateRule(ctx context.Context, rule *policy.Rule) error
}

package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

var _ repository.ToleranceRuleRepository = (*ToleranceRuleRepo)(nil)

// ToleranceRuleRepo reglas de tolerancia en la tabla tolerance_policies.
type ToleranceRuleRepo struct {
	q Querier
}

// NewToleranceRuleRepository construye el adaptador.
func NewToleranceRuleRepository(q Querier) *ToleranceRuleRepo {
	return &ToleranceRuleRepo{q: q}
}

// ListRules todas las reglas, en orden de creación.
func (r *ToleranceRuleRepo) ListRules(ctx context.Context) ([]policy.Rule, error) {
	rows, err := r.q.Query(ctx, `SELECT id, location_id, category_id, percent FROM tolerance_policies ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tolerance policies: %w", err)
	}
	defer rows.Close()
	var out []policy.Rule
	for rows.Next() {
		var rule policy.Rule
		if err := rows.Scan(&rule.ID, &rule.LocationID, &rule.CategoryID, &rule.Percent); err != nil {
			return nil, fmt.Errorf("scan tolerance policy: %w", err)
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// CreateRule inserta o reemplaza la regla del mismo alcance (ubicación, categoría).
func (r *ToleranceRuleRepo) CreateRule(ctx context.Context, rule *policy.Rule) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO tolerance_policies (location_id, category_id, percent)
		VALUES ($1, $2, $3)
		ON CONFLICT (COALESCE(location_id, 0), category_id) DO UPDATE SET percent = EXCLUDED.percent
		RETURNING id`,
		rule.LocationID, rule.CategoryID, rule.Percent,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("insert tolerance policy: %w", err)
	}
	return nil
}

// ToleranceProvider resuelve la tolerancia con las reglas de la base; si ninguna aplica consulta el fallback
// (la configuración estática), que puede ser nil.
type ToleranceProvider struct {
	rules    repository.ToleranceRuleRepository
	fallback *policy.StaticProvider
}

// NewToleranceProvider construye el proveedor.
func NewToleranceProvider(rules repository.ToleranceRuleRepository, fallback *policy.StaticProvider) *ToleranceProvider {
	return &ToleranceProvider{rules: rules, fallback: fallback}
}

// Tolerance porcentaje aplicable a la línea; found=false si ni la base ni el fallback tienen regla.
func (p *ToleranceProvider) Tolerance(ctx context.Context, q policy.Query) (decimal.Decimal, bool, error) {
	rules, err := p.rules.ListRules(ctx)
	if err != nil {
		return decimal.Zero, false, err
	}
	if rule, ok := policy.Resolve(rules, q); ok {
		return rule.Percent, true, nil
	}
	if p.fallback == nil {
		return decimal.Zero, false, nil
	}
	return p.fallback.Tolerance(ctx, q)
}

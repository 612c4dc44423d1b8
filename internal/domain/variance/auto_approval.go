package variance

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// AutoApprovalRule regla configurable para aprobar automáticamente variaciones mínimas.
// Los límites nil no se evalúan.
type AutoApprovalRule struct {
	MaxVariancePercent decimal.Decimal
	MaxAbsQuantity     *decimal.Decimal
	MaxValue           *decimal.Decimal
}

// Allows evalúa una línea de discrepancia con el mismo detector usado en la recepción.
func (r AutoApprovalRule) Allows(line entity.DiscrepancyLine, unitCost decimal.Decimal) bool {
	res := Detect(Input{
		Expected: line.ExpectedQuantity,
		Received: line.ExpectedQuantity.Add(line.QuantityDelta),
	}, Policy{TolerancePercent: r.MaxVariancePercent})
	if res.Classification == entity.VarianceOutOfTolerance {
		return false
	}
	abs := line.QuantityDelta.Abs()
	if r.MaxAbsQuantity != nil && abs.GreaterThan(*r.MaxAbsQuantity) {
		return false
	}
	if r.MaxValue != nil && abs.Mul(unitCost).GreaterThan(*r.MaxValue) {
		return false
	}
	return true
}

// Package variance implementa el detector de variaciones entre lo esperado y lo recibido.
// Es puro y determinista: mismas entradas, misma clasificación.
package variance

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

var hundred = decimal.NewFromInt(100)

// Basis magnitud que determinó la clasificación.
type Basis string

const (
	BasisQuantity Basis = "quantity"
	BasisWeight   Basis = "weight"
)

// SeverityThresholds multiplicadores de la tolerancia para escalar la severidad.
// Son entrada de política; el detector no fija umbrales.
type SeverityThresholds struct {
	HighMultiplier     decimal.Decimal
	CriticalMultiplier decimal.Decimal
}

// DefaultSeverity >3× tolerancia = high, >5× = critical.
func DefaultSeverity() SeverityThresholds {
	return SeverityThresholds{
		HighMultiplier:     decimal.NewFromInt(3),
		CriticalMultiplier: decimal.NewFromInt(5),
	}
}

// Policy tolerancia vigente para la línea más los umbrales de severidad.
type Policy struct {
	TolerancePercent decimal.Decimal
	Severity         SeverityThresholds
}

// Input cantidades (y pesos opcionales) esperados y recibidos de una línea.
type Input struct {
	Expected       decimal.Decimal
	Received       decimal.Decimal
	ExpectedWeight *decimal.Decimal
	ReceivedWeight *decimal.Decimal
}

// Result salida del detector.
type Result struct {
	Variance        decimal.Decimal // recibido - esperado (cantidad)
	VariancePercent decimal.Decimal // |variance| / esperado * 100, 4 decimales
	WeightDelta     *decimal.Decimal
	Classification  entity.VarianceClass
	Severity        entity.Severity
	Basis           Basis
	Unbounded       bool // esperado = 0 con recibido distinto de 0
}

// Detect clasifica la línea. El límite es inclusivo: variance_pct == tolerancia está dentro.
func Detect(in Input, p Policy) Result {
	res := Result{
		Variance:       in.Received.Sub(in.Expected),
		Classification: entity.VarianceNone,
		Severity:       entity.SeverityLow,
		Basis:          BasisQuantity,
	}
	qClass, qPct, unbounded := classify(in.Expected, in.Received, p.TolerancePercent)
	res.Classification, res.VariancePercent, res.Unbounded = qClass, qPct, unbounded

	if in.ExpectedWeight != nil && in.ReceivedWeight != nil {
		wd := in.ReceivedWeight.Sub(*in.ExpectedWeight)
		res.WeightDelta = &wd
		wClass, wPct, wUnbounded := classify(*in.ExpectedWeight, *in.ReceivedWeight, p.TolerancePercent)
		if rank(wClass) > rank(res.Classification) {
			res.Classification, res.VariancePercent, res.Unbounded = wClass, wPct, wUnbounded
			res.Basis = BasisWeight
		}
	}

	if res.Classification == entity.VarianceOutOfTolerance {
		res.Severity = severity(res.VariancePercent, res.Unbounded, p)
	}
	return res
}

// classify compara sin dividir: |v|*100 <= tol*esperado.
func classify(expected, received, tol decimal.Decimal) (entity.VarianceClass, decimal.Decimal, bool) {
	v := received.Sub(expected)
	if v.IsZero() {
		return entity.VarianceNone, decimal.Zero, false
	}
	if !expected.IsPositive() {
		return entity.VarianceOutOfTolerance, decimal.Zero, true
	}
	abs := v.Abs()
	pct := abs.Mul(hundred).DivRound(expected, 4)
	if abs.Mul(hundred).LessThanOrEqual(tol.Mul(expected)) {
		return entity.VarianceWithinTolerance, pct, false
	}
	return entity.VarianceOutOfTolerance, pct, false
}

func severity(pct decimal.Decimal, unbounded bool, p Policy) entity.Severity {
	if unbounded {
		return entity.SeverityCritical
	}
	if !p.TolerancePercent.IsPositive() {
		return entity.SeverityMedium
	}
	crit := p.TolerancePercent.Mul(p.Severity.CriticalMultiplier)
	high := p.TolerancePercent.Mul(p.Severity.HighMultiplier)
	switch {
	case p.Severity.CriticalMultiplier.IsPositive() && pct.GreaterThan(crit):
		return entity.SeverityCritical
	case p.Severity.HighMultiplier.IsPositive() && pct.GreaterThan(high):
		return entity.SeverityHigh
	default:
		return entity.SeverityMedium
	}
}

func rank(c entity.VarianceClass) int {
	switch c {
	case entity.VarianceWithinTolerance:
		return 1
	case entity.VarianceOutOfTolerance:
		return 2
	}
	return 0
}

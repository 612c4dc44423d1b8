package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CauseKind conjunto cerrado de entidades a las que se puede atar un impacto financiero.
type CauseKind string

const (
	CauseDiscrepancy    CauseKind = "discrepancy"
	CauseReconciliation CauseKind = "reconciliation" // conciliación de un traslado (ID = traslado)
)

// Valid indica si el tipo de causa es conocido.
func (k CauseKind) Valid() bool {
	return k == CauseDiscrepancy || k == CauseReconciliation
}

// CauseRef enlace polimórfico tipado (unión etiquetada) al registro causante.
type CauseRef struct {
	Kind CauseKind
	ID   int64
}

// ImpactCategory categoría contable del impacto.
type ImpactCategory string

const (
	ImpactDirectLoss   ImpactCategory = "direct_loss"
	ImpactIndirectLoss ImpactCategory = "indirect_loss"
	ImpactCost         ImpactCategory = "cost"
	ImpactRecovery     ImpactCategory = "recovery"
)

// Valid indica si la categoría es conocida.
func (c ImpactCategory) Valid() bool {
	switch c {
	case ImpactDirectLoss, ImpactIndirectLoss, ImpactCost, ImpactRecovery:
		return true
	}
	return false
}

// RecoveryNote nota con sello de tiempo de cada recuperación (se agregan, nunca se reescriben).
type RecoveryNote struct {
	Amount     decimal.Decimal
	Note       string
	RecordedBy string
	RecordedAt time.Time
}

// FinancialImpact monto monetario atado a una discrepancia o conciliación.
// Amount no cambia tras crearse; las correcciones son impactos nuevos con signo.
// RecoveredAmount es monótono no decreciente y nunca supera Amount.
type FinancialImpact struct {
	ID              int64
	Cause           CauseRef
	LocationID      int64
	Category        ImpactCategory
	Amount          decimal.Decimal
	Recoverable     bool
	RecoveredAmount decimal.Decimal
	Notes           []RecoveryNote
	CreatedBy       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Remaining saldo pendiente de recuperar (nunca negativo).
func (f *FinancialImpact) Remaining() decimal.Decimal {
	r := f.Amount.Sub(f.RecoveredAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// ApplyRecovery aplica min(amount, pendiente), agrega la nota y devuelve lo efectivamente recuperado.
func (f *FinancialImpact) ApplyRecovery(amount decimal.Decimal, note, actor string, at time.Time) decimal.Decimal {
	actual := decimal.Min(amount, f.Remaining())
	if !actual.IsPositive() {
		return decimal.Zero
	}
	f.RecoveredAmount = f.RecoveredAmount.Add(actual)
	f.Notes = append(f.Notes, RecoveryNote{Amount: actual, Note: note, RecordedBy: actor, RecordedAt: at})
	f.UpdatedAt = at
	return actual
}

// Clone copia profunda.
func (f FinancialImpact) Clone() FinancialImpact {
	out := f
	out.Notes = append([]RecoveryNote(nil), f.Notes...)
	return out
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscrepancyStatus estado del flujo de discrepancias.
type DiscrepancyStatus string

const (
	DiscrepancyOpen        DiscrepancyStatus = "open"
	DiscrepancyUnderReview DiscrepancyStatus = "under_review"
	DiscrepancyResolved    DiscrepancyStatus = "resolved"
	DiscrepancyReopened    DiscrepancyStatus = "reopened"
)

// DiscrepancyStatuses todos los estados del flujo.
var DiscrepancyStatuses = []DiscrepancyStatus{
	DiscrepancyOpen, DiscrepancyUnderReview, DiscrepancyResolved, DiscrepancyReopened,
}

// ReasonCategory motivo (bucket) de la discrepancia. Un traslado tiene a lo sumo un registro por motivo.
type ReasonCategory string

const (
	ReasonWeightDiff ReasonCategory = "weight_diff"
	ReasonDamaged    ReasonCategory = "damaged"
	ReasonSpoiled    ReasonCategory = "spoiled"
	ReasonExpired    ReasonCategory = "expired"
	ReasonShort      ReasonCategory = "short"
	ReasonExcess     ReasonCategory = "excess"
	ReasonMispick    ReasonCategory = "mispick"
	ReasonOther      ReasonCategory = "other"
)

// Valid indica si el motivo es conocido.
func (r ReasonCategory) Valid() bool {
	switch r {
	case ReasonWeightDiff, ReasonDamaged, ReasonSpoiled, ReasonExpired,
		ReasonShort, ReasonExcess, ReasonMispick, ReasonOther:
		return true
	}
	return false
}

// Recoverable indica si la pérdida por este motivo es, en principio, cobrable a un tercero
// (transportista o proveedor).
func (r ReasonCategory) Recoverable() bool {
	switch r {
	case ReasonWeightDiff, ReasonDamaged, ReasonShort, ReasonMispick:
		return true
	}
	return false
}

// Severity severidad para alertas; escalar la sube un nivel.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}

// Rank orden numérico de la severidad.
func (s Severity) Rank() int { return severityRank[s] }

// Next siguiente nivel (critical se mantiene).
func (s Severity) Next() Severity {
	switch s {
	case SeverityLow:
		return SeverityMedium
	case SeverityMedium:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Max devuelve la mayor de dos severidades.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// Disposition resolución elegida para una línea de discrepancia.
type Disposition string

const (
	DispositionAdjust     Disposition = "adjust"
	DispositionReturn     Disposition = "return"
	DispositionScrap      Disposition = "scrap"
	DispositionQuarantine Disposition = "quarantine"
	DispositionReplace    Disposition = "replace"
)

// Valid indica si la disposición es conocida.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionAdjust, DispositionReturn, DispositionScrap, DispositionQuarantine, DispositionReplace:
		return true
	}
	return false
}

// WritesOff indica si la disposición acepta la diferencia como pérdida o ganancia. Las demás la
// dejan en espera (transfer_hold) para un proceso logístico externo.
func (d Disposition) WritesOff() bool {
	return d == DispositionAdjust || d == DispositionScrap
}

// Discrepancy diferencia sin resolver entre lo esperado y lo recibido en un traslado.
type Discrepancy struct {
	ID               int64
	TransferID       int64
	LocationID       int64 // destino del traslado, donde se asientan las correcciones
	Reason           ReasonCategory
	Status           DiscrepancyStatus
	Severity         Severity
	Version          int64
	RaisedBy         string
	RaisedAt         time.Time
	ReviewedBy       string
	ReviewStartedAt  *time.Time
	ResolvedBy       string
	ResolvedAt       *time.Time
	ReopenedBy       string
	ReopenedAt       *time.Time
	ReopenCount      int
	EscalationReason string
	AttachmentIDs    []string
	Lines            []DiscrepancyLine
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DiscrepancyLine diferencia por producto. QuantityDelta negativo = faltante.
type DiscrepancyLine struct {
	ID               int64
	DiscrepancyID    int64
	TransferLineID   int64
	ProductID        int64
	ExpectedQuantity decimal.Decimal
	QuantityDelta    decimal.Decimal
	WeightDelta      *decimal.Decimal
	VariancePercent  decimal.Decimal
	Disposition      Disposition // vacío mientras no se resuelva
	Notes            string
	DispositionedBy  string
	DispositionedAt  *time.Time
}

// Dispositioned indica si la línea ya tiene resolución.
func (l DiscrepancyLine) Dispositioned() bool { return l.Disposition != "" }

// IsResolved indica si la discrepancia está cerrada.
func (d *Discrepancy) IsResolved() bool { return d.Status == DiscrepancyResolved }

// Line busca una línea por ID.
func (d *Discrepancy) Line(id int64) (*DiscrepancyLine, bool) {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return &d.Lines[i], true
		}
	}
	return nil, false
}

// PendingLines cantidad de líneas sin disposición.
func (d *Discrepancy) PendingLines() int {
	n := 0
	for _, l := range d.Lines {
		if !l.Dispositioned() {
			n++
		}
	}
	return n
}

// Clone copia profunda.
func (d Discrepancy) Clone() Discrepancy {
	out := d
	out.Lines = append([]DiscrepancyLine(nil), d.Lines...)
	out.AttachmentIDs = append([]string(nil), d.AttachmentIDs...)
	return out
}

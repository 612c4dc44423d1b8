package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// VarianceClass clasificación del detector de variaciones para una línea.
type VarianceClass string

const (
	VarianceNone            VarianceClass = "none"
	VarianceWithinTolerance VarianceClass = "within_tolerance"
	VarianceOutOfTolerance  VarianceClass = "out_of_tolerance"
)

// Receipt registro físico de llegada (repesaje + verificación de tolerancia). Uno por traslado.
// TolerancePercent es la tolerancia vigente al recibir; no se recalcula después.
type Receipt struct {
	ID               int64
	TransferID       int64
	ReceivedAt       time.Time
	ReceivedBy       string
	GrossWeight      *decimal.Decimal
	TareWeight       *decimal.Decimal
	NetWeight        *decimal.Decimal
	WithinTolerance  bool
	TolerancePercent decimal.Decimal // la mayor tolerancia aplicada entre líneas
	Notes            string
	AttachmentIDs    []string
	Lines            []ReceiptLine
	CreatedAt        time.Time
}

// ReceiptLine cantidad recibida por línea del traslado, con el resultado del detector.
type ReceiptLine struct {
	TransferLineID   int64
	ProductID        int64
	ExpectedQuantity decimal.Decimal
	ReceivedQuantity decimal.Decimal
	ReceivedWeight   *decimal.Decimal
	Variance         decimal.Decimal
	VariancePercent  decimal.Decimal
	TolerancePercent decimal.Decimal
	Classification   VarianceClass
	Defaulted        bool // cantidad no informada; se asumió la esperada
}

// Clone copia profunda.
func (r Receipt) Clone() Receipt {
	out := r
	out.Lines = append([]ReceiptLine(nil), r.Lines...)
	out.AttachmentIDs = append([]string(nil), r.AttachmentIDs...)
	return out
}

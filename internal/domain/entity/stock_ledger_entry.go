package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento en el libro de stock.
type MovementKind string

const (
	MovementTransferOut      MovementKind = "transfer_out"
	MovementTransferIn       MovementKind = "transfer_in"
	MovementTransferReversal MovementKind = "transfer_reversal" // compensa un transfer_out al cancelar
	MovementAdjustment       MovementKind = "adjustment"
	MovementWastage          MovementKind = "wastage"
	MovementTransferHold     MovementKind = "transfer_hold" // diferencia en manos de logística (return, quarantine, replace)
	MovementSale             MovementKind = "sale"
	MovementPurchase         MovementKind = "purchase"
	MovementReturn           MovementKind = "return"
)

// Valid indica si el tipo es conocido.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementTransferOut, MovementTransferIn, MovementTransferReversal, MovementAdjustment,
		MovementWastage, MovementTransferHold, MovementSale, MovementPurchase, MovementReturn:
		return true
	}
	return false
}

// ReferenceKind entidad que originó el movimiento.
type ReferenceKind string

const (
	RefTransfer    ReferenceKind = "transfer"
	RefDiscrepancy ReferenceKind = "discrepancy"
	RefManual      ReferenceKind = "manual" // movimientos externos (compra, venta, ajuste)
)

// Reference enlace a la entidad causante.
type Reference struct {
	Kind ReferenceKind
	ID   int64
}

func (r Reference) String() string { return fmt.Sprintf("%s:%d", r.Kind, r.ID) }

// StockLedgerEntry movimiento inmutable y con signo contra un par (producto, ubicación).
// El stock actual es la suma de las entradas; StockBalance lo materializa.
type StockLedgerEntry struct {
	ID             int64
	ProductID      int64
	LocationID     int64
	Quantity       decimal.Decimal // positivo entrada, negativo salida
	Kind           MovementKind
	Reference      Reference
	TransferID     *int64 // traslado al que pertenece (también para correcciones de discrepancias)
	TransferLineID int64  // línea del traslado, 0 si no aplica
	IdempotencyKey string // único; repetir la clave no vuelve a asentar
	Notes          string
	CreatedBy      string
	CreatedAt      time.Time
}

// LedgerKey construye claves de idempotencia estables, p. ej. "transfer:12:line:3:transfer_out".
func LedgerKey(ref Reference, lineID int64, kind MovementKind) string {
	return fmt.Sprintf("%s:line:%d:%s", ref.String(), lineID, kind)
}

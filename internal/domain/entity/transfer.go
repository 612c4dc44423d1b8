package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado del ciclo de vida de un traslado entre ubicaciones.
type TransferStatus string

const (
	TransferDraft                   TransferStatus = "draft"
	TransferApproved                TransferStatus = "approved"
	TransferDispatched              TransferStatus = "dispatched"
	TransferInTransit               TransferStatus = "in_transit"
	TransferDeliveredPendingConfirm TransferStatus = "delivered_pending_confirm"
	TransferReceived                TransferStatus = "received"
	TransferDisputed                TransferStatus = "disputed"
	TransferReconciled              TransferStatus = "reconciled"
	TransferCancelled               TransferStatus = "cancelled"
)

// TransferStatuses lista todos los estados (usado por pruebas de cierre de la máquina de estados).
var TransferStatuses = []TransferStatus{
	TransferDraft, TransferApproved, TransferDispatched, TransferInTransit,
	TransferDeliveredPendingConfirm, TransferReceived, TransferDisputed,
	TransferReconciled, TransferCancelled,
}

// Valid indica si el estado es uno de los conocidos.
func (s TransferStatus) Valid() bool {
	for _, st := range TransferStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// Transfer cabecera de un traslado; es dueño de sus líneas (cascada).
type Transfer struct {
	ID                     int64
	SourceLocationID       int64
	DestinationLocationID  int64
	DestinationSubLocation *string
	Status                 TransferStatus
	Version                int64 // control optimista de concurrencia
	Notes                  string
	CancelReason           string

	CreatedBy    string
	ApprovedBy   string
	DispatchedBy string
	DeliveredBy  string
	ReceivedBy   string
	ReconciledBy string
	CancelledBy  string

	CreatedAt    time.Time
	ApprovedAt   *time.Time
	DispatchedAt *time.Time
	InTransitAt  *time.Time
	DeliveredAt  *time.Time
	ReceivedAt   *time.Time
	DisputedAt   *time.Time
	ReconciledAt *time.Time
	CancelledAt  *time.Time
	UpdatedAt    time.Time

	Lines []TransferLine
}

// TransferLine línea esperada del traslado. Inmutable una vez despachado.
type TransferLine struct {
	ID               int64
	TransferID       int64
	Position         int
	ProductID        int64
	CategoryID       string // categoría para la política de tolerancia (opcional)
	BatchLabel       string
	ExpectedQuantity decimal.Decimal
	ExpectedWeight   *decimal.Decimal // nil para artículos por conteo
	ExpiryDate       *time.Time
	ReferenceCost    decimal.Decimal // costo unitario de referencia
}

// Line busca una línea por ID.
func (t *Transfer) Line(id int64) (*TransferLine, bool) {
	for i := range t.Lines {
		if t.Lines[i].ID == id {
			return &t.Lines[i], true
		}
	}
	return nil, false
}

// LinesLocked indica si las líneas ya no se pueden modificar.
func (t *Transfer) LinesLocked() bool {
	switch t.Status {
	case TransferDraft, TransferApproved, TransferCancelled:
		return false
	}
	return true
}

// Clone copia profunda (las líneas y punteros de tiempo no se comparten).
func (t Transfer) Clone() Transfer {
	out := t
	out.Lines = make([]TransferLine, len(t.Lines))
	copy(out.Lines, t.Lines)
	return out
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
// kind: purchase | sale | adjustment | return. external_ref hace idempotente el registro.
type RegisterMovementRequest struct {
	ProductID   int64           `json:"product_id"`
	LocationID  int64           `json:"location_id"`
	Kind        string          `json:"kind"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExternalRef string          `json:"external_ref,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// LedgerEntryResponse asiento del libro de stock.
type LedgerEntryResponse struct {
	ID             int64           `json:"id,omitempty"`
	ProductID      int64           `json:"product_id"`
	LocationID     int64           `json:"location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	Kind           string          `json:"kind"`
	ReferenceKind  string          `json:"reference_kind"`
	ReferenceID    int64           `json:"reference_id,omitempty"`
	TransferID     *int64          `json:"transfer_id,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	Notes          string          `json:"notes,omitempty"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
	Posted         bool            `json:"posted"`
}

// LedgerEntryFromEntity mapea el asiento; Posted queda en true (asiento persistido).
func LedgerEntryFromEntity(e *entity.StockLedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:             e.ID,
		ProductID:      e.ProductID,
		LocationID:     e.LocationID,
		Quantity:       e.Quantity,
		Kind:           string(e.Kind),
		ReferenceKind:  string(e.Reference.Kind),
		ReferenceID:    e.Reference.ID,
		TransferID:     e.TransferID,
		IdempotencyKey: e.IdempotencyKey,
		Notes:          e.Notes,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
		Posted:         true,
	}
}

// LedgerEntryListResponse lista paginada de asientos.
type LedgerEntryListResponse struct {
	Items []LedgerEntryResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}

// BalanceResponse saldo de un producto en una ubicación.
type BalanceResponse struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

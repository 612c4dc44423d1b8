package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// TransferLineRequest línea esperada al crear un traslado.
type TransferLineRequest struct {
	ProductID        int64            `json:"product_id"`
	CategoryID       string           `json:"category_id,omitempty"`
	BatchLabel       string           `json:"batch_label,omitempty"`
	ExpectedQuantity decimal.Decimal  `json:"expected_quantity"`
	ExpectedWeight   *decimal.Decimal `json:"expected_weight,omitempty"`
	ExpiryDate       *time.Time       `json:"expiry_date,omitempty"`
	ReferenceCost    decimal.Decimal  `json:"reference_cost"`
}

// CreateTransferRequest body para POST /api/transfers.
type CreateTransferRequest struct {
	SourceLocationID       int64                 `json:"source_location_id"`
	DestinationLocationID  int64                 `json:"destination_location_id"`
	DestinationSubLocation *string               `json:"destination_sub_location,omitempty"`
	Notes                  string                `json:"notes,omitempty"`
	Lines                  []TransferLineRequest `json:"lines"`
}

// WeightsRequest pesaje en báscula. net_weight se calcula si falta.
type WeightsRequest struct {
	GrossWeight *decimal.Decimal `json:"gross_weight,omitempty"`
	TareWeight  *decimal.Decimal `json:"tare_weight,omitempty"`
	NetWeight   *decimal.Decimal `json:"net_weight,omitempty"`
}

// Weights convierte al valor de dominio.
func (w WeightsRequest) Weights() entity.Weights {
	return entity.Weights{Gross: w.GrossWeight, Tare: w.TareWeight, Net: w.NetWeight}
}

// DispatchTransferRequest body para POST /api/transfers/:id/dispatch.
type DispatchTransferRequest struct {
	CarrierName   string   `json:"carrier_name"`
	VehicleNumber string   `json:"vehicle_number"`
	DriverName    string   `json:"driver_name"`
	DriverPhone   string   `json:"driver_phone,omitempty"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
	WeightsRequest
}

// ReceiveLineRequest conteo de una línea en destino.
type ReceiveLineRequest struct {
	TransferLineID   int64            `json:"transfer_line_id"`
	ReceivedQuantity decimal.Decimal  `json:"received_quantity"`
	ReceivedWeight   *decimal.Decimal `json:"received_weight,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// ReceiveTransferRequest body para POST /api/transfers/:id/receive.
type ReceiveTransferRequest struct {
	Lines         []ReceiveLineRequest `json:"lines"`
	Notes         string               `json:"notes,omitempty"`
	AttachmentIDs []string             `json:"attachment_ids,omitempty"`
	WeightsRequest
}

// CancelTransferRequest body para POST /api/transfers/:id/cancel.
type CancelTransferRequest struct {
	Reason string `json:"reason"`
}

// TransferLineResponse línea del traslado.
type TransferLineResponse struct {
	ID               int64            `json:"id"`
	Position         int              `json:"position"`
	ProductID        int64            `json:"product_id"`
	CategoryID       string           `json:"category_id,omitempty"`
	BatchLabel       string           `json:"batch_label,omitempty"`
	ExpectedQuantity decimal.Decimal  `json:"expected_quantity"`
	ExpectedWeight   *decimal.Decimal `json:"expected_weight,omitempty"`
	ExpiryDate       *time.Time       `json:"expiry_date,omitempty"`
	ReferenceCost    decimal.Decimal  `json:"reference_cost"`
}

// TransferResponse traslado con sus líneas y sellos de cada transición.
type TransferResponse struct {
	ID                     int64                  `json:"id"`
	SourceLocationID       int64                  `json:"source_location_id"`
	DestinationLocationID  int64                  `json:"destination_location_id"`
	DestinationSubLocation *string                `json:"destination_sub_location,omitempty"`
	Status                 string                 `json:"status"`
	Version                int64                  `json:"version"`
	Notes                  string                 `json:"notes,omitempty"`
	CancelReason           string                 `json:"cancel_reason,omitempty"`
	CreatedBy              string                 `json:"created_by"`
	ApprovedBy             string                 `json:"approved_by,omitempty"`
	DispatchedBy           string                 `json:"dispatched_by,omitempty"`
	DeliveredBy            string                 `json:"delivered_by,omitempty"`
	ReceivedBy             string                 `json:"received_by,omitempty"`
	ReconciledBy           string                 `json:"reconciled_by,omitempty"`
	CancelledBy            string                 `json:"cancelled_by,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	ApprovedAt             *time.Time             `json:"approved_at,omitempty"`
	DispatchedAt           *time.Time             `json:"dispatched_at,omitempty"`
	InTransitAt            *time.Time             `json:"in_transit_at,omitempty"`
	DeliveredAt            *time.Time             `json:"delivered_at,omitempty"`
	ReceivedAt             *time.Time             `json:"received_at,omitempty"`
	DisputedAt             *time.Time             `json:"disputed_at,omitempty"`
	ReconciledAt           *time.Time             `json:"reconciled_at,omitempty"`
	CancelledAt            *time.Time             `json:"cancelled_at,omitempty"`
	UpdatedAt              time.Time              `json:"updated_at"`
	Lines                  []TransferLineResponse `json:"lines"`
}

// TransferFromEntity mapea el agregado a la respuesta.
func TransferFromEntity(t *entity.Transfer) TransferResponse {
	out := TransferResponse{
		ID:                     t.ID,
		SourceLocationID:       t.SourceLocationID,
		DestinationLocationID:  t.DestinationLocationID,
		DestinationSubLocation: t.DestinationSubLocation,
		Status:                 string(t.Status),
		Version:                t.Version,
		Notes:                  t.Notes,
		CancelReason:           t.CancelReason,
		CreatedBy:              t.CreatedBy,
		ApprovedBy:             t.ApprovedBy,
		DispatchedBy:           t.DispatchedBy,
		DeliveredBy:            t.DeliveredBy,
		ReceivedBy:             t.ReceivedBy,
		ReconciledBy:           t.ReconciledBy,
		CancelledBy:            t.CancelledBy,
		CreatedAt:              t.CreatedAt,
		ApprovedAt:             t.ApprovedAt,
		DispatchedAt:           t.DispatchedAt,
		InTransitAt:            t.InTransitAt,
		DeliveredAt:            t.DeliveredAt,
		ReceivedAt:             t.ReceivedAt,
		DisputedAt:             t.DisputedAt,
		ReconciledAt:           t.ReconciledAt,
		CancelledAt:            t.CancelledAt,
		UpdatedAt:              t.UpdatedAt,
		Lines:                  make([]TransferLineResponse, 0, len(t.Lines)),
	}
	for _, l := range t.Lines {
		out.Lines = append(out.Lines, TransferLineResponse{
			ID:               l.ID,
			Position:         l.Position,
			ProductID:        l.ProductID,
			CategoryID:       l.CategoryID,
			BatchLabel:       l.BatchLabel,
			ExpectedQuantity: l.ExpectedQuantity,
			ExpectedWeight:   l.ExpectedWeight,
			ExpiryDate:       l.ExpiryDate,
			ReferenceCost:    l.ReferenceCost,
		})
	}
	return out
}

// TransferListResponse lista paginada de traslados.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// TransferStatusResponse estado actual.
type TransferStatusResponse struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// ShipmentResponse registro de despacho.
type ShipmentResponse struct {
	ID            int64            `json:"id"`
	TransferID    int64            `json:"transfer_id"`
	CarrierName   string           `json:"carrier_name"`
	VehicleNumber string           `json:"vehicle_number"`
	DriverName    string           `json:"driver_name"`
	DriverPhone   string           `json:"driver_phone,omitempty"`
	GrossWeight   *decimal.Decimal `json:"gross_weight,omitempty"`
	TareWeight    *decimal.Decimal `json:"tare_weight,omitempty"`
	NetWeight     *decimal.Decimal `json:"net_weight,omitempty"`
	DispatchedAt  time.Time        `json:"dispatched_at"`
	DispatchedBy  string           `json:"dispatched_by"`
	AttachmentIDs []string         `json:"attachment_ids,omitempty"`
}

// ShipmentFromEntity mapea el despacho.
func ShipmentFromEntity(s *entity.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:            s.ID,
		TransferID:    s.TransferID,
		CarrierName:   s.CarrierName,
		VehicleNumber: s.VehicleNumber,
		DriverName:    s.DriverName,
		DriverPhone:   s.DriverPhone,
		GrossWeight:   s.GrossWeight,
		TareWeight:    s.TareWeight,
		NetWeight:     s.NetWeight,
		DispatchedAt:  s.DispatchedAt,
		DispatchedBy:  s.DispatchedBy,
		AttachmentIDs: s.AttachmentIDs,
	}
}

// DispatchResponse traslado despachado más su registro de despacho.
type DispatchResponse struct {
	Transfer TransferResponse `json:"transfer"`
	Shipment ShipmentResponse `json:"shipment"`
}

// ReceiptLineResponse resultado del detector por línea.
type ReceiptLineResponse struct {
	TransferLineID   int64            `json:"transfer_line_id"`
	ProductID        int64            `json:"product_id"`
	ExpectedQuantity decimal.Decimal  `json:"expected_quantity"`
	ReceivedQuantity decimal.Decimal  `json:"received_quantity"`
	ReceivedWeight   *decimal.Decimal `json:"received_weight,omitempty"`
	Variance         decimal.Decimal  `json:"variance"`
	VariancePercent  decimal.Decimal  `json:"variance_percent"`
	TolerancePercent decimal.Decimal  `json:"tolerance_percent"`
	Classification   string           `json:"classification"`
	Defaulted        bool             `json:"defaulted,omitempty"`
}

// ReceiptResponse registro de recepción.
type ReceiptResponse struct {
	ID               int64                 `json:"id"`
	TransferID       int64                 `json:"transfer_id"`
	ReceivedAt       time.Time             `json:"received_at"`
	ReceivedBy       string                `json:"received_by"`
	GrossWeight      *decimal.Decimal      `json:"gross_weight,omitempty"`
	TareWeight       *decimal.Decimal      `json:"tare_weight,omitempty"`
	NetWeight        *decimal.Decimal      `json:"net_weight,omitempty"`
	WithinTolerance  bool                  `json:"within_tolerance"`
	TolerancePercent decimal.Decimal       `json:"tolerance_percent"`
	Notes            string                `json:"notes,omitempty"`
	AttachmentIDs    []string              `json:"attachment_ids,omitempty"`
	Lines            []ReceiptLineResponse `json:"lines"`
}

// ReceiptFromEntity mapea la recepción.
func ReceiptFromEntity(r *entity.Receipt) ReceiptResponse {
	out := ReceiptResponse{
		ID:               r.ID,
		TransferID:       r.TransferID,
		ReceivedAt:       r.ReceivedAt,
		ReceivedBy:       r.ReceivedBy,
		GrossWeight:      r.GrossWeight,
		TareWeight:       r.TareWeight,
		NetWeight:        r.NetWeight,
		WithinTolerance:  r.WithinTolerance,
		TolerancePercent: r.TolerancePercent,
		Notes:            r.Notes,
		AttachmentIDs:    r.AttachmentIDs,
		Lines:            make([]ReceiptLineResponse, 0, len(r.Lines)),
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, ReceiptLineResponse{
			TransferLineID:   l.TransferLineID,
			ProductID:        l.ProductID,
			ExpectedQuantity: l.ExpectedQuantity,
			ReceivedQuantity: l.ReceivedQuantity,
			ReceivedWeight:   l.ReceivedWeight,
			Variance:         l.Variance,
			VariancePercent:  l.VariancePercent,
			TolerancePercent: l.TolerancePercent,
			Classification:   string(l.Classification),
			Defaulted:        l.Defaulted,
		})
	}
	return out
}

// ReceiveResponse estado posterior a la recepción.
type ReceiveResponse struct {
	Transfer      TransferResponse      `json:"transfer"`
	Receipt       ReceiptResponse       `json:"receipt"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
}

// ConservationLineResponse cuadre de una línea.
type ConservationLineResponse struct {
	TransferLineID int64           `json:"transfer_line_id"`
	ProductID      int64           `json:"product_id"`
	Expected       decimal.Decimal `json:"expected"`
	Dispatched     decimal.Decimal `json:"dispatched"`
	Received       decimal.Decimal `json:"received"`
	Counted        decimal.Decimal `json:"counted"`
	Corrections    decimal.Decimal `json:"corrections"`
	Outstanding    decimal.Decimal `json:"outstanding"`
	InTransit      decimal.Decimal `json:"in_transit"`
	Unexplained    decimal.Decimal `json:"unexplained"`
}

// ConservationResponse cuadre del traslado.
type ConservationResponse struct {
	TransferID     int64                      `json:"transfer_id"`
	Status         string                     `json:"status"`
	SourceNet      decimal.Decimal            `json:"source_net"`
	DestinationNet decimal.Decimal            `json:"destination_net"`
	NetChange      decimal.Decimal            `json:"net_change"`
	Balanced       bool                       `json:"balanced"`
	Lines          []ConservationLineResponse `json:"lines"`
}

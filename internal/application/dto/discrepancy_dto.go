package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// DiscrepancyLineRequest diferencia observada. quantity_delta negativo = faltante.
type DiscrepancyLineRequest struct {
	TransferLineID int64            `json:"transfer_line_id"`
	QuantityDelta  decimal.Decimal  `json:"quantity_delta"`
	WeightDelta    *decimal.Decimal `json:"weight_delta,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// RaiseDiscrepancyRequest body para POST /api/transfers/:id/discrepancies.
type RaiseDiscrepancyRequest struct {
	Reason        string                   `json:"reason"`
	Lines         []DiscrepancyLineRequest `json:"lines"`
	AttachmentIDs []string                 `json:"attachment_ids,omitempty"`
}

// ResolveLineRequest body para POST /api/discrepancies/:id/lines/:lineId/resolve.
// disposition: adjust | return | scrap | quarantine | replace.
type ResolveLineRequest struct {
	Disposition string `json:"disposition"`
	Notes       string `json:"notes,omitempty"`
}

// ReopenDiscrepancyRequest body para POST /api/discrepancies/:id/reopen.
type ReopenDiscrepancyRequest struct {
	Reason string                   `json:"reason"`
	Lines  []DiscrepancyLineRequest `json:"lines"`
}

// EscalateDiscrepancyRequest body para POST /api/discrepancies/:id/escalate.
type EscalateDiscrepancyRequest struct {
	Reason string `json:"reason"`
}

// DiscrepancyLineResponse línea de discrepancia.
type DiscrepancyLineResponse struct {
	ID               int64            `json:"id"`
	TransferLineID   int64            `json:"transfer_line_id"`
	ProductID        int64            `json:"product_id"`
	ExpectedQuantity decimal.Decimal  `json:"expected_quantity"`
	QuantityDelta    decimal.Decimal  `json:"quantity_delta"`
	WeightDelta      *decimal.Decimal `json:"weight_delta,omitempty"`
	VariancePercent  decimal.Decimal  `json:"variance_percent"`
	Disposition      string           `json:"disposition,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	DispositionedBy  string           `json:"dispositioned_by,omitempty"`
	DispositionedAt  *time.Time       `json:"dispositioned_at,omitempty"`
}

// DiscrepancyResponse discrepancia con sus líneas.
type DiscrepancyResponse struct {
	ID               int64                     `json:"id"`
	TransferID       int64                     `json:"transfer_id"`
	LocationID       int64                     `json:"location_id"`
	Reason           string                    `json:"reason"`
	Status           string                    `json:"status"`
	Severity         string                    `json:"severity"`
	Version          int64                     `json:"version"`
	RaisedBy         string                    `json:"raised_by"`
	RaisedAt         time.Time                 `json:"raised_at"`
	ReviewedBy       string                    `json:"reviewed_by,omitempty"`
	ReviewStartedAt  *time.Time                `json:"review_started_at,omitempty"`
	ResolvedBy       string                    `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time                `json:"resolved_at,omitempty"`
	ReopenedBy       string                    `json:"reopened_by,omitempty"`
	ReopenedAt       *time.Time                `json:"reopened_at,omitempty"`
	ReopenCount      int                       `json:"reopen_count"`
	EscalationReason string                    `json:"escalation_reason,omitempty"`
	AttachmentIDs    []string                  `json:"attachment_ids,omitempty"`
	PendingLines     int                       `json:"pending_lines"`
	Lines            []DiscrepancyLineResponse `json:"lines"`
}

// DiscrepancyFromEntity mapea la discrepancia.
func DiscrepancyFromEntity(d *entity.Discrepancy) DiscrepancyResponse {
	out := DiscrepancyResponse{
		ID:               d.ID,
		TransferID:       d.TransferID,
		LocationID:       d.LocationID,
		Reason:           string(d.Reason),
		Status:           string(d.Status),
		Severity:         string(d.Severity),
		Version:          d.Version,
		RaisedBy:         d.RaisedBy,
		RaisedAt:         d.RaisedAt,
		ReviewedBy:       d.ReviewedBy,
		ReviewStartedAt:  d.ReviewStartedAt,
		ResolvedBy:       d.ResolvedBy,
		ResolvedAt:       d.ResolvedAt,
		ReopenedBy:       d.ReopenedBy,
		ReopenedAt:       d.ReopenedAt,
		ReopenCount:      d.ReopenCount,
		EscalationReason: d.EscalationReason,
		AttachmentIDs:    d.AttachmentIDs,
		PendingLines:     d.PendingLines(),
		Lines:            make([]DiscrepancyLineResponse, 0, len(d.Lines)),
	}
	for _, l := range d.Lines {
		out.Lines = append(out.Lines, DiscrepancyLineResponse{
			ID:               l.ID,
			TransferLineID:   l.TransferLineID,
			ProductID:        l.ProductID,
			ExpectedQuantity: l.ExpectedQuantity,
			QuantityDelta:    l.QuantityDelta,
			WeightDelta:      l.WeightDelta,
			VariancePercent:  l.VariancePercent,
			Disposition:      string(l.Disposition),
			Notes:            l.Notes,
			DispositionedBy:  l.DispositionedBy,
			DispositionedAt:  l.DispositionedAt,
		})
	}
	return out
}

// DiscrepanciesFromEntities mapea una lista.
func DiscrepanciesFromEntities(list []*entity.Discrepancy) []DiscrepancyResponse {
	out := make([]DiscrepancyResponse, 0, len(list))
	for _, d := range list {
		out = append(out, DiscrepancyFromEntity(d))
	}
	return out
}

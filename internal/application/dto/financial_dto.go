package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// RecordImpactRequest body para POST /api/financial-impacts.
// cause_kind: discrepancy | reconciliation. category: direct_loss | indirect_loss | cost | recovery.
type RecordImpactRequest struct {
	CauseKind   string          `json:"cause_kind"`
	CauseID     int64           `json:"cause_id"`
	LocationID  int64           `json:"location_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Recoverable bool            `json:"recoverable"`
}

// RecordRecoveryRequest body para POST /api/financial-impacts/:id/recoveries.
type RecordRecoveryRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Notes  string          `json:"notes,omitempty"`
}

// RecoveryNoteResponse nota de recuperación.
type RecoveryNoteResponse struct {
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
	RecordedBy string          `json:"recorded_by"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// FinancialImpactResponse impacto financiero con su saldo pendiente.
type FinancialImpactResponse struct {
	ID              int64                  `json:"id"`
	CauseKind       string                 `json:"cause_kind"`
	CauseID         int64                  `json:"cause_id"`
	LocationID      int64                  `json:"location_id"`
	Category        string                 `json:"category"`
	Amount          decimal.Decimal        `json:"amount"`
	Recoverable     bool                   `json:"recoverable"`
	RecoveredAmount decimal.Decimal        `json:"recovered_amount"`
	Remaining       decimal.Decimal        `json:"remaining"`
	Notes           []RecoveryNoteResponse `json:"notes"`
	CreatedBy       string                 `json:"created_by"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// FinancialImpactFromEntity mapea el impacto.
func FinancialImpactFromEntity(f *entity.FinancialImpact) FinancialImpactResponse {
	out := FinancialImpactResponse{
		ID:              f.ID,
		CauseKind:       string(f.Cause.Kind),
		CauseID:         f.Cause.ID,
		LocationID:      f.LocationID,
		Category:        string(f.Category),
		Amount:          f.Amount,
		Recoverable:     f.Recoverable,
		RecoveredAmount: f.RecoveredAmount,
		Remaining:       f.Remaining(),
		Notes:           make([]RecoveryNoteResponse, 0, len(f.Notes)),
		CreatedBy:       f.CreatedBy,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
	for _, n := range f.Notes {
		out.Notes = append(out.Notes, RecoveryNoteResponse{
			Amount: n.Amount, Note: n.Note, RecordedBy: n.RecordedBy, RecordedAt: n.RecordedAt,
		})
	}
	return out
}

// RecoveryResponse resultado de registrar una recuperación.
type RecoveryResponse struct {
	Impact  FinancialImpactResponse `json:"impact"`
	Applied decimal.Decimal         `json:"applied"`
}

package transfer

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
	"github.com/jhoicas/Traslados-api/internal/domain/workflow"
)

// ReceiveLineInput cantidad (y peso) contados para una línea del traslado.
// Reason clasifica la discrepancia si la línea queda fuera de tolerancia.
type ReceiveLineInput struct {
	TransferLineID   int64
	ReceivedQuantity decimal.Decimal
	ReceivedWeight   *decimal.Decimal
	Reason           entity.ReasonCategory
	Notes            string
}

// ReceiveInput conteo y repesaje en destino.
type ReceiveInput struct {
	Lines         []ReceiveLineInput
	Weights       entity.Weights
	Notes         string
	AttachmentIDs []string
}

// ReceiveResult estado posterior a la recepción.
type ReceiveResult struct {
	Transfer      *entity.Transfer
	Receipt       *entity.Receipt
	Discrepancies []*entity.Discrepancy
}

// ReceiveTransfer registra la recepción en una sola unidad de trabajo: asienta transfer_in por la
// cantidad despachada (toda diferencia se corrige al resolverla), clasifica cada línea con el detector, corrige en el libro las variaciones
// tolerables, agrupa las no tolerables en discrepancias por motivo y guarda la recepción con la
// tolerancia vigente.
func (s *Service) ReceiveTransfer(ctx context.Context, actor string, id int64, in ReceiveInput) (*ReceiveResult, error) {
	weights, bad := in.Weights.Normalize()
	if bad != "" {
		return nil, &domain.ValidationError{Field: bad, Reason: "pesaje inválido", ID: id}
	}
	res := &ReceiveResult{}
	t, err := s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		if !workflow.CanTransfer(t.Status, workflow.EventReceive) {
			return &domain.InvalidStateTransitionError{Entity: "transfer", ID: t.ID, From: string(t.Status), Event: string(workflow.EventReceive)}
		}
		byLine, err := indexReceiveLines(t, in.Lines)
		if err != nil {
			return err
		}

		receipt := &entity.Receipt{
			TransferID:      t.ID,
			ReceivedAt:      u.now,
			ReceivedBy:      u.actor,
			GrossWeight:     weights.Gross,
			TareWeight:      weights.Tare,
			NetWeight:       weights.Net,
			WithinTolerance: true,
			Notes:           in.Notes,
			AttachmentIDs:   in.AttachmentIDs,
			CreatedAt:       u.now,
		}
		groups := map[entity.ReasonCategory][]entity.DiscrepancyLine{}
		severities := map[entity.ReasonCategory]entity.Severity{}
		ref := transferRef(t.ID)

		for _, l := range t.Lines {
			li, ok := byLine[l.ID]
			defaulted := false
			if !ok {
				if s.cfg.RequireAllLines {
					return &domain.ValidationError{Field: "lines", Reason: "falta la cantidad recibida de la línea", ID: l.ID}
				}
				li = ReceiveLineInput{TransferLineID: l.ID, ReceivedQuantity: l.ExpectedQuantity}
				defaulted = true
			}

			tol, err := s.lineTolerance(ctx, t, l)
			if err != nil {
				return err
			}
			det := variance.Detect(variance.Input{
				Expected:       l.ExpectedQuantity,
				Received:       li.ReceivedQuantity,
				ExpectedWeight: l.ExpectedWeight,
				ReceivedWeight: li.ReceivedWeight,
			}, variance.Policy{TolerancePercent: tol, Severity: s.cfg.Severity})

			if _, err := inventory.PostInTx(ctx, u.repos, inventory.Posting{
				ProductID:      l.ProductID,
				LocationID:     t.DestinationLocationID,
				Quantity:       l.ExpectedQuantity,
				Kind:           entity.MovementTransferIn,
				Reference:      ref,
				TransferID:     &t.ID,
				TransferLineID: l.ID,
				IdempotencyKey: entity.LedgerKey(ref, l.ID, entity.MovementTransferIn),
				Actor:          u.actor,
				At:             u.now,
			}); err != nil {
				return err
			}

			switch det.Classification {
			case entity.VarianceWithinTolerance:
				if _, err := inventory.PostInTx(ctx, u.repos, inventory.Posting{
					ProductID:      l.ProductID,
					LocationID:     t.DestinationLocationID,
					Quantity:       det.Variance,
					Kind:           entity.MovementAdjustment,
					Reference:      ref,
					TransferID:     &t.ID,
					TransferLineID: l.ID,
					IdempotencyKey: entity.LedgerKey(ref, l.ID, entity.MovementAdjustment),
					Notes:          "variación dentro de tolerancia",
					Actor:          u.actor,
					At:             u.now,
				}); err != nil {
					return err
				}
			case entity.VarianceOutOfTolerance:
				receipt.WithinTolerance = false
				reason := li.Reason
				if reason == "" {
					reason = entity.ReasonWeightDiff
				}
				groups[reason] = append(groups[reason], entity.DiscrepancyLine{
					TransferLineID:   l.ID,
					ProductID:        l.ProductID,
					ExpectedQuantity: l.ExpectedQuantity,
					QuantityDelta:    det.Variance,
					WeightDelta:      det.WeightDelta,
					VariancePercent:  det.VariancePercent,
					Notes:            li.Notes,
				})
				severities[reason] = entity.MaxSeverity(severities[reason], det.Severity)
			}

			if tol.GreaterThan(receipt.TolerancePercent) {
				receipt.TolerancePercent = tol
			}
			receipt.Lines = append(receipt.Lines, entity.ReceiptLine{
				TransferLineID:   l.ID,
				ProductID:        l.ProductID,
				ExpectedQuantity: l.ExpectedQuantity,
				ReceivedQuantity: li.ReceivedQuantity,
				ReceivedWeight:   li.ReceivedWeight,
				Variance:         det.Variance,
				VariancePercent:  det.VariancePercent,
				TolerancePercent: tol,
				Classification:   det.Classification,
				Defaulted:        defaulted,
			})
		}

		if err := u.repos.Receipts.Create(ctx, receipt); err != nil {
			return err
		}
		if err := s.transition(u, t, workflow.EventReceive); err != nil {
			return err
		}
		u.emit(entity.EventTransferReceived, "transfer", t.ID, map[string]any{
			"receipt_id":       receipt.ID,
			"within_tolerance": receipt.WithinTolerance,
		})
		res.Receipt = receipt

		if len(groups) == 0 {
			if s.cfg.AutoReconcileClean {
				return s.reconcile(u, t)
			}
			return nil
		}
		if err := s.transition(u, t, workflow.EventDispute); err != nil {
			return err
		}
		reasons := make([]string, 0, len(groups))
		for r := range groups {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			reason := entity.ReasonCategory(r)
			d, err := s.raiseInTx(ctx, u, t, reason, groups[reason], severities[reason], nil)
			if err != nil {
				return err
			}
			res.Discrepancies = append(res.Discrepancies, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Transfer = t
	return res, nil
}

func indexReceiveLines(t *entity.Transfer, lines []ReceiveLineInput) (map[int64]ReceiveLineInput, error) {
	out := make(map[int64]ReceiveLineInput, len(lines))
	for i, li := range lines {
		if _, ok := t.Line(li.TransferLineID); !ok {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("lines[%d].transfer_line_id", i), Reason: "la línea no pertenece al traslado", ID: li.TransferLineID}
		}
		if _, dup := out[li.TransferLineID]; dup {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("lines[%d].transfer_line_id", i), Reason: "línea repetida", ID: li.TransferLineID}
		}
		if li.ReceivedQuantity.IsNegative() {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("lines[%d].received_quantity", i), Reason: "no puede ser negativa", ID: li.TransferLineID}
		}
		if li.ReceivedWeight != nil && li.ReceivedWeight.IsNegative() {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("lines[%d].received_weight", i), Reason: "no puede ser negativo", ID: li.TransferLineID}
		}
		if li.Reason != "" && !li.Reason.Valid() {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("lines[%d].reason", i), Reason: fmt.Sprintf("motivo desconocido %q", li.Reason), ID: li.TransferLineID}
		}
		out[li.TransferLineID] = li
	}
	return out, nil
}

// lineTolerance tolerancia en destino para la línea; sin regla aplicable es un error de configuración.
func (s *Service) lineTolerance(ctx context.Context, t *entity.Transfer, l entity.TransferLine) (decimal.Decimal, error) {
	pct, found, err := s.tolerance.Tolerance(ctx, policy.Query{
		LocationID: t.DestinationLocationID,
		CategoryID: l.CategoryID,
		ProductID:  l.ProductID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, &domain.ToleranceConfigurationError{
			TransferID: t.ID,
			LineID:     l.ID,
			ProductID:  l.ProductID,
			LocationID: t.DestinationLocationID,
			CategoryID: l.CategoryID,
		}
	}
	return pct, nil
}

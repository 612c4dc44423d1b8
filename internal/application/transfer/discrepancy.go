package transfer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
	"github.com/jhoicas/Traslados-api/internal/domain/workflow"
)

// RaiseLineInput diferencia observada en una línea del traslado. QuantityDelta negativo = faltante.
type RaiseLineInput struct {
	TransferLineID int64
	QuantityDelta  decimal.Decimal
	WeightDelta    *decimal.Decimal
	Notes          string
}

// RaiseInput discrepancia levantada manualmente.
type RaiseInput struct {
	Reason        entity.ReasonCategory
	Lines         []RaiseLineInput
	AttachmentIDs []string
}

// ReopenInput nuevas líneas que motivan reabrir una discrepancia resuelta.
type ReopenInput struct {
	Reason string
	Lines  []RaiseLineInput
}

// RaiseDiscrepancy registra una discrepancia sobre un traslado recibido o en disputa.
// Si el motivo ya tiene registro se agregan las líneas (reabriéndolo si estaba resuelto).
func (s *Service) RaiseDiscrepancy(ctx context.Context, actor string, transferID int64, in RaiseInput) (*entity.Discrepancy, error) {
	if !in.Reason.Valid() {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("motivo desconocido %q", in.Reason))
	}
	if len(in.Lines) == 0 {
		return nil, domain.NewValidationError("lines", "se requiere al menos una línea")
	}
	var out *entity.Discrepancy
	_, err := s.mutateTransfer(ctx, actor, transferID, func(u *unitOfWork, t *entity.Transfer) error {
		switch t.Status {
		case entity.TransferReceived:
			if err := s.transition(u, t, workflow.EventDispute); err != nil {
				return err
			}
		case entity.TransferDisputed:
		default:
			return &domain.InvalidStateTransitionError{Entity: "transfer", ID: t.ID, From: string(t.Status), Event: string(workflow.EventDispute)}
		}
		lines, sev, err := s.buildLines(ctx, t, in.Lines, "")
		if err != nil {
			return err
		}
		out, err = s.raiseInTx(ctx, u, t, in.Reason, lines, sev, in.AttachmentIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// raiseInTx crea el registro del motivo o le agrega líneas. Un registro resuelto se reabre.
func (s *Service) raiseInTx(ctx context.Context, u *unitOfWork, t *entity.Transfer, reason entity.ReasonCategory,
	lines []entity.DiscrepancyLine, sev entity.Severity, attachments []string) (*entity.Discrepancy, error) {
	d, err := u.repos.Discrepancies.GetByTransferAndReason(ctx, t.ID, reason)
	if err != nil {
		return nil, err
	}
	reopened := false
	if d == nil {
		d = &entity.Discrepancy{
			TransferID:    t.ID,
			LocationID:    t.DestinationLocationID,
			Reason:        reason,
			Status:        entity.DiscrepancyOpen,
			Severity:      sev,
			RaisedBy:      u.actor,
			RaisedAt:      u.now,
			AttachmentIDs: attachments,
			Lines:         lines,
			CreatedAt:     u.now,
			UpdatedAt:     u.now,
		}
		if err := u.repos.Discrepancies.Create(ctx, d); err != nil {
			return nil, err
		}
	} else {
		if d.IsResolved() {
			if err := s.reopen(u, d); err != nil {
				return nil, err
			}
			reopened = true
		}
		d.Lines = append(d.Lines, lines...)
		d.Severity = entity.MaxSeverity(d.Severity, sev)
		d.AttachmentIDs = append(d.AttachmentIDs, attachments...)
		d.UpdatedAt = u.now
		if err := u.repos.Discrepancies.Update(ctx, d); err != nil {
			return nil, err
		}
	}
	u.emit(entity.EventDiscrepancyRaised, "discrepancy", d.ID, map[string]any{
		"transfer_id": t.ID,
		"location_id": d.LocationID,
		"reason":      string(d.Reason),
		"severity":    string(d.Severity),
		"lines":       len(lines),
		"reopened":    reopened,
	})
	s.log.Info().
		Int64("discrepancy_id", d.ID).
		Int64("transfer_id", t.ID).
		Str("reason", string(reason)).
		Str("severity", string(d.Severity)).
		Msg("discrepancia registrada")
	return d, nil
}

// buildLines arma las líneas y la severidad a partir de la tolerancia vigente.
// Sin regla de tolerancia toda diferencia se clasifica contra cero.
func (s *Service) buildLines(ctx context.Context, t *entity.Transfer, in []RaiseLineInput, defaultNote string) ([]entity.DiscrepancyLine, entity.Severity, error) {
	sev := entity.SeverityMedium
	out := make([]entity.DiscrepancyLine, 0, len(in))
	for i, li := range in {
		l, ok := t.Line(li.TransferLineID)
		if !ok {
			return nil, "", &domain.ValidationError{Field: fmt.Sprintf("lines[%d].transfer_line_id", i), Reason: "la línea no pertenece al traslado", ID: li.TransferLineID}
		}
		if li.QuantityDelta.IsZero() && (li.WeightDelta == nil || li.WeightDelta.IsZero()) {
			return nil, "", &domain.ValidationError{Field: fmt.Sprintf("lines[%d].quantity_delta", i), Reason: "la línea no tiene diferencia", ID: li.TransferLineID}
		}
		tol, err := s.lineTolerance(ctx, t, *l)
		if err != nil && !errors.Is(err, domain.ErrToleranceConfiguration) {
			return nil, "", err
		}
		input := variance.Input{Expected: l.ExpectedQuantity, Received: l.ExpectedQuantity.Add(li.QuantityDelta)}
		if li.WeightDelta != nil && l.ExpectedWeight != nil {
			received := l.ExpectedWeight.Add(*li.WeightDelta)
			input.ExpectedWeight, input.ReceivedWeight = l.ExpectedWeight, &received
		}
		det := variance.Detect(input, variance.Policy{TolerancePercent: tol, Severity: s.cfg.Severity})
		sev = entity.MaxSeverity(sev, det.Severity)
		notes := li.Notes
		if notes == "" {
			notes = defaultNote
		}
		out = append(out, entity.DiscrepancyLine{
			TransferLineID:   l.ID,
			ProductID:        l.ProductID,
			ExpectedQuantity: l.ExpectedQuantity,
			QuantityDelta:    li.QuantityDelta,
			WeightDelta:      li.WeightDelta,
			VariancePercent:  det.VariancePercent,
			Notes:            notes,
		})
	}
	return out, sev, nil
}

// mutateDiscrepancy bloquea el traslado dueño, carga discrepancia y traslado con bloqueo de fila,
// aplica fn y persiste. Si la discrepancia quedó resuelta y el traslado no tiene otras abiertas,
// el traslado se concilia en la misma unidad de trabajo.
func (s *Service) mutateDiscrepancy(ctx context.Context, actor string, id int64, fn func(u *unitOfWork, d *entity.Discrepancy, t *entity.Transfer) error) (*entity.Discrepancy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	current, err := s.GetDiscrepancy(ctx, id)
	if err != nil {
		return nil, err
	}
	var out *entity.Discrepancy
	err = s.withTransferLock(ctx, current.TransferID, func() error {
		return s.run(ctx, actor, func(u *unitOfWork) error {
			d, err := u.repos.Discrepancies.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("discrepancia %d: %w", id, domain.ErrNotFound)
			}
			t, err := loadTransferForUpdate(ctx, u.repos, d.TransferID)
			if err != nil {
				return err
			}
			status := t.Status
			if err := fn(u, d, t); err != nil {
				return err
			}
			d.UpdatedAt = u.now
			if err := u.repos.Discrepancies.Update(ctx, d); err != nil {
				return err
			}
			if d.IsResolved() && t.Status == entity.TransferDisputed {
				open, err := u.repos.Discrepancies.CountUnresolved(ctx, t.ID)
				if err != nil {
					return err
				}
				if open == 0 {
					if err := s.reconcile(u, t); err != nil {
						return err
					}
				}
			}
			if t.Status != status {
				t.UpdatedAt = u.now
				if err := u.repos.Transfers.Update(ctx, t); err != nil {
					return err
				}
			}
			out = d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) discrepancyTransition(u *unitOfWork, d *entity.Discrepancy, ev workflow.DiscrepancyEvent) error {
	from := d.Status
	next, err := workflow.NextDiscrepancyStatus(d.ID, from, ev)
	if err != nil {
		return err
	}
	d.Status = next
	s.log.Info().
		Int64("discrepancy_id", d.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Str("actor", u.actor).
		Msg("transición de discrepancia")
	return nil
}

func (s *Service) startReview(u *unitOfWork, d *entity.Discrepancy) error {
	if err := s.discrepancyTransition(u, d, workflow.EventReview); err != nil {
		return err
	}
	now := u.now
	d.ReviewedBy, d.ReviewStartedAt = u.actor, &now
	return nil
}

func (s *Service) reopen(u *unitOfWork, d *entity.Discrepancy) error {
	if err := s.discrepancyTransition(u, d, workflow.EventReopen); err != nil {
		return err
	}
	now := u.now
	d.ReopenedBy, d.ReopenedAt = u.actor, &now
	d.ReopenCount++
	d.ResolvedBy, d.ResolvedAt = "", nil
	return nil
}

// StartReview open|reopened -> under_review.
func (s *Service) StartReview(ctx context.Context, actor string, id int64) (*entity.Discrepancy, error) {
	return s.mutateDiscrepancy(ctx, actor, id, func(u *unitOfWork, d *entity.Discrepancy, _ *entity.Transfer) error {
		return s.startReview(u, d)
	})
}

// ResolveDiscrepancyLine asigna una disposición inmutable a la línea. adjust y scrap corrigen el libro
// en destino; return, quarantine y replace mueven la diferencia a transfer_hold. La última línea
// resuelve la discrepancia y registra la pérdida directa valorizada al costo de referencia.
func (s *Service) ResolveDiscrepancyLine(ctx context.Context, actor string, id, lineID int64, disposition entity.Disposition, notes string) (*entity.Discrepancy, error) {
	if !disposition.Valid() {
		return nil, domain.NewValidationError("disposition", fmt.Sprintf("desconocida %q", disposition))
	}
	return s.mutateDiscrepancy(ctx, actor, id, func(u *unitOfWork, d *entity.Discrepancy, t *entity.Transfer) error {
		switch d.Status {
		case entity.DiscrepancyResolved:
			return &domain.InvalidStateTransitionError{Entity: "discrepancy", ID: d.ID, From: string(d.Status), Event: string(workflow.EventResolve)}
		case entity.DiscrepancyOpen, entity.DiscrepancyReopened:
			if err := s.startReview(u, d); err != nil {
				return err
			}
		}
		line, ok := d.Line(lineID)
		if !ok {
			return fmt.Errorf("línea %d de discrepancia %d: %w", lineID, d.ID, domain.ErrNotFound)
		}
		if line.Dispositioned() {
			return &domain.ValidationError{Field: "disposition", Reason: "la línea ya tiene disposición", ID: lineID}
		}
		now := u.now
		line.Disposition = disposition
		line.DispositionedBy = u.actor
		line.DispositionedAt = &now
		if notes != "" {
			line.Notes = notes
		}
		if err := s.postDisposition(ctx, u, t, d, *line); err != nil {
			return err
		}
		if d.PendingLines() > 0 {
			return nil
		}
		if err := s.discrepancyTransition(u, d, workflow.EventResolve); err != nil {
			return err
		}
		d.ResolvedBy, d.ResolvedAt = u.actor, &now
		u.emit(entity.EventDiscrepancyResolved, "discrepancy", d.ID, map[string]any{
			"transfer_id": t.ID,
			"reason":      string(d.Reason),
		})
		return s.recordLoss(ctx, u, t, d)
	})
}

// postDisposition lleva el saldo de destino al conteo físico tras la disposición.
func (s *Service) postDisposition(ctx context.Context, u *unitOfWork, t *entity.Transfer, d *entity.Discrepancy, line entity.DiscrepancyLine) error {
	if line.QuantityDelta.IsZero() {
		return nil
	}
	ref := entity.Reference{Kind: entity.RefDiscrepancy, ID: d.ID}
	post := func(kind entity.MovementKind, qty decimal.Decimal) error {
		_, err := inventory.PostInTx(ctx, u.repos, inventory.Posting{
			ProductID:      line.ProductID,
			LocationID:     d.LocationID,
			Quantity:       qty,
			Kind:           kind,
			Reference:      ref,
			TransferID:     &t.ID,
			TransferLineID: line.TransferLineID,
			IdempotencyKey: entity.LedgerKey(ref, line.ID, kind),
			Notes:          line.Notes,
			Actor:          u.actor,
			At:             u.now,
		})
		return err
	}
	delta := line.QuantityDelta
	switch line.Disposition {
	case entity.DispositionAdjust:
		return post(entity.MovementAdjustment, delta)
	case entity.DispositionScrap:
		if delta.IsPositive() {
			// el sobrante se reconoce y se da de baja
			if err := post(entity.MovementAdjustment, delta); err != nil {
				return err
			}
		}
		return post(entity.MovementWastage, delta.Abs().Neg())
	}
	return post(entity.MovementTransferHold, delta)
}

// recordLoss registra como direct_loss la pérdida valorizada aún no registrada de la discrepancia.
func (s *Service) recordLoss(ctx context.Context, u *unitOfWork, t *entity.Transfer, d *entity.Discrepancy) error {
	if s.impacts == nil {
		return nil
	}
	total := decimal.Zero
	for _, l := range d.Lines {
		if !l.Disposition.WritesOff() || !l.QuantityDelta.IsNegative() {
			continue
		}
		tl, ok := t.Line(l.TransferLineID)
		if !ok {
			continue
		}
		total = total.Add(l.QuantityDelta.Abs().Mul(tl.ReferenceCost))
	}
	cause := entity.CauseRef{Kind: entity.CauseDiscrepancy, ID: d.ID}
	existing, err := u.repos.Impacts.ListByCause(ctx, cause)
	if err != nil {
		return err
	}
	for _, f := range existing {
		if f.Category == entity.ImpactDirectLoss {
			total = total.Sub(f.Amount)
		}
	}
	if !total.IsPositive() {
		return nil
	}
	_, err = s.impacts.RecordInTx(ctx, u.repos, u.actor, financial.RecordInput{
		Cause:       cause,
		LocationID:  d.LocationID,
		Amount:      total.Round(2),
		Category:    entity.ImpactDirectLoss,
		Recoverable: d.Reason.Recoverable(),
	})
	return err
}

// ReopenDiscrepancy resolved -> reopened agregando las líneas nuevas. No aplica a traslados conciliados.
func (s *Service) ReopenDiscrepancy(ctx context.Context, actor string, id int64, in ReopenInput) (*entity.Discrepancy, error) {
	if len(in.Lines) == 0 {
		return nil, domain.NewValidationError("lines", "reabrir requiere al menos una línea nueva")
	}
	return s.mutateDiscrepancy(ctx, actor, id, func(u *unitOfWork, d *entity.Discrepancy, t *entity.Transfer) error {
		if t.Status != entity.TransferDisputed {
			return &domain.InvalidStateTransitionError{Entity: "transfer", ID: t.ID, From: string(t.Status), Event: string(workflow.EventDispute)}
		}
		if err := s.reopen(u, d); err != nil {
			return err
		}
		lines, sev, err := s.buildLines(ctx, t, in.Lines, in.Reason)
		if err != nil {
			return err
		}
		d.Lines = append(d.Lines, lines...)
		d.Severity = entity.MaxSeverity(d.Severity, sev)
		u.emit(entity.EventDiscrepancyRaised, "discrepancy", d.ID, map[string]any{
			"transfer_id": t.ID,
			"location_id": d.LocationID,
			"reason":      string(d.Reason),
			"severity":    string(d.Severity),
			"lines":       len(lines),
			"reopened":    true,
		})
		return nil
	})
}

// EscalateDiscrepancy sube un nivel la severidad de una discrepancia no resuelta.
func (s *Service) EscalateDiscrepancy(ctx context.Context, actor string, id int64, reason string) (*entity.Discrepancy, error) {
	if reason == "" {
		return nil, domain.NewValidationError("reason", "requerido")
	}
	return s.mutateDiscrepancy(ctx, actor, id, func(u *unitOfWork, d *entity.Discrepancy, t *entity.Transfer) error {
		if d.IsResolved() {
			return &domain.InvalidStateTransitionError{Entity: "discrepancy", ID: d.ID, From: string(d.Status), Event: "escalate"}
		}
		from := d.Severity
		d.Severity = d.Severity.Next()
		d.EscalationReason = reason
		u.emit(entity.EventDiscrepancyEscalated, "discrepancy", d.ID, map[string]any{
			"transfer_id":   t.ID,
			"location_id":   d.LocationID,
			"from_severity": string(from),
			"severity":      string(d.Severity),
			"reason":        reason,
		})
		return nil
	})
}

// GetDiscrepancy obtiene una discrepancia con sus líneas.
func (s *Service) GetDiscrepancy(ctx context.Context, id int64) (*entity.Discrepancy, error) {
	d, err := s.repos.Discrepancies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("discrepancia %d: %w", id, domain.ErrNotFound)
	}
	return d, nil
}

// GetOpenDiscrepancies discrepancias no resueltas de una ubicación (0 = todas).
func (s *Service) GetOpenDiscrepancies(ctx context.Context, locationID int64) ([]*entity.Discrepancy, error) {
	return s.repos.Discrepancies.ListUnresolved(ctx, locationID)
}

// ListTransferDiscrepancies discrepancias de un traslado.
func (s *Service) ListTransferDiscrepancies(ctx context.Context, transferID int64) ([]*entity.Discrepancy, error) {
	return s.repos.Discrepancies.ListByTransfer(ctx, transferID)
}

package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// SweepReport resultado de una pasada de conciliación.
type SweepReport struct {
	Transfers     int
	LinesResolved int
	Reconciled    int
	Skipped       int
	Failed        int
}

// Sweeper aplica la regla de auto-aprobación a traslados recibidos o en disputa, un traslado a la vez
// y a través de las mismas operaciones que usa un revisor.
type Sweeper struct {
	svc       *Service
	rule      variance.AutoApprovalRule
	actor     string
	batchSize int
	log       *logger.Logger
}

// NewSweeper construye el barrido. actor es el usuario de sistema que firma las resoluciones.
func NewSweeper(svc *Service, rule variance.AutoApprovalRule, actor string, log *logger.Logger) *Sweeper {
	return &Sweeper{svc: svc, rule: rule, actor: actor, batchSize: 100, log: log}
}

// Run recorre los traslados pendientes. Los conflictos de concurrencia se omiten y se reintentan en la
// siguiente pasada; otros errores se registran y no detienen el barrido.
func (w *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var rep SweepReport
	started := time.Now()
	// se toma la foto completa antes de mutar: los traslados conciliados salen del filtro
	var pending []*entity.Transfer
	for offset := 0; ; offset += w.batchSize {
		batch, err := w.svc.repos.Transfers.List(ctx, repository.TransferFilter{
			Statuses: []entity.TransferStatus{entity.TransferReceived, entity.TransferDisputed},
			Limit:    w.batchSize,
			Offset:   offset,
		})
		if err != nil {
			return rep, err
		}
		pending = append(pending, batch...)
		if len(batch) < w.batchSize {
			break
		}
	}
	for _, t := range pending {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Transfers++
		w.sweepTransfer(ctx, t, &rep)
	}
	w.log.Info().
		Int("transfers", rep.Transfers).
		Int("lines_resolved", rep.LinesResolved).
		Int("reconciled", rep.Reconciled).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("barrido de conciliación")
	return rep, nil
}

func (w *Sweeper) sweepTransfer(ctx context.Context, t *entity.Transfer, rep *SweepReport) {
	discrepancies, err := w.svc.repos.Discrepancies.ListByTransfer(ctx, t.ID)
	if err != nil {
		w.fail(rep, t.ID, err)
		return
	}
	reconciled := false
	for _, d := range discrepancies {
		if d.IsResolved() {
			continue
		}
		for _, l := range d.Lines {
			if l.Dispositioned() {
				continue
			}
			tl, ok := t.Line(l.TransferLineID)
			if !ok || !w.rule.Allows(l, tl.ReferenceCost) {
				continue
			}
			out, err := w.svc.ResolveDiscrepancyLine(ctx, w.actor, d.ID, l.ID, entity.DispositionAdjust, "auto-aprobado por política")
			if err != nil {
				w.fail(rep, t.ID, err)
				continue
			}
			rep.LinesResolved++
			if out.IsResolved() {
				status, err := w.svc.GetTransferStatus(ctx, t.ID)
				if err == nil && status == entity.TransferReconciled {
					reconciled = true
				}
			}
		}
	}
	if reconciled {
		rep.Reconciled++
		return
	}
	if t.Status != entity.TransferReceived {
		return
	}
	if _, err := w.svc.ReconcileTransfer(ctx, w.actor, t.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return
		}
		w.fail(rep, t.ID, err)
		return
	}
	rep.Reconciled++
}

func (w *Sweeper) fail(rep *SweepReport, transferID int64, err error) {
	if errors.Is(err, domain.ErrConcurrentModification) {
		rep.Skipped++
		w.log.Warn().Int64("transfer_id", transferID).Msg("traslado ocupado; se reintenta en la próxima pasada")
		return
	}
	rep.Failed++
	w.log.Error().Err(err).Int64("transfer_id", transferID).Msg("barrido de conciliación")
}

package transfer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/variance"
)

// ─────────────────────────────────────────────────────────────────────────────
// Despacho
// ─────────────────────────────────────────────────────────────────────────────

func TestDispatch_PostsTransferOutAndCreatesShipment(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "150")
	tr := e.create(t, line(1, "100", "10"))
	_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
	require.NoError(t, err)

	out, sh, err := e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.NoError(t, err)
	assert.Equal(t, entity.TransferInTransit, out.Status)
	require.NotNil(t, sh)
	require.NotNil(t, sh.NetWeight)
	assertDec(t, "200", *sh.NetWeight)

	assertDec(t, "50", e.balance(t, 1, e.src))
	outs := e.entries(t, tr.ID, entity.MovementTransferOut)
	require.Len(t, outs, 1)
	assertDec(t, "-100", outs[0].Quantity)
}

func TestDispatch_InsufficientStockIsAtomic(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "100")
	e.stock(t, 2, e.src, "5")
	tr := e.create(t, line(1, "100", "10"), line(2, "10", "4"))
	_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
	require.NoError(t, err)

	_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	assertDec(t, "100", e.balance(t, 1, e.src))
	assertDec(t, "5", e.balance(t, 2, e.src))
	assert.Empty(t, e.entries(t, tr.ID, ""))
	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferApproved, status)
	_, err = e.svc.GetShipment(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDispatch_SecondDispatchRejectedWithoutDuplicates(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "300")
	tr := e.create(t, line(1, "100", "10"))
	_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
	require.NoError(t, err)
	_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.NoError(t, err)

	_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	assert.Len(t, e.entries(t, tr.ID, entity.MovementTransferOut), 1)
	assertDec(t, "200", e.balance(t, 1, e.src))
}

func TestDispatch_RequiresApproval(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "100")
	tr := e.create(t, line(1, "10", "1"))

	_, _, err := e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// ─────────────────────────────────────────────────────────────────────────────
// Recepción
// ─────────────────────────────────────────────────────────────────────────────

func TestReceive_ShortageScrappedBalancesAndRecordsLoss(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"))

	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "97"))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDisputed, res.Transfer.Status)
	assert.False(t, res.Receipt.WithinTolerance)
	assertDec(t, "2", res.Receipt.TolerancePercent)
	require.Len(t, res.Discrepancies, 1)

	disc := res.Discrepancies[0]
	assert.Equal(t, entity.ReasonWeightDiff, disc.Reason)
	assert.Equal(t, entity.SeverityMedium, disc.Severity)
	require.Len(t, disc.Lines, 1)
	assertDec(t, "-3", disc.Lines[0].QuantityDelta)

	// el destino recibe lo despachado hasta que se resuelva la discrepancia
	assertDec(t, "100", e.balance(t, 1, e.dst))
	rep, err := e.svc.ConservationReport(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, rep.Balanced)
	assertDec(t, "-3", rep.Lines[0].Outstanding)

	out, err := e.svc.ResolveDiscrepancyLine(ctx, auditor, disc.ID, disc.Lines[0].ID, entity.DispositionScrap, "merma en ruta")
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyResolved, out.Status)
	assert.Equal(t, auditor, out.ReviewedBy)

	assertDec(t, "97", e.balance(t, 1, e.dst))
	assertDec(t, "0", e.balance(t, 1, e.src))
	assertDec(t, "-3", e.ledgerSum(t, tr.ID))
	wastage := e.entries(t, tr.ID, entity.MovementWastage)
	require.Len(t, wastage, 1)
	assertDec(t, "-3", wastage[0].Quantity)

	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReconciled, status)

	rep, err = e.svc.ConservationReport(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, rep.Balanced)
	assertDec(t, "0", rep.Lines[0].Unexplained)
	assertDec(t, "-3", rep.NetChange)

	impacts, err := e.fin.ListByCause(ctx, entity.CauseRef{Kind: entity.CauseDiscrepancy, ID: disc.ID})
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.Equal(t, entity.ImpactDirectLoss, impacts[0].Category)
	assert.True(t, impacts[0].Recoverable)
	assert.Equal(t, e.dst, impacts[0].LocationID)
	assertDec(t, "30", impacts[0].Amount)
}

func TestReceive_ShortageReplacedLeavesCountedBalance(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"))

	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "97"))
	require.NoError(t, err)
	require.Len(t, res.Discrepancies, 1)
	disc := res.Discrepancies[0]

	out, err := e.svc.ResolveDiscrepancyLine(ctx, auditor, disc.ID, disc.Lines[0].ID, entity.DispositionReplace, "reposición en el próximo despacho")
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyResolved, out.Status)

	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReconciled, status)

	assertDec(t, "97", e.balance(t, 1, e.dst))
	assertDec(t, "-3", e.ledgerSum(t, tr.ID))
	assert.Empty(t, e.entries(t, tr.ID, entity.MovementWastage))
	hold := e.entries(t, tr.ID, entity.MovementTransferHold)
	require.Len(t, hold, 1)
	assertDec(t, "-3", hold[0].Quantity)

	rep, err := e.svc.ConservationReport(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, rep.Balanced)
	assertDec(t, "0", rep.Lines[0].Outstanding)
	assertDec(t, "-3", rep.Lines[0].Corrections)

	// la reposición no es pérdida
	impacts, err := e.fin.ListByCause(ctx, entity.CauseRef{Kind: entity.CauseDiscrepancy, ID: disc.ID})
	require.NoError(t, err)
	assert.Empty(t, impacts)
}

func TestReceive_ToleranceBoundaryIsWithin(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"))

	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "98"))
	require.NoError(t, err)
	assert.True(t, res.Receipt.WithinTolerance)
	assert.Empty(t, res.Discrepancies)
	assert.Equal(t, entity.TransferReconciled, res.Transfer.Status)
	assert.Equal(t, entity.VarianceWithinTolerance, res.Receipt.Lines[0].Classification)

	adj := e.entries(t, tr.ID, entity.MovementAdjustment)
	require.Len(t, adj, 1)
	assertDec(t, "-2", adj[0].Quantity)
	assertDec(t, "98", e.balance(t, 1, e.dst))

	rep, err := e.svc.ConservationReport(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, rep.Balanced)
}

func TestReceive_ExactCountHasNoAdjustment(t *testing.T) {
	e := newEnv(t, withoutAutoReconcile())
	tr := e.delivered(t, line(1, "40", "2"))

	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "40"))
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReceived, res.Transfer.Status)
	assert.Equal(t, entity.VarianceNone, res.Receipt.Lines[0].Classification)
	assert.Empty(t, e.entries(t, tr.ID, entity.MovementAdjustment))
}

func TestReceive_SecondReceiveRejected(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"))
	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "100"))
	require.NoError(t, err)

	_, err = e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "90"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Len(t, e.entries(t, tr.ID, entity.MovementTransferIn), 1)
	assertDec(t, "100", e.balance(t, 1, e.dst))
}

func TestReceive_BeforeDeliveryRejected(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "10")
	tr := e.create(t, line(1, "10", "1"))

	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "10"))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestReceive_MissingLine(t *testing.T) {
	t.Run("rechazada cuando se exigen todas las líneas", func(t *testing.T) {
		e := newEnv(t)
		tr := e.delivered(t, line(1, "10", "1"), line(2, "20", "1"))

		_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "10"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, e.entries(t, tr.ID, entity.MovementTransferIn))
	})

	t.Run("se asume la esperada si no se exigen", func(t *testing.T) {
		e := newEnv(t, allowMissingLines())
		tr := e.delivered(t, line(1, "10", "1"), line(2, "20", "1"))

		res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "10"))
		require.NoError(t, err)
		require.Len(t, res.Receipt.Lines, 2)
		assert.False(t, res.Receipt.Lines[0].Defaulted)
		assert.True(t, res.Receipt.Lines[1].Defaulted)
		assertDec(t, "20", res.Receipt.Lines[1].ReceivedQuantity)
		assert.Equal(t, entity.TransferReconciled, res.Transfer.Status)
	})
}

func TestReceive_UnknownLineRejected(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "10", "1"))

	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, transfer.ReceiveInput{
		Lines: []transfer.ReceiveLineInput{{TransferLineID: 9999, ReceivedQuantity: d("10")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReceive_WithoutTolerancePolicy(t *testing.T) {
	e := newEnv(t, withTolerance(policy.NewStaticProvider(nil, nil, nil)))
	tr := e.delivered(t, line(1, "10", "1"))

	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "10"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrToleranceConfiguration)

	var cfgErr *domain.ToleranceConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, e.dst, cfgErr.LocationID)

	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDeliveredPendingConfirm, status)
	assert.Empty(t, e.entries(t, tr.ID, entity.MovementTransferIn))
}

func TestReceive_GroupsLinesByReason(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"), line(2, "50", "4"), line(3, "20", "1"))

	in := received(tr, "90", "40", "25")
	in.Lines[1].Reason = entity.ReasonDamaged
	in.Lines[2].Reason = entity.ReasonExcess
	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, in)
	require.NoError(t, err)

	require.Len(t, res.Discrepancies, 3)
	assert.Equal(t, entity.ReasonDamaged, res.Discrepancies[0].Reason)
	assert.Equal(t, entity.ReasonExcess, res.Discrepancies[1].Reason)
	assert.Equal(t, entity.ReasonWeightDiff, res.Discrepancies[2].Reason)
	for _, disc := range res.Discrepancies {
		assert.Equal(t, e.dst, disc.LocationID)
		assert.Equal(t, entity.DiscrepancyOpen, disc.Status)
	}
	// 25% sobre 2% de tolerancia
	assert.Equal(t, entity.SeverityCritical, res.Discrepancies[1].Severity)
}

type blockingProvider struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) Tolerance(context.Context, policy.Query) (decimal.Decimal, bool, error) {
	p.once.Do(func() { close(p.started) })
	<-p.release
	return d("2"), true, nil
}

func TestReceive_ConcurrentReceiveLosesRace(t *testing.T) {
	prov := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	e := newEnv(t, withTolerance(prov))
	tr := e.delivered(t, line(1, "100", "10"))

	done := make(chan error, 1)
	go func() {
		_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "100"))
		done <- err
	}()
	<-prov.started

	_, err := e.svc.ReceiveTransfer(ctx, "u-otro", tr.ID, received(tr, "95"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	close(prov.release)
	require.NoError(t, <-done)

	assert.Len(t, e.entries(t, tr.ID, entity.MovementTransferIn), 1)
	rec, err := e.svc.GetReceipt(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, clerk, rec.ReceivedBy)
}

// ─────────────────────────────────────────────────────────────────────────────
// Cancelación y conciliación
// ─────────────────────────────────────────────────────────────────────────────

func TestCancel(t *testing.T) {
	t.Run("desde borrador", func(t *testing.T) {
		e := newEnv(t)
		tr := e.create(t, line(1, "10", "1"))

		out, err := e.svc.CancelTransfer(ctx, "u-admin", tr.ID, "pedido duplicado")
		require.NoError(t, err)
		assert.Equal(t, entity.TransferCancelled, out.Status)
		assert.Equal(t, "pedido duplicado", out.CancelReason)
		assert.Empty(t, e.entries(t, tr.ID, ""))
	})

	t.Run("desde aprobado", func(t *testing.T) {
		e := newEnv(t)
		tr := e.create(t, line(1, "10", "1"))
		_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
		require.NoError(t, err)

		out, err := e.svc.CancelTransfer(ctx, "u-admin", tr.ID, "sin vehículo")
		require.NoError(t, err)
		assert.Equal(t, entity.TransferCancelled, out.Status)
	})

	t.Run("en tránsito no se cancela", func(t *testing.T) {
		e := newEnv(t)
		e.stock(t, 1, e.src, "10")
		tr := e.create(t, line(1, "10", "1"))
		_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
		require.NoError(t, err)
		_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
		require.NoError(t, err)

		_, err = e.svc.CancelTransfer(ctx, "u-admin", tr.ID, "tarde")
		assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		assertDec(t, "0", e.balance(t, 1, e.src))
	})
}

func TestRaiseDiscrepancy_BlocksReconcileUntilResolved(t *testing.T) {
	e := newEnv(t, withoutAutoReconcile())
	tr := e.delivered(t, line(1, "100", "5"))
	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "100"))
	require.NoError(t, err)

	disc, err := e.svc.RaiseDiscrepancy(ctx, clerk, tr.ID, transfer.RaiseInput{
		Reason: entity.ReasonDamaged,
		Lines:  []transfer.RaiseLineInput{{TransferLineID: tr.Lines[0].ID, QuantityDelta: d("-1"), Notes: "caja aplastada"}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyOpen, disc.Status)
	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDisputed, status)

	_, err = e.svc.ReconcileTransfer(ctx, auditor, tr.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.svc.ResolveDiscrepancyLine(ctx, auditor, disc.ID, disc.Lines[0].ID, entity.DispositionScrap, "")
	require.NoError(t, err)
	status, err = e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReconciled, status)
	assertDec(t, "99", e.balance(t, 1, e.dst))

	impacts, err := e.fin.ListByCause(ctx, entity.CauseRef{Kind: entity.CauseDiscrepancy, ID: disc.ID})
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assertDec(t, "5", impacts[0].Amount)
}

func TestRaiseDiscrepancy_NotAllowedBeforeReceipt(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "10", "1"))

	_, err := e.svc.RaiseDiscrepancy(ctx, clerk, tr.ID, transfer.RaiseInput{
		Reason: entity.ReasonShort,
		Lines:  []transfer.RaiseLineInput{{TransferLineID: tr.Lines[0].ID, QuantityDelta: d("-1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// ─────────────────────────────────────────────────────────────────────────────
// Flujo de discrepancias
// ─────────────────────────────────────────────────────────────────────────────

func disputedWithTwoReasons(t *testing.T, e *env) (*entity.Transfer, *entity.Discrepancy, *entity.Discrepancy) {
	t.Helper()
	tr := e.delivered(t, line(1, "100", "10"), line(2, "50", "4"))
	in := received(tr, "90", "40")
	in.Lines[1].Reason = entity.ReasonDamaged
	res, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, in)
	require.NoError(t, err)
	require.Len(t, res.Discrepancies, 2)
	return tr, res.Discrepancies[0], res.Discrepancies[1]
}

func TestDiscrepancy_ReopenAndEscalate(t *testing.T) {
	e := newEnv(t)
	tr, damaged, weight := disputedWithTwoReasons(t, e)
	require.Equal(t, entity.ReasonDamaged, damaged.Reason)
	require.Equal(t, entity.ReasonWeightDiff, weight.Reason)

	resolved, err := e.svc.ResolveDiscrepancyLine(ctx, auditor, damaged.ID, damaged.Lines[0].ID, entity.DispositionReturn, "devolver al proveedor")
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyResolved, resolved.Status)
	// return deja la diferencia en espera, sin ajuste ni merma
	assert.Empty(t, e.entries(t, tr.ID, entity.MovementAdjustment))
	hold := e.entries(t, tr.ID, entity.MovementTransferHold)
	require.Len(t, hold, 1)
	assertDec(t, "-10", hold[0].Quantity)
	assertDec(t, "40", e.balance(t, 2, e.dst))

	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferDisputed, status)

	_, err = e.svc.ReopenDiscrepancy(ctx, auditor, weight.ID, transfer.ReopenInput{
		Reason: "recuento",
		Lines:  []transfer.RaiseLineInput{{TransferLineID: tr.Lines[0].ID, QuantityDelta: d("-1")}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	reopened, err := e.svc.ReopenDiscrepancy(ctx, auditor, damaged.ID, transfer.ReopenInput{
		Reason: "segunda revisión",
		Lines:  []transfer.RaiseLineInput{{TransferLineID: tr.Lines[1].ID, QuantityDelta: d("-2")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyReopened, reopened.Status)
	assert.Equal(t, 1, reopened.ReopenCount)
	require.Len(t, reopened.Lines, 2)
	assert.Equal(t, "segunda revisión", reopened.Lines[1].Notes)
	assert.Nil(t, reopened.ResolvedAt)

	_, err = e.svc.EscalateDiscrepancy(ctx, auditor, weight.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	escalated, err := e.svc.EscalateDiscrepancy(ctx, auditor, weight.ID, "cliente reclama")
	require.NoError(t, err)
	assert.Equal(t, weight.Severity.Next(), escalated.Severity)
	assert.Equal(t, "cliente reclama", escalated.EscalationReason)
}

func TestDiscrepancy_LineDispositionIsImmutable(t *testing.T) {
	e := newEnv(t)
	tr, damaged, _ := disputedWithTwoReasons(t, e)

	review, err := e.svc.StartReview(ctx, auditor, damaged.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.DiscrepancyUnderReview, review.Status)

	_, err = e.svc.ResolveDiscrepancyLine(ctx, auditor, damaged.ID, damaged.Lines[0].ID, entity.DispositionAdjust, "")
	require.NoError(t, err)
	_, err = e.svc.ResolveDiscrepancyLine(ctx, auditor, damaged.ID, damaged.Lines[0].ID, entity.DispositionScrap, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = e.svc.ResolveDiscrepancyLine(ctx, auditor, damaged.ID, damaged.Lines[0].ID, entity.Disposition("burn"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	adj := e.entries(t, tr.ID, entity.MovementAdjustment)
	require.Len(t, adj, 1)
	assertDec(t, "-10", adj[0].Quantity)
}

func TestDiscrepancy_ResolvingAllReconciles(t *testing.T) {
	e := newEnv(t)
	tr, damaged, weight := disputedWithTwoReasons(t, e)

	_, err := e.svc.ResolveDiscrepancyLine(ctx, auditor, weight.ID, weight.Lines[0].ID, entity.DispositionAdjust, "")
	require.NoError(t, err)
	_, err = e.svc.ResolveDiscrepancyLine(ctx, auditor, damaged.ID, damaged.Lines[0].ID, entity.DispositionScrap, "")
	require.NoError(t, err)

	status, err := e.svc.GetTransferStatus(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferReconciled, status)
	assertDec(t, "90", e.balance(t, 1, e.dst))
	assertDec(t, "40", e.balance(t, 2, e.dst))

	open, err := e.svc.GetOpenDiscrepancies(ctx, e.dst)
	require.NoError(t, err)
	assert.Empty(t, open)

	rep, err := e.svc.ConservationReport(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, rep.Balanced)
	assertDec(t, "-20", rep.NetChange)
}

// ─────────────────────────────────────────────────────────────────────────────
// Barrido, remisión y eventos
// ─────────────────────────────────────────────────────────────────────────────

func TestSweeper_ResolvesSmallVariancesAndReconciles(t *testing.T) {
	e := newEnv(t, withoutAutoReconcile())

	clean := e.delivered(t, line(1, "10", "1"))
	_, err := e.svc.ReceiveTransfer(ctx, clerk, clean.ID, received(clean, "10"))
	require.NoError(t, err)

	small := e.delivered(t, line(2, "10", "1"))
	_, err = e.svc.ReceiveTransfer(ctx, clerk, small.ID, received(small, "9"))
	require.NoError(t, err)

	large := e.delivered(t, line(3, "10", "100"))
	_, err = e.svc.ReceiveTransfer(ctx, clerk, large.ID, received(large, "5"))
	require.NoError(t, err)

	maxValue := d("50")
	sw := transfer.NewSweeper(e.svc, variance.AutoApprovalRule{MaxVariancePercent: d("15"), MaxValue: &maxValue}, "system", e.log)
	rep, err := sw.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Transfers)
	assert.Equal(t, 1, rep.LinesResolved)
	assert.Equal(t, 2, rep.Reconciled)
	assert.Zero(t, rep.Failed)

	for id, want := range map[int64]entity.TransferStatus{
		clean.ID: entity.TransferReconciled,
		small.ID: entity.TransferReconciled,
		large.ID: entity.TransferDisputed,
	} {
		status, err := e.svc.GetTransferStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, status, "traslado %d", id)
	}
	assertDec(t, "9", e.balance(t, 2, e.dst))
}

func TestDispatchNote(t *testing.T) {
	e := newEnv(t)
	e.stock(t, 1, e.src, "10")
	tr := e.create(t, line(1, "10", "1"))

	_, err := e.svc.DispatchNote(ctx, tr.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
	require.NoError(t, err)
	_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.NoError(t, err)

	pdf, err := e.svc.DispatchNote(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(pdf))
	require.NotNil(t, e.docs.last.Source)
	assert.Equal(t, "BOD-1", e.docs.last.Source.Code)
	assert.Equal(t, "SUC-1", e.docs.last.Destination.Code)
	assert.Equal(t, "ABC123", e.docs.last.Shipment.VehicleNumber)
}

func TestEvents_PublishedAfterCommit(t *testing.T) {
	e := newEnv(t)
	tr := e.delivered(t, line(1, "100", "10"))
	_, err := e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "97"))
	require.NoError(t, err)

	assert.Equal(t, []string{
		entity.EventTransferCreated,
		entity.EventTransferDispatched,
		entity.EventTransferReceived,
		entity.EventDiscrepancyRaised,
	}, e.pub.types())

	// un fallo no publica nada
	_, err = e.svc.ReceiveTransfer(ctx, clerk, tr.ID, received(tr, "97"))
	require.Error(t, err)
	assert.Len(t, e.pub.types(), 4)
}

func TestCreate_Validation(t *testing.T) {
	e := newEnv(t)
	cases := map[string]transfer.CreateInput{
		"misma ubicación": {SourceLocationID: e.src, DestinationLocationID: e.src, Lines: []transfer.LineInput{line(1, "1", "1")}},
		"sin líneas":      {SourceLocationID: e.src, DestinationLocationID: e.dst},
		"cantidad cero":   {SourceLocationID: e.src, DestinationLocationID: e.dst, Lines: []transfer.LineInput{line(1, "0", "1")}},
		"costo negativo":  {SourceLocationID: e.src, DestinationLocationID: e.dst, Lines: []transfer.LineInput{line(1, "1", "-1")}},
		"ubicación ajena": {SourceLocationID: e.src, DestinationLocationID: 999, Lines: []transfer.LineInput{line(1, "1", "1")}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.CreateTransfer(ctx, clerk, in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := e.svc.CreateTransfer(ctx, "", transfer.CreateInput{SourceLocationID: e.src, DestinationLocationID: e.dst, Lines: []transfer.LineInput{line(1, "1", "1")}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

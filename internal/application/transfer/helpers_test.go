package transfer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/lock"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/memory"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

const (
	clerk   = "u-bodeguero"
	auditor = "u-auditor"
)

var ctx = context.Background()

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"esperado %s, obtenido %s", want, got.String()}, msgAndArgs...)...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...entity.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeRenderer struct {
	last transfer.DispatchNote
}

func (r *fakeRenderer) RenderDispatchNote(_ context.Context, doc transfer.DispatchNote) ([]byte, error) {
	r.last = doc
	return []byte("%PDF-fake"), nil
}

type env struct {
	store    *memory.Store
	repos    repository.Repositories
	svc      *transfer.Service
	fin      *financial.Service
	pub      *recordingPublisher
	docs     *fakeRenderer
	log      *logger.Logger
	src, dst int64
}

type option func(*transfer.Config, *transfer.Deps)

func withTolerance(p transfer.ToleranceProvider) option {
	return func(_ *transfer.Config, deps *transfer.Deps) { deps.Tolerance = p }
}

func withoutAutoReconcile() option {
	return func(cfg *transfer.Config, _ *transfer.Deps) { cfg.AutoReconcileClean = false }
}

func allowMissingLines() option {
	return func(cfg *transfer.Config, _ *transfer.Deps) { cfg.RequireAllLines = false }
}

// newEnv arma el servicio sobre el almacén en memoria con tolerancia por defecto de 2%.
func newEnv(t *testing.T, opts ...option) *env {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.New(logger.Config{Env: "test", Level: "error"})

	src := &entity.Location{Code: "BOD-1", Name: "Bodega central", Kind: entity.LocationWarehouse, Active: true}
	dst := &entity.Location{Code: "SUC-1", Name: "Sucursal norte", Kind: entity.LocationBranch, Active: true}
	require.NoError(t, repos.Locations.Create(ctx, src))
	require.NoError(t, repos.Locations.Create(ctx, dst))

	fin := financial.NewService(store, repos.Impacts, log)
	pub := &recordingPublisher{}
	docs := &fakeRenderer{}
	deps := transfer.Deps{
		Tx:        store,
		Repos:     repos,
		Tolerance: policy.NewStaticProvider(dp("2"), nil, nil),
		Publisher: pub,
		Locker:    lock.NewLocal(),
		Impacts:   fin,
		Documents: docs,
		Log:       log,
	}
	cfg := transfer.DefaultConfig()
	for _, o := range opts {
		o(&cfg, &deps)
	}
	return &env{
		store: store, repos: repos, svc: transfer.NewService(deps, cfg), fin: fin,
		pub: pub, docs: docs, log: log, src: src.ID, dst: dst.ID,
	}
}

// stock registra una compra en la ubicación.
func (e *env) stock(t *testing.T, productID, locationID int64, qty string) {
	t.Helper()
	uc := inventory.NewRegisterMovementUseCase(e.store, e.repos.Locations)
	_, posted, err := uc.RegisterMovement(ctx, inventory.MovementInputDTO{
		UserID:     "u-admin",
		ProductID:  productID,
		LocationID: locationID,
		Kind:       entity.MovementPurchase,
		Quantity:   d(qty),
	})
	require.NoError(t, err)
	require.True(t, posted)
}

func (e *env) balance(t *testing.T, productID, locationID int64) decimal.Decimal {
	t.Helper()
	b, err := e.repos.Stock.Get(ctx, productID, locationID)
	require.NoError(t, err)
	return b.Quantity
}

func (e *env) entries(t *testing.T, transferID int64, kind entity.MovementKind) []*entity.StockLedgerEntry {
	t.Helper()
	list, err := e.repos.Ledger.List(ctx, repository.LedgerFilter{TransferID: transferID, Kind: kind})
	require.NoError(t, err)
	return list
}

func (e *env) ledgerSum(t *testing.T, transferID int64) decimal.Decimal {
	t.Helper()
	sum := decimal.Zero
	for _, en := range e.entries(t, transferID, "") {
		sum = sum.Add(en.Quantity)
	}
	return sum
}

func line(productID int64, qty, cost string) transfer.LineInput {
	return transfer.LineInput{ProductID: productID, ExpectedQuantity: d(qty), ReferenceCost: d(cost)}
}

func (e *env) create(t *testing.T, lines ...transfer.LineInput) *entity.Transfer {
	t.Helper()
	tr, err := e.svc.CreateTransfer(ctx, clerk, transfer.CreateInput{
		SourceLocationID:      e.src,
		DestinationLocationID: e.dst,
		Lines:                 lines,
	})
	require.NoError(t, err)
	return tr
}

func dispatchInput() transfer.DispatchInput {
	return transfer.DispatchInput{
		CarrierName:   "TransCo",
		VehicleNumber: "ABC123",
		DriverName:    "Pedro",
		Weights:       entity.Weights{Gross: dp("1200"), Tare: dp("1000")},
	}
}

// delivered crea, aprueba, despacha y marca entregado un traslado con stock suficiente en origen.
func (e *env) delivered(t *testing.T, lines ...transfer.LineInput) *entity.Transfer {
	t.Helper()
	for _, l := range lines {
		e.stock(t, l.ProductID, e.src, l.ExpectedQuantity.String())
	}
	tr := e.create(t, lines...)
	_, err := e.svc.ApproveTransfer(ctx, "u-admin", tr.ID)
	require.NoError(t, err)
	_, _, err = e.svc.DispatchTransfer(ctx, clerk, tr.ID, dispatchInput())
	require.NoError(t, err)
	tr, err = e.svc.MarkDelivered(ctx, clerk, tr.ID)
	require.NoError(t, err)
	require.Equal(t, entity.TransferDeliveredPendingConfirm, tr.Status)
	return tr
}

func received(tr *entity.Transfer, qty ...string) transfer.ReceiveInput {
	in := transfer.ReceiveInput{}
	for i, q := range qty {
		in.Lines = append(in.Lines, transfer.ReceiveLineInput{TransferLineID: tr.Lines[i].ID, ReceivedQuantity: d(q)})
	}
	return in
}

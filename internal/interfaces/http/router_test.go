package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/application/usecase"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/policy"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/events"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/lock"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/memory"
	"github.com/jhoicas/Traslados-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/Traslados-api/internal/interfaces/http"
	"github.com/jhoicas/Traslados-api/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type apiClient struct {
	t   *testing.T
	app *fiber.App
	src int64
	dst int64
}

// newAPI arma la API completa sobre el almacén en memoria con dos ubicaciones activas.
func newAPI(t *testing.T) *apiClient {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	log := logger.New(logger.Config{Env: "test", Level: "error"})
	src := &entity.Location{Code: "BOD-1", Name: "Bodega", Kind: entity.LocationWarehouse, Active: true}
	dst := &entity.Location{Code: "SUC-1", Name: "Sucursal", Kind: entity.LocationBranch, Active: true}
	require.NoError(t, repos.Locations.Create(context.Background(), src))
	require.NoError(t, repos.Locations.Create(context.Background(), dst))

	pct := decimal.NewFromInt(2)
	fin := financial.NewService(store, repos.Impacts, log)
	pub := events.NewAsyncPublisher(log, 0, events.NewLogSink(log.Zerolog()))
	t.Cleanup(pub.Close)
	svc := transfer.NewService(transfer.Deps{
		Tx:        store,
		Repos:     repos,
		Tolerance: policy.NewStaticProvider(&pct, nil, nil),
		Publisher: pub,
		Locker:    lock.NewLocal(),
		Impacts:   fin,
		Documents: pdf.NewDispatchNoteGenerator("Traslados test"),
		Log:       log,
	}, transfer.DefaultConfig())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		LocationUC:       usecase.NewLocationUseCase(repos.Locations),
		Transfers:        svc,
		Financial:        fin,
		RegisterMovement: inventory.NewRegisterMovementUseCase(store, repos.Locations),
		Balance:          inventory.NewBalanceQuery(repos.Stock, repos.Ledger),
		JWTSecret:        testJWTSecret,
	})
	return &apiClient{t: t, app: app, src: src.ID, dst: dst.ID}
}

// do envía la petición con el rol indicado ("" = sin token) y decodifica la respuesta en out si no es nil.
func (a *apiClient) do(method, path, role string, body, out any) int {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(a.t, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// deliveredTransfer compra stock en origen y lleva un traslado de una línea hasta entregado.
func (a *apiClient) deliveredTransfer(qty, cost int64) dto.TransferResponse {
	a.t.Helper()
	status := a.do(http.MethodPost, "/api/inventory/movements", "bodeguero", dto.RegisterMovementRequest{
		ProductID: 1, LocationID: a.src, Kind: "purchase", Quantity: dec(qty),
	}, nil)
	require.Equal(a.t, http.StatusCreated, status)

	var tr dto.TransferResponse
	status = a.do(http.MethodPost, "/api/transfers", "bodeguero", dto.CreateTransferRequest{
		SourceLocationID:      a.src,
		DestinationLocationID: a.dst,
		Lines:                 []dto.TransferLineRequest{{ProductID: 1, ExpectedQuantity: dec(qty), ReferenceCost: dec(cost)}},
	}, &tr)
	require.Equal(a.t, http.StatusCreated, status)
	require.Equal(a.t, "draft", tr.Status)

	base := fmt.Sprintf("/api/transfers/%d", tr.ID)
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/approve", "admin", nil, nil))
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/dispatch", "bodeguero", dto.DispatchTransferRequest{
		CarrierName: "TransCo", VehicleNumber: "XYZ987", DriverName: "Ana",
	}, nil))
	require.Equal(a.t, http.StatusOK, a.do(http.MethodPost, base+"/deliver", "bodeguero", nil, &tr))
	require.Equal(a.t, "delivered_pending_confirm", tr.Status)
	return tr
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests de flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestAPI_HealthIsPublic(t *testing.T) {
	a := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPI_ReceiveShortageThenResolve(t *testing.T) {
	a := newAPI(t)
	tr := a.deliveredTransfer(100, 10)
	base := fmt.Sprintf("/api/transfers/%d", tr.ID)

	var rec dto.ReceiveResponse
	status := a.do(http.MethodPost, base+"/receive", "bodeguero", dto.ReceiveTransferRequest{
		Lines: []dto.ReceiveLineRequest{{TransferLineID: tr.Lines[0].ID, ReceivedQuantity: dec(97)}},
	}, &rec)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "disputed", rec.Transfer.Status)
	require.Len(t, rec.Discrepancies, 1)
	disc := rec.Discrepancies[0]
	assert.Equal(t, "weight_diff", disc.Reason)

	// el bodeguero no resuelve
	path := fmt.Sprintf("/api/discrepancies/%d/lines/%d/resolve", disc.ID, disc.Lines[0].ID)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, path, "bodeguero", dto.ResolveLineRequest{Disposition: "scrap"}, nil))

	var resolved dto.DiscrepancyResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, path, "auditor", dto.ResolveLineRequest{Disposition: "scrap"}, &resolved))
	assert.Equal(t, "resolved", resolved.Status)

	var st dto.TransferStatusResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, base+"/status", "auditor", nil, &st))
	assert.Equal(t, "reconciled", st.Status)

	var cons dto.ConservationResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, base+"/conservation", "auditor", nil, &cons))
	assert.True(t, cons.Balanced)
	assert.True(t, cons.NetChange.Equal(dec(-3)))

	var impacts []dto.FinancialImpactResponse
	q := fmt.Sprintf("/api/financial-impacts?cause_kind=discrepancy&cause_id=%d", disc.ID)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, q, "auditor", nil, &impacts))
	require.Len(t, impacts, 1)
	assert.True(t, impacts[0].Amount.Equal(dec(30)))

	var bal dto.BalanceResponse
	q = fmt.Sprintf("/api/inventory/balance?product_id=1&location_id=%d", a.dst)
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, q, "bodeguero", nil, &bal))
	assert.True(t, bal.Quantity.Equal(dec(97)))
}

func TestAPI_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	tr := a.deliveredTransfer(10, 1)
	base := fmt.Sprintf("/api/transfers/%d", tr.ID)

	var errBody dto.ErrorResponse
	status := a.do(http.MethodPost, base+"/dispatch", "bodeguero", dto.DispatchTransferRequest{CarrierName: "x"}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE_TRANSITION", errBody.Code)
	assert.Contains(t, errBody.EntityIDs, tr.ID)

	errBody = dto.ErrorResponse{}
	status = a.do(http.MethodGet, "/api/transfers/9999", "auditor", nil, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errBody.Code)

	errBody = dto.ErrorResponse{}
	status = a.do(http.MethodPost, "/api/transfers", "bodeguero", dto.CreateTransferRequest{SourceLocationID: a.src, DestinationLocationID: a.src}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION", errBody.Code)

	errBody = dto.ErrorResponse{}
	status = a.do(http.MethodPost, "/api/inventory/movements", "bodeguero", dto.RegisterMovementRequest{
		ProductID: 2, LocationID: a.src, Kind: "sale", Quantity: dec(1),
	}, &errBody)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errBody.Code)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/transfers/abc", "auditor", nil, nil))
}

func TestAPI_RoleChecks(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/transfers", "", nil, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/locations", "bodeguero", dto.CreateLocationRequest{Code: "X", Name: "X"}, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/financial-impacts?cause_kind=discrepancy&cause_id=1", "bodeguero", nil, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/transfers", "auditor", dto.CreateTransferRequest{}, nil))

	var loc dto.LocationResponse
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/locations", "admin", dto.CreateLocationRequest{Code: "SUC-2", Name: "Sucursal sur", Kind: "branch"}, &loc))
	assert.True(t, loc.Active)

	var list dto.LocationListResponse
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/locations", "auditor", nil, &list))
	assert.Len(t, list.Items, 3)
}

func TestAPI_DispatchNoteIsPDF(t *testing.T) {
	a := newAPI(t)
	tr := a.deliveredTransfer(5, 2)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/transfers/%d/dispatch-note", tr.ID), nil)
	req.Header.Set("Authorization", tokenForRole(t, "auditor"))
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

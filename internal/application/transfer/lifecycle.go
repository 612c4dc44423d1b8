package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
	"github.com/jhoicas/Traslados-api/internal/domain/workflow"
)

// LineInput línea esperada al crear un traslado.
type LineInput struct {
	ProductID        int64
	CategoryID       string
	BatchLabel       string
	ExpectedQuantity decimal.Decimal
	ExpectedWeight   *decimal.Decimal
	ExpiryDate       *time.Time
	ReferenceCost    decimal.Decimal
}

// CreateInput cabecera y líneas de un traslado nuevo.
type CreateInput struct {
	SourceLocationID       int64
	DestinationLocationID  int64
	DestinationSubLocation *string
	Notes                  string
	Lines                  []LineInput
}

// DispatchInput datos del vehículo y pesaje al despachar.
type DispatchInput struct {
	CarrierName   string
	VehicleNumber string
	DriverName    string
	DriverPhone   string
	Weights       entity.Weights
	AttachmentIDs []string
}

// CreateTransfer valida y persiste un traslado en borrador.
func (s *Service) CreateTransfer(ctx context.Context, actor string, in CreateInput) (*entity.Transfer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		field string
		id    int64
	}{{"source_location_id", in.SourceLocationID}, {"destination_location_id", in.DestinationLocationID}} {
		loc, err := s.repos.Locations.GetByID(ctx, f.id)
		if err != nil {
			return nil, err
		}
		if loc == nil || !loc.Active {
			return nil, &domain.ValidationError{Field: f.field, Reason: "ubicación inexistente o inactiva", ID: f.id}
		}
	}

	var out *entity.Transfer
	err := s.run(ctx, actor, func(u *unitOfWork) error {
		t := &entity.Transfer{
			SourceLocationID:       in.SourceLocationID,
			DestinationLocationID:  in.DestinationLocationID,
			DestinationSubLocation: in.DestinationSubLocation,
			Status:                 entity.TransferDraft,
			Notes:                  in.Notes,
			CreatedBy:              actor,
			CreatedAt:              u.now,
			UpdatedAt:              u.now,
		}
		for i, l := range in.Lines {
			t.Lines = append(t.Lines, entity.TransferLine{
				Position:         i + 1,
				ProductID:        l.ProductID,
				CategoryID:       l.CategoryID,
				BatchLabel:       l.BatchLabel,
				ExpectedQuantity: l.ExpectedQuantity,
				ExpectedWeight:   l.ExpectedWeight,
				ExpiryDate:       l.ExpiryDate,
				ReferenceCost:    l.ReferenceCost,
			})
		}
		if err := u.repos.Transfers.Create(ctx, t); err != nil {
			return err
		}
		u.emit(entity.EventTransferCreated, "transfer", t.ID, map[string]any{
			"source_location_id":      t.SourceLocationID,
			"destination_location_id": t.DestinationLocationID,
			"lines":                   len(t.Lines),
		})
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("transfer_id", out.ID).Str("actor", actor).Msg("traslado creado")
	return out, nil
}

func validateCreate(in CreateInput) error {
	if in.SourceLocationID <= 0 {
		return domain.NewValidationError("source_location_id", "requerido")
	}
	if in.DestinationLocationID <= 0 {
		return domain.NewValidationError("destination_location_id", "requerido")
	}
	if in.SourceLocationID == in.DestinationLocationID {
		return domain.NewValidationError("destination_location_id", "debe ser distinto del origen")
	}
	if len(in.Lines) == 0 {
		return domain.NewValidationError("lines", "se requiere al menos una línea")
	}
	for i, l := range in.Lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
		if l.ProductID <= 0 {
			return domain.NewValidationError(field("product_id"), "requerido")
		}
		if !l.ExpectedQuantity.IsPositive() {
			return domain.NewValidationError(field("expected_quantity"), "debe ser positiva")
		}
		if l.ExpectedWeight != nil && l.ExpectedWeight.IsNegative() {
			return domain.NewValidationError(field("expected_weight"), "no puede ser negativo")
		}
		if l.ReferenceCost.IsNegative() {
			return domain.NewValidationError(field("reference_cost"), "no puede ser negativo")
		}
	}
	return nil
}

// ApproveTransfer draft -> approved.
func (s *Service) ApproveTransfer(ctx context.Context, actor string, id int64) (*entity.Transfer, error) {
	return s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		return s.transition(u, t, workflow.EventApprove)
	})
}

// DispatchTransfer en una sola unidad de trabajo: verifica stock de origen, asienta transfer_out por
// línea, crea el despacho y deja el traslado en tránsito. Si algo falla no queda ningún asiento.
func (s *Service) DispatchTransfer(ctx context.Context, actor string, id int64, in DispatchInput) (*entity.Transfer, *entity.Shipment, error) {
	weights, bad := in.Weights.Normalize()
	if bad != "" {
		return nil, nil, &domain.ValidationError{Field: bad, Reason: "pesaje inválido", ID: id}
	}
	var shipment *entity.Shipment
	t, err := s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		if err := s.transition(u, t, workflow.EventDispatch); err != nil {
			return err
		}
		ref := transferRef(t.ID)
		for _, l := range t.Lines {
			_, err := inventory.PostInTx(ctx, u.repos, inventory.Posting{
				ProductID:        l.ProductID,
				LocationID:       t.SourceLocationID,
				Quantity:         l.ExpectedQuantity.Neg(),
				Kind:             entity.MovementTransferOut,
				Reference:        ref,
				TransferID:       &t.ID,
				TransferLineID:   l.ID,
				IdempotencyKey:   entity.LedgerKey(ref, l.ID, entity.MovementTransferOut),
				Actor:            u.actor,
				At:               u.now,
				RequireAvailable: true,
			})
			if err != nil {
				return err
			}
		}
		shipment = &entity.Shipment{
			TransferID:    t.ID,
			CarrierName:   in.CarrierName,
			VehicleNumber: in.VehicleNumber,
			DriverName:    in.DriverName,
			DriverPhone:   in.DriverPhone,
			GrossWeight:   weights.Gross,
			TareWeight:    weights.Tare,
			NetWeight:     weights.Net,
			DispatchedAt:  u.now,
			DispatchedBy:  u.actor,
			AttachmentIDs: in.AttachmentIDs,
			CreatedAt:     u.now,
		}
		if err := u.repos.Shipments.Create(ctx, shipment); err != nil {
			return err
		}
		if err := s.transition(u, t, workflow.EventDepart); err != nil {
			return err
		}
		u.emit(entity.EventTransferDispatched, "transfer", t.ID, map[string]any{
			"shipment_id":        shipment.ID,
			"source_location_id": t.SourceLocationID,
			"vehicle_number":     shipment.VehicleNumber,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return t, shipment, nil
}

// MarkDelivered in_transit -> delivered_pending_confirm.
func (s *Service) MarkDelivered(ctx context.Context, actor string, id int64) (*entity.Transfer, error) {
	return s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		return s.transition(u, t, workflow.EventDeliver)
	})
}

// CancelTransfer sólo desde draft o approved. Cualquier transfer_out del traslado se compensa
// con transfer_reversal en la misma unidad de trabajo.
func (s *Service) CancelTransfer(ctx context.Context, actor string, id int64, reason string) (*entity.Transfer, error) {
	return s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		if err := s.transition(u, t, workflow.EventCancel); err != nil {
			return err
		}
		t.CancelReason = reason
		entries, err := u.repos.Ledger.ListByTransfer(ctx, t.ID)
		if err != nil {
			return err
		}
		reversed := 0
		for _, e := range entries {
			if e.Kind != entity.MovementTransferOut {
				continue
			}
			posted, err := inventory.PostInTx(ctx, u.repos, inventory.Posting{
				ProductID:      e.ProductID,
				LocationID:     e.LocationID,
				Quantity:       e.Quantity.Neg(),
				Kind:           entity.MovementTransferReversal,
				Reference:      e.Reference,
				TransferID:     &t.ID,
				TransferLineID: e.TransferLineID,
				IdempotencyKey: e.IdempotencyKey + ":reversal",
				Notes:          reason,
				Actor:          u.actor,
				At:             u.now,
			})
			if err != nil {
				return err
			}
			if posted {
				reversed++
			}
		}
		u.emit(entity.EventTransferCancelled, "transfer", t.ID, map[string]any{
			"reason":   reason,
			"reversed": reversed,
		})
		return nil
	})
}

// ReconcileTransfer concilia un traslado recibido o en disputa sin discrepancias abiertas.
func (s *Service) ReconcileTransfer(ctx context.Context, actor string, id int64) (*entity.Transfer, error) {
	return s.mutateTransfer(ctx, actor, id, func(u *unitOfWork, t *entity.Transfer) error {
		if !workflow.CanTransfer(t.Status, workflow.EventReconcile) {
			return &domain.InvalidStateTransitionError{Entity: "transfer", ID: t.ID, From: string(t.Status), Event: string(workflow.EventReconcile)}
		}
		open, err := u.repos.Discrepancies.CountUnresolved(ctx, t.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return &domain.ValidationError{Field: "discrepancies", Reason: fmt.Sprintf("%d discrepancias sin resolver", open), ID: t.ID}
		}
		return s.reconcile(u, t)
	})
}

func (s *Service) reconcile(u *unitOfWork, t *entity.Transfer) error {
	if err := s.transition(u, t, workflow.EventReconcile); err != nil {
		return err
	}
	u.emit(entity.EventTransferReconciled, "transfer", t.ID, map[string]any{
		"destination_location_id": t.DestinationLocationID,
	})
	return nil
}

// GetTransfer obtiene un traslado con sus líneas.
func (s *Service) GetTransfer(ctx context.Context, id int64) (*entity.Transfer, error) {
	t, err := s.repos.Transfers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("traslado %d: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// GetTransferStatus estado actual del traslado.
func (s *Service) GetTransferStatus(ctx context.Context, id int64) (entity.TransferStatus, error) {
	t, err := s.GetTransfer(ctx, id)
	if err != nil {
		return "", err
	}
	return t.Status, nil
}

// ListTransfers lista traslados filtrados por estado y ubicación.
func (s *Service) ListTransfers(ctx context.Context, filter repository.TransferFilter) ([]*entity.Transfer, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, domain.NewValidationError("status", fmt.Sprintf("desconocido %q", st))
		}
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repos.Transfers.List(ctx, filter)
}

// GetShipment despacho del traslado.
func (s *Service) GetShipment(ctx context.Context, transferID int64) (*entity.Shipment, error) {
	sh, err := s.repos.Shipments.GetByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, fmt.Errorf("despacho del traslado %d: %w", transferID, domain.ErrNotFound)
	}
	return sh, nil
}

// GetReceipt recepción del traslado.
func (s *Service) GetReceipt(ctx context.Context, transferID int64) (*entity.Receipt, error) {
	r, err := s.repos.Receipts.GetByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("recepción del traslado %d: %w", transferID, domain.ErrNotFound)
	}
	return r, nil
}

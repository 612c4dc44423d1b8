package transfer

import (
	"context"
	"fmt"

	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// DispatchNote datos que acompañan la mercancía en tránsito.
type DispatchNote struct {
	Transfer    *entity.Transfer
	Shipment    *entity.Shipment
	Source      *entity.Location // nil si la ubicación ya no está registrada
	Destination *entity.Location
}

// DispatchNote genera la remisión en PDF. Solo existe para traslados ya despachados.
func (s *Service) DispatchNote(ctx context.Context, transferID int64) ([]byte, error) {
	if s.documents == nil {
		return nil, fmt.Errorf("remisión: generador no configurado")
	}
	t, err := s.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	sh, err := s.repos.Shipments.GetByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, &domain.InvalidStateTransitionError{Entity: "transfer", ID: t.ID, From: string(t.Status), Event: "dispatch_note"}
	}
	doc := DispatchNote{Transfer: t, Shipment: sh}
	if doc.Source, err = s.repos.Locations.GetByID(ctx, t.SourceLocationID); err != nil {
		return nil, err
	}
	if doc.Destination, err = s.repos.Locations.GetByID(ctx, t.DestinationLocationID); err != nil {
		return nil, err
	}
	return s.documents.RenderDispatchNote(ctx, doc)
}

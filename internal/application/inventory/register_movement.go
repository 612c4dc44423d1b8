package inventory

import (
	"context"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso RegisterMovement(ctx, MovementInputDTO).
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, userID string, in dto.RegisterMovementRequest) (*dto.LedgerEntryResponse, error) {
	entry, posted, err := uc.RegisterMovement(ctx, MovementInputDTO{
		UserID:      userID,
		ProductID:   in.ProductID,
		LocationID:  in.LocationID,
		Kind:        entity.MovementKind(in.Kind),
		Quantity:    in.Quantity,
		ExternalRef: in.ExternalRef,
		Notes:       in.Notes,
	})
	if err != nil {
		return nil, err
	}
	out := dto.LedgerEntryFromEntity(entry)
	out.Posted = posted
	return &out, nil
}

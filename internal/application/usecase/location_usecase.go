package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/domain"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// LocationUseCase registro de bodegas y sucursales.
type LocationUseCase struct {
	repo repository.LocationRepository
	now  func() time.Time
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(repo repository.LocationRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo, now: time.Now}
}

// Create registra una ubicación activa. kind vacío = warehouse.
func (uc *LocationUseCase) Create(ctx context.Context, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" {
		return nil, domain.NewValidationError("code", "requerido")
	}
	if name == "" {
		return nil, domain.NewValidationError("name", "requerido")
	}
	kind := in.Kind
	if kind == "" {
		kind = entity.LocationWarehouse
	}
	if kind != entity.LocationWarehouse && kind != entity.LocationBranch {
		return nil, domain.NewValidationError("kind", "debe ser warehouse o branch")
	}
	if in.ParentID != nil {
		parent, err := uc.repo.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("ubicación padre %d: %w", *in.ParentID, domain.ErrNotFound)
		}
	}

	now := uc.now().UTC()
	loc := &entity.Location{
		Code:      code,
		Name:      name,
		Kind:      kind,
		ParentID:  in.ParentID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, loc); err != nil {
		return nil, err
	}
	out := dto.LocationFromEntity(loc)
	return &out, nil
}

// GetByID obtiene una ubicación; ErrNotFound si no existe.
func (uc *LocationUseCase) GetByID(ctx context.Context, id int64) (*dto.LocationResponse, error) {
	loc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("ubicación %d: %w", id, domain.ErrNotFound)
	}
	out := dto.LocationFromEntity(loc)
	return &out, nil
}

// List lista ubicaciones con paginación.
func (uc *LocationUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.LocationListResponse, error) {
	page.DefaultPage()
	list, err := uc.repo.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, dto.LocationFromEntity(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

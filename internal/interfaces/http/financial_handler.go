package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/financial"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// FinancialHandler impactos financieros y recuperaciones (protegido).
type FinancialHandler struct {
	svc *financial.Service
}

// NewFinancialHandler construye el handler.
func NewFinancialHandler(svc *financial.Service) *FinancialHandler {
	return &FinancialHandler{svc: svc}
}

// Record godoc
// @Summary      Registrar impacto financiero
// @Tags         financial
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordImpactRequest  true  "Causa, monto y categoría"
// @Success      201   {object}  dto.FinancialImpactResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/financial-impacts [post]
func (h *FinancialHandler) Record(c *fiber.Ctx) error {
	var in dto.RecordImpactRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	f, err := h.svc.Record(c.UserContext(), GetUserID(c), financial.RecordInput{
		Cause:       entity.CauseRef{Kind: entity.CauseKind(in.CauseKind), ID: in.CauseID},
		LocationID:  in.LocationID,
		Amount:      in.Amount,
		Category:    entity.ImpactCategory(in.Category),
		Recoverable: in.Recoverable,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FinancialImpactFromEntity(f))
}

// GetByID godoc
// @Summary      Obtener impacto financiero
// @Tags         financial
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del impacto"
// @Success      200  {object}  dto.FinancialImpactResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/financial-impacts/{id} [get]
func (h *FinancialHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	f, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.FinancialImpactFromEntity(f))
}

// ListByCause godoc
// @Summary      Impactos de una causa
// @Tags         financial
// @Security     Bearer
// @Produce      json
// @Param        cause_kind  query  string  true  "discrepancy | reconciliation"
// @Param        cause_id    query  int     true  "ID de la causa"
// @Success      200  {array}   dto.FinancialImpactResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/financial-impacts [get]
func (h *FinancialHandler) ListByCause(c *fiber.Ctx) error {
	causeID, err := queryID(c, "cause_id")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.ListByCause(c.UserContext(), entity.CauseRef{Kind: entity.CauseKind(c.Query("cause_kind")), ID: causeID})
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.FinancialImpactResponse, 0, len(list))
	for _, f := range list {
		out = append(out, dto.FinancialImpactFromEntity(f))
	}
	return c.JSON(out)
}

// RecordRecovery godoc
// @Summary      Registrar recuperación
// @Description  El monto aplicado se limita al saldo pendiente; lo recuperado nunca disminuye.
// @Tags         financial
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "ID del impacto"
// @Param        body  body  dto.RecordRecoveryRequest  true  "Monto y nota"
// @Success      200   {object}  dto.RecoveryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/financial-impacts/{id}/recoveries [post]
func (h *FinancialHandler) RecordRecovery(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.RecordRecoveryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	res, err := h.svc.RecordRecovery(c.UserContext(), GetUserID(c), id, in.Amount, in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.RecoveryResponse{Impact: dto.FinancialImpactFromEntity(res.Impact), Applied: res.Applied})
}

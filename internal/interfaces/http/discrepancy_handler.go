package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
)

// DiscrepancyHandler flujo de discrepancias (protegido).
type DiscrepancyHandler struct {
	svc *transfer.Service
}

// NewDiscrepancyHandler construye el handler.
func NewDiscrepancyHandler(svc *transfer.Service) *DiscrepancyHandler {
	return &DiscrepancyHandler{svc: svc}
}

func raiseLines(in []dto.DiscrepancyLineRequest) []transfer.RaiseLineInput {
	out := make([]transfer.RaiseLineInput, 0, len(in))
	for _, l := range in {
		out = append(out, transfer.RaiseLineInput{
			TransferLineID: l.TransferLineID,
			QuantityDelta:  l.QuantityDelta,
			WeightDelta:    l.WeightDelta,
			Notes:          l.Notes,
		})
	}
	return out
}

// Raise godoc
// @Summary      Levantar discrepancia
// @Description  Si ya existe una del mismo motivo se agregan las líneas (reabriéndola si estaba resuelta).
// @Tags         discrepancies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                          true  "ID del traslado"
// @Param        body  body  dto.RaiseDiscrepancyRequest  true  "Motivo y líneas"
// @Success      201   {object}  dto.DiscrepancyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/discrepancies [post]
func (h *DiscrepancyHandler) Raise(c *fiber.Ctx) error {
	transferID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.RaiseDiscrepancyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	d, err := h.svc.RaiseDiscrepancy(c.UserContext(), GetUserID(c), transferID, transfer.RaiseInput{
		Reason:        entity.ReasonCategory(in.Reason),
		Lines:         raiseLines(in.Lines),
		AttachmentIDs: in.AttachmentIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.DiscrepancyFromEntity(d))
}

// ListByTransfer godoc
// @Summary      Discrepancias de un traslado
// @Tags         discrepancies
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {array}   dto.DiscrepancyResponse
// @Router       /api/transfers/{id}/discrepancies [get]
func (h *DiscrepancyHandler) ListByTransfer(c *fiber.Ctx) error {
	transferID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.ListTransferDiscrepancies(c.UserContext(), transferID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepanciesFromEntities(list))
}

// ListOpen godoc
// @Summary      Discrepancias sin resolver
// @Tags         discrepancies
// @Security     Bearer
// @Produce      json
// @Param        location_id  query  int  false  "Ubicación de destino; vacío = todas"
// @Success      200  {array}   dto.DiscrepancyResponse
// @Router       /api/discrepancies [get]
func (h *DiscrepancyHandler) ListOpen(c *fiber.Ctx) error {
	locationID, err := queryID(c, "location_id")
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.svc.GetOpenDiscrepancies(c.UserContext(), locationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepanciesFromEntities(list))
}

// GetByID godoc
// @Summary      Obtener discrepancia
// @Tags         discrepancies
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la discrepancia"
// @Success      200  {object}  dto.DiscrepancyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/discrepancies/{id} [get]
func (h *DiscrepancyHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.svc.GetDiscrepancy(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepancyFromEntity(d))
}

// Review godoc
// @Summary      Iniciar revisión
// @Tags         discrepancies
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la discrepancia"
// @Success      200  {object}  dto.DiscrepancyResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/discrepancies/{id}/review [post]
func (h *DiscrepancyHandler) Review(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	d, err := h.svc.StartReview(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepancyFromEntity(d))
}

// ResolveLine godoc
// @Summary      Disponer una línea
// @Description  adjust y scrap asientan en el libro; al disponer la última línea la discrepancia queda resuelta.
// @Tags         discrepancies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  int                     true  "ID de la discrepancia"
// @Param        lineId  path  int                     true  "ID de la línea"
// @Param        body    body  dto.ResolveLineRequest  true  "Disposición"
// @Success      200     {object}  dto.DiscrepancyResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/discrepancies/{id}/lines/{lineId}/resolve [post]
func (h *DiscrepancyHandler) ResolveLine(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	lineID, err := paramID(c, "lineId")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.ResolveLineRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	d, err := h.svc.ResolveDiscrepancyLine(c.UserContext(), GetUserID(c), id, lineID, entity.Disposition(in.Disposition), in.Notes)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepancyFromEntity(d))
}

// Reopen godoc
// @Summary      Reabrir discrepancia resuelta
// @Tags         discrepancies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                           true  "ID de la discrepancia"
// @Param        body  body  dto.ReopenDiscrepancyRequest  true  "Motivo y líneas nuevas"
// @Success      200   {object}  dto.DiscrepancyResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/discrepancies/{id}/reopen [post]
func (h *DiscrepancyHandler) Reopen(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.ReopenDiscrepancyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	d, err := h.svc.ReopenDiscrepancy(c.UserContext(), GetUserID(c), id, transfer.ReopenInput{
		Reason: in.Reason,
		Lines:  raiseLines(in.Lines),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepancyFromEntity(d))
}

// Escalate godoc
// @Summary      Escalar severidad
// @Tags         discrepancies
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                             true  "ID de la discrepancia"
// @Param        body  body  dto.EscalateDiscrepancyRequest  true  "Motivo"
// @Success      200   {object}  dto.DiscrepancyResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/discrepancies/{id}/escalate [post]
func (h *DiscrepancyHandler) Escalate(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.EscalateDiscrepancyRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	d, err := h.svc.EscalateDiscrepancy(c.UserContext(), GetUserID(c), id, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DiscrepancyFromEntity(d))
}

package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/transfer"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// TransferHandler ciclo de vida de traslados, despacho, recepción y cuadre (protegido).
type TransferHandler struct {
	svc *transfer.Service
}

// NewTransferHandler construye el handler.
func NewTransferHandler(svc *transfer.Service) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// Create godoc
// @Summary      Crear traslado en borrador
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "Origen, destino y líneas esperadas"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]transfer.LineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, transfer.LineInput{
			ProductID:        l.ProductID,
			CategoryID:       l.CategoryID,
			BatchLabel:       l.BatchLabel,
			ExpectedQuantity: l.ExpectedQuantity,
			ExpectedWeight:   l.ExpectedWeight,
			ExpiryDate:       l.ExpiryDate,
			ReferenceCost:    l.ReferenceCost,
		})
	}
	t, err := h.svc.CreateTransfer(c.UserContext(), GetUserID(c), transfer.CreateInput{
		SourceLocationID:       in.SourceLocationID,
		DestinationLocationID:  in.DestinationLocationID,
		DestinationSubLocation: in.DestinationSubLocation,
		Notes:                  in.Notes,
		Lines:                  lines,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferFromEntity(t))
}

// List godoc
// @Summary      Listar traslados
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "Estados separados por coma"
// @Param        location_id  query  int     false  "Origen o destino"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TransferListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/transfers [get]
func (h *TransferHandler) List(c *fiber.Ctx) error {
	locationID, err := queryID(c, "location_id")
	if err != nil {
		return respondError(c, err)
	}
	p := page(c)
	filter := repository.TransferFilter{LocationID: locationID, Limit: p.Limit, Offset: p.Offset}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, entity.TransferStatus(strings.TrimSpace(s)))
		}
	}
	list, err := h.svc.ListTransfers(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.TransferListResponse{
		Items: make([]dto.TransferResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: p.Limit, Offset: p.Offset},
	}
	for _, t := range list {
		out.Items = append(out.Items, dto.TransferFromEntity(t))
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener traslado con sus líneas
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.svc.GetTransfer(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferFromEntity(t))
}

// Status godoc
// @Summary      Estado actual del traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferStatusResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/status [get]
func (h *TransferHandler) Status(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	st, err := h.svc.GetTransferStatus(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferStatusResponse{ID: id, Status: string(st)})
}

// Approve godoc
// @Summary      Aprobar traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/approve [post]
func (h *TransferHandler) Approve(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.svc.ApproveTransfer(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferFromEntity(t))
}

// Dispatch godoc
// @Summary      Despachar traslado
// @Description  Descuenta el stock de origen (transfer_out) y registra vehículo y pesaje. Idempotente.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                          true  "ID del traslado"
// @Param        body  body  dto.DispatchTransferRequest  true  "Vehículo, conductor y pesaje"
// @Success      200   {object}  dto.DispatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/dispatch [post]
func (h *TransferHandler) Dispatch(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.DispatchTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	t, sh, err := h.svc.DispatchTransfer(c.UserContext(), GetUserID(c), id, transfer.DispatchInput{
		CarrierName:   in.CarrierName,
		VehicleNumber: in.VehicleNumber,
		DriverName:    in.DriverName,
		DriverPhone:   in.DriverPhone,
		Weights:       in.Weights(),
		AttachmentIDs: in.AttachmentIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.DispatchResponse{Transfer: dto.TransferFromEntity(t), Shipment: dto.ShipmentFromEntity(sh)})
}

// Deliver godoc
// @Summary      Marcar entregado (pendiente de confirmación)
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/deliver [post]
func (h *TransferHandler) Deliver(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.svc.MarkDelivered(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferFromEntity(t))
}

// Receive godoc
// @Summary      Registrar recepción
// @Description  Asienta transfer_in, clasifica cada línea y abre discrepancias fuera de tolerancia. Idempotente.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                         true  "ID del traslado"
// @Param        body  body  dto.ReceiveTransferRequest  true  "Conteo por línea y repesaje"
// @Success      200   {object}  dto.ReceiveResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/receive [post]
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.ReceiveTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	lines := make([]transfer.ReceiveLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, transfer.ReceiveLineInput{
			TransferLineID:   l.TransferLineID,
			ReceivedQuantity: l.ReceivedQuantity,
			ReceivedWeight:   l.ReceivedWeight,
			Reason:           entity.ReasonCategory(l.Reason),
			Notes:            l.Notes,
		})
	}
	res, err := h.svc.ReceiveTransfer(c.UserContext(), GetUserID(c), id, transfer.ReceiveInput{
		Lines:         lines,
		Weights:       in.Weights(),
		Notes:         in.Notes,
		AttachmentIDs: in.AttachmentIDs,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReceiveResponse{
		Transfer:      dto.TransferFromEntity(res.Transfer),
		Receipt:       dto.ReceiptFromEntity(res.Receipt),
		Discrepancies: dto.DiscrepanciesFromEntities(res.Discrepancies),
	})
}

// Cancel godoc
// @Summary      Cancelar traslado
// @Description  Si ya se despachó, revierte los transfer_out en origen.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "ID del traslado"
// @Param        body  body  dto.CancelTransferRequest  true  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in dto.CancelTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	t, err := h.svc.CancelTransfer(c.UserContext(), GetUserID(c), id, in.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferFromEntity(t))
}

// Reconcile godoc
// @Summary      Conciliar traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/reconcile [post]
func (h *TransferHandler) Reconcile(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	t, err := h.svc.ReconcileTransfer(c.UserContext(), GetUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TransferFromEntity(t))
}

// Shipment godoc
// @Summary      Registro de despacho
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.ShipmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/shipment [get]
func (h *TransferHandler) Shipment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	sh, err := h.svc.GetShipment(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ShipmentFromEntity(sh))
}

// Receipt godoc
// @Summary      Registro de recepción
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.ReceiptResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/receipt [get]
func (h *TransferHandler) Receipt(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	r, err := h.svc.GetReceipt(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReceiptFromEntity(r))
}

// Conservation godoc
// @Summary      Cuadre del traslado
// @Description  Compara despachado, recibido, correcciones y discrepancias pendientes por línea.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {object}  dto.ConservationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/conservation [get]
func (h *TransferHandler) Conservation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	rep, err := h.svc.ConservationReport(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.ConservationResponse{
		TransferID:     rep.TransferID,
		Status:         string(rep.Status),
		SourceNet:      rep.SourceNet,
		DestinationNet: rep.DestinationNet,
		NetChange:      rep.NetChange,
		Balanced:       rep.Balanced,
		Lines:          make([]dto.ConservationLineResponse, 0, len(rep.Lines)),
	}
	for _, l := range rep.Lines {
		out.Lines = append(out.Lines, dto.ConservationLineResponse{
			TransferLineID: l.TransferLineID,
			ProductID:      l.ProductID,
			Expected:       l.Expected,
			Dispatched:     l.Dispatched,
			Received:       l.Received,
			Counted:        l.Counted,
			Corrections:    l.Corrections,
			Outstanding:    l.Outstanding,
			InTransit:      l.InTransit,
			Unexplained:    l.Unexplained,
		})
	}
	return c.JSON(out)
}

// DispatchNote godoc
// @Summary      Remisión en PDF
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  int  true  "ID del traslado"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/dispatch-note [get]
func (h *TransferHandler) DispatchNote(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	pdf, err := h.svc.DispatchNote(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="remision-`+strconv.FormatInt(id, 10)+`.pdf"`)
	return c.Send(pdf)
}

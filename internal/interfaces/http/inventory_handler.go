package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Traslados-api/internal/application/dto"
	"github.com/jhoicas/Traslados-api/internal/application/inventory"
	"github.com/jhoicas/Traslados-api/internal/domain/entity"
	"github.com/jhoicas/Traslados-api/internal/domain/repository"
)

// InventoryHandler movimientos externos al traslado y consultas del libro de stock (protegido).
type InventoryHandler struct {
	uc      *inventory.RegisterMovementUseCase
	balance *inventory.BalanceQuery
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.RegisterMovementUseCase, balance *inventory.BalanceQuery) *InventoryHandler {
	return &InventoryHandler{uc: uc, balance: balance}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  Compra, venta, ajuste o devolución. external_ref repetido devuelve el asiento original con posted=false.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, location_id, kind, quantity"
// @Success      201   {object}  dto.LedgerEntryResponse
// @Success      200   {object}  dto.LedgerEntryResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	out, err := h.uc.RegisterMovementFromRequest(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusCreated
	if !out.Posted {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

// Balance godoc
// @Summary      Saldo de un producto en una ubicación
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  int  true  "Producto"
// @Param        location_id  query  int  true  "Ubicación"
// @Success      200  {object}  dto.BalanceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/balance [get]
func (h *InventoryHandler) Balance(c *fiber.Ctx) error {
	productID, err := queryID(c, "product_id")
	if err != nil {
		return respondError(c, err)
	}
	locationID, err := queryID(c, "location_id")
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.balance.GetLedgerBalance(c.UserContext(), productID, locationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.BalanceResponse{
		ProductID:  b.ProductID,
		LocationID: b.LocationID,
		Quantity:   b.Quantity,
		UpdatedAt:  b.UpdatedAt,
	})
}

// Entries godoc
// @Summary      Asientos del libro de stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id   query  int     false  "Producto"
// @Param        location_id  query  int     false  "Ubicación"
// @Param        transfer_id  query  int     false  "Traslado"
// @Param        kind         query  string  false  "Tipo de movimiento"
// @Param        limit        query  int     false  "Límite"  default(100)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.LedgerEntryListResponse
// @Router       /api/inventory/entries [get]
func (h *InventoryHandler) Entries(c *fiber.Ctx) error {
	var filter repository.LedgerFilter
	var err error
	if filter.ProductID, err = queryID(c, "product_id"); err != nil {
		return respondError(c, err)
	}
	if filter.LocationID, err = queryID(c, "location_id"); err != nil {
		return respondError(c, err)
	}
	if filter.TransferID, err = queryID(c, "transfer_id"); err != nil {
		return respondError(c, err)
	}
	filter.Kind = entity.MovementKind(c.Query("kind"))
	filter.Limit = c.QueryInt("limit", 100)
	filter.Offset = c.QueryInt("offset", 0)

	list, err := h.balance.ListEntries(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	out := dto.LedgerEntryListResponse{
		Items: make([]dto.LedgerEntryResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	}
	for _, e := range list {
		out.Items = append(out.Items, dto.LedgerEntryFromEntity(e))
	}
	return c.JSON(out)
}

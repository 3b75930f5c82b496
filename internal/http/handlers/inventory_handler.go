package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type InventoryHandler struct {
	Inv *services.InventoryService
}

// Stock answers GET /api/v1/books/:id/stock with {stock, status}.
func (h *InventoryHandler) Stock(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid book id"})
	}
	avail, err := h.Inv.CheckAvailability(c.UserContext(), id)
	if err != nil {
		return jsonFail(c, "stock.check", err)
	}
	return c.JSON(avail)
}

package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
)

// FulfillmentHandler is the staff counter page. Lookup shows the order, Confirm hands it over.
type FulfillmentHandler struct {
	Fulfillment *services.FulfillmentService
	Flash       *Flash
}

func (h *FulfillmentHandler) Form(c *fiber.Ctx) error {
	return render(c, "fulfillment", fiber.Map{})
}

func (h *FulfillmentHandler) Lookup(c *fiber.Ctx) error {
	code := services.NormalizeClaimCode(c.FormValue("claim_code"))
	userID := strings.TrimSpace(c.FormValue("user_id"))
	p, err := h.Fulfillment.Lookup(c.UserContext(), code, userID)
	if err != nil {
		if domain.CodeOf(err) == "" {
			return fail(c, h.Flash, "fulfillment.lookup", err, "/staff/fulfillment")
		}
		applog.Security(c, "fulfillment.lookup.fail", map[string]any{"code": string(domain.CodeOf(err))})
		return c.Status(statusFor(domain.CodeOf(err))).Render("fulfillment", fiber.Map{
			"Err": userMessage(err), "ClaimCode": code, "UserID": userID,
			"CSRFToken": c.Cookies("csrf_"), "User": currentUser(c),
		})
	}
	return render(c, "fulfillment", fiber.Map{"Pickup": p, "ClaimCode": code, "UserID": userID})
}

func (h *FulfillmentHandler) Confirm(c *fiber.Ctx) error {
	code := services.NormalizeClaimCode(c.FormValue("claim_code"))
	userID := strings.TrimSpace(c.FormValue("user_id"))
	p, err := h.Fulfillment.Confirm(c.UserContext(), code, userID)
	if err != nil {
		applog.Security(c, "fulfillment.confirm.fail", map[string]any{"code": string(domain.CodeOf(err))})
		return fail(c, h.Flash, "fulfillment.confirm", err, "/staff/fulfillment")
	}
	applog.Audit(c, "fulfillment.confirm", map[string]any{"order_no": p.Order.OrderNo, "customer": p.Order.UserID})
	h.Flash.Success(c, fmt.Sprintf("Order #%d handed over to %s.", p.Order.OrderNo, p.Customer.DisplayName()))
	return c.Redirect("/staff/fulfillment")
}

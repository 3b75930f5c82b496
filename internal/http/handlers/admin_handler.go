package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type AdminHandler struct {
	Admin *services.AdminService
	Inv   *services.InventoryService
	Flash *Flash
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	return render(c, "admin_dashboard", fiber.Map{})
}

// GET /admin/inventory
func (h *AdminHandler) Inventory(c *fiber.Ctx) error {
	rows, err := h.Inv.Overview(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.inventory.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load inventory"})
	}
	type stockRow struct {
		BookID   int64
		Title    string
		Quantity int
		Status   string
	}
	out := make([]stockRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, stockRow{BookID: r.BookID, Title: r.Title, Quantity: r.Quantity, Status: h.Inv.StockStatus(r.Quantity)})
	}
	return render(c, "admin_inventory", fiber.Map{"Rows": out})
}

// GET /admin/users
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	users, err := h.Admin.Users(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.users.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load users"})
	}
	return render(c, "admin_users", fiber.Map{"Users": users})
}

func userParam(c *fiber.Ctx) (string, bool) {
	id, ok := validate.UserID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "user_id"})
	}
	return id, ok
}

// GET /admin/users/:id
func (h *AdminHandler) User(c *fiber.Ctx) error {
	id, ok := userParam(c)
	if !ok {
		return notFound(c, "User not found.")
	}
	u, err := h.Admin.User(c.UserContext(), id)
	if domain.Is(err, domain.ErrNotFound) {
		return notFound(c, userMessage(err))
	}
	if err != nil {
		return fail(c, h.Flash, "admin.users.view", err, "/admin/users")
	}
	return render(c, "admin_user", fiber.Map{"Account": u})
}

// mailOutcome reports a DependencyFailure as a warning; the account change itself went through.
func (h *AdminHandler) mailOutcome(c *fiber.Ctx, action, userID string, err error, ok string) error {
	to := "/admin/users/" + userID
	switch {
	case err == nil:
		applog.Audit(c, action, map[string]any{"user_id": userID})
		h.Flash.Success(c, ok)
	case domain.Is(err, domain.ErrDependencyFailure):
		applog.Error(c, action+".email.fail", err, map[string]any{"user_id": userID})
		applog.Audit(c, action, map[string]any{"user_id": userID, "email_sent": false})
		h.Flash.Error(c, userMessage(err))
	default:
		return fail(c, h.Flash, action, err, to)
	}
	return c.Redirect(to)
}

// POST /admin/users/:id/deletion-notice
func (h *AdminHandler) DeletionNotice(c *fiber.Ctx) error {
	id, ok := userParam(c)
	if !ok {
		return notFound(c, "User not found.")
	}
	err := h.Admin.SendDeletionNotice(c.UserContext(), id)
	return h.mailOutcome(c, "admin.users.deletion_notice", id, err, "Deletion notice sent.")
}

// POST /admin/users/:id/cancel-deletion
func (h *AdminHandler) CancelDeletion(c *fiber.Ctx) error {
	id, ok := userParam(c)
	if !ok {
		return notFound(c, "User not found.")
	}
	err := h.Admin.CancelDeletion(c.UserContext(), id)
	return h.mailOutcome(c, "admin.users.cancel_deletion", id, err, "Deletion cancelled and the user has been told.")
}

// POST /admin/users/:id/delete
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, ok := userParam(c)
	if !ok {
		return notFound(c, "User not found.")
	}
	actor := currentUser(c)
	if err := h.Admin.DeleteUser(c.UserContext(), actor.ID, id); err != nil {
		if domain.Is(err, domain.ErrForbidden) {
			applog.Security(c, "admin.users.delete.self", nil)
		}
		return fail(c, h.Flash, "admin.users.delete", err, "/admin/users")
	}
	applog.Audit(c, "admin.users.delete", map[string]any{"user_id": id})
	h.Flash.Success(c, "User deleted.")
	return c.Redirect("/admin/users")
}

// GET /admin/staff/new
func (h *AdminHandler) StaffForm(c *fiber.Ctx) error {
	return render(c, "admin_staff", fiber.Map{})
}

// POST /admin/staff
func (h *AdminHandler) CreateStaff(c *fiber.Ctx) error {
	var form validate.StaffForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("admin_staff", fiber.Map{"Err": "Invalid form submission."})
	}
	form.Email = strings.TrimSpace(form.Email)
	rerender := func(status int, msg string) error {
		return c.Status(status).Render("admin_staff", fiber.Map{
			"Err": msg, "Form": form, "CSRFToken": c.Cookies("csrf_"), "User": currentUser(c),
		})
	}
	if err := validate.Struct(form); err != nil {
		return rerender(fiber.StatusBadRequest, err.Error())
	}
	res, err := h.Admin.CreateStaff(c.UserContext(), services.RegisterInput{
		Email: form.Email, FirstName: form.FirstName, LastName: form.LastName, Password: form.Password,
	})
	if err != nil {
		if domain.CodeOf(err) == "" {
			return fail(c, h.Flash, "admin.staff.create", err, "/admin/staff/new")
		}
		return rerender(statusFor(domain.CodeOf(err)), userMessage(err))
	}
	applog.Audit(c, "admin.staff.create", map[string]any{"user_id": res.User.ID})
	if res.MailErr != nil {
		applog.Error(c, "admin.staff.email.fail", res.MailErr, map[string]any{"user_id": res.User.ID})
		h.Flash.Success(c, "Staff account created. The welcome email could not be sent.")
	} else {
		h.Flash.Success(c, "Staff account created and welcome email sent.")
	}
	return c.Redirect("/admin/users")
}

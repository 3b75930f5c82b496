package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

// parseFormTime reads a datetime-local or date input in the server's zone.
func parseFormTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, s, time.Local)
}

type BookAdminHandler struct {
	Books *services.BookAdminService
	Flash *Flash
}

func bookParam(c *fiber.Ctx) (int64, bool) {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
	}
	return id, ok
}

// GET /admin/books
func (h *BookAdminHandler) List(c *fiber.Ctx) error {
	q, _ := validate.Q(c.Query("search"))
	page, err := h.Books.List(c.UserContext(), q, c.QueryInt("page", 1))
	if err != nil {
		applog.Error(c, "admin.books.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load books"})
	}
	return render(c, "admin_books", fiber.Map{"Page": page, "Search": q})
}

// GET /admin/books/new
func (h *BookAdminHandler) New(c *fiber.Ctx) error {
	return render(c, "admin_book_form", fiber.Map{"Form": validate.BookForm{}, "Action": "/admin/books"})
}

// bookFromForm converts a validated form. Quantity and price bounds are checked again by the service.
func bookFromForm(form validate.BookForm) (domain.Book, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(form.Price))
	if err != nil {
		return domain.Book{}, domain.E(domain.ErrValidationFailed, "Price must be a number.")
	}
	pub, err := time.Parse(dateLayout, form.PublicationDate)
	if err != nil {
		return domain.Book{}, domain.E(domain.ErrValidationFailed, "Publication date must be a date (YYYY-MM-DD).")
	}
	b := domain.Book{
		Title:                   strings.TrimSpace(form.Title),
		Author:                  strings.TrimSpace(form.Author),
		Genre:                   strings.TrimSpace(form.Genre),
		Description:             form.Description,
		Price:                   price.Round(2),
		Quantity:                form.Quantity,
		ISBN:                    strings.TrimSpace(form.ISBN),
		Language:                strings.TrimSpace(form.Language),
		Format:                  strings.TrimSpace(form.Format),
		Publisher:               strings.TrimSpace(form.Publisher),
		IsPhysicalLibraryAccess: form.PhysicalAccess,
		IsBestseller:            form.Bestseller,
		IsAwardWinner:           form.AwardWinner,
		IsComingSoon:            form.ComingSoon,
		PublicationDate:         pub,
	}
	if form.ReleaseDate != "" {
		rel, err := time.Parse(dateLayout, form.ReleaseDate)
		if err != nil {
			return domain.Book{}, domain.E(domain.ErrValidationFailed, "Release date must be a date (YYYY-MM-DD).")
		}
		b.ReleaseDate = &rel
	}
	return b, nil
}

func formFromBook(b domain.Book) validate.BookForm {
	f := validate.BookForm{
		Title: b.Title, Author: b.Author, Genre: b.Genre, Description: b.Description,
		Price: b.Price.StringFixed(2), Quantity: b.Quantity, ISBN: b.ISBN, Language: b.Language,
		Format: b.Format, Publisher: b.Publisher, PublicationDate: b.PublicationDate.Format(dateLayout),
		PhysicalAccess: b.IsPhysicalLibraryAccess, Bestseller: b.IsBestseller,
		AwardWinner: b.IsAwardWinner, ComingSoon: b.IsComingSoon,
	}
	if b.ReleaseDate != nil {
		f.ReleaseDate = b.ReleaseDate.Format(dateLayout)
	}
	return f
}

// parseBook binds and validates the book form, re-rendering it on failure.
func (h *BookAdminHandler) parseBook(c *fiber.Ctx, action string) (domain.Book, bool, error) {
	var form validate.BookForm
	rerender := func(msg string) error {
		return c.Status(fiber.StatusBadRequest).Render("admin_book_form", fiber.Map{
			"Err": msg, "Form": form, "Action": action,
			"CSRFToken": c.Cookies("csrf_"), "User": currentUser(c),
		})
	}
	if err := c.BodyParser(&form); err != nil {
		return domain.Book{}, false, rerender("Invalid form submission.")
	}
	if err := validate.Struct(form); err != nil {
		applog.Security(c, "validation.fail", map[string]any{"form": "book"})
		return domain.Book{}, false, rerender(err.Error())
	}
	b, err := bookFromForm(form)
	if err != nil {
		return domain.Book{}, false, rerender(userMessage(err))
	}
	return b, true, nil
}

// POST /admin/books
func (h *BookAdminHandler) Create(c *fiber.Ctx) error {
	b, ok, err := h.parseBook(c, "/admin/books")
	if !ok {
		return err
	}
	id, err := h.Books.Create(c.UserContext(), b, upload(c, "cover_image"))
	if err != nil {
		return fail(c, h.Flash, "admin.books.create", err, "/admin/books/new")
	}
	applog.Audit(c, "admin.books.create", map[string]any{"book_id": id, "title": b.Title})
	h.Flash.Success(c, fmt.Sprintf("'%s' added to the catalog.", b.Title))
	return c.Redirect("/admin/books")
}

// GET /admin/books/:id/edit
func (h *BookAdminHandler) Edit(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	b, err := h.Books.Get(c.UserContext(), id)
	if domain.Is(err, domain.ErrNotFound) {
		return notFound(c, userMessage(err))
	}
	if err != nil {
		return fail(c, h.Flash, "admin.books.edit", err, "/admin/books")
	}
	return render(c, "admin_book_form", fiber.Map{
		"Form": formFromBook(b), "Action": fmt.Sprintf("/admin/books/%d", id), "Cover": b.CoverImageURL, "BookID": id,
	})
}

// POST /admin/books/:id
func (h *BookAdminHandler) Update(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	editURL := fmt.Sprintf("/admin/books/%d/edit", id)
	b, ok, err := h.parseBook(c, fmt.Sprintf("/admin/books/%d", id))
	if !ok {
		return err
	}
	b.ID = id
	if err := h.Books.Update(c.UserContext(), b, upload(c, "cover_image")); err != nil {
		return fail(c, h.Flash, "admin.books.update", err, editURL)
	}
	applog.Audit(c, "admin.books.update", map[string]any{"book_id": id, "qty": b.Quantity, "price": b.Price.String()})
	h.Flash.Success(c, "Book saved.")
	return c.Redirect(editURL)
}

// POST /admin/books/:id/delete
func (h *BookAdminHandler) Delete(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	if err := h.Books.Delete(c.UserContext(), id); err != nil {
		return fail(c, h.Flash, "admin.books.delete", err, "/admin/books")
	}
	applog.Audit(c, "admin.books.delete", map[string]any{"book_id": id})
	h.Flash.Success(c, "Book deleted.")
	return c.Redirect("/admin/books")
}

// GET /admin/books/:id/discounts
func (h *BookAdminHandler) Discounts(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	b, err := h.Books.Get(c.UserContext(), id)
	if domain.Is(err, domain.ErrNotFound) {
		return notFound(c, userMessage(err))
	}
	if err != nil {
		return fail(c, h.Flash, "admin.discounts.view", err, "/admin/books")
	}
	ds, err := h.Books.Discounts(c.UserContext(), id)
	if err != nil {
		return fail(c, h.Flash, "admin.discounts.view", err, "/admin/books")
	}
	return render(c, "admin_discounts", fiber.Map{"Book": b, "Discounts": ds})
}

// POST /admin/books/:id/discounts
func (h *BookAdminHandler) SetDiscount(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	to := fmt.Sprintf("/admin/books/%d/discounts", id)
	var form validate.DiscountForm
	if err := c.BodyParser(&form); err != nil {
		h.Flash.Error(c, "Invalid form submission.")
		return c.Redirect(to)
	}
	if err := validate.Struct(form); err != nil {
		h.Flash.Error(c, err.Error())
		return c.Redirect(to)
	}
	in, err := discountInput(form)
	if err != nil {
		return fail(c, h.Flash, "admin.discounts.set", err, to)
	}
	if err := h.Books.SetDiscount(c.UserContext(), id, in); err != nil {
		return fail(c, h.Flash, "admin.discounts.set", err, to)
	}
	applog.Audit(c, "admin.discounts.set", map[string]any{"book_id": id, "percent": in.Percent.String(), "on_sale": in.OnSale})
	if in.Percent.IsZero() {
		h.Flash.Success(c, "Discount removed.")
	} else {
		h.Flash.Success(c, "Discount saved.")
	}
	return c.Redirect(to)
}

func discountInput(form validate.DiscountForm) (services.DiscountInput, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(form.Percentage))
	if err != nil {
		return services.DiscountInput{}, domain.E(domain.ErrValidationFailed, "Percentage must be a number.")
	}
	start, err := parseFormTime(form.StartDate)
	if err != nil {
		return services.DiscountInput{}, domain.E(domain.ErrValidationFailed, "Start date is not a valid date.")
	}
	end, err := parseFormTime(form.ExpiresAt)
	if err != nil {
		return services.DiscountInput{}, domain.E(domain.ErrValidationFailed, "Expiry date is not a valid date.")
	}
	return services.DiscountInput{Percent: pct, StartDate: start, ExpiresAt: end, OnSale: form.OnSale}, nil
}

// POST /admin/books/:id/discounts/:did/delete
func (h *BookAdminHandler) DeleteDiscount(c *fiber.Ctx) error {
	id, ok := bookParam(c)
	if !ok {
		return notFound(c, "Book not found.")
	}
	to := fmt.Sprintf("/admin/books/%d/discounts", id)
	did, ok := validate.ID(c.Params("did"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "discount"})
		return notFound(c, "Discount not found.")
	}
	if err := h.Books.DeleteDiscount(c.UserContext(), did); err != nil {
		return fail(c, h.Flash, "admin.discounts.delete", err, to)
	}
	applog.Audit(c, "admin.discounts.delete", map[string]any{"book_id": id, "discount_id": did})
	h.Flash.Success(c, "Discount removed.")
	return c.Redirect(to)
}

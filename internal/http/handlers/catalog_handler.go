package handlers

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/services"
	"booknook/internal/validate"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
	Inv     *services.InventoryService
	Flash   *Flash
}

func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	home, err := h.Catalog.Home(c.UserContext())
	if err != nil {
		applog.Error(c, "home.load.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the home page."})
	}
	return render(c, "home", fiber.Map{"Home": home})
}

func optionalDecimal(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

// filterFromQuery reads the catalog form. Unknown or malformed values are dropped, never rejected.
func filterFromQuery(c *fiber.Ctx) (domain.CatalogFilter, bool) {
	q, ok := validate.Q(c.Query("search"))
	f := domain.CatalogFilter{
		Search:         q,
		Author:         strings.TrimSpace(c.Query("author")),
		Genre:          strings.TrimSpace(c.Query("genre")),
		Availability:   c.Query("availability"),
		PhysicalAccess: c.QueryBool("physical"),
		MinPrice:       optionalDecimal(c.Query("min_price")),
		MaxPrice:       optionalDecimal(c.Query("max_price")),
		Language:       strings.TrimSpace(c.Query("language")),
		Format:         strings.TrimSpace(c.Query("format")),
		Publisher:      strings.TrimSpace(c.Query("publisher")),
		ISBN:           strings.TrimSpace(c.Query("isbn")),
		Category:       c.Query("category"),
		Sort:           c.Query("sort"),
		Page:           c.QueryInt("page", 1),
	}
	if r, err := strconv.ParseFloat(c.Query("min_rating"), 64); err == nil && r >= 0 && r <= 5 {
		f.MinRating = r
	}
	return f, ok
}

// pageURL rebuilds the current query string with a different page number.
func pageURL(c *fiber.Ctx, page int) string {
	vals := url.Values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) != "page" {
			vals.Add(string(k), string(v))
		}
	})
	vals.Set("page", strconv.Itoa(page))
	return "/books?" + vals.Encode()
}

func (h *CatalogHandler) List(c *fiber.Ctx) error {
	f, ok := filterFromQuery(c)
	data := fiber.Map{}
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "search"})
		data["Err"] = "Enter a valid search (letters, numbers and basic punctuation)."
	}
	listing, err := h.Catalog.List(c.UserContext(), f)
	if err != nil {
		applog.Error(c, "books.list.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load results. Please retry."})
	}
	data["Listing"] = listing
	data["Categories"] = categoryTabs
	data["Sorts"] = sortOptions
	if listing.HasPrev() {
		data["PrevURL"] = pageURL(c, listing.Page-1)
	}
	if listing.HasNext() {
		data["NextURL"] = pageURL(c, listing.Page+1)
	}
	return render(c, "books", data)
}

type option struct{ Value, Label string }

var categoryTabs = []option{
	{domain.CategoryAll, "All"},
	{domain.CategoryBestsellers, "Bestsellers"},
	{domain.CategoryAwardWinners, "Award winners"},
	{domain.CategoryNewReleases, "New releases"},
	{domain.CategoryNewArrivals, "New arrivals"},
	{domain.CategoryComingSoon, "Coming soon"},
	{domain.CategoryDeals, "Deals"},
}

var sortOptions = []option{
	{domain.SortTitle, "Title"},
	{domain.SortAuthor, "Author"},
	{domain.SortPublicationDate, "Newest"},
	{domain.SortPrice, "Price"},
	{domain.SortPopularity, "Popularity"},
}

func (h *CatalogHandler) Detail(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		applog.Security(c, "validation.fail", map[string]any{"field": "book"})
		return notFound(c, "This book is no longer available.")
	}
	viewer := ""
	if u := currentUser(c); u != nil {
		viewer = u.ID
	}
	d, err := h.Catalog.Detail(c.UserContext(), id, viewer)
	if domain.Is(err, domain.ErrNotFound) {
		return notFound(c, userMessage(err))
	}
	if err != nil {
		applog.Error(c, "books.detail.fail", err, map[string]any{"book_id": id})
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load this book."})
	}
	return render(c, "book", fiber.Map{
		"D":           d,
		"StockStatus": h.Inv.StockStatus(d.Book.Quantity),
		"Ratings":     []int{5, 4, 3, 2, 1},
		"Title":       d.Book.Title,
	})
}

package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	applog "booknook/internal/log"
	"booknook/internal/media"
	"booknook/internal/textfmt"
)

// Limits are per client IP.
type Limits struct {
	Global int // requests per minute
	Login  int // attempts per 10 minutes
	Search int // catalog queries per minute
	Stock  int // stock lookups per 30 seconds
}

func DefaultLimits() Limits {
	return Limits{Global: 120, Login: 5, Search: 40, Stock: 15}
}

// AppConfig is everything the web listener needs besides the handlers.
type AppConfig struct {
	TemplatesDir string
	StaticDir    string
	MediaDir     string
	PushURL      string // websocket URL handed to page scripts
	CookieSecure bool
	BodyLimit    int
	Reload       bool
	Limits       Limits
	AccessLog    bool
}

// TemplateFuncs are available in every view.
func TemplateFuncs() map[string]any {
	return map[string]any{
		"money":   textfmt.Money,
		"percent": textfmt.Percent,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("Jan 2, 2006")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("Jan 2, 2006 15:04")
		},
		"rating": func(r float64) string { return fmt.Sprintf("%.1f", r) },
		"stars": func(n int) string {
			if n < 0 {
				n = 0
			}
			if n > 5 {
				n = 5
			}
			return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
		},
		"mul": func(d decimal.Decimal, qty int) decimal.Decimal { return d.Mul(decimal.NewFromInt(int64(qty))) },
		"add": func(delta, n int) int { return n + delta },
	}
}

func NewViews(dir string, reload bool) *html.Engine {
	engine := html.New(dir, ".html")
	engine.Reload(reload)
	engine.AddFuncMap(TemplateFuncs())
	return engine
}

// ErrorHandler renders a friendly page for any error a handler returns. Server faults are logged, never shown.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := "Something went wrong. Please try again."
	switch {
	case code == fiber.StatusNotFound:
		msg = "Page not found"
	case code == fiber.StatusRequestEntityTooLarge:
		msg = "That upload is too large."
	case code >= 500:
		applog.Error(c, "server.error", err, nil)
	default:
		applog.Info(c, "server.client_error", map[string]any{"code": code})
	}
	if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.Status(code).SendString(msg)
	}
	return nil
}

// mediaHandler serves uploads from root, refusing anything that could escape it.
func mediaHandler(root string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Params("*")
		rawLower := strings.ToLower(path)
		if strings.Contains(rawLower, "..") || strings.Contains(rawLower, "%2e") || strings.Contains(rawLower, "\x00") {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		clean := filepath.Clean(path)
		if clean == "." || strings.Contains(clean, "..") || filepath.IsAbs(clean) {
			applog.Security(c, "media.traversal.block", map[string]any{"path": path})
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.SendFile(filepath.Join(root, clean), true)
	}
}

// NewApp builds the web listener: middleware, static files and every route.
func NewApp(d *Deps, ac AppConfig) *fiber.App {
	if ac.BodyLimit <= 0 {
		ac.BodyLimit = media.MaxUploadBytes + 1<<20
	}
	if ac.Limits == (Limits{}) {
		ac.Limits = DefaultLimits()
	}
	app := fiber.New(fiber.Config{
		Views:        NewViews(ac.TemplatesDir, ac.Reload),
		ErrorHandler: ErrorHandler,
		BodyLimit:    ac.BodyLimit,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	if ac.AccessLog {
		app.Use(logger.New())
	}
	app.Use(helmet.New(helmet.Config{
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; connect-src 'self' ws: wss:",
	}))
	app.Use(d.Flash.Middleware())
	app.Use(LoadUser(d.Auth))
	app.Use(limiter.New(limiter.Config{
		Max:        ac.Limits.Global,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, media.URLPrefix)
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).SendString("Too many requests. Please slow down.")
		},
	}))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   ac.CookieSecure,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"form": c.FormValue("csrf") != ""})
			if isJSON(c) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"success": false, "message": "Security check failed. Please refresh and try again."})
			}
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		if ac.PushURL != "" {
			c.Locals("push_url", ac.PushURL)
		}
		return c.Next()
	})

	// ---------- Static assets ----------
	if ac.StaticDir != "" {
		app.Static("/static", ac.StaticDir)
	}
	if ac.MediaDir != "" {
		app.Get(media.URLPrefix+"*", mediaHandler(ac.MediaDir))
	}

	mount(app, d, ac.Limits)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}

func mount(app *fiber.App, d *Deps, lim Limits) {
	user := RequireUser()

	// Catalog
	app.Get("/", d.CatalogHandler.Home)
	app.Get("/books", limiter.New(limiter.Config{
		Max:          lim.Search,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|search" },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.search.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("notfound", fiber.Map{"Message": "Too many searches. Please wait a moment."})
		},
	}), d.CatalogHandler.List)
	app.Get("/books/:id", d.CatalogHandler.Detail)
	app.Post("/books/:id/reviews", user, d.ReviewHandler.Create)
	app.Post("/books/:id/replies", user, d.ReviewHandler.Reply)

	// API
	api := app.Group("/api/v1")
	api.Get("/books/:id/stock", limiter.New(limiter.Config{
		Max:          lim.Stock,
		Expiration:   30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|stock" },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.stock.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}), d.InventoryHandler.Stock)

	// Cart & checkout
	app.Get("/cart", user, d.CartHandler.View)
	app.Post("/cart/add", user, d.CartHandler.Add)
	app.Post("/cart/update", user, d.CartHandler.Update)
	app.Post("/cart/remove", user, d.CartHandler.Remove)
	app.Get("/checkout", user, d.CartHandler.Review)
	app.Post("/checkout", user, d.CartHandler.Place)

	// Orders
	app.Get("/orders", user, d.OrderHandler.List)
	app.Post("/orders/cancel", user, d.OrderHandler.Cancel)
	app.Post("/orders/delete", user, d.OrderHandler.Delete)
	app.Post("/orders/cancel-many", user, d.OrderHandler.CancelMany)
	app.Post("/orders/delete-many", user, d.OrderHandler.DeleteMany)

	// Wishlist
	app.Get("/wishlist", user, d.WishlistHandler.List)
	app.Post("/wishlist/toggle", user, d.WishlistHandler.Toggle)
	app.Post("/wishlist/remove", user, d.WishlistHandler.Remove)

	// Auth routes (login throttled)
	auth := d.AuthHandler
	app.Get("/login", auth.LoginForm)
	app.Post("/login", limiter.New(limiter.Config{
		Max:          lim.Login,
		Expiration:   10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|login" },
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).Render("login", fiber.Map{"Err": "Too many attempts. Please try again later."})
		},
	}), auth.Login)
	app.Post("/logout", auth.Logout)
	app.Get("/register", auth.RegisterForm)
	app.Post("/register", auth.Register)
	app.Get("/account/confirm", auth.ConfirmEmail)
	app.Post("/account/confirm/resend", auth.ResendConfirmation)
	app.Get("/account/forgot", auth.ForgotForm)
	app.Post("/account/forgot", auth.Forgot)
	app.Get("/account/reset", auth.ResetForm)
	app.Post("/account/reset", auth.Reset)

	// Profile
	app.Get("/account/profile", user, d.ProfileHandler.View)
	app.Post("/account/profile", user, d.ProfileHandler.Update)
	app.Post("/account/profile/image/delete", user, d.ProfileHandler.RemoveImage)
	app.Post("/account/password", user, d.ProfileHandler.ChangePassword)

	// Staff counter
	staff := app.Group("/staff", RequireStaff())
	staff.Get("/fulfillment", d.FulfillmentHandler.Form)
	staff.Post("/fulfillment/lookup", d.FulfillmentHandler.Lookup)
	staff.Post("/fulfillment/confirm", d.FulfillmentHandler.Confirm)

	// Admin
	admin := app.Group("/admin", RequireAdmin())
	admin.Get("/", d.AdminHandler.Dashboard)
	admin.Get("/inventory", d.AdminHandler.Inventory)
	admin.Get("/users", d.AdminHandler.Users)
	admin.Get("/users/:id", d.AdminHandler.User)
	admin.Post("/users/:id/deletion-notice", d.AdminHandler.DeletionNotice)
	admin.Post("/users/:id/cancel-deletion", d.AdminHandler.CancelDeletion)
	admin.Post("/users/:id/delete", d.AdminHandler.DeleteUser)
	admin.Get("/staff/new", d.AdminHandler.StaffForm)
	admin.Post("/staff", d.AdminHandler.CreateStaff)

	books := d.BookAdminHandler
	admin.Get("/books", books.List)
	admin.Get("/books/new", books.New)
	admin.Post("/books", books.Create)
	admin.Get("/books/:id/edit", books.Edit)
	admin.Post("/books/:id", books.Update)
	admin.Post("/books/:id/delete", books.Delete)
	admin.Get("/books/:id/discounts", books.Discounts)
	admin.Post("/books/:id/discounts", books.SetDiscount)
	admin.Post("/books/:id/discounts/:did/delete", books.DeleteDiscount)

	ann := d.AnnouncementHandler
	admin.Get("/announcements", ann.List)
	admin.Post("/announcements/broadcast", ann.Broadcast)
	admin.Post("/announcements", ann.Create)
	admin.Get("/announcements/:id/edit", ann.Edit)
	admin.Post("/announcements/:id", ann.Update)
	admin.Post("/announcements/:id/delete", ann.Delete)
}

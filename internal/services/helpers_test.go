package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/mailer"
	"booknook/internal/media"
	"booknook/internal/repos"
	"booknook/internal/services"
	"booknook/internal/tokens"
)

type published struct {
	Event   string
	Payload any
}

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{event, payload})
}

func (r *recorder) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]published(nil), r.events...)
}

func (r *recorder) of(event string) []any {
	var out []any
	for _, e := range r.all() {
		if e.Event == event {
			out = append(out, e.Payload)
		}
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repos.Store
	pub   *recorder
	mail  *mailer.LogMailer
	now   time.Time

	reader  *domain.User
	reader2 *domain.User
	staff   *domain.User
	admin   *domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: repos.NewStore(db),
		pub:   &recorder{},
		mail:  &mailer.LogMailer{Log: zerolog.Nop()},
		now:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.reader = f.user("reader@booknook.test")
	f.reader2 = f.user("reader2@booknook.test")
	f.staff = f.user("staff@booknook.test")
	f.admin = f.user("admin@booknook.test")
	return f
}

func (f *fixture) clock() func() time.Time { return func() time.Time { return f.now } }

func (f *fixture) user(email string) *domain.User {
	f.t.Helper()
	u, err := f.store.Users.ByEmail(f.ctx, email)
	require.NoError(f.t, err)
	u.Roles, err = f.store.Users.Roles(f.ctx, u.ID)
	require.NoError(f.t, err)
	return u
}

func (f *fixture) addBook(title, price string, qty int) int64 {
	f.t.Helper()
	id, err := f.store.Books.Create(f.ctx, domain.Book{
		Title:           title,
		Author:          "Test Author",
		Genre:           "Testing",
		Price:           decimal.RequireFromString(price),
		Quantity:        qty,
		Language:        "English",
		Format:          "Paperback",
		PublicationDate: f.now.AddDate(-2, 0, 0),
		AddedDate:       f.now.AddDate(-1, 0, 0),
	})
	require.NoError(f.t, err)
	return id
}

func (f *fixture) addDiscount(bookID int64, fraction string, start, end time.Time) int64 {
	f.t.Helper()
	id, err := f.store.Discounts.Create(f.ctx, domain.TimedDiscount{
		BookID:    bookID,
		Fraction:  decimal.RequireFromString(fraction),
		StartDate: start,
		ExpiresAt: end,
	})
	require.NoError(f.t, err)
	return id
}

// addOrder inserts an order directly, bypassing checkout.
func (f *fixture) addOrder(userID string, bookID int64, qty int, at time.Time) domain.Order {
	f.t.Helper()
	no, err := f.store.Orders.NextOrderNo(f.ctx)
	require.NoError(f.t, err)
	o := domain.Order{
		UserID:     userID,
		BookID:     bookID,
		OrderDate:  at.UTC().Truncate(time.Microsecond),
		OrderNo:    no,
		Quantity:   qty,
		TotalPrice: decimal.NewFromInt(int64(qty)),
		ClaimCode:  fmt.Sprintf("T%07d", no),
		Status:     domain.StatusPlaced,
	}
	require.NoError(f.t, f.store.Orders.Insert(f.ctx, o))
	return o
}

func (f *fixture) stock(bookID int64) int {
	f.t.Helper()
	q, err := f.store.Inventory.Qty(f.ctx, bookID)
	require.NoError(f.t, err)
	return q
}

func (f *fixture) cart() *services.CartService {
	s := services.NewCartService(f.store, services.DiscountResolver{Policy: services.TieBreakFirst}, f.pub)
	s.Now = f.clock()
	return s
}

func (f *fixture) checkout() *services.CheckoutService {
	s := services.NewCheckoutService(f.store, services.DiscountResolver{Policy: services.TieBreakFirst}, f.pub, f.mail)
	s.Now = f.clock()
	return s
}

func (f *fixture) orders() *services.OrderService {
	s := services.NewOrderService(f.store, f.pub, 0)
	s.Now = f.clock()
	return s
}

func (f *fixture) fulfillment() *services.FulfillmentService {
	s := services.NewFulfillmentService(f.store, f.pub)
	s.Now = f.clock()
	return s
}

func (f *fixture) reviews() *services.ReviewService {
	s := services.NewReviewService(f.store)
	s.Now = f.clock()
	return s
}

func (f *fixture) catalog() *services.CatalogService {
	s := services.NewCatalogService(f.store, services.DiscountResolver{Policy: services.TieBreakFirst}, 0)
	s.Now = f.clock()
	return s
}

func (f *fixture) wishlist() *services.WishlistService {
	s := services.NewWishlistService(f.store, services.DiscountResolver{Policy: services.TieBreakFirst})
	s.Now = f.clock()
	return s
}

func (f *fixture) announcements() *services.AnnouncementService {
	s := services.NewAnnouncementService(f.store, f.pub)
	s.Now = f.clock()
	return s
}

func (f *fixture) auth() *services.AuthService {
	return services.NewAuthService(f.store, tokens.NewIssuer("test-secret-test-secret-test-secret"), f.mail, "http://books.test/")
}

func (f *fixture) accounts() *services.AdminService {
	return services.NewAdminService(f.store, f.auth(), media.NewStore(f.t.TempDir()))
}

func requireCode(t *testing.T, err error, code domain.ErrCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, domain.CodeOf(err), "error: %v", err)
}

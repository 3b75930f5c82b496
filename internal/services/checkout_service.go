package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/mailer"
	"booknook/internal/repos"
)

const claimCodeAttempts = 5

// NewClaimCode takes the tail of a ULID: eight uppercase Crockford base32 characters of entropy.
// Entropy is drawn fresh per code, so codes made in the same millisecond share nothing.
func NewClaimCode() string {
	s := ulid.MustNew(ulid.Now(), rand.Reader).String()
	return s[len(s)-domain.ClaimCodeLength:]
}

type CheckoutService struct {
	Store     *repos.Store
	Discounts DiscountResolver
	Pub       Publisher
	Mail      mailer.Mailer
	Now       func() time.Time
	Codes     func() string
}

func NewCheckoutService(store *repos.Store, discounts DiscountResolver, pub Publisher, mail mailer.Mailer) *CheckoutService {
	return &CheckoutService{Store: store, Discounts: discounts, Pub: pub, Mail: mail, Now: time.Now, Codes: NewClaimCode}
}

type QuoteLine struct {
	BookID    int64
	Title     string
	Quantity  int
	Stock     int
	ListPrice decimal.Decimal
	Discount  *domain.TimedDiscount
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal // unit * qty
	Total     decimal.Decimal // after the combined discount, rounded
}

type Quote struct {
	Lines            []QuoteLine
	TotalItems       int
	OpenOrders       int
	QuantityDiscount decimal.Decimal
	LoyaltyDiscount  decimal.Decimal
	Combined         decimal.Decimal
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
}

func (q Quote) Savings() decimal.Decimal { return q.Subtotal.Sub(q.Total) }

// Quote prices the cart as checkout would, without changing anything.
func (s *CheckoutService) Quote(ctx context.Context, userID string) (Quote, error) {
	q, err := s.quote(ctx, s.Store, userID, s.Now())
	if err != nil {
		return Quote{}, err
	}
	if len(q.Lines) == 0 {
		return q, domain.E(domain.ErrEmptyCart, "Your cart is empty.")
	}
	return q, nil
}

func (s *CheckoutService) quote(ctx context.Context, st *repos.Store, userID string, now time.Time) (Quote, error) {
	lines, err := st.Carts.Lines(ctx, userID)
	if err != nil {
		return Quote{}, fmt.Errorf("load cart: %w", err)
	}
	q := Quote{Subtotal: decimal.Zero, Total: decimal.Zero}
	if len(lines) == 0 {
		return q, nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.BookID)
		q.TotalItems += l.Quantity
	}
	discounts, err := s.Discounts.ResolveMany(ctx, st.Discounts, ids, now)
	if err != nil {
		return Quote{}, err
	}
	if q.OpenOrders, err = st.Orders.CountPending(ctx, userID); err != nil {
		return Quote{}, fmt.Errorf("count open orders: %w", err)
	}

	q.QuantityDiscount = QuantityDiscount(q.TotalItems)
	q.LoyaltyDiscount = LoyaltyDiscount(q.OpenOrders)
	q.Combined = CombineDiscounts(q.QuantityDiscount, q.LoyaltyDiscount)

	for _, l := range lines {
		ql := QuoteLine{
			BookID:    l.BookID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			Stock:     l.Stock,
			ListPrice: l.Price,
			UnitPrice: l.Price,
		}
		if d, ok := discounts[l.BookID]; ok {
			ql.Discount = &d
			ql.UnitPrice = DiscountedPrice(l.Price, d.Fraction)
		}
		ql.Subtotal = ql.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		ql.Total = LineTotal(ql.UnitPrice, l.Quantity, q.Combined)
		q.Subtotal = q.Subtotal.Add(ql.Subtotal)
		q.Total = q.Total.Add(ql.Total)
		q.Lines = append(q.Lines, ql)
	}
	return q, nil
}

// Checkout turns the cart into one order per book. Either every order is placed with its stock
// taken, or nothing changes.
func (s *CheckoutService) Checkout(ctx context.Context, user *domain.User) ([]domain.Order, error) {
	// Keys are stored at microsecond precision.
	now := s.Now().UTC().Truncate(time.Microsecond)
	var (
		placed  []domain.Order
		pending int
	)
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		q, err := s.quote(ctx, st, user.ID, now)
		if err != nil {
			return err
		}
		if len(q.Lines) == 0 {
			return domain.E(domain.ErrEmptyCart, "Your cart is empty.")
		}
		for _, l := range q.Lines {
			if l.Quantity > l.Stock {
				return domain.Ef(domain.ErrInsufficientStock, "Not enough stock for '%s'.", l.Title)
			}
		}

		placed = placed[:0]
		for _, l := range q.Lines {
			code, err := s.uniqueClaimCode(ctx, st)
			if err != nil {
				return err
			}
			no, err := st.Orders.NextOrderNo(ctx)
			if err != nil {
				return fmt.Errorf("next order number: %w", err)
			}
			o := domain.Order{
				UserID:     user.ID,
				BookID:     l.BookID,
				OrderDate:  now,
				OrderNo:    no,
				Quantity:   l.Quantity,
				TotalPrice: l.Total,
				ClaimCode:  code,
				Status:     domain.StatusPlaced,
				BookTitle:  l.Title,
			}
			if err := st.Inventory.Decrement(ctx, l.BookID, l.Quantity); err != nil {
				if errors.Is(err, repos.ErrInsufficientStock) {
					return domain.Ef(domain.ErrInsufficientStock, "Not enough stock for '%s'.", l.Title)
				}
				return fmt.Errorf("take stock: %w", err)
			}
			if err := st.Orders.Insert(ctx, o); err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			placed = append(placed, o)
		}
		if err := st.Carts.Clear(ctx, user.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		pending, err = st.Orders.CountPending(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, o := range placed {
		s.Pub.Publish(EventAnnouncement, AnnouncementPayload{
			Message: fmt.Sprintf("Order for '%s' placed! Order #%d", o.BookTitle, o.OrderNo),
		})
	}
	s.sendConfirmation(ctx, user, placed)
	s.Pub.Publish(EventOrderCount, CountPayload{UserID: user.ID, Count: pending})
	s.Pub.Publish(EventCartCount, CountPayload{UserID: user.ID, Count: 0})
	return placed, nil
}

func (s *CheckoutService) uniqueClaimCode(ctx context.Context, st *repos.Store) (string, error) {
	for i := 0; i < claimCodeAttempts; i++ {
		code := s.Codes()
		taken, err := st.Orders.ClaimCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check claim code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.E(domain.ErrConflict, "Could not allocate a claim code. Please try again.")
}

// sendConfirmation is best-effort: a failed email never undoes a placed order.
func (s *CheckoutService) sendConfirmation(ctx context.Context, user *domain.User, orders []domain.Order) {
	l := applog.Service("checkout")
	body, err := renderEmail("order_confirmation", emailData{Name: user.DisplayName(), Orders: orders})
	if err != nil {
		l.Error().Err(err).Msg("order.email.render")
		return
	}
	if err := s.Mail.Send(ctx, user.Email, SubjectOrderConfirmation, body); err != nil {
		l.Warn().Err(err).Str("user_id", user.ID).Int("orders", len(orders)).Msg("order.email.failed")
	}
}

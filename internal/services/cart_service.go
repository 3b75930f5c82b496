package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

type CartService struct {
	Store     *repos.Store
	Discounts DiscountResolver
	Pub       Publisher
	Now       func() time.Time
}

func NewCartService(store *repos.Store, discounts DiscountResolver, pub Publisher) *CartService {
	return &CartService{Store: store, Discounts: discounts, Pub: pub, Now: time.Now}
}

// CartItem is a cart line priced at the current active discount.
type CartItem struct {
	domain.CartLine
	Discount  *domain.TimedDiscount
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

type CartView struct {
	Items      []CartItem
	TotalItems int
	Subtotal   decimal.Decimal
}

func (v CartView) Empty() bool { return len(v.Items) == 0 }

// Add puts qty copies of a book in the cart, never beyond live stock.
func (s *CartService) Add(ctx context.Context, userID string, bookID int64, qty int) error {
	if qty < 1 {
		return domain.E(domain.ErrInvalidQuantity, "Quantity must be at least 1.")
	}
	var count int
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		book, err := st.Books.Get(ctx, bookID)
		if isNoRows(err) {
			return domain.E(domain.ErrNotFound, "Book not found.")
		}
		if err != nil {
			return fmt.Errorf("load book: %w", err)
		}
		if !book.IsAvailable() {
			return domain.Ef(domain.ErrOutOfStock, "'%s' is out of stock.", book.Title)
		}
		have, err := st.Carts.Quantity(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("load cart line: %w", err)
		}
		if have+qty > book.Quantity {
			return domain.Ef(domain.ErrInsufficientStock, "Only %d copies available.", book.Quantity)
		}
		if err := st.Carts.AddOrIncrement(ctx, userID, bookID, qty); err != nil {
			return fmt.Errorf("add to cart: %w", err)
		}
		count, err = st.Carts.DistinctCount(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.Pub.Publish(EventCartCount, CountPayload{UserID: userID, Count: count})
	return nil
}

// UpdateQuantity overwrites the quantity of an existing line.
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, bookID int64, qty int) error {
	return s.Store.InTx(ctx, func(st *repos.Store) error {
		line, err := st.Carts.Line(ctx, userID, bookID)
		if isNoRows(err) {
			return domain.E(domain.ErrNotFound, "Book not in cart.")
		}
		if err != nil {
			return fmt.Errorf("load cart line: %w", err)
		}
		if qty < 1 {
			return domain.E(domain.ErrInvalidQuantity, "Quantity must be at least 1.")
		}
		if qty > line.Stock {
			return domain.Ef(domain.ErrInsufficientStock, "Only %d copies available.", line.Stock)
		}
		_, err = st.Carts.SetQuantity(ctx, userID, bookID, qty)
		return err
	})
}

func (s *CartService) Remove(ctx context.Context, userID string, bookID int64) error {
	var count int
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		ok, err := st.Carts.Remove(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("remove from cart: %w", err)
		}
		if !ok {
			return domain.E(domain.ErrNotFound, "Book not in cart.")
		}
		count, err = st.Carts.DistinctCount(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}
	s.Pub.Publish(EventCartCount, CountPayload{UserID: userID, Count: count})
	return nil
}

func (s *CartService) View(ctx context.Context, userID string) (CartView, error) {
	return s.view(ctx, s.Store, userID, s.Now())
}

func (s *CartService) view(ctx context.Context, st *repos.Store, userID string, now time.Time) (CartView, error) {
	lines, err := st.Carts.Lines(ctx, userID)
	if err != nil {
		return CartView{}, fmt.Errorf("load cart: %w", err)
	}
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.BookID)
	}
	discounts, err := s.Discounts.ResolveMany(ctx, st.Discounts, ids, now)
	if err != nil {
		return CartView{}, err
	}

	v := CartView{Items: make([]CartItem, 0, len(lines)), Subtotal: decimal.Zero}
	for _, l := range lines {
		it := CartItem{CartLine: l, UnitPrice: l.Price}
		if d, ok := discounts[l.BookID]; ok {
			it.Discount = &d
			it.UnitPrice = DiscountedPrice(l.Price, d.Fraction)
		}
		it.LineTotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		v.Items = append(v.Items, it)
		v.TotalItems += l.Quantity
		v.Subtotal = v.Subtotal.Add(it.LineTotal)
	}
	return v, nil
}

// Item returns one priced line, or NotFound.
func (s *CartService) Item(ctx context.Context, userID string, bookID int64) (CartItem, error) {
	v, err := s.View(ctx, userID)
	if err != nil {
		return CartItem{}, err
	}
	for _, it := range v.Items {
		if it.BookID == bookID {
			return it, nil
		}
	}
	return CartItem{}, domain.E(domain.ErrNotFound, "Book not in cart.")
}

// Count is the number of distinct books in the cart.
func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	return s.Store.Carts.DistinctCount(ctx, userID)
}

package services

import (
	"context"
	"fmt"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

type WishlistService struct {
	Store     *repos.Store
	Discounts DiscountResolver
	Now       func() time.Time
}

func NewWishlistService(store *repos.Store, discounts DiscountResolver) *WishlistService {
	return &WishlistService{Store: store, Discounts: discounts, Now: time.Now}
}

// Toggle adds the book when absent and removes it when present. It reports the new membership.
func (s *WishlistService) Toggle(ctx context.Context, userID string, bookID int64) (bool, error) {
	var added bool
	err := s.Store.InTx(ctx, func(st *repos.Store) error {
		if _, err := st.Books.Get(ctx, bookID); err != nil {
			if isNoRows(err) {
				return domain.E(domain.ErrNotFound, "Book not found.")
			}
			return fmt.Errorf("load book: %w", err)
		}
		removed, err := st.Wishlists.Remove(ctx, userID, bookID)
		if err != nil {
			return fmt.Errorf("remove from wishlist: %w", err)
		}
		if removed {
			return nil
		}
		added = true
		return st.Wishlists.Add(ctx, userID, bookID)
	})
	return added, err
}

func (s *WishlistService) Contains(ctx context.Context, userID string, bookID int64) (bool, error) {
	return s.Store.Wishlists.Contains(ctx, userID, bookID)
}

// List returns the wishlist with current discounts applied.
func (s *WishlistService) List(ctx context.Context, userID string) ([]domain.PricedBook, error) {
	books, err := s.Store.Wishlists.Books(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	if err := s.Discounts.Apply(ctx, s.Store.Discounts, books, clockOrDefault(s.Now)()); err != nil {
		return nil, err
	}
	return books, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID string, bookID int64) error {
	ok, err := s.Store.Wishlists.Remove(ctx, userID, bookID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Book not in wishlist.")
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
	"booknook/internal/textfmt"
)

const (
	homeNewestCount   = 6
	detailRelatedSize = 3
)

type CatalogService struct {
	Store     *repos.Store
	Discounts DiscountResolver
	PageSize  int
	Now       func() time.Time
}

func NewCatalogService(store *repos.Store, discounts DiscountResolver, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &CatalogService{Store: store, Discounts: discounts, PageSize: pageSize, Now: time.Now}
}

// Listing is a catalog page plus what the filter form needs.
type Listing struct {
	domain.BookPage
	Filter domain.CatalogFilter
	Facets domain.Facets
}

func (s *CatalogService) List(ctx context.Context, f domain.CatalogFilter) (Listing, error) {
	f.Normalize(s.PageSize)
	now := s.Now()

	books, total, err := s.Store.Books.List(ctx, f, now)
	if err != nil {
		return Listing{}, fmt.Errorf("list books: %w", err)
	}
	if err := s.Discounts.Apply(ctx, s.Store.Discounts, books, now); err != nil {
		return Listing{}, err
	}
	facets, err := s.Store.Facets.List(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("load facets: %w", err)
	}

	pages := (total + f.PageSize - 1) / f.PageSize
	if pages < 1 {
		pages = 1
	}
	return Listing{
		BookPage: domain.BookPage{Books: books, Total: total, Page: f.Page, PageSize: f.PageSize, TotalPages: pages},
		Filter:   f,
		Facets:   facets,
	}, nil
}

// Detail is everything the book page shows. The viewer-specific flags stay false for guests.
type Detail struct {
	Book            domain.PricedBook
	DescriptionHTML template.HTML
	Reviews         []domain.ReviewThread
	MostRated       []domain.PricedBook
	MostOrdered     []domain.PricedBook
	HasPurchased    bool
	HasReviewed     bool
	InWishlist      bool
}

func (s *CatalogService) Detail(ctx context.Context, bookID int64, viewerID string) (Detail, error) {
	now := s.Now()
	b, err := s.Store.Books.GetWithStats(ctx, bookID)
	if isNoRows(err) {
		return Detail{}, domain.E(domain.ErrNotFound, "This book is no longer available.")
	}
	if err != nil {
		return Detail{}, fmt.Errorf("load book: %w", err)
	}

	d := Detail{DescriptionHTML: textfmt.Markdown(b.Description)}
	if d.MostRated, err = s.Store.Books.MostRated(ctx, bookID, detailRelatedSize); err != nil {
		return Detail{}, fmt.Errorf("load most rated: %w", err)
	}
	if d.MostOrdered, err = s.Store.Books.MostOrdered(ctx, bookID, detailRelatedSize); err != nil {
		return Detail{}, fmt.Errorf("load most ordered: %w", err)
	}

	all := make([]domain.PricedBook, 0, 1+len(d.MostRated)+len(d.MostOrdered))
	all = append(append(append(all, b), d.MostRated...), d.MostOrdered...)
	if err := s.Discounts.Apply(ctx, s.Store.Discounts, all, now); err != nil {
		return Detail{}, err
	}
	d.Book = all[0]
	copy(d.MostRated, all[1:1+len(d.MostRated)])
	copy(d.MostOrdered, all[1+len(d.MostRated):])

	if d.Reviews, err = reviewThread(ctx, s.Store, bookID); err != nil {
		return Detail{}, err
	}

	if viewerID != "" {
		if d.HasPurchased, err = s.Store.Orders.HasPurchased(ctx, viewerID, bookID); err != nil {
			return Detail{}, fmt.Errorf("check purchase: %w", err)
		}
		if d.HasReviewed, err = s.Store.Reviews.HasTopLevel(ctx, viewerID, bookID); err != nil {
			return Detail{}, fmt.Errorf("check review: %w", err)
		}
		if d.InWishlist, err = s.Store.Wishlists.Contains(ctx, viewerID, bookID); err != nil {
			return Detail{}, fmt.Errorf("check wishlist: %w", err)
		}
	}
	return d, nil
}

type Home struct {
	Newest        []domain.PricedBook
	Announcements []domain.Announcement
}

func (s *CatalogService) Home(ctx context.Context) (Home, error) {
	now := s.Now()
	books, err := s.Store.Books.Newest(ctx, homeNewestCount)
	if err != nil {
		return Home{}, fmt.Errorf("load newest: %w", err)
	}
	if err := s.Discounts.Apply(ctx, s.Store.Discounts, books, now); err != nil {
		return Home{}, err
	}
	ann, err := s.Store.Announcements.Active(ctx, now)
	if err != nil {
		return Home{}, fmt.Errorf("load announcements: %w", err)
	}
	return Home{Newest: books, Announcements: ann}, nil
}

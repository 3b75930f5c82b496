package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/shopspring/decimal"

	"booknook/internal/domain"
	applog "booknook/internal/log"
	"booknook/internal/media"
	"booknook/internal/repos"
)

const (
	coverImageDir = "covers"
	adminPageSize = 25
)

// BookAdminService is the admin side of the catalog: books, covers and discounts.
type BookAdminService struct {
	Store *repos.Store
	Media *media.Store
	Now   func() time.Time
}

func NewBookAdminService(store *repos.Store, m *media.Store) *BookAdminService {
	return &BookAdminService{Store: store, Media: m, Now: time.Now}
}

func (s *BookAdminService) Get(ctx context.Context, id int64) (domain.Book, error) {
	b, err := s.Store.Books.Get(ctx, id)
	if isNoRows(err) {
		return b, domain.E(domain.ErrNotFound, "Book not found.")
	}
	return b, err
}

// List pages through the whole catalog by title for the admin book table.
func (s *BookAdminService) List(ctx context.Context, search string, page int) (domain.BookPage, error) {
	f := domain.CatalogFilter{Search: search, Page: page, PageSize: adminPageSize}
	f.Normalize(adminPageSize)
	books, total, err := s.Store.Books.List(ctx, f, s.Now())
	if err != nil {
		return domain.BookPage{}, fmt.Errorf("list books: %w", err)
	}
	pages := (total + f.PageSize - 1) / f.PageSize
	if pages < 1 {
		pages = 1
	}
	return domain.BookPage{Books: books, Total: total, Page: f.Page, PageSize: f.PageSize, TotalPages: pages}, nil
}

func validateBook(b domain.Book) error {
	switch {
	case b.Title == "":
		return domain.E(domain.ErrValidationFailed, "Title is required.")
	case b.Price.IsNegative():
		return domain.E(domain.ErrValidationFailed, "Price cannot be negative.")
	case b.Quantity < 0:
		return domain.E(domain.ErrValidationFailed, "Quantity cannot be negative.")
	case b.PublicationDate.IsZero():
		return domain.E(domain.ErrValidationFailed, "Publication date is required.")
	}
	return nil
}

// Create inserts a book, saving cover first when one was uploaded.
func (s *BookAdminService) Create(ctx context.Context, b domain.Book, cover *multipart.FileHeader) (int64, error) {
	if err := validateBook(b); err != nil {
		return 0, err
	}
	b.AddedDate = s.Now().UTC()
	if cover != nil {
		url, err := s.Media.Save(cover, coverImageDir)
		if err != nil {
			return 0, err
		}
		b.CoverImageURL = url
	}
	id, err := s.Store.Books.Create(ctx, b)
	if err != nil {
		_ = s.Media.Delete(b.CoverImageURL)
		return 0, fmt.Errorf("create book: %w", err)
	}
	return id, nil
}

// Update overwrites a book. The existing cover is kept unless a new one is uploaded.
func (s *BookAdminService) Update(ctx context.Context, b domain.Book, cover *multipart.FileHeader) error {
	if err := validateBook(b); err != nil {
		return err
	}
	old, err := s.Get(ctx, b.ID)
	if err != nil {
		return err
	}
	b.CoverImageURL = old.CoverImageURL
	if cover != nil {
		url, err := s.Media.Replace(cover, coverImageDir, old.CoverImageURL)
		if err != nil {
			return err
		}
		b.CoverImageURL = url
	}
	ok, err := s.Store.Books.Update(ctx, b)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Book not found.")
	}
	return nil
}

func (s *BookAdminService) Delete(ctx context.Context, id int64) error {
	old, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	err = s.Store.InTx(ctx, func(st *repos.Store) error {
		ok, err := st.Books.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		if !ok {
			return domain.E(domain.ErrNotFound, "Book not found.")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Media.Delete(old.CoverImageURL); err != nil {
		l := applog.Service("books")
		l.Warn().Err(err).Int64("book_id", id).Msg("book.cover.delete_failed")
	}
	return nil
}

func (s *BookAdminService) Discounts(ctx context.Context, bookID int64) ([]domain.TimedDiscount, error) {
	return s.Store.Discounts.ForBook(ctx, bookID)
}

type DiscountInput struct {
	Percent   decimal.Decimal // 0..100
	StartDate time.Time
	ExpiresAt time.Time
	OnSale    bool
}

// SetDiscount replaces the book's discounts with one new window. A zero percentage just removes them.
func (s *BookAdminService) SetDiscount(ctx context.Context, bookID int64, in DiscountInput) error {
	hundred := decimal.NewFromInt(100)
	if in.Percent.IsNegative() || in.Percent.GreaterThan(hundred) {
		return domain.E(domain.ErrValidationFailed, "Discount must be between 0 and 100 percent.")
	}
	if !in.Percent.IsZero() && !in.ExpiresAt.After(in.StartDate) {
		return domain.E(domain.ErrValidationFailed, "Discount must end after it starts.")
	}
	return s.Store.InTx(ctx, func(st *repos.Store) error {
		if _, err := st.Books.Get(ctx, bookID); err != nil {
			if isNoRows(err) {
				return domain.E(domain.ErrNotFound, "Book not found.")
			}
			return err
		}
		if err := st.Discounts.DeleteForBook(ctx, bookID); err != nil {
			return fmt.Errorf("clear discounts: %w", err)
		}
		if in.Percent.IsZero() {
			return nil
		}
		_, err := st.Discounts.Create(ctx, domain.TimedDiscount{
			BookID:     bookID,
			Fraction:   in.Percent.Div(hundred),
			StartDate:  in.StartDate.UTC(),
			ExpiresAt:  in.ExpiresAt.UTC(),
			OnSaleFlag: in.OnSale,
		})
		return err
	})
}

func (s *BookAdminService) DeleteDiscount(ctx context.Context, id int64) error {
	ok, err := s.Store.Discounts.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete discount: %w", err)
	}
	if !ok {
		return domain.E(domain.ErrNotFound, "Discount not found.")
	}
	return nil
}

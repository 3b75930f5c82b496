package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Book struct {
	ID                      int64           `db:"id"`
	Title                   string          `db:"title"`
	Author                  string          `db:"author"`
	Genre                   string          `db:"genre"`
	Description             string          `db:"description"` // markdown
	Price                   decimal.Decimal `db:"price"`
	Quantity                int             `db:"quantity"`
	ISBN                    string          `db:"isbn"`
	Language                string          `db:"language"`
	Format                  string          `db:"format"`
	Publisher               string          `db:"publisher"`
	CoverImageURL           string          `db:"cover_image_url"`
	IsPhysicalLibraryAccess bool            `db:"is_physical_library_access"`
	IsBestseller            bool            `db:"is_bestseller"`
	IsAwardWinner           bool            `db:"is_award_winner"`
	IsComingSoon            bool            `db:"is_coming_soon"`
	PublicationDate         time.Time       `db:"-"`
	ReleaseDate             *time.Time      `db:"-"`
	AddedDate               time.Time       `db:"-"`
}

func (b Book) IsAvailable() bool { return b.Quantity > 0 }

// TimedDiscount is active while start <= now <= expiry, inclusive at both ends.
type TimedDiscount struct {
	ID         int64           `db:"id"`
	BookID     int64           `db:"book_id"`
	Fraction   decimal.Decimal `db:"discount_percentage"` // 0..1
	StartDate  time.Time       `db:"-"`
	ExpiresAt  time.Time       `db:"-"`
	OnSaleFlag bool            `db:"on_sale_flag"`
}

func (d TimedDiscount) ActiveAt(now time.Time) bool {
	return !now.Before(d.StartDate) && !now.After(d.ExpiresAt)
}

// Percent is the fraction expressed as a percentage for forms and badges.
func (d TimedDiscount) Percent() decimal.Decimal { return d.Fraction.Mul(decimal.NewFromInt(100)) }

// PricedBook is a book with its resolved discount, as shown on listing and detail pages.
type PricedBook struct {
	Book
	Discount        *TimedDiscount
	DiscountedPrice decimal.Decimal
	Rating          float64
	Sold            int
}

func (p PricedBook) IsDiscountActive() bool { return p.Discount != nil }

func (p PricedBook) OnSale() bool { return p.Discount != nil && p.Discount.OnSaleFlag }

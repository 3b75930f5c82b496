package domain

import "github.com/shopspring/decimal"

const DefaultPageSize = 12

// Category tabs on the catalog page.
const (
	CategoryAll          = "all"
	CategoryBestsellers  = "bestsellers"
	CategoryAwardWinners = "awardwinners"
	CategoryNewReleases  = "newreleases"
	CategoryNewArrivals  = "newarrivals"
	CategoryComingSoon   = "comingsoon"
	CategoryDeals        = "deals"
)

// Sort keys. SortTitle is the default.
const (
	SortTitle           = "title"
	SortAuthor          = "author"
	SortPublicationDate = "publicationdate"
	SortPrice           = "price"
	SortPopularity      = "popularity"
)

const (
	AvailabilityAll         = "all"
	AvailabilityAvailable   = "available"
	AvailabilityUnavailable = "unavailable"
)

// CatalogFilter holds independent predicates; zero values mean "no constraint".
type CatalogFilter struct {
	Search         string
	Author         string
	Genre          string
	Availability   string
	PhysicalAccess bool
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	MinRating      float64
	Language       string
	Format         string
	Publisher      string
	ISBN           string
	Category       string
	Sort           string
	Page           int
	PageSize       int
}

// Normalize clamps paging and replaces unknown enum values with defaults.
func (f *CatalogFilter) Normalize(defaultPageSize int) {
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultPageSize
	}
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = defaultPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	switch f.Sort {
	case SortTitle, SortAuthor, SortPublicationDate, SortPrice, SortPopularity:
	default:
		f.Sort = SortTitle
	}
	switch f.Category {
	case CategoryBestsellers, CategoryAwardWinners, CategoryNewReleases,
		CategoryNewArrivals, CategoryComingSoon, CategoryDeals:
	default:
		f.Category = CategoryAll
	}
	switch f.Availability {
	case AvailabilityAvailable, AvailabilityUnavailable:
	default:
		f.Availability = AvailabilityAll
	}
	if f.MinRating < 0 {
		f.MinRating = 0
	}
}

// Offset is the row offset for the current page.
func (f CatalogFilter) Offset() int { return (f.Page - 1) * f.PageSize }

// BookPage is one page of a catalog listing.
type BookPage struct {
	Books      []PricedBook
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

func (p BookPage) HasPrev() bool { return p.Page > 1 }
func (p BookPage) HasNext() bool { return p.Page < p.TotalPages }

// Facets feed the catalog filter dropdowns.
type Facets struct {
	Genres    []string
	Languages []string
	Formats   []string
}

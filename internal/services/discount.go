package services

import (
	"context"
	"fmt"
	"time"

	"booknook/internal/domain"
	"booknook/internal/repos"
)

// TieBreak picks one discount when several are active for the same book.
type TieBreak string

const (
	TieBreakFirst   TieBreak = "first"   // lowest id
	TieBreakLatest  TieBreak = "latest"  // most recent start
	TieBreakLargest TieBreak = "largest" // biggest fraction
)

func ParseTieBreak(s string) (TieBreak, error) {
	switch tb := TieBreak(s); tb {
	case TieBreakFirst, TieBreakLatest, TieBreakLargest:
		return tb, nil
	case "":
		return TieBreakFirst, nil
	default:
		return "", fmt.Errorf("unknown discount tie-break %q", s)
	}
}

// DiscountResolver finds the single active discount of a book.
type DiscountResolver struct {
	Policy TieBreak
}

// better reports whether a should win over b under the policy.
func (r DiscountResolver) better(a, b domain.TimedDiscount) bool {
	switch r.Policy {
	case TieBreakLatest:
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.After(b.StartDate)
		}
		return a.ID > b.ID
	case TieBreakLargest:
		if c := a.Fraction.Cmp(b.Fraction); c != 0 {
			return c > 0
		}
		return a.ID < b.ID
	default:
		return a.ID < b.ID
	}
}

// Pick chooses among candidates, ignoring any that are not active at now.
func (r DiscountResolver) Pick(candidates []domain.TimedDiscount, now time.Time) *domain.TimedDiscount {
	var best *domain.TimedDiscount
	for i := range candidates {
		d := candidates[i]
		if !d.ActiveAt(now) {
			continue
		}
		if best == nil || r.better(d, *best) {
			best = &d
		}
	}
	return best
}

// Resolve returns the active discount for bookID, or nil.
func (r DiscountResolver) Resolve(ctx context.Context, repo *repos.DiscountRepo, bookID int64, now time.Time) (*domain.TimedDiscount, error) {
	m, err := r.ResolveMany(ctx, repo, []int64{bookID}, now)
	if err != nil {
		return nil, err
	}
	if d, ok := m[bookID]; ok {
		return &d, nil
	}
	return nil, nil
}

// ResolveMany resolves a page of books with one query.
func (r DiscountResolver) ResolveMany(ctx context.Context, repo *repos.DiscountRepo, bookIDs []int64, now time.Time) (map[int64]domain.TimedDiscount, error) {
	all, err := repo.ActiveForBooks(ctx, bookIDs, now)
	if err != nil {
		return nil, fmt.Errorf("load discounts: %w", err)
	}
	byBook := map[int64][]domain.TimedDiscount{}
	for _, d := range all {
		byBook[d.BookID] = append(byBook[d.BookID], d)
	}
	out := make(map[int64]domain.TimedDiscount, len(byBook))
	for id, ds := range byBook {
		if d := r.Pick(ds, now); d != nil {
			out[id] = *d
		}
	}
	return out, nil
}

// Apply fills Discount and DiscountedPrice on every book in place.
func (r DiscountResolver) Apply(ctx context.Context, repo *repos.DiscountRepo, books []domain.PricedBook, now time.Time) error {
	ids := make([]int64, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	m, err := r.ResolveMany(ctx, repo, ids, now)
	if err != nil {
		return err
	}
	for i := range books {
		books[i].DiscountedPrice = books[i].Price
		books[i].Discount = nil
		if d, ok := m[books[i].ID]; ok {
			books[i].Discount = &d
			books[i].DiscountedPrice = DiscountedPrice(books[i].Price, d.Fraction)
		}
	}
	return nil
}

package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/services"
)

func TestDiscountWindowIsInclusive(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	disc := domain.TimedDiscount{ID: 1, Fraction: d("0.2"), StartDate: start, ExpiresAt: end}
	r := services.DiscountResolver{}

	assert.NotNil(t, r.Pick([]domain.TimedDiscount{disc}, start))
	assert.NotNil(t, r.Pick([]domain.TimedDiscount{disc}, end))
	assert.Nil(t, r.Pick([]domain.TimedDiscount{disc}, start.Add(-time.Microsecond)))
	assert.Nil(t, r.Pick([]domain.TimedDiscount{disc}, end.Add(time.Microsecond)))
}

func TestTieBreakPolicies(t *testing.T) {
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	cands := []domain.TimedDiscount{
		{ID: 1, Fraction: d("0.10"), StartDate: now.AddDate(0, 0, -5), ExpiresAt: now.AddDate(0, 0, 5)},
		{ID: 2, Fraction: d("0.30"), StartDate: now.AddDate(0, 0, -3), ExpiresAt: now.AddDate(0, 0, 5)},
		{ID: 3, Fraction: d("0.20"), StartDate: now.AddDate(0, 0, -1), ExpiresAt: now.AddDate(0, 0, 5)},
		{ID: 4, Fraction: d("0.90"), StartDate: now.AddDate(0, 0, 1), ExpiresAt: now.AddDate(0, 0, 5)}, // not started
	}
	cases := map[services.TieBreak]int64{
		services.TieBreakFirst:   1,
		services.TieBreakLatest:  3,
		services.TieBreakLargest: 2,
	}
	for policy, want := range cases {
		got := services.DiscountResolver{Policy: policy}.Pick(cands, now)
		require.NotNil(t, got, policy)
		assert.Equal(t, want, got.ID, policy)
	}
}

func TestParseTieBreak(t *testing.T) {
	tb, err := services.ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, services.TieBreakFirst, tb)

	tb, err = services.ParseTieBreak("largest")
	require.NoError(t, err)
	assert.Equal(t, services.TieBreakLargest, tb)

	_, err = services.ParseTieBreak("random")
	assert.Error(t, err)
}

func TestResolveManyAgainstStore(t *testing.T) {
	f := newFixture(t)
	a := f.addBook("Discounted", "20.00", 5)
	b := f.addBook("Full price", "15.00", 5)
	f.addDiscount(a, "0.25", f.now.Add(-time.Hour), f.now.Add(time.Hour))
	f.addDiscount(b, "0.50", f.now.Add(-2*time.Hour), f.now.Add(-time.Hour)) // expired

	books := []domain.PricedBook{{Book: domain.Book{ID: a, Price: d("20.00")}}, {Book: domain.Book{ID: b, Price: d("15.00")}}}
	require.NoError(t, services.DiscountResolver{}.Apply(f.ctx, f.store.Discounts, books, f.now))

	assert.True(t, books[0].IsDiscountActive())
	assert.True(t, books[0].DiscountedPrice.Equal(d("15")), "got %s", books[0].DiscountedPrice)
	assert.False(t, books[1].IsDiscountActive())
	assert.True(t, books[1].DiscountedPrice.Equal(d("15.00")))
}

package services_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/services"
)

func TestCheckoutCompoundsQuantityAndLoyaltyDiscounts(t *testing.T) {
	f := newFixture(t)
	old := f.addBook("Backlist", "1.00", 100)
	for i := 0; i < 12; i++ {
		f.addOrder(f.reader.ID, old, 1, f.now.Add(-time.Duration(i+1)*time.Hour))
	}
	book := f.addBook("Ten dollars", "10.00", 20)
	require.NoError(t, f.cart().Add(f.ctx, f.reader.ID, book, 5))

	co := f.checkout()
	q, err := co.Quote(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.True(t, q.Combined.Equal(d("0.145")), "combined %s", q.Combined)
	assert.True(t, q.Total.Equal(d("42.75")), "quote %s", q.Total)

	placed, err := co.Checkout(f.ctx, f.reader)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.True(t, placed[0].TotalPrice.Equal(d("42.75")), "total %s", placed[0].TotalPrice)
	assert.Equal(t, domain.StatusPlaced, placed[0].Status)
	assert.Len(t, placed[0].ClaimCode, domain.ClaimCodeLength)
	assert.Equal(t, strings.ToUpper(placed[0].ClaimCode), placed[0].ClaimCode)
	assert.Equal(t, 15, f.stock(book))

	stored, err := f.store.Orders.Get(f.ctx, placed[0].Key())
	require.NoError(t, err)
	assert.True(t, stored.TotalPrice.Equal(d("42.75")))
}

func TestCheckoutIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	plenty := f.addBook("Plenty", "5.00", 10)
	scarce := f.addBook("Scarce", "5.00", 2)
	cart := f.cart()
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, plenty, 3))
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, scarce, 2))

	// Someone else buys a copy of the scarce book first.
	require.NoError(t, f.store.Inventory.Decrement(f.ctx, scarce, 1))

	_, err := f.checkout().Checkout(f.ctx, f.reader)
	requireCode(t, err, domain.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Scarce")

	assert.Equal(t, 10, f.stock(plenty))
	assert.Equal(t, 1, f.stock(scarce))
	orders, err := f.store.Orders.ListByUser(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	v, err := cart.View(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.Len(t, v.Items, 2, "cart survives a failed checkout")
	assert.Empty(t, f.pub.of(services.EventOrderCount))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout().Checkout(f.ctx, f.reader)
	requireCode(t, err, domain.ErrEmptyCart)
	_, err = f.checkout().Quote(f.ctx, f.reader.ID)
	requireCode(t, err, domain.ErrEmptyCart)
}

func TestCheckoutPublishesAndMailsAfterCommit(t *testing.T) {
	f := newFixture(t)
	a := f.addBook("Alpha", "8.00", 5)
	b := f.addBook("Beta", "9.00", 5)
	cart := f.cart()
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, a, 1))
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, b, 2))

	placed, err := f.checkout().Checkout(f.ctx, f.reader)
	require.NoError(t, err)
	require.Len(t, placed, 2)
	assert.NotEqual(t, placed[0].ClaimCode, placed[1].ClaimCode)
	assert.Equal(t, placed[0].OrderNo+1, placed[1].OrderNo)

	ann := f.pub.of(services.EventAnnouncement)
	require.Len(t, ann, 2)
	msg := ann[0].(services.AnnouncementPayload).Message
	assert.True(t, strings.HasPrefix(msg, "Order for '"), msg)
	assert.Contains(t, msg, "placed! Order #")

	assert.Equal(t, []any{services.CountPayload{UserID: f.reader.ID, Count: 2}}, f.pub.of(services.EventOrderCount))
	cartCounts := f.pub.of(services.EventCartCount)
	assert.Equal(t, services.CountPayload{UserID: f.reader.ID, Count: 0}, cartCounts[len(cartCounts)-1])

	sent := f.mail.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, services.SubjectOrderConfirmation, sent[0].Subject)
	assert.Contains(t, sent[0].Body, placed[0].ClaimCode)
	assert.Contains(t, sent[0].Body, placed[1].ClaimCode)

	v, err := cart.View(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.True(t, v.Empty())
}

func TestCheckoutSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.Err = errors.New("smtp down")
	book := f.addBook("Alpha", "8.00", 5)
	require.NoError(t, f.cart().Add(f.ctx, f.reader.ID, book, 1))

	placed, err := f.checkout().Checkout(f.ctx, f.reader)
	require.NoError(t, err)
	assert.Len(t, placed, 1)
	assert.Equal(t, 4, f.stock(book))
}

func TestCheckoutRetriesClaimCodeCollisions(t *testing.T) {
	f := newFixture(t)
	old := f.addBook("Old", "1.00", 5)
	taken := f.addOrder(f.reader2.ID, old, 1, f.now.Add(-time.Hour)).ClaimCode
	book := f.addBook("New", "1.00", 5)
	require.NoError(t, f.cart().Add(f.ctx, f.reader.ID, book, 1))

	codes := []string{taken, taken, "ZZZZZZZZ"}
	co := f.checkout()
	co.Codes = func() string {
		c := codes[0]
		codes = codes[1:]
		return c
	}
	placed, err := co.Checkout(f.ctx, f.reader)
	require.NoError(t, err)
	assert.Equal(t, "ZZZZZZZZ", placed[0].ClaimCode)
}

func TestNewClaimCodeShape(t *testing.T) {
	c := services.NewClaimCode()
	assert.Len(t, c, domain.ClaimCodeLength)
	assert.Equal(t, strings.ToUpper(c), c)
}

func TestClaimCodesInABurstAreUnordered(t *testing.T) {
	codes := make([]string, 64)
	seen := map[string]bool{}
	firsts := map[byte]bool{}
	for i := range codes {
		codes[i] = services.NewClaimCode()
		seen[codes[i]] = true
		firsts[codes[i][0]] = true
	}
	assert.Len(t, seen, len(codes))
	assert.False(t, slices.IsSorted(codes), "codes made back to back must not count upwards")
	assert.Greater(t, len(firsts), 1, "codes must not share a leading character")
}

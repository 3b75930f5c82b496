package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/services"
)

func TestCartNeverExceedsStock(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Three copies", "10.00", 3)
	cart := f.cart()

	require.NoError(t, cart.Add(f.ctx, f.reader.ID, book, 2))
	err := cart.Add(f.ctx, f.reader.ID, book, 2)
	requireCode(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "Only 3 copies available.", err.Error())

	v, err := cart.View(f.ctx, f.reader.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Equal(t, 3, f.stock(book), "adding to the cart never touches stock")
}

func TestCartAddErrors(t *testing.T) {
	f := newFixture(t)
	empty := f.addBook("Sold out", "10.00", 0)
	cart := f.cart()

	requireCode(t, cart.Add(f.ctx, f.reader.ID, 999999, 1), domain.ErrNotFound)
	requireCode(t, cart.Add(f.ctx, f.reader.ID, empty, 1), domain.ErrOutOfStock)
	requireCode(t, cart.Add(f.ctx, f.reader.ID, empty, 0), domain.ErrInvalidQuantity)
}

func TestCartAddBroadcastsDistinctCount(t *testing.T) {
	f := newFixture(t)
	a := f.addBook("A", "10.00", 10)
	b := f.addBook("B", "10.00", 10)
	cart := f.cart()

	require.NoError(t, cart.Add(f.ctx, f.reader.ID, a, 1))
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, a, 3))
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, b, 1))

	counts := f.pub.of(services.EventCartCount)
	require.Len(t, counts, 3)
	assert.Equal(t, services.CountPayload{UserID: f.reader.ID, Count: 2}, counts[2])

	require.NoError(t, cart.Remove(f.ctx, f.reader.ID, a))
	counts = f.pub.of(services.EventCartCount)
	assert.Equal(t, services.CountPayload{UserID: f.reader.ID, Count: 1}, counts[len(counts)-1])

	requireCode(t, cart.Remove(f.ctx, f.reader.ID, a), domain.ErrNotFound)
}

func TestCartUpdateQuantity(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Four copies", "10.00", 4)
	cart := f.cart()

	requireCode(t, cart.UpdateQuantity(f.ctx, f.reader.ID, book, 1), domain.ErrNotFound)
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, book, 1))
	requireCode(t, cart.UpdateQuantity(f.ctx, f.reader.ID, book, 0), domain.ErrInvalidQuantity)
	requireCode(t, cart.UpdateQuantity(f.ctx, f.reader.ID, book, 5), domain.ErrInsufficientStock)
	require.NoError(t, cart.UpdateQuantity(f.ctx, f.reader.ID, book, 4))

	it, err := cart.Item(f.ctx, f.reader.ID, book)
	require.NoError(t, err)
	assert.Equal(t, 4, it.Quantity)
}

func TestCartViewAppliesDiscount(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("On sale", "20.00", 10)
	f.addDiscount(book, "0.10", f.now.Add(-time.Hour), f.now.Add(time.Hour))
	cart := f.cart()
	require.NoError(t, cart.Add(f.ctx, f.reader.ID, book, 2))

	v, err := cart.View(f.ctx, f.reader.ID)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.NotNil(t, v.Items[0].Discount)
	assert.True(t, v.Items[0].UnitPrice.Equal(d("18")))
	assert.True(t, v.Subtotal.Equal(d("36")))
	assert.Equal(t, 2, v.TotalItems)
}

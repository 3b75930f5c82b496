package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
)

func TestReviewRequiresPurchase(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Gatekept", "10.00", 10)
	svc := f.reviews()

	_, err := svc.CreateReview(f.ctx, f.reader.ID, book, 5, "Great")
	requireCode(t, err, domain.ErrNotPurchased)

	o := f.addOrder(f.reader.ID, book, 1, f.now.Add(-time.Hour))
	_, err = f.orders().Cancel(f.ctx, f.reader.ID, o.Key())
	require.NoError(t, err)
	_, err = svc.CreateReview(f.ctx, f.reader.ID, book, 5, "Great")
	requireCode(t, err, domain.ErrNotPurchased)
}

func TestSecondTopLevelReviewIsRejected(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Once", "10.00", 10)
	f.addOrder(f.reader.ID, book, 1, f.now.Add(-time.Hour))
	svc := f.reviews()

	rv, err := svc.CreateReview(f.ctx, f.reader.ID, book, 4, "<b>Solid</b> read")
	require.NoError(t, err)
	assert.Equal(t, "Solid read", rv.Comment)

	_, err = svc.CreateReview(f.ctx, f.reader.ID, book, 2, "Changed my mind")
	requireCode(t, err, domain.ErrDuplicateReview)
}

func TestReviewValidation(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Strict", "10.00", 10)
	svc := f.reviews()

	_, err := svc.CreateReview(f.ctx, f.reader.ID, book, 0, "ok")
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateReview(f.ctx, f.reader.ID, book, 6, "ok")
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateReview(f.ctx, f.reader.ID, book, 3, "<script></script>  ")
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateReview(f.ctx, f.reader.ID, 999999, 3, "ok")
	requireCode(t, err, domain.ErrNotFound)
}

func TestRepliesNestOneLevel(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Thread", "10.00", 10)
	other := f.addBook("Elsewhere", "10.00", 10)
	f.addOrder(f.reader.ID, book, 1, f.now.Add(-2*time.Hour))
	f.addOrder(f.reader2.ID, book, 1, f.now.Add(-time.Hour))
	svc := f.reviews()

	top, err := svc.CreateReview(f.ctx, f.reader.ID, book, 5, "Loved it")
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	reply, err := svc.CreateReply(f.ctx, f.reader2.ID, book, top.ID, "Agreed")
	require.NoError(t, err)
	assert.Equal(t, 0, reply.Rating)

	_, err = svc.CreateReply(f.ctx, f.reader2.ID, book, reply.ID, "Nested")
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateReply(f.ctx, f.reader2.ID, other, top.ID, "Wrong book")
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateReply(f.ctx, f.reader2.ID, book, 999999, "Gone")
	requireCode(t, err, domain.ErrNotFound)
	_, err = svc.CreateReply(f.ctx, f.staff.ID, book, top.ID, "Never bought it")
	requireCode(t, err, domain.ErrNotPurchased)

	f.now = f.now.Add(time.Minute)
	second, err := svc.CreateReview(f.ctx, f.reader2.ID, book, 3, "It was fine")
	require.NoError(t, err)

	threads, err := svc.Thread(f.ctx, book)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, second.ID, threads[0].ID, "newest top-level first")
	assert.Equal(t, top.ID, threads[1].ID)
	require.Len(t, threads[1].Replies, 1)
	assert.Equal(t, "Agreed", threads[1].Replies[0].Comment)
	assert.Equal(t, "Ray Reader", threads[1].Replies[0].AuthorName)
}

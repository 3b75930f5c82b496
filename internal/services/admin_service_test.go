package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/services"
)

func TestAdminCannotDeleteSelf(t *testing.T) {
	f := newFixture(t)
	requireCode(t, f.accounts().DeleteUser(f.ctx, f.admin.ID, f.admin.ID), domain.ErrForbidden)
}

func TestDeleteUserRemovesTheirData(t *testing.T) {
	f := newFixture(t)
	book := f.addBook("Owned", "10.00", 5)
	f.addOrder(f.reader.ID, book, 1, f.now.Add(-time.Hour))
	top, err := f.reviews().CreateReview(f.ctx, f.reader.ID, book, 5, "Mine")
	require.NoError(t, err)
	f.addOrder(f.reader2.ID, book, 1, f.now.Add(-time.Hour))
	_, err = f.reviews().CreateReply(f.ctx, f.reader2.ID, book, top.ID, "Reply to a soon-gone review")
	require.NoError(t, err)

	svc := f.accounts()
	require.NoError(t, svc.DeleteUser(f.ctx, f.admin.ID, f.reader.ID))
	_, err = svc.User(f.ctx, f.reader.ID)
	requireCode(t, err, domain.ErrNotFound)

	threads, err := f.reviews().Thread(f.ctx, book)
	require.NoError(t, err)
	assert.Empty(t, threads)

	requireCode(t, svc.DeleteUser(f.ctx, f.admin.ID, f.reader.ID), domain.ErrNotFound)
}

func TestDeletionNoticeFlagsAndMails(t *testing.T) {
	f := newFixture(t)
	svc := f.accounts()

	require.NoError(t, svc.SendDeletionNotice(f.ctx, f.reader.ID))
	u, err := svc.User(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.True(t, u.PendingDeletion)
	sent := f.mail.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, f.reader.Email, sent[0].To)
	assert.Equal(t, services.SubjectDeletionNotice, sent[0].Subject)

	f.mail.Err = errors.New("smtp down")
	requireCode(t, svc.CancelDeletion(f.ctx, f.reader.ID), domain.ErrDependencyFailure)
	u, err = svc.User(f.ctx, f.reader.ID)
	require.NoError(t, err)
	assert.False(t, u.PendingDeletion, "the flag change sticks even when mail fails")
}

func TestCreateStaffIsConfirmed(t *testing.T) {
	f := newFixture(t)
	res, err := f.accounts().CreateStaff(f.ctx, services.RegisterInput{
		Email: "clerk@booknook.test", FirstName: "Cleo", LastName: "Clerk", Password: "S3cret!pw",
	})
	require.NoError(t, err)
	require.NoError(t, res.MailErr)

	u, err := f.auth().Login(f.ctx, "sid", "clerk@booknook.test", "S3cret!pw")
	require.NoError(t, err)
	assert.True(t, u.CanFulfill())
	assert.False(t, u.IsAdmin())
	assert.Equal(t, services.SubjectStaffWelcome, f.mail.Messages()[0].Subject)
}

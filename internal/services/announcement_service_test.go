package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknook/internal/domain"
	"booknook/internal/services"
)

func TestTimedAnnouncementRequiresFutureExpiry(t *testing.T) {
	f := newFixture(t)
	svc := f.announcements()

	_, err := svc.CreateTimed(f.ctx, services.AnnouncementInput{Message: "Stale", ExpiresAt: f.now})
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateTimed(f.ctx, services.AnnouncementInput{
		Message: "Backwards", Start: f.now.Add(2 * time.Hour), ExpiresAt: f.now.Add(time.Hour),
	})
	requireCode(t, err, domain.ErrValidationFailed)
	_, err = svc.CreateTimed(f.ctx, services.AnnouncementInput{Message: "  ", ExpiresAt: f.now.Add(time.Hour)})
	requireCode(t, err, domain.ErrValidationFailed)
	assert.Empty(t, f.pub.all())
}

func TestTimedAnnouncementIsStoredAndPushed(t *testing.T) {
	f := newFixture(t)
	svc := f.announcements()
	exp := f.now.Add(time.Hour)

	a, err := svc.CreateTimed(f.ctx, services.AnnouncementInput{Title: "Sale", Message: "<i>Half</i> off", ExpiresAt: exp})
	require.NoError(t, err)
	assert.Equal(t, "Half off", a.Message)
	assert.True(t, a.StartDate.Equal(f.now), "zero start means now")

	pushed := f.pub.of(services.EventTimedAnnouncement)
	require.Len(t, pushed, 1)
	assert.Equal(t, services.AnnouncementPayload{Title: "Sale", Message: "Half off", ExpiresAt: domain.FormatTime(exp)}, pushed[0])

	active, err := svc.Active(f.ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)

	f.now = exp.Add(time.Second)
	active, err = svc.Active(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAnnouncementUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	svc := f.announcements()
	a, err := svc.CreateTimed(f.ctx, services.AnnouncementInput{Message: "Old", ExpiresAt: f.now.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, svc.Update(f.ctx, a.ID, services.AnnouncementInput{Message: "New", ExpiresAt: f.now.Add(2 * time.Hour)}))
	got, err := svc.Get(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Message)

	require.NoError(t, svc.Delete(f.ctx, a.ID))
	requireCode(t, svc.Delete(f.ctx, a.ID), domain.ErrNotFound)
	_, err = svc.Get(f.ctx, a.ID)
	requireCode(t, err, domain.ErrNotFound)
}

func TestBroadcastStoresNothing(t *testing.T) {
	f := newFixture(t)
	svc := f.announcements()

	require.NoError(t, svc.Broadcast("Closing early today"))
	requireCode(t, svc.Broadcast("<b></b>"), domain.ErrValidationFailed)

	assert.Equal(t, []any{services.AnnouncementPayload{Message: "Closing early today"}}, f.pub.of(services.EventAnnouncement))
	stored, err := svc.Unexpired(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

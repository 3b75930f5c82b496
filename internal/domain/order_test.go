package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderKeyRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 10, 12, 30, 5, 123456000, time.FixedZone("EST", -5*3600))
	k := OrderKey{UserID: "9b2f0c1e-0000-4000-8000-000000000001", BookID: 42, OrderDate: at}

	got, err := ParseOrderKey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k.UserID, got.UserID)
	assert.Equal(t, k.BookID, got.BookID)
	assert.True(t, at.Equal(got.OrderDate))
	assert.Equal(t, time.UTC, got.OrderDate.Location())
}

func TestParseOrderKeyRejectsMalformed(t *testing.T) {
	for _, s := range []string{
		"",
		"user|1",
		"|1|2026-03-10T12:00:00.000000Z",
		"user|0|2026-03-10T12:00:00.000000Z",
		"user|abc|2026-03-10T12:00:00.000000Z",
		"user|1|yesterday",
		"user|1|2026-03-10T12:00:00.000000Z|extra",
	} {
		_, err := ParseOrderKey(s)
		assert.Error(t, err, "%q", s)
	}
}

func TestFormatTimeSortsLexically(t *testing.T) {
	a := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	b := a.Add(time.Microsecond)
	assert.Less(t, FormatTime(a), FormatTime(b))
	assert.Len(t, FormatTime(a), len(FormatTime(b)))
}

func TestOrderStates(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	placed := Order{Status: StatusPlaced, OrderDate: now.Add(-time.Hour)}

	assert.True(t, placed.IsPending())
	assert.True(t, placed.IsCancellable(now, 24*time.Hour))
	assert.False(t, placed.IsCancellable(now, 30*time.Minute), "outside the window")
	assert.False(t, placed.IsDeletable())

	cancelled := placed
	cancelled.IsCancelled = true
	assert.False(t, cancelled.IsPending())
	assert.False(t, cancelled.IsCancellable(now, 24*time.Hour))
	assert.True(t, cancelled.IsDeletable())
	assert.True(t, cancelled.IsTerminal())

	received := placed
	received.Status = StatusReceived
	received.IsFulfilled = true
	assert.False(t, received.IsCancellable(now, 24*time.Hour))
	assert.True(t, received.IsDeletable())
	assert.False(t, received.IsPending())
}

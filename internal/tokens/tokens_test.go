package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss := NewIssuer("0123456789abcdef0123456789abcdef")
	tok, err := iss.Issue(PurposeConfirmEmail, "user-1", "", time.Hour)
	require.NoError(t, err)

	c, err := iss.Verify(tok, PurposeConfirmEmail)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
}

func TestVerifyRejectsWrongPurpose(t *testing.T) {
	iss := NewIssuer("0123456789abcdef0123456789abcdef")
	tok, err := iss.Issue(PurposeConfirmEmail, "user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = iss.Verify(tok, PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsExpired(t *testing.T) {
	iss := NewIssuer("0123456789abcdef0123456789abcdef")
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return issued }
	tok, err := iss.Issue(PurposeResetPassword, "user-1", "fp", time.Hour)
	require.NoError(t, err)

	iss.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = iss.Verify(tok, PurposeResetPassword)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := NewIssuer("0123456789abcdef0123456789abcdef")
	b := NewIssuer("fedcba9876543210fedcba9876543210")
	tok, err := a.Issue(PurposeConfirmEmail, "user-1", "", time.Hour)
	require.NoError(t, err)

	_, err = b.Verify(tok, PurposeConfirmEmail)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestFingerprintTracksHash(t *testing.T) {
	assert.Equal(t, Fingerprint("h1"), Fingerprint("h1"))
	assert.NotEqual(t, Fingerprint("h1"), Fingerprint("h2"))
	assert.Len(t, Fingerprint("h1"), 16)
}

package auth

import (
	"context"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niyamr/niyamr-backend/internal/model"
)

func seedUser(store *fakeStore) *model.User {
	u := &model.User{ID: "u-1", Name: "Alice", Email: "a@x.com"}
	store.byID[u.ID] = u
	return u
}

func TestGenerateCode_SixDigitsInRange(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 500; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.True(t, digits.MatchString(code), "code %q is not 6 ASCII digits", code)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestIssue_SetsChallengeWithExpiry(t *testing.T) {
	store := newFakeStore()
	u := seedUser(store)
	o := NewOTPChallenge(store)

	code, err := o.Issue(context.Background(), u)
	require.NoError(t, err)

	require.True(t, u.HasPendingOTP())
	assert.Equal(t, code, *u.OTPCode)
	remaining := time.Until(*u.OTPExpiresAt)
	assert.Greater(t, remaining, 9*time.Minute)
	assert.LessOrEqual(t, remaining, 10*time.Minute)
}

func TestIssue_OverwritesPreviousChallenge(t *testing.T) {
	store := newFakeStore()
	u := seedUser(store)
	o := NewOTPChallenge(store)

	first, err := o.Issue(context.Background(), u)
	require.NoError(t, err)
	second, err := o.Issue(context.Background(), u)
	require.NoError(t, err)

	stored := store.byID[u.ID]
	require.True(t, stored.HasPendingOTP())
	assert.Equal(t, second, *stored.OTPCode)
	if first != second {
		_, err := o.Verify(context.Background(), u.Email, first)
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}
}

func TestVerify_SuccessClearsAndVerifies(t *testing.T) {
	store := newFakeStore()
	u := seedUser(store)
	o := NewOTPChallenge(store)

	code, err := o.Issue(context.Background(), u)
	require.NoError(t, err)

	got, err := o.Verify(context.Background(), "a@x.com", code)
	require.NoError(t, err)

	assert.True(t, got.IsVerified)
	assert.False(t, got.HasPendingOTP())
	stored := store.byID[u.ID]
	assert.True(t, stored.IsVerified)
	assert.Nil(t, stored.OTPCode)
	assert.Nil(t, stored.OTPExpiresAt)
}

func TestVerify_WrongCodeLeavesChallenge(t *testing.T) {
	store := newFakeStore()
	u := seedUser(store)
	o := NewOTPChallenge(store)

	code, err := o.Issue(context.Background(), u)
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, err = o.Verify(context.Background(), "a@x.com", wrong)
	assert.ErrorIs(t, err, ErrOTPInvalid)

	// Partial match is still a mismatch.
	_, err = o.Verify(context.Background(), "a@x.com", code[:5])
	assert.ErrorIs(t, err, ErrOTPInvalid)

	// Challenge survives, so a retry with the right code succeeds.
	stored := store.byID[u.ID]
	require.True(t, stored.HasPendingOTP())
	assert.False(t, stored.IsVerified)
	_, err = o.Verify(context.Background(), "a@x.com", code)
	assert.NoError(t, err)
}

func TestVerify_ExpiredCode(t *testing.T) {
	store := newFakeStore()
	u := seedUser(store)
	o := NewOTPChallenge(store)

	code, err := o.Issue(context.Background(), u)
	require.NoError(t, err)

	past := time.Now().Add(-time.Second)
	store.byID[u.ID].OTPExpiresAt = &past

	_, err = o.Verify(context.Background(), "a@x.com", code)
	assert.ErrorIs(t, err, ErrOTPInvalid)
	assert.False(t, store.byID[u.ID].IsVerified)
}

func TestVerify_UnknownEmailAndNoChallenge(t *testing.T) {
	store := newFakeStore()
	seedUser(store)
	o := NewOTPChallenge(store)

	_, err := o.Verify(context.Background(), "ghost@x.com", "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)

	// Known account, but nothing pending.
	_, err = o.Verify(context.Background(), "a@x.com", "123456")
	assert.ErrorIs(t, err, ErrOTPInvalid)
}

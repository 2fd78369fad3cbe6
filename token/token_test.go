package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestPasetoMakerRoundTrip(t *testing.T) {
	maker, err := NewPasetoMaker(testKey)
	require.NoError(t, err)

	tok, err := maker.CreateToken("ops@example.com", "operator", time.Minute)
	require.NoError(t, err)

	payload, err := maker.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", payload.Email)
	assert.True(t, payload.HasRole("admin", "operator"))
	assert.False(t, payload.HasRole("admin"))
	assert.WithinDuration(t, payload.IssuedAt.Add(time.Minute), payload.ExpiredAt, time.Second)
}

func TestPasetoMakerAcceptsRetiredKeys(t *testing.T) {
	retired := strings.Repeat("r", 32)
	old, err := NewPasetoMaker(retired)
	require.NoError(t, err)
	tok, err := old.CreateToken("ops@example.com", "viewer", time.Minute)
	require.NoError(t, err)

	rotated, err := NewPasetoMaker(testKey, retired)
	require.NoError(t, err)
	payload, err := rotated.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "viewer", payload.Role)

	current, err := NewPasetoMaker(testKey)
	require.NoError(t, err)
	_, err = current.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestPasetoMakerRejectsExpiredAndMalformedTokens(t *testing.T) {
	maker, err := NewPasetoMaker(testKey)
	require.NoError(t, err)

	payload, err := NewPayload("ops@example.com", "operator", time.Minute)
	require.NoError(t, err)
	payload.ExpiredAt = time.Now().Add(-time.Minute)
	assert.ErrorIs(t, payload.Valid(), ErrExpired)

	_, err = maker.VerifyToken("not-a-token")
	assert.Error(t, err)

	_, err = NewPasetoMaker("short")
	assert.Error(t, err)
	_, err = NewPasetoMaker(testKey, "short")
	assert.Error(t, err)
}

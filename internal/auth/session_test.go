// internal/auth/session_test.go
package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	s, err := NewSessions(0)
	require.NoError(t, err)

	id := uuid.New()
	token, err := s.Issue(id)
	require.NoError(t, err)

	got, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s, err := NewSessions(0)
	require.NoError(t, err)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	s1, err := NewSessions(0)
	require.NoError(t, err)
	s2, err := NewSessions(0)
	require.NoError(t, err)

	token, err := s1.Issue(uuid.New())
	require.NoError(t, err)

	_, err = s2.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	s, err := NewSessions(-time.Minute)
	require.NoError(t, err)

	token, err := s.Issue(uuid.New())
	require.NoError(t, err)

	_, err = s.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreateHash("hunter2", Params)
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestComparePasswordRejectsMalformedHash(t *testing.T) {
	_, err := ComparePasswordAndHash("x", "$bogus$")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

package server

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token, err := s.issueToken("user-1", "alice")
	require.NoError(t, err)

	userID, err := s.validateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	s := newTestServer(t)
	other := newTestServer(t)
	other.config.AuthSecret = "different"

	token, err := s.issueToken("user-1", "alice")
	require.NoError(t, err)

	_, err = other.validateToken(token)
	assert.Error(t, err)
}

func TestTokenExpiryEnforced(t *testing.T) {
	s := newTestServer(t)
	s.config.TokenDuration = -time.Minute

	token, err := s.issueToken("user-1", "alice")
	require.NoError(t, err)

	_, err = s.validateToken(token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	s := newTestServer(t)
	_, err := s.validateToken("not.a.token")
	assert.Error(t, err)
}

func TestAuthFromHeaderAndQuery(t *testing.T) {
	s := newTestServer(t)
	token, err := s.issueToken("user-1", "alice")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	userID, err := s.auth(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	r = httptest.NewRequest("GET", "/ws?token="+token, nil)
	userID, err = s.auth(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	r = httptest.NewRequest("GET", "/ws", nil)
	_, err = s.auth(r)
	assert.Error(t, err)
}

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cartservice/internal/domain"
	"cartservice/internal/store"
)

const (
	testSecret = "test-secret"
	testIssuer = "cart-service-test"
)

func newTestAuth(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.SaveUser(&domain.User{ID: 7, Username: "alice", Password: string(hash)}))

	return NewService(st, testSecret, testIssuer, time.Hour), st
}

func TestAuthenticateIssuesParsableToken(t *testing.T) {
	svc, _ := newTestAuth(t)

	token, err := svc.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.Authenticate("mallory", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseUserIDRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t)

	_, err := svc.ParseUserID("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsForeignSignature(t *testing.T) {
	svc, st := newTestAuth(t)

	other := NewService(st, "different-secret", testIssuer, time.Hour)
	token, err := other.Authenticate("alice", "hunter2")
	require.NoError(t, err)

	_, err = svc.ParseUserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsExpiredToken(t *testing.T) {
	svc, st := newTestAuth(t)

	shortLived := NewService(st, testSecret, testIssuer, -time.Minute)
	token, err := shortLived.Authenticate("alice", "hunter2")
	require.NoError(t, err)

	_, err = svc.ParseUserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

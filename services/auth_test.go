package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tombaby2015-max/family-photo-album-google/repository"
)

func TestAuth_PlainPassword(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(repository.NewSessionRepository(f.store), "secret", "", time.Hour)

	_, err := auth.Login(f.ctx, "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Login(f.ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, err := auth.Login(f.ctx, "secret")
	require.NoError(t, err)
	assert.True(t, auth.IsAdmin(f.ctx, token))
	assert.False(t, auth.IsAdmin(f.ctx, ""))
	assert.False(t, auth.IsAdmin(f.ctx, "made-up"))

	require.NoError(t, auth.Logout(f.ctx, token))
	assert.False(t, auth.IsAdmin(f.ctx, token))
}

func TestAuth_BcryptHashWins(t *testing.T) {
	f := newFixture(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService(repository.NewSessionRepository(f.store), "plain", string(hash), time.Hour)

	_, err = auth.Login(f.ctx, "plain")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = auth.Login(f.ctx, "hashed")
	assert.NoError(t, err)
}

func TestAuth_DisabledWithoutPassword(t *testing.T) {
	f := newFixture(t)
	auth := NewAuthService(repository.NewSessionRepository(f.store), "", "", time.Hour)
	_, err := auth.Login(f.ctx, "anything")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuth_SessionExpires(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	f.store.SetClock(func() time.Time { return now })
	auth := NewAuthService(repository.NewSessionRepository(f.store), "secret", "", 24*time.Hour)

	token, err := auth.Login(f.ctx, "secret")
	require.NoError(t, err)
	now = now.Add(23 * time.Hour)
	assert.True(t, auth.IsAdmin(f.ctx, token))
	now = now.Add(2 * time.Hour)
	assert.False(t, auth.IsAdmin(f.ctx, token))
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "s3cret42", "Alice Example")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Empty(t, user.PasswordHash, "hash must not leave the service")

	authed, err := svc.Authenticate(ctx, "alice", "s3cret42")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret42")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	cases := []struct {
		name     string
		username string
		password string
		display  string
	}{
		{"short username", "ab", "s3cret42", "Somebody"},
		{"short password", "alice", "12345", "Somebody"},
		{"short name", "alice", "s3cret42", "A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.password, tc.display)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret42", "Alice One")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other-secret", "Alice Two")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestListUsersSanitized(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "s3cret42", "Alice")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "s3cret42", "Bob")
	require.NoError(t, err)

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, user := range users {
		assert.Empty(t, user.PasswordHash)
	}
}

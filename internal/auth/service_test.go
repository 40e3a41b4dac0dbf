package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	byEmailFn func(email string) (User, string, error)
	createFn  func(u User, hash string) (User, error)
}

func (s stubRepo) ByEmail(_ context.Context, email string) (User, string, error) {
	return s.byEmailFn(email)
}

func (s stubRepo) Create(_ context.Context, u User, hash string) (User, error) {
	return s.createFn(u, hash)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		svc := NewService(stubRepo{
			byEmailFn: func(string) (User, string, error) { return User{}, "", ErrNotFound },
			createFn:  func(u User, _ string) (User, error) { return u, nil },
		})
		_, err := svc.Register(ctx, "bad", "", "longenough")
		require.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("weak password", func(t *testing.T) {
		svc := NewService(stubRepo{
			byEmailFn: func(string) (User, string, error) { return User{}, "", ErrNotFound },
			createFn:  func(u User, _ string) (User, error) { return u, nil },
		})
		_, err := svc.Register(ctx, "x@y.example", "", "short")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("already exists", func(t *testing.T) {
		svc := NewService(stubRepo{
			byEmailFn: func(email string) (User, string, error) {
				return User{Email: email}, "h", nil
			},
			createFn: func(u User, _ string) (User, error) { return u, nil },
		})
		_, err := svc.Register(ctx, "x@y.example", "", "longenough")
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("repo error on lookup", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewService(stubRepo{
			byEmailFn: func(string) (User, string, error) { return User{}, "", boom },
			createFn:  func(u User, _ string) (User, error) { return u, nil },
		})
		_, err := svc.Register(ctx, "x@y.example", "", "longenough")
		require.ErrorIs(t, err, boom)
	})

	t.Run("success normalizes and defaults display name", func(t *testing.T) {
		svc := NewService(stubRepo{
			byEmailFn: func(string) (User, string, error) { return User{}, "", ErrNotFound },
			createFn: func(u User, hash string) (User, error) {
				require.Equal(t, "ann@y.example", u.Email)
				require.Equal(t, "ann", u.DisplayName)
				require.True(t, verifyPassword(hash, "longenough"))
				return u, nil
			},
		})
		u, err := svc.Register(ctx, "  Ann@Y.example ", "  ", "longenough")
		require.NoError(t, err)
		require.NotEqual(t, "", u.ID.String())
	})

	t.Run("long display name is clipped", func(t *testing.T) {
		svc := NewService(stubRepo{
			byEmailFn: func(string) (User, string, error) { return User{}, "", ErrNotFound },
			createFn: func(u User, _ string) (User, error) {
				require.LessOrEqual(t, len(u.DisplayName), 80)
				return u, nil
			},
		})
		_, err := svc.Register(ctx, "x@y.example", strings.Repeat("n", 200), "longenough")
		require.NoError(t, err)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	hash := hashPassword("correct horse")

	svc := NewService(stubRepo{
		byEmailFn: func(email string) (User, string, error) {
			if email != "ann@y.example" {
				return User{}, "", ErrNotFound
			}
			return User{Email: email, DisplayName: "Ann"}, hash, nil
		},
		createFn: func(u User, _ string) (User, error) { return u, nil },
	})

	t.Run("success", func(t *testing.T) {
		u, err := svc.Login(ctx, " Ann@Y.example ", "correct horse")
		require.NoError(t, err)
		require.Equal(t, "Ann", u.DisplayName)
	})

	// Unknown user and wrong password are indistinguishable.
	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "ann@y.example", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@y.example", "correct horse")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestPasswordHash_SaltedPerCall(t *testing.T) {
	a := hashPassword("pw")
	b := hashPassword("pw")
	require.NotEqual(t, a, b)
	require.True(t, verifyPassword(a, "pw"))
	require.True(t, verifyPassword(b, "pw"))
	require.False(t, verifyPassword(a, "other"))
	require.False(t, verifyPassword("garbage", "pw"))
}

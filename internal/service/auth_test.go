package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/remo/internal/apperror"
	"github.com/sakif/remo/internal/auth"
)

// newTestAuthService wires an AuthService over the fake store with a cheap
// bcrypt cost and a real (test-secret) token service.
func newTestAuthService(t *testing.T, store *fakeStore) (*AuthService, *auth.PasswordService) {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", nil)
	require.NoError(t, err)
	ps := auth.NewPasswordServiceForTest(bcrypt.MinCost)
	return NewAuthService(store, ts, ps, discardLogger()), ps
}

// withPassword seeds a rep whose password is "correct horse".
func withPassword(t *testing.T, store *fakeStore, ps *auth.PasswordService, username string) string {
	t.Helper()
	u := store.addRep(username, username+"@example.com", "")
	hash, err := ps.Hash("correct horse")
	require.NoError(t, err)
	u.PasswordHash = hash
	return u.ID
}

// =========================================================================
// PASSWORD LOGIN
// =========================================================================

func TestLoginPassword_Success(t *testing.T) {
	store := newFakeStore()
	svc, ps := newTestAuthService(t, store)
	id := withPassword(t, store, ps, "zig")

	result, err := svc.LoginPassword(context.Background(), " zig ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, id, result.User.ID)
	require.NotEmpty(t, result.Token)

	// The token we issued validates back to the same user.
	subject, err := svc.ValidateToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, id, subject)
}

func TestLoginPassword_BadCredentialsLookAlike(t *testing.T) {
	store := newFakeStore()
	svc, ps := newTestAuthService(t, store)
	withPassword(t, store, ps, "zig")
	inactiveID := withPassword(t, store, ps, "gone")
	store.users[inactiveID].IsActive = false
	store.addRep("githubonly", "g@example.com", "")

	cases := map[string][2]string{
		"unknown user":       {"nobody", "correct horse"},
		"wrong password":     {"zig", "wrong"},
		"inactive account":   {"gone", "correct horse"},
		"no password stored": {"githubonly", "anything"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.LoginPassword(context.Background(), c[0], c[1])
			require.ErrorIs(t, err, apperror.ErrUnauthorized)
			assert.Equal(t, "invalid username or password", err.Error())
		})
	}
}

func TestLoginPassword_MissingFields(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	_, err := svc.LoginPassword(context.Background(), "", "x")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.LoginPassword(context.Background(), "zig", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// GITHUB LOGIN
// =========================================================================

func TestLoginGitHub_LinkedAccount(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	u := store.addRep("zig", "zig@example.com", "zig", "Rep")
	login := "zig-gh"
	u.GitHubLogin = &login

	result, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "zig-gh"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)
}

func TestLoginGitHub_UnknownAccountRefused(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)

	_, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "stranger"})
	require.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Empty(t, store.users, "no self sign-up")
}

func TestLoginGitHub_Errors(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	_, err := svc.LoginGitHub(context.Background(), nil)
	assert.Error(t, err)

	_, err = svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 1})
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	_, err := svc.ValidateToken("nope")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrUnauthorized), "token errors are plain errors; middleware decides")
}

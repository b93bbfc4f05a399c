package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	token   string
	deleted int
}

func (m *memStore) Load() (string, error) { return m.token, nil }
func (m *memStore) Save(token string) error {
	m.token = token
	return nil
}
func (m *memStore) Delete() error {
	m.token = ""
	m.deleted++
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("provider-secret"))
	require.NoError(t, err)
	return s
}

// callbackWith returns an OpenURL func that plays the hosted login page: it
// redirects to redirect_uri with the given query.
func callbackWith(t *testing.T, opened *string, build func(state string) url.Values) func(string) error {
	return func(raw string) error {
		*opened = raw
		u, err := url.Parse(raw)
		require.NoError(t, err)
		redirect := u.Query().Get("redirect_uri")
		q := build(u.Query().Get("state"))
		go func() {
			resp, err := http.Get(redirect + "?" + q.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func newTestAuth(store TokenStore) *Authenticator {
	return NewAuthenticator(AuthConfig{
		BaseURL:   "https://staging.example.test",
		LoginPath: "/sdk/auth/login",
		APIKey:    "ck_staging_abc",
		ChainID:   "base-sepolia",
		Origin:    "http://127.0.0.1:0",
	}, store, zerolog.Nop())
}

func TestLoginStoresToken(t *testing.T) {
	store := &memStore{}
	a := newTestAuth(store)
	token := signedToken(t, time.Now().Add(time.Hour))
	var opened string
	a.OpenURL = callbackWith(t, &opened, func(state string) url.Values {
		return url.Values{"state": {state}, "token": {token}}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Login(ctx))
	require.Equal(t, StatusLoggedIn, a.Status())
	require.Equal(t, token, a.Token())
	require.Equal(t, token, store.token)

	u, err := url.Parse(opened)
	require.NoError(t, err)
	require.Equal(t, "/sdk/auth/login", u.Path)
	require.Equal(t, "ck_staging_abc", u.Query().Get("apiKey"))
	require.Equal(t, "base-sepolia", u.Query().Get("chain"))
}

func TestLoginRejectsBadState(t *testing.T) {
	a := newTestAuth(nil)
	var opened string
	a.OpenURL = callbackWith(t, &opened, func(string) url.Values {
		return url.Values{"state": {"forged"}, "token": {"x"}}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorIs(t, a.Login(ctx), ErrStateMismatch)
	require.Equal(t, StatusLoggedOut, a.Status())
	require.Empty(t, a.Token())
}

func TestLoginDeclinedAndExpired(t *testing.T) {
	a := newTestAuth(nil)
	var opened string
	a.OpenURL = callbackWith(t, &opened, func(state string) url.Values {
		return url.Values{"state": {state}, "error": {"access_denied"}}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.ErrorIs(t, a.Login(ctx), ErrLoginDeclined)

	expired := signedToken(t, time.Now().Add(-time.Minute))
	a.OpenURL = callbackWith(t, &opened, func(state string) url.Values {
		return url.Values{"state": {state}, "token": {expired}}
	})
	require.ErrorIs(t, a.Login(ctx), ErrTokenExpired)
}

func TestLoginBrowserFailureAndContext(t *testing.T) {
	a := newTestAuth(nil)
	a.OpenURL = func(string) error { return errors.New("no browser") }
	require.Error(t, a.Login(context.Background()))
	require.Equal(t, StatusLoggedOut, a.Status())

	a.OpenURL = func(string) error { return nil }
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, a.Login(ctx), context.DeadlineExceeded)
}

func TestLoginBadOrigin(t *testing.T) {
	a := newTestAuth(nil)
	a.cfg.Origin = "not a url"
	require.ErrorIs(t, a.Login(context.Background()), ErrOriginUnavailable)
}

func TestRestoreAndLogout(t *testing.T) {
	store := &memStore{token: signedToken(t, time.Now().Add(time.Hour))}
	a := newTestAuth(store)
	revoked := 0
	a.Revoke = func(context.Context) error {
		revoked++
		return nil
	}
	require.Equal(t, StatusLoggedIn, a.Restore())

	require.NoError(t, a.Logout(context.Background()))
	require.Equal(t, 1, revoked)
	require.Equal(t, StatusLoggedOut, a.Status())
	require.Empty(t, store.token)

	store.token = signedToken(t, time.Now().Add(-time.Hour))
	require.Equal(t, StatusLoggedOut, a.Restore())
	require.Equal(t, 2, store.deleted)
}

package provider

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// CallbackPath is where the hosted login page redirects back to.
const CallbackPath = "/callback"

var (
	ErrLoginInProgress   = errors.New("provider: login already in progress")
	ErrOriginUnavailable = errors.New("provider: cannot listen on origin")
	ErrStateMismatch     = errors.New("provider: callback state mismatch")
	ErrLoginDeclined     = errors.New("provider: login declined")
	ErrTokenExpired      = errors.New("provider: session token expired")
)

// TokenStore persists the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Delete() error
}

// AuthConfig describes the hosted login page and where it returns to.
type AuthConfig struct {
	BaseURL   string
	LoginPath string
	APIKey    string
	ChainID   string
	// Origin is scheme://host:port of the loopback callback server. The
	// provider must have it allow-listed for the API key.
	Origin string
}

// Authenticator runs the browser login and holds the resulting session token.
type Authenticator struct {
	cfg    AuthConfig
	store  TokenStore
	logger zerolog.Logger

	// OpenURL shows url in the user's browser.
	OpenURL func(url string) error
	// Revoke invalidates the session provider-side on logout; optional.
	Revoke func(ctx context.Context) error
	Now    func() time.Time

	mu     sync.Mutex
	status Status
	token  string
}

// NewAuthenticator returns an Authenticator that opens the system browser.
func NewAuthenticator(cfg AuthConfig, store TokenStore, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		OpenURL: browser.OpenURL,
		Now:     time.Now,
		status:  StatusLoggedOut,
	}
}

// Status reports the provider-side session state.
func (a *Authenticator) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Token returns the session token, "" unless logged in.
func (a *Authenticator) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status != StatusLoggedIn {
		return ""
	}
	return a.token
}

// Restore loads a stored, unexpired token. It returns the resulting status.
func (a *Authenticator) Restore() Status {
	if a.store == nil {
		return a.Status()
	}
	token, err := a.store.Load()
	if err != nil || token == "" {
		return a.Status()
	}
	if _, err := a.checkToken(token); err != nil {
		a.logger.Info().Err(err).Msg("discarding stored session token")
		_ = a.store.Delete()
		return a.Status()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token, a.status = token, StatusLoggedIn
	return a.status
}

// Login opens the hosted login page and waits for its callback.
func (a *Authenticator) Login(ctx context.Context) error {
	a.mu.Lock()
	if a.status == StatusInProgress {
		a.mu.Unlock()
		return ErrLoginInProgress
	}
	a.status = StatusInProgress
	a.mu.Unlock()

	token, err := a.runLogin(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status = StatusLoggedOut
		return err
	}
	a.token, a.status = token, StatusLoggedIn
	if a.store != nil {
		if err := a.store.Save(token); err != nil {
			a.logger.Warn().Err(err).Msg("session token not persisted")
		}
	}
	return nil
}

type callbackResult struct {
	token string
	err   error
}

func (a *Authenticator) runLogin(ctx context.Context) (string, error) {
	origin, err := url.Parse(a.cfg.Origin)
	if err != nil || origin.Host == "" {
		return "", fmt.Errorf("%w: bad origin %q", ErrOriginUnavailable, a.cfg.Origin)
	}
	ln, err := net.Listen("tcp", origin.Host)
	if err != nil {
		return "", fmt.Errorf("%w %s: %v", ErrOriginUnavailable, origin.Host, err)
	}
	redirect := url.URL{Scheme: origin.Scheme, Host: ln.Addr().String(), Path: CallbackPath}

	state := uuid.NewString()
	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: a.callbackRouter(state, results), ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := a.OpenURL(a.loginURL(redirect.String(), state)); err != nil {
		return "", fmt.Errorf("open login page: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-results:
		if res.err != nil {
			return "", res.err
		}
		if _, err := a.checkToken(res.token); err != nil {
			return "", err
		}
		return res.token, nil
	}
}

func (a *Authenticator) loginURL(redirect, state string) string {
	q := url.Values{
		"apiKey":       {a.cfg.APIKey},
		"redirect_uri": {redirect},
		"state":        {state},
	}
	if a.cfg.ChainID != "" {
		q.Set("chain", a.cfg.ChainID)
	}
	return strings.TrimRight(a.cfg.BaseURL, "/") + a.cfg.LoginPath + "?" + q.Encode()
}

func (a *Authenticator) callbackRouter(state string, results chan<- callbackResult) http.Handler {
	var once sync.Once
	deliver := func(res callbackResult) {
		once.Do(func() { results <- res })
	}

	r := mux.NewRouter()
	r.HandleFunc(CallbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = ErrStateMismatch
		case q.Get("error") != "":
			res.err = fmt.Errorf("%w: %s", ErrLoginDeclined, q.Get("error"))
		case q.Get("token") == "":
			res.err = fmt.Errorf("%w: no token in callback", ErrLoginDeclined)
		default:
			res.token = q.Get("token")
		}
		deliver(res)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, "<p>Sign-in failed: %s</p>", html.EscapeString(res.err.Error()))
			return
		}
		fmt.Fprint(w, "<p>Signed in. You can close this window and return to the terminal.</p>")
	}).Methods(http.MethodGet)
	return r
}

// checkToken reads the session token's claims. The signature is checked by
// the provider on every API call; here only expiry is enforced.
func (a *Authenticator) checkToken(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(a.Now()) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

// Logout drops the session locally and asks the provider to revoke it.
func (a *Authenticator) Logout(ctx context.Context) error {
	var revokeErr error
	if a.Revoke != nil && a.Token() != "" {
		revokeErr = a.Revoke(ctx)
	}

	a.mu.Lock()
	a.token, a.status = "", StatusLoggedOut
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Delete(); err != nil {
			return fmt.Errorf("delete session token: %w", err)
		}
	}
	if revokeErr != nil {
		return fmt.Errorf("revoke session: %w", revokeErr)
	}
	return nil
}

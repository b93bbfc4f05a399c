// Package session owns the sign-in lifecycle: it probes for a usable browser
// window, drives the provider login, and classifies failures.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jask/credawallet/internal/logging"
	"github.com/jask/credawallet/internal/popup"
	"github.com/jask/credawallet/internal/provider"
)

// Status is the app-side view of the session. It refines provider.Status
// with an error state the provider cannot express.
type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusError           Status = "error"
)

// ErrorKind classifies a StatusError session. It is empty for every other
// status.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorPopupBlocked    ErrorKind = "popup-blocked"
	ErrorProviderFailure ErrorKind = "provider-failure"
)

// Session is a snapshot of the controller state.
type Session struct {
	Status    Status
	ErrorKind ErrorKind
	// Origin is the callback origin the provider must allow-list.
	Origin string
}

var (
	ErrLoginInProgress = errors.New("session: login already in progress")
	// ErrLoginSuperseded is returned when the session was signed out while the
	// login was in flight. The late result is dropped.
	ErrLoginSuperseded = errors.New("session: login result discarded")
)

// AuthProvider is the external login collaborator.
type AuthProvider interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Status() provider.Status
}

// Restorer is implemented by providers that can resume a stored session.
type Restorer interface {
	Restore() provider.Status
}

// Prober reports whether a login window can be opened.
type Prober interface {
	Probe() popup.Result
}

// Config is the environment the controller reports in its logs and
// remediation text.
type Config struct {
	Origin     string
	APIKey     string
	ChainID    string
	ConsoleURL string
}

// MapProviderStatus maps the provider's vocabulary onto Status. The provider
// is the source of truth for success; it never yields StatusError.
func MapProviderStatus(s provider.Status) Status {
	switch s {
	case provider.StatusInProgress:
		return StatusAuthenticating
	case provider.StatusLoggedIn:
		return StatusAuthenticated
	default:
		return StatusUnauthenticated
	}
}

// Controller serializes session transitions. All methods are safe for
// concurrent use.
type Controller struct {
	cfg   Config
	auth  AuthProvider
	probe Prober
	log   zerolog.Logger

	mu      sync.Mutex
	session Session
	attempt uint64
	hooks   []func()
}

// New returns a controller in the unauthenticated state.
func New(cfg Config, auth AuthProvider, probe Prober, logger zerolog.Logger) *Controller {
	return &Controller{
		cfg:   cfg,
		auth:  auth,
		probe: probe,
		log: logger.With().
			Str("component", "session").
			Str("origin", cfg.Origin).
			Str("api_key", logging.Redact(cfg.APIKey)).
			Str("chain", cfg.ChainID).
			Logger(),
		session: Session{Status: StatusUnauthenticated, Origin: cfg.Origin},
	}
}

// OnSignOut registers fn to run on every SignOut, before the provider session
// is invalidated.
func (c *Controller) OnSignOut(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// CurrentStatus returns a snapshot of the session.
func (c *Controller) CurrentStatus() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// BeginLogin probes for a login window and, unless it is blocked, runs the
// provider login. Only one login runs at a time: a call made while another is
// authenticating returns ErrLoginInProgress without side effects.
//
// Failures are reported in the returned Session, not as errors.
func (c *Controller) BeginLogin(ctx context.Context) (Session, error) {
	c.mu.Lock()
	if c.session.Status == StatusAuthenticating {
		s := c.session
		c.mu.Unlock()
		return s, ErrLoginInProgress
	}
	c.attempt++
	attempt := c.attempt
	c.setLocked(StatusAuthenticating, ErrorNone, nil)
	c.mu.Unlock()

	// The probe and the real login run back to back in this call.
	res := c.runProbe()
	if res.Blocked {
		c.mu.Lock()
		defer c.mu.Unlock()
		if attempt != c.attempt {
			return c.session, ErrLoginSuperseded
		}
		c.setLocked(StatusError, ErrorPopupBlocked, errors.New(res.Reason))
		return c.session, nil
	}

	err := c.login(ctx)

	c.mu.Lock()
	if attempt != c.attempt {
		s := c.session
		c.mu.Unlock()
		c.log.Info().Uint64("attempt", attempt).Msg("stale login result dropped")
		if err == nil {
			c.invalidate(ctx)
		}
		return s, ErrLoginSuperseded
	}
	defer c.mu.Unlock()
	if err != nil {
		c.setLocked(StatusError, ErrorProviderFailure, err)
		return c.session, nil
	}
	if st := c.auth.Status(); MapProviderStatus(st) != StatusAuthenticated {
		c.setLocked(StatusError, ErrorProviderFailure, fmt.Errorf("provider reported %q after login", st))
		return c.session, nil
	}
	c.setLocked(StatusAuthenticated, ErrorNone, nil)
	return c.session, nil
}

// SignOut resets the session, runs the sign-out hooks, and invalidates the
// provider session. A login still in flight is not aborted, but its result is
// dropped.
func (c *Controller) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.attempt++
	c.setLocked(StatusUnauthenticated, ErrorNone, nil)
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return c.invalidate(ctx)
}

// Restore adopts the provider's current session on startup, so a stored
// session resumes without a new login window.
func (c *Controller) Restore() Session {
	var st provider.Status
	if r, ok := c.auth.(Restorer); ok {
		st = r.Restore()
	} else {
		st = c.auth.Status()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Status != StatusUnauthenticated {
		return c.session
	}
	if mapped := MapProviderStatus(st); mapped == StatusAuthenticated {
		c.setLocked(mapped, ErrorNone, nil)
	}
	return c.session
}

func (c *Controller) runProbe() popup.Result {
	if c.probe == nil {
		return popup.Result{}
	}
	return c.probe.Probe()
}

func (c *Controller) login(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider login panicked: %v", r)
		}
	}()
	return c.auth.Login(ctx)
}

func (c *Controller) invalidate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider logout panicked: %v", r)
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("provider session not invalidated")
		}
	}()
	return c.auth.Logout(ctx)
}

// setLocked applies a transition and logs it. cause is logged, never shown.
func (c *Controller) setLocked(status Status, kind ErrorKind, cause error) {
	prev := c.session.Status
	c.session.Status = status
	c.session.ErrorKind = kind

	ev := c.log.Info()
	if status == StatusError {
		ev = c.log.Warn().Err(cause)
	}
	ev.Str("from", string(prev)).
		Str("status", string(status)).
		Str("error_kind", string(kind)).
		Msg("session transition")
}

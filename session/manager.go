// Package session ties the credential store, the claims reader and the
// renewal coordinator into the session a screen or handler works with.
//
// A Manager holds what every session shares: the remote API, the renewal
// coordinator and the logout notify dedupe. A Session binds a Manager to one
// credential store and one navigator. The CLI keeps a single Session for the
// whole process; the web server builds one per request over the request's
// cookies, all sharing the same Manager.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/jrsteele09/storefront-console/session/renewal"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// RootPath is where a logout navigates to.
const RootPath = "/"

// DefaultNotifyWait bounds how long a logout waits for the remote notify
// before clearing local state.
const DefaultNotifyWait = 2 * time.Second

// Authenticator exchanges user credentials for a token pair.
type Authenticator interface {
	Login(ctx context.Context, username, password string, rememberMe bool) (credentials.Tokens, error)
}

// LogoutNotifier tells the API an access token should be invalidated.
type LogoutNotifier interface {
	NotifyLogout(ctx context.Context, accessToken string) error
}

// API is the remote collaborator a Manager needs.
type API interface {
	renewal.Validator
	Authenticator
	LogoutNotifier
}

// Navigator performs a hard navigation: all state tied to the old session
// is discarded.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

// Indicator is shown while a logout waits on the remote notify.
type Indicator interface {
	Show()
	Hide()
}

type Manager struct {
	api         API
	coordinator *renewal.Coordinator
	base        http.RoundTripper
	notifyWait  time.Duration
	notifies    singleflight.Group
}

// Option configures a Manager
type Option func(*Manager)

// WithBaseTransport sets the transport authenticated requests are sent on.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(m *Manager) {
		if rt != nil {
			m.base = rt
		}
	}
}

// WithNotifyWait bounds the wait for the remote logout notify.
func WithNotifyWait(d time.Duration) Option {
	return func(m *Manager) {
		m.notifyWait = d
	}
}

// WithCoordinator replaces the default renewal coordinator.
func WithCoordinator(c *renewal.Coordinator) Option {
	return func(m *Manager) {
		m.coordinator = c
	}
}

func NewManager(api API, opts ...Option) *Manager {
	m := &Manager{
		api:        api,
		base:       http.DefaultTransport,
		notifyWait: DefaultNotifyWait,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.coordinator == nil {
		m.coordinator = renewal.New(api)
	}
	return m
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithIndicator shows i while a logout waits on the remote notify.
func WithIndicator(i Indicator) SessionOption {
	return func(s *Session) {
		s.indicator = i
	}
}

// Session binds the manager to store. nav may be nil.
func (m *Manager) Session(store credentials.Store, nav Navigator, opts ...SessionOption) *Session {
	if nav == nil {
		nav = NavigatorFunc(func(string) {})
	}
	s := &Session{
		m:     m,
		store: store,
		nav:   nav,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// notify runs the remote logout notify, waiting at most notifyWait for it.
// Concurrent notifies for the same token share one call. Failures are logged
// and never returned.
func (m *Manager) notify(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}

	detached := context.WithoutCancel(ctx)
	done := m.notifies.DoChan(accessToken, func() (interface{}, error) {
		err := m.api.NotifyLogout(detached, accessToken)
		if err != nil {
			log.Warn().Err(err).Msg("logout notify failed")
		}
		return nil, err
	})

	timer := time.NewTimer(m.notifyWait)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		log.Warn().Dur("waited", m.notifyWait).Msg("logout notify still pending, signing out locally")
	case <-ctx.Done():
	}
}

package session

import (
	"context"
	"sync"

	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/jrsteele09/storefront-console/internal/metrics"
	"github.com/jrsteele09/storefront-console/session/claims"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Logout reasons
const (
	ReasonUser    = "user"
	ReasonMissing = "session_missing"
	ReasonInvalid = "session_invalid"
)

type Session struct {
	m         *Manager
	store     credentials.Store
	nav       Navigator
	indicator Indicator
	navMu     sync.Mutex

	// writeMu orders the renewal write against the logout clear.
	writeMu sync.Mutex
	// rejections runs one logout per rejected refresh token.
	rejections singleflight.Group
}

// Store returns the credential store this session is bound to.
func (s *Session) Store() credentials.Store {
	return s.store
}

// Authenticated returns true if both tokens are present. It says nothing
// about whether the API still accepts them.
func (s *Session) Authenticated() bool {
	return s.store.Read().Complete()
}

// Claims decodes the stored access token.
func (s *Session) Claims() (claims.Claims, bool) {
	return claims.Decode(s.store.Read().Access)
}

// Summary returns the display summary of the current session.
func (s *Session) Summary() (claims.Summary, bool) {
	c, ok := s.Claims()
	if !ok {
		return claims.Summary{}, false
	}
	return c.Summary(), true
}

// Login exchanges credentials for a token pair, stores it with the requested
// retention and returns the claims of the new access token.
func (s *Session) Login(ctx context.Context, username, password string, rememberMe bool) (claims.Claims, error) {
	tokens, err := s.m.api.Login(ctx, username, password, rememberMe)
	if err != nil {
		return claims.Anonymous, errs.Wrapf(err, "[Session Login]")
	}

	s.store.WriteAll(tokens.Access, tokens.Refresh, rememberMe)

	c, _ := claims.Decode(tokens.Access)
	log.Info().Str("role", string(c.Role)).Bool("remember_me", rememberMe).Msg("signed in")
	return c, nil
}

// EnsureValidAccessToken returns an access token the API should accept,
// renewing it first when the API says so.
//
// A missing or rejected session runs the logout cascade before the error is
// returned (ErrSessionMissing, ErrSessionInvalid). Transport failures
// (ErrRenewalTransport) leave the stored tokens alone so the caller can retry.
func (s *Session) EnsureValidAccessToken(ctx context.Context) (string, error) {
	tokens := s.store.Read()
	if !tokens.Complete() {
		s.logout(ctx, ReasonMissing)
		return "", errs.ErrSessionMissing
	}

	out, err := s.m.coordinator.Renew(ctx, tokens)
	if err != nil {
		if errs.Is(err, errs.ErrSessionInvalid) {
			s.rejected(ctx, tokens)
		}
		return "", err
	}

	if out.Renewed {
		s.writeRenewed(tokens, out.AccessToken)
	}
	return out.AccessToken, nil
}

// writeRenewed replaces the token we renewed from. A store that was cleared
// or already advanced in the meantime is left alone.
func (s *Session) writeRenewed(from credentials.Tokens, access string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if current := s.store.Read(); current.Access == from.Access && current.Refresh == from.Refresh {
		s.store.WriteAccess(access)
	}
}

// rejected signs out once for every caller that saw the API reject the pair.
// Callers arriving after the store moved on (cleared or signed in again) do
// nothing.
func (s *Session) rejected(ctx context.Context, tokens credentials.Tokens) {
	_, _, _ = s.rejections.Do(tokens.Refresh, func() (interface{}, error) {
		if s.store.Read().Refresh != tokens.Refresh {
			return nil, nil
		}
		s.logout(ctx, ReasonInvalid)
		return nil, nil
	})
}

// Logout signs the session out: best-effort remote notify, then the stored
// tokens are cleared and the navigator is sent to RootPath. Safe to call
// repeatedly and concurrently.
func (s *Session) Logout(ctx context.Context) {
	s.logout(ctx, ReasonUser)
}

func (s *Session) logout(ctx context.Context, reason string) {
	metrics.Logouts.WithLabelValues(reason).Inc()
	log.Info().Str("reason", reason).Msg("signing out")

	tokens := s.store.Read()
	if s.indicator != nil {
		s.indicator.Show()
	}
	s.m.notify(ctx, tokens.Access)
	if s.indicator != nil {
		s.indicator.Hide()
	}

	s.writeMu.Lock()
	s.store.Clear()
	s.writeMu.Unlock()

	s.navMu.Lock()
	defer s.navMu.Unlock()
	s.nav.Navigate(RootPath)
}

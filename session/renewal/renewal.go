// Package renewal keeps an access token valid while making sure at most one
// validation round-trip per session is in flight at any time.
package renewal

import (
	"context"
	"time"

	errs "github.com/jrsteele09/storefront-console/internal/errors"
	"github.com/jrsteele09/storefront-console/internal/metrics"
	"github.com/jrsteele09/storefront-console/session/claims"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Result is the remote verdict on a token pair.
type Result struct {
	// Valid is false when the API rejected the pair.
	Valid bool
	// AccessToken is set when the API issued a replacement access token.
	AccessToken string
}

// Validator checks a token pair against the remote API. A non-nil error
// means the verdict could not be obtained (transport failure); a rejected
// pair is reported as Result{Valid: false} with a nil error.
type Validator interface {
	ValidateTokens(ctx context.Context, tokens credentials.Tokens) (Result, error)
}

// Outcome is what every caller attached to one renewal observes.
type Outcome struct {
	AccessToken string
	// Renewed is true when AccessToken replaces the one the caller holds.
	Renewed bool
}

// Coordinator coalesces concurrent renewals of the same session. Sessions
// are keyed by refresh token, so one Coordinator serves any number of
// independent sessions.
type Coordinator struct {
	validator Validator
	group     singleflight.Group
	freshness time.Duration
	now       func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithFreshness skips the remote round-trip while the access token's decoded
// expiry is more than d away. Zero (the default) always validates.
func WithFreshness(d time.Duration) Option {
	return func(c *Coordinator) {
		c.freshness = d
	}
}

// WithClock sets the clock used for the freshness check
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a Coordinator that validates through v
func New(v Validator, opts ...Option) *Coordinator {
	c := &Coordinator{
		validator: v,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Renew resolves a usable access token for tokens.
//
// Callers that arrive while a renewal for the same refresh token is pending
// attach to it and receive the same Outcome or error. The pending slot is
// released as soon as the round-trip finishes, whatever its result.
//
// Errors: ErrSessionMissing when either token is absent, ErrSessionInvalid
// when the API rejected the pair, ErrRenewalTransport (wrapping the cause)
// when the API could not be reached. A caller whose ctx ends first gets
// ctx.Err(); the renewal itself carries on for the others.
func (c *Coordinator) Renew(ctx context.Context, tokens credentials.Tokens) (Outcome, error) {
	if !tokens.Complete() {
		return Outcome{}, errs.ErrSessionMissing
	}

	if c.freshness > 0 {
		if cl, ok := claims.Decode(tokens.Access); ok && !cl.ExpiresWithin(c.freshness, c.now()) {
			metrics.Renewals.WithLabelValues(metrics.OutcomeFresh).Inc()
			return Outcome{AccessToken: tokens.Access}, nil
		}
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(tokens.Refresh, func() (interface{}, error) {
		return c.validate(flightCtx, tokens)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RenewalShared.Inc()
		}
		if res.Err != nil {
			return Outcome{}, res.Err
		}
		return res.Val.(Outcome), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (c *Coordinator) validate(ctx context.Context, tokens credentials.Tokens) (Outcome, error) {
	res, err := c.validator.ValidateTokens(ctx, tokens)
	if err != nil {
		metrics.Renewals.WithLabelValues(metrics.OutcomeTransport).Inc()
		log.Warn().Err(err).Msg("token validation unavailable")
		return Outcome{}, errs.Transport(err)
	}

	if !res.Valid {
		metrics.Renewals.WithLabelValues(metrics.OutcomeInvalid).Inc()
		log.Debug().Msg("token pair rejected")
		return Outcome{}, errs.ErrSessionInvalid
	}

	if res.AccessToken != "" && res.AccessToken != tokens.Access {
		metrics.Renewals.WithLabelValues(metrics.OutcomeRenewed).Inc()
		return Outcome{AccessToken: res.AccessToken, Renewed: true}, nil
	}

	metrics.Renewals.WithLabelValues(metrics.OutcomeUnchanged).Inc()
	return Outcome{AccessToken: tokens.Access}, nil
}

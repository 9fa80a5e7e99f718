// Package gate decides, per navigation, whether the user may see a
// protected area, must sign in, is locked out by an expired trial, or must
// finish setup first.
//
// Decisions are computed from decoded claims and are a routing convenience
// only. The API enforces access on every data call.
package gate

import (
	"path"
	"strings"

	"github.com/jrsteele09/storefront-console/session/claims"
	"github.com/jrsteele09/storefront-console/session/credentials"
)

// Kind is the action the router takes.
type Kind string

const (
	KindAllow    Kind = "allow"
	KindRedirect Kind = "redirect"
	KindDeny     Kind = "deny"
)

// Reason says which check produced a decision.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNoToken         Reason = "no_token"
	ReasonTrialExpired    Reason = "trial_expired"
	ReasonRoleMismatch    Reason = "role_mismatch"
	ReasonSetupIncomplete Reason = "setup_incomplete"
	ReasonAuthenticated   Reason = "authenticated"
)

// Default routing targets
const (
	PathLogin          = "/login"
	PathLicenseExpired = "/license-expired"
	PathUnauthorized   = "/unauthorized"
	PathSetup          = "/setup"
)

// DefaultTrialWarningDays is the remaining-days threshold for the trial banner.
const DefaultTrialWarningDays = 5

// SetupNotice is shown on the setup page after a setup redirect.
const SetupNotice = "Finish setting up your store before continuing."

// Decision is the gate's verdict for one navigation.
type Decision struct {
	Kind   Kind
	Target string
	Reason Reason
	// Notice is a user-visible message to carry to Target.
	Notice string
	// TrialWarning is set on an Allow for a trial close to expiry.
	TrialWarning *TrialWarning
}

// TrialWarning asks the view to show a banner with the remaining days.
type TrialWarning struct {
	DaysRemaining int
}

func allow() Decision {
	return Decision{Kind: KindAllow}
}

func redirect(target string, reason Reason) Decision {
	return Decision{Kind: KindRedirect, Target: target, Reason: reason}
}

// Request is what the gate knows about one navigation.
type Request struct {
	Destination string
	// HasSession is true when both tokens are present.
	HasSession bool
	Claims     claims.Claims
}

// NewRequest decodes the access token of tokens for a navigation to destination.
func NewRequest(destination string, tokens credentials.Tokens) Request {
	c, _ := claims.Decode(tokens.Access)
	return Request{
		Destination: destination,
		HasSession:  tokens.Complete(),
		Claims:      c,
	}
}

// Targets are the pages a guard redirects to.
type Targets struct {
	Unauthenticated string
	LicenseExpired  string
	Unauthorized    string
	Setup           string
}

// DefaultTargets returns the console's standard pages.
func DefaultTargets() Targets {
	return Targets{
		Unauthenticated: PathLogin,
		LicenseExpired:  PathLicenseExpired,
		Unauthorized:    PathUnauthorized,
		Setup:           PathSetup,
	}
}

// Guard protects an area that requires one of Roles.
type Guard struct {
	Roles   []claims.Role
	Targets Targets
	// DenyUnauthenticated answers a missing session with KindDeny instead of
	// a redirect, for callers that cannot follow one.
	DenyUnauthenticated bool
	// TrialWarningDays overrides DefaultTrialWarningDays when positive.
	TrialWarningDays int
}

// NewGuard creates a guard for roles with the default targets
func NewGuard(roles ...claims.Role) Guard {
	return Guard{Roles: roles, Targets: DefaultTargets()}
}

// Evaluate runs the checks in order: session present, trial not expired,
// role allowed, setup complete. The setup check is skipped when the
// destination is the setup page itself.
func (g Guard) Evaluate(req Request) Decision {
	if !req.HasSession {
		if g.DenyUnauthenticated {
			return Decision{Kind: KindDeny, Reason: ReasonNoToken}
		}
		return redirect(g.Targets.Unauthenticated, ReasonNoToken)
	}

	if req.Claims.TrialExpired() {
		return redirect(g.Targets.LicenseExpired, ReasonTrialExpired)
	}

	if !req.Claims.HasRole(g.Roles...) {
		return redirect(g.Targets.Unauthorized, ReasonRoleMismatch)
	}

	if !req.Claims.Configured && !samePage(req.Destination, g.Targets.Setup) {
		d := redirect(g.Targets.Setup, ReasonSetupIncomplete)
		d.Notice = SetupNotice
		return d
	}

	d := allow()
	if days, gated := req.Claims.TrialDays(); gated && days <= g.trialWarningDays() {
		d.TrialWarning = &TrialWarning{DaysRemaining: days}
	}
	return d
}

func (g Guard) trialWarningDays() int {
	if g.TrialWarningDays > 0 {
		return g.TrialWarningDays
	}
	return DefaultTrialWarningDays
}

// samePage reports whether destination is page or below it.
func samePage(destination, page string) bool {
	if page == "" {
		return false
	}
	destination = path.Clean("/" + destination)
	page = path.Clean("/" + page)
	return destination == page || strings.HasPrefix(destination, page+"/")
}

// Package claims decodes the payload of an access token into the fields the
// console routes on.
//
// Nothing here verifies a signature. Claims drive which page the user sees;
// the remote API independently rejects bad tokens on every call, so a
// successful decode must never be read as "this request is authorised".
package claims

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-console/internal/utils"
)

// Role is the storefront role carried by a token.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Claims is the structured view of a token payload.
type Claims struct {
	Subject      string
	Role         Role
	DisplayName  string
	LocationName string
	// Configured is false until the tenant completes mandatory setup.
	Configured bool
	// TrialDaysRemaining is nil for accounts that are not trial gated.
	TrialDaysRemaining *int
	ExpiresAt          time.Time
}

// Anonymous is what an absent or undecodable token yields.
var Anonymous = Claims{}

// payload mirrors the JSON claim names issued by the storefront API.
type payload struct {
	Role               string `json:"role"`
	Name               string `json:"name,omitempty"`
	Location           string `json:"location,omitempty"`
	Configured         *bool  `json:"configured,omitempty"`
	TrialDaysRemaining *int   `json:"trial_days_remaining,omitempty"`
	jwtlib.RegisteredClaims
}

// Decode reads the claims of token without verifying it. The second return
// value is false (and the claims are Anonymous) when the token is empty or
// malformed. Decode never panics and has no side effects.
func Decode(token string) (Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous, false
	}

	var p payload
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, &p); err != nil {
		return Anonymous, false
	}

	c := Claims{
		Subject:            p.Subject,
		Role:               Role(p.Role),
		DisplayName:        p.Name,
		LocationName:       p.Location,
		Configured:         p.Configured == nil || *p.Configured,
		TrialDaysRemaining: p.TrialDaysRemaining,
	}
	if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt.Time
	}
	return c, true
}

// TrialDays returns the remaining trial days and whether the account is trial gated.
func (c Claims) TrialDays() (int, bool) {
	return utils.Value(c.TrialDaysRemaining), c.TrialDaysRemaining != nil
}

// TrialExpired returns true for a trial gated account with no days left.
func (c Claims) TrialExpired() bool {
	days, gated := c.TrialDays()
	return gated && days <= 0
}

// HasRole returns true if the claims carry one of roles
func (c Claims) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// ExpiresWithin returns true if the token has no expiry or expires within d of now.
func (c Claims) ExpiresWithin(d time.Duration, now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return true
	}
	return !c.ExpiresAt.After(now.Add(d))
}

// Summary is the read-only view handed to the view layer for badges and
// banners. It is never used for access decisions.
type Summary struct {
	Role               Role   `json:"role"`
	DisplayName        string `json:"display_name,omitempty"`
	LocationName       string `json:"location_name,omitempty"`
	TrialDaysRemaining *int   `json:"trial_days_remaining,omitempty"`
}

func (c Claims) Summary() Summary {
	return Summary{
		Role:               c.Role,
		DisplayName:        c.DisplayName,
		LocationName:       c.LocationName,
		TrialDaysRemaining: c.TrialDaysRemaining,
	}
}

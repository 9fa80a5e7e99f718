// Package credentials holds the access/refresh token pair for a session.
//
// A Store never talks to the network and never fails: a missing token is a
// valid read result. Login, the renewal coordinator and logout are the only
// writers.
package credentials

import "time"

// DefaultRememberFor is how long a "remember me" login survives.
const DefaultRememberFor = 7 * 24 * time.Hour

// Tokens is the credential pair as read from a Store. Either field may be empty.
type Tokens struct {
	Access  string
	Refresh string
}

// Complete returns true if both tokens are present
func (t Tokens) Complete() bool {
	return t.Access != "" && t.Refresh != ""
}

// Store reads and writes the token pair.
type Store interface {
	// Read returns the current pair. Absent tokens are empty strings.
	Read() Tokens

	// WriteAccess replaces the access token, leaving the refresh token and
	// retention horizon untouched.
	WriteAccess(token string)

	// WriteAll replaces both tokens. When persist is true the pair is retained
	// until the retention horizon, otherwise it is session scoped.
	WriteAll(access, refresh string, persist bool)

	// Clear removes both tokens. Clearing an empty store is a no-op.
	Clear()
}

// Retention decides how long a persisted pair lives.
type Retention struct {
	RememberFor time.Duration
	Now         func() time.Time
}

// DefaultRetention returns the 7 day "remember me" policy.
func DefaultRetention() Retention {
	return Retention{RememberFor: DefaultRememberFor, Now: time.Now}
}

// Horizon returns the expiry for a pair written with the given persist flag.
// The zero time means session scoped.
func (r Retention) Horizon(persist bool) time.Time {
	if !persist {
		return time.Time{}
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	rememberFor := r.RememberFor
	if rememberFor <= 0 {
		rememberFor = DefaultRememberFor
	}
	return now().Add(rememberFor).Truncate(time.Second)
}

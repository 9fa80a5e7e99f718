package config

import (
	"os"
	"time"
)

type Session struct{}

var _ SessionConfig = Session{}

// GetRememberMeRetention is how long both tokens survive a browser restart
// when "remember me" was ticked at login.
func (Session) GetRememberMeRetention() time.Duration {
	return 7 * 24 * time.Hour
}

func (Session) GetAccessCookieName() string {
	return "access_token"
}

func (Session) GetRefreshCookieName() string {
	return "refresh_token"
}

func (Session) GetHorizonCookieName() string {
	return "session_horizon"
}

func (Session) GetSecureCookies() bool {
	return os.Getenv("INSECURE_COOKIES") != "1"
}

func (Session) GetLogoutNotifyWait() time.Duration {
	return GetDuration("LOGOUT_NOTIFY_WAIT", 2*time.Second)
}

// GetRenewalFreshness is zero by default: every call validates remotely.
func (Session) GetRenewalFreshness() time.Duration {
	return GetDuration("RENEWAL_FRESHNESS", 0)
}

package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	CorsConfig
	SecurityConfig
	GateConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetCredentialsFile() string
}

type SessionConfig interface {
	GetRememberMeRetention() time.Duration
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetHorizonCookieName() string
	GetSecureCookies() bool
	GetLogoutNotifyWait() time.Duration
	GetRenewalFreshness() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Session
	Cors
	Security
	Gate
}

func New() Config {
	return mainConfig{}
}

package config

import (
	"strings"
	"time"
)

type SecurityConfig interface {
	GetEnableRateLimiting() bool
	GetLoginRateLimit() (every time.Duration, burst int)
	GetTrustedProxies() []string
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetEnableRateLimiting() bool {
	return GetEnv("LOGIN_RATE_LIMIT", "on") != "off"
}

// GetLoginRateLimit allows five login attempts per minute per client IP.
func (Security) GetLoginRateLimit() (time.Duration, int) {
	return 12 * time.Second, 5
}

// GetTrustedProxies lists the proxy addresses or CIDRs (TRUSTED_PROXIES,
// comma separated) whose X-Forwarded-For header is believed. Empty means
// the connection address is the client.
func (Security) GetTrustedProxies() []string {
	var proxies []string
	for _, p := range strings.Split(GetEnv("TRUSTED_PROXIES", ""), ",") {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	return proxies
}

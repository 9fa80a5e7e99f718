package claims_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/storefront-console/session/claims"
	"github.com/stretchr/testify/require"
)

func mint(t *testing.T, c jwtlib.MapClaims) string {
	t.Helper()
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString([]byte("unused-by-the-reader"))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	exp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	token := mint(t, jwtlib.MapClaims{
		"sub":                  "user-1",
		"role":                 "cashier",
		"name":                 "Ada",
		"location":             "Main St",
		"configured":           false,
		"trial_days_remaining": 3,
		"exp":                  exp.Unix(),
	})

	c, ok := claims.Decode(token)
	require.True(t, ok)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, claims.RoleCashier, c.Role)
	require.Equal(t, "Ada", c.DisplayName)
	require.Equal(t, "Main St", c.LocationName)
	require.False(t, c.Configured)
	require.True(t, exp.Equal(c.ExpiresAt))

	days, gated := c.TrialDays()
	require.True(t, gated)
	require.Equal(t, 3, days)
	require.False(t, c.TrialExpired())
}

func TestDecode_IsPure(t *testing.T) {
	token := mint(t, jwtlib.MapClaims{"role": "admin", "trial_days_remaining": 0})

	first, ok1 := claims.Decode(token)
	second, ok2 := claims.Decode(token)
	require.True(t, ok1)
	require.True(t, ok2)
	require.Equal(t, first, second)
	require.True(t, first.TrialExpired())
}

func TestDecode_Defaults(t *testing.T) {
	c, ok := claims.Decode(mint(t, jwtlib.MapClaims{"role": "admin"}))
	require.True(t, ok)
	require.True(t, c.Configured, "absent configured claim means no setup gate")
	_, gated := c.TrialDays()
	require.False(t, gated)
	require.False(t, c.TrialExpired())
	require.True(t, c.ExpiresAt.IsZero())
}

func TestDecode_Anonymous(t *testing.T) {
	for _, token := range []string{
		"",
		"   ",
		"garbled",
		"a.b.c",
		"eyJhbGciOiJIUzI1NiJ9.not-base64!.sig",
	} {
		t.Run(token, func(t *testing.T) {
			c, ok := claims.Decode(token)
			require.False(t, ok)
			require.Equal(t, claims.Anonymous, c)
		})
	}
}

func TestClaims_HasRole(t *testing.T) {
	c := claims.Claims{Role: claims.RoleAdmin}
	require.True(t, c.HasRole(claims.RoleCashier, claims.RoleAdmin))
	require.False(t, c.HasRole(claims.RoleCashier))
	require.False(t, claims.Anonymous.HasRole(claims.RoleAdmin, claims.RoleCashier))
}

func TestClaims_ExpiresWithin(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	c := claims.Claims{ExpiresAt: now.Add(10 * time.Minute)}

	require.True(t, c.ExpiresWithin(15*time.Minute, now))
	require.False(t, c.ExpiresWithin(5*time.Minute, now))
	require.True(t, claims.Anonymous.ExpiresWithin(time.Hour, now))
}

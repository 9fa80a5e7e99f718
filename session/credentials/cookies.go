package credentials

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CookieNames names the cookies a CookieStore reads and writes.
type CookieNames struct {
	Access  string
	Refresh string
	// Horizon carries the unix expiry of a remembered login so a renewed
	// access token keeps the horizon chosen at login.
	Horizon string
}

// DefaultCookieNames returns the cookie names used by the console.
func DefaultCookieNames() CookieNames {
	return CookieNames{Access: "access_token", Refresh: "refresh_token", Horizon: "session_horizon"}
}

// CookieOptions configures a CookieStore.
type CookieOptions struct {
	Names     CookieNames
	Secure    bool
	Retention Retention
}

// CookieStore is a Store bound to one HTTP exchange. Reads come from the
// request cookies, overlaid by anything written during the exchange; writes
// become Set-Cookie headers on the response.
type CookieStore struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	opts    CookieOptions
	tokens  Tokens
	horizon time.Time
}

var _ Store = (*CookieStore)(nil)

// NewCookieStore loads the pair carried by r. Writes go to w.
func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	s := &CookieStore{w: w, opts: opts}
	s.tokens.Access = cookieValue(r, opts.Names.Access)
	s.tokens.Refresh = cookieValue(r, opts.Names.Refresh)
	if unix, err := strconv.ParseInt(cookieValue(r, opts.Names.Horizon), 10, 64); err == nil && unix > 0 {
		s.horizon = time.Unix(unix, 0)
	}
	return s
}

func (s *CookieStore) Read() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *CookieStore) WriteAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens.Access = token
	s.setCookie(s.opts.Names.Access, token, s.horizon)
}

func (s *CookieStore) WriteAll(access, refresh string, persist bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = Tokens{Access: access, Refresh: refresh}
	s.horizon = s.opts.Retention.Horizon(persist)

	s.setCookie(s.opts.Names.Access, access, s.horizon)
	s.setCookie(s.opts.Names.Refresh, refresh, s.horizon)
	if persist {
		s.setCookie(s.opts.Names.Horizon, strconv.FormatInt(s.horizon.Unix(), 10), s.horizon)
	} else {
		s.expireCookie(s.opts.Names.Horizon)
	}
}

func (s *CookieStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = Tokens{}
	s.horizon = time.Time{}
	s.expireCookie(s.opts.Names.Access)
	s.expireCookie(s.opts.Names.Refresh)
	s.expireCookie(s.opts.Names.Horizon)
}

func (s *CookieStore) setCookie(name, value string, expires time.Time) {
	c := s.cookie(name, value)
	if !expires.IsZero() {
		c.Expires = expires
	}
	s.replaceCookie(c)
}

func (s *CookieStore) expireCookie(name string) {
	c := s.cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	s.replaceCookie(c)
}

func (s *CookieStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// replaceCookie drops any Set-Cookie already queued for c.Name so the last
// write in an exchange is the only one the browser sees.
func (s *CookieStore) replaceCookie(c *http.Cookie) {
	h := s.w.Header()
	prefix := c.Name + "="
	var kept []string
	for _, v := range h.Values("Set-Cookie") {
		if !strings.HasPrefix(v, prefix) {
			kept = append(kept, v)
		}
	}
	h.Del("Set-Cookie")
	for _, v := range kept {
		h.Add("Set-Cookie", v)
	}
	http.SetCookie(s.w, c)
}

func cookieValue(r *http.Request, name string) string {
	if name == "" {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

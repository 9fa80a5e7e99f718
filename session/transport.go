package session

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// TokenSource adapts EnsureValidAccessToken to oauth2.TokenSource. Every
// Token call goes through the renewal coordinator; nothing is cached here.
func (s *Session) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, session: s}
}

type tokenSource struct {
	ctx     context.Context
	session *Session
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	access, err := ts.session.EnsureValidAccessToken(ts.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}, nil
}

// Transport returns a RoundTripper that attaches a valid bearer token to
// every request, keeping any headers the caller set. When no valid token
// can be had the request is not sent and the session error is returned.
func (s *Session) Transport() http.RoundTripper {
	return &bearerTransport{session: s, base: s.m.base}
}

// Client returns an http.Client sending through Transport.
func (s *Session) Client() *http.Client {
	return &http.Client{Transport: s.Transport()}
}

// Send performs req with a valid bearer token attached.
func (s *Session) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return s.Transport().RoundTrip(req.WithContext(ctx))
}

type bearerTransport struct {
	session *Session
	base    http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt := &oauth2.Transport{
		Source: t.session.TokenSource(req.Context()),
		Base:   t.base,
	}
	return rt.RoundTrip(req)
}

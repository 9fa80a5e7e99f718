package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/storefront-console/gate"
	"github.com/jrsteele09/storefront-console/internal/metrics"
	"github.com/jrsteele09/storefront-console/session"
	"github.com/jrsteele09/storefront-console/session/credentials"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the request's *session.Session
	ContextKeySession ContextKey = "session"
	// ContextKeyNavigator stores the request's *requestNavigator
	ContextKeyNavigator ContextKey = "navigator"
	// ContextKeyDecision stores the gate.Decision that let the request through
	ContextKeyDecision ContextKey = "decision"
)

// headerTrialDays carries the remaining trial days when a warning is due.
const headerTrialDays = "X-Trial-Days-Remaining"

// requestNavigator turns a session navigation into the HTTP response. It
// responds at most once per request.
type requestNavigator struct {
	w         http.ResponseWriter
	r         *http.Request
	once      sync.Once
	navigated atomic.Bool
}

func (n *requestNavigator) Navigate(target string) {
	n.once.Do(func() {
		n.navigated.Store(true)
		redirectSuccess(n.w, n.r, target)
	})
}

// Navigated reports whether a response was already written.
func (n *requestNavigator) Navigated() bool {
	return n.navigated.Load()
}

// SessionMiddleware binds a session to the request's cookies.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := &requestNavigator{w: w, r: r}
		store := credentials.NewCookieStore(w, r, s.cookieOpts)
		sess := s.sessions.Session(store, nav)

		ctx := context.WithValue(r.Context(), ContextKeySession, sess)
		ctx = context.WithValue(ctx, ContextKeyNavigator, nav)
		next(w, r.WithContext(ctx))
	}
}

// evaluator is a gate.Guard or gate.Guest.
type evaluator interface {
	Evaluate(gate.Request) gate.Decision
}

// RequireGate routes the request by the gate's decision. Must run after
// SessionMiddleware.
func (s *Server) RequireGate(g evaluator) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess := sessionFrom(r)
			d := g.Evaluate(gate.NewRequest(r.URL.Path, sess.Store().Read()))
			metrics.GateDecisions.WithLabelValues(string(d.Kind), string(d.Reason)).Inc()

			switch d.Kind {
			case gate.KindDeny:
				zerolog.Ctx(r.Context()).Debug().Str("reason", string(d.Reason)).Msg("gate denied")
				writeJSONError(w, http.StatusUnauthorized, string(d.Reason))
				return
			case gate.KindRedirect:
				zerolog.Ctx(r.Context()).Debug().
					Str("reason", string(d.Reason)).
					Str("target", d.Target).
					Msg("gate redirect")
				if d.Notice != "" {
					redirectWithNotice(w, r, d.Target, d.Notice)
					return
				}
				redirectSuccess(w, r, d.Target)
				return
			}

			if d.TrialWarning != nil {
				w.Header().Set(headerTrialDays, strconv.Itoa(d.TrialWarning.DaysRemaining))
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyDecision, d)))
		}
	}
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(ContextKeySession).(*session.Session)
}

func navigatorFrom(r *http.Request) *requestNavigator {
	return r.Context().Value(ContextKeyNavigator).(*requestNavigator)
}

func decisionFrom(r *http.Request) gate.Decision {
	d, _ := r.Context().Value(ContextKeyDecision).(gate.Decision)
	return d
}

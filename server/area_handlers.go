package server

import (
	"net/http"

	"github.com/jrsteele09/storefront-console/session/claims"
)

// AreaPageData is the template data for a protected area
type AreaPageData struct {
	Title   string
	Path    string
	Summary claims.Summary
	// TrialDaysRemaining is non-zero only when the trial banner is due.
	TrialDaysRemaining int
	Notice             string
}

// AreaHandler renders the shell of a protected area. Must run behind
// RequireGate.
func (s *Server) AreaHandler(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, _ := sessionFrom(r).Summary()
		data := AreaPageData{
			Title:   title,
			Path:    r.URL.Path,
			Summary: summary,
			Notice:  r.URL.Query().Get("notice"),
		}
		if d := decisionFrom(r); d.TrialWarning != nil {
			data.TrialDaysRemaining = d.TrialWarning.DaysRemaining
		}
		render(w, r, s.pages.area, data)
	}
}

type noticePage struct {
	Title      string
	Message    string
	ShowLogout bool
}

var (
	licenseExpiredNotice = noticePage{
		Title:      "Your trial has ended",
		Message:    "The trial period for this store has expired. Contact your account owner to choose a plan.",
		ShowLogout: true,
	}
	unauthorizedNotice = noticePage{
		Title:      "Not available",
		Message:    "Your account does not have access to that area.",
		ShowLogout: true,
	}
)

// NoticeHandler renders a static explanatory page
func (s *Server) NoticeHandler(page noticePage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, s.pages.notice, page)
	}
}

package server

import (
	"log"
	"net/http"

	"campusgate/internal/auth"
)

func (s *Server) handleGoogleStart(w http.ResponseWriter, r *http.Request) {
	if s.Google == nil {
		log.Printf("oauth start: google provider not configured")
		loginErrorRedirect(w, r, "provider_unavailable")
		return
	}

	state := auth.NewToken(auth.StateTokenBytes)
	s.Cookies.SetState(w, state, s.Config.StateTTL)
	http.Redirect(w, r, s.Google.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	storedState := ""
	if cookie, err := r.Cookie(auth.StateCookieName); err == nil {
		storedState = cookie.Value
	}
	// State is single-use regardless of how the callback turns out.
	s.Cookies.ClearState(w)

	if s.Google == nil {
		loginErrorRedirect(w, r, "provider_unavailable")
		return
	}

	q := r.URL.Query()
	outcome, login, err := s.Flow.CompleteOAuth(r.Context(), auth.OAuthCallback{
		Code:          q.Get("code"),
		State:         q.Get("state"),
		StoredState:   storedState,
		ProviderError: q.Get("error"),
	})
	if err != nil {
		log.Printf("oauth callback: %v", err)
		loginErrorRedirect(w, r, "authentication_failed")
		return
	}

	switch outcome {
	case auth.OAuthSuccess:
		s.Cookies.SetSession(w, login.Session.Token, login.Session.ExpiresAt)
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	case auth.OAuthCancelled:
		loginErrorRedirect(w, r, "oauth_cancelled")
	case auth.OAuthInvalidState:
		loginErrorRedirect(w, r, "invalid_state")
	case auth.OAuthMissingCode:
		loginErrorRedirect(w, r, "missing_code")
	case auth.OAuthDomainDenied:
		loginErrorRedirect(w, r, "domain")
	default:
		loginErrorRedirect(w, r, "authentication_failed")
	}
}

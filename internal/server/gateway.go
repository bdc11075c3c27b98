package server

import (
	"log"
	"net/http"
	"net/url"
	"strings"
)

var protectedPrefixes = []string{"/dashboard"}

func isProtectedPage(path string) bool {
	if path == "/" {
		return true
	}
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

// gateway enforces authentication on portal pages. Protected paths redirect
// anonymous visitors to the login page; a visitor hitting /login with a
// session cookie is bounced to the dashboard. When the session store is
// unreachable the gateway fails open and lets the request through
// anonymously, unless GATEWAY_FAIL_CLOSED flips that to a login redirect.
func (s *Server) gateway(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)

		// The /login bounce is optimistic: any present cookie redirects
		// without touching the store. A stale token just comes straight
		// back here after the dashboard's own gate rejects it.
		if r.URL.Path == "/login" && token != "" {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}

		sess, user, err := s.Flow.Validate(r.Context(), token)
		if err != nil {
			log.Printf("gateway: session validation failed: %v", err)
			if s.Config.GatewayFailClosed {
				redirectToLogin(w, r)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if sess != nil {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), sess, user)))
			return
		}

		// Stale cookie: drop it so the browser stops presenting it.
		if token != "" {
			s.Cookies.ClearSession(w)
		}
		if isProtectedPage(r.URL.Path) {
			redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if p := r.URL.Path; p != "/" && p != "/login" {
		target += "?redirect=" + url.QueryEscape(p)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

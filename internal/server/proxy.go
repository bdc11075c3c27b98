package server

import (
	"errors"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

var identityHeaders = []string{
	"X-Auth-User-Id",
	"X-Auth-User-Email",
	"X-Auth-User-Role",
}

// newPortalProxy forwards portal pages to the upstream app. Identity headers
// arriving from the client are always stripped; the gateway's verified
// identity, when present, is re-attached for the upstream.
func newPortalProxy(upstream string) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("upstream URL must include scheme and host")
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host

		for _, h := range identityHeaders {
			req.Header.Del(h)
		}
		if _, user := identityFromContext(req.Context()); user != nil {
			req.Header.Set("X-Auth-User-Id", user.ID)
			req.Header.Set("X-Auth-User-Email", user.Email)
			req.Header.Set("X-Auth-User-Role", user.Role)
		}
	}
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("portal proxy: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusBadGateway, "Portal is unavailable")
	}

	return proxy, nil
}

func (s *Server) portalHandler() http.Handler {
	if s.portal != nil {
		return s.portal
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusBadGateway, "Portal upstream is not configured")
	})
}

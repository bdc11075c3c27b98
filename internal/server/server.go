package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"campusgate/internal/auth"
	"campusgate/internal/config"
)

type Server struct {
	Flow    *auth.Flow
	Google  auth.IdentityProvider
	Cookies auth.CookieWriter
	Config  config.Config
	portal  http.Handler
}

func NewServer(cfg config.Config, flow *auth.Flow, google auth.IdentityProvider) (*Server, error) {
	s := &Server{
		Flow:    flow,
		Google:  google,
		Cookies: auth.CookieWriter{Secure: cfg.SecureCookies},
		Config:  cfg,
	}

	if cfg.PortalUpstream != "" {
		proxy, err := newPortalProxy(cfg.PortalUpstream)
		if err != nil {
			return nil, fmt.Errorf("portal upstream: %w", err)
		}
		s.portal = proxy
	}

	return s, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  log.New(log.Writer(), "", log.Flags()),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)

	r.Get("/api/auth/google/start", s.handleGoogleStart)
	r.Get("/api/auth/google/callback", s.handleGoogleCallback)
	r.Post("/api/auth/email/send-code", s.handleSendCode)
	r.Post("/api/auth/email/verify-code", s.handleVerifyCode)
	r.Get("/api/auth/validate", s.handleValidate)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireSession)
		pr.Get("/api/auth/me", s.handleMe)
	})

	// Everything that is not an API route is a portal page and goes through
	// the gateway before being proxied upstream.
	r.Group(func(pg chi.Router) {
		pg.Use(s.gateway)
		pg.Handle("/*", s.portalHandler())
	})

	return r
}

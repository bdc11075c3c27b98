package server

import (
	"context"
	"net/http"

	"campusgate/internal/auth"
)

type ctxKey string

const identityContextKey ctxKey = "identity"

type identity struct {
	Session *auth.Session
	User    *auth.User
}

// requireSession guards JSON API routes. A missing, unknown or expired token
// is a hard 401; only a store failure is a 500.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		sess, user, err := s.Flow.Validate(r.Context(), token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to validate session")
			return
		}
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		ctx := withIdentity(r.Context(), sess, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func withIdentity(ctx context.Context, sess *auth.Session, user *auth.User) context.Context {
	return context.WithValue(ctx, identityContextKey, &identity{Session: sess, User: user})
}

func identityFromContext(ctx context.Context) (*auth.Session, *auth.User) {
	if val, ok := ctx.Value(identityContextKey).(*identity); ok {
		return val.Session, val.User
	}
	return nil, nil
}

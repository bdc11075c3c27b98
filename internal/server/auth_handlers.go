package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"campusgate/internal/auth"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName"`
	AvatarURL *string   `json:"avatarUrl"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func userPayload(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(strings.TrimSpace(req.Email)) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	outcome, err := s.Flow.SendCode(r.Context(), req.Email)
	if err != nil {
		log.Printf("send code: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to send verification code")
		return
	}

	switch outcome {
	case auth.SendSent:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
	case auth.SendInvalidDomain:
		writeError(w, http.StatusForbidden, fmt.Sprintf("Only %s accounts can sign in", s.Config.AllowedDomain))
	case auth.SendRateLimited:
		writeError(w, http.StatusTooManyRequests, "Too many codes requested. Try again later.")
	case auth.SendDeliveryFailed:
		writeError(w, http.StatusBadGateway, "Failed to deliver verification email")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to send verification code")
	}
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !validateEmail(strings.TrimSpace(req.Email)) {
		writeError(w, http.StatusBadRequest, "A valid email is required")
		return
	}
	if !validateCode(strings.TrimSpace(req.Code)) {
		writeError(w, http.StatusBadRequest, "A 6-digit code is required")
		return
	}

	outcome, login, err := s.Flow.VerifyCode(r.Context(), req.Email, req.Code)
	if err != nil {
		log.Printf("verify code: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to verify code")
		return
	}

	switch outcome {
	case auth.VerifySuccess:
		s.Cookies.SetSession(w, login.Session.Token, login.Session.ExpiresAt)
		writeJSON(w, http.StatusOK, map[string]interface{}{"user": userPayload(login.User)})
	case auth.VerifyInvalidDomain:
		writeError(w, http.StatusForbidden, fmt.Sprintf("Only %s accounts can sign in", s.Config.AllowedDomain))
	case auth.VerifyInvalidOrExpired:
		writeError(w, http.StatusUnauthorized, "Invalid or expired code")
	case auth.VerifyTooManyAttempts:
		writeError(w, http.StatusTooManyRequests, "Too many attempts. Try again later.")
	default:
		writeError(w, http.StatusInternalServerError, "Failed to verify code")
	}
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sess, user, err := s.Flow.Validate(r.Context(), sessionToken(r))
	if err != nil {
		log.Printf("validate: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to validate session")
		return
	}
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
		"user":  userPayload(user),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	_, user := identityFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": userPayload(user)})
}

// handleLogout clears the cookie even when the session row cannot be deleted,
// so the browser never keeps a token the user asked to drop.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := s.Flow.Logout(r.Context(), token); err != nil {
			log.Printf("logout: failed to delete session: %v", err)
		}
	}
	s.Cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusgate/internal/auth"
)

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func findCookie(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSendCodeEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	rec := postJSON(t, router, "/api/auth/email/send-code", `{"email":"student@jkkn.ac.in"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mailer.sent, 1)
	assert.Len(t, f.mailer.sent[0], 6)
}

func TestSendCodeEndpointRejectsBadInput(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"email":`, http.StatusBadRequest},
		{"missing email", `{}`, http.StatusBadRequest},
		{"not an email", `{"email":"not-an-email"}`, http.StatusBadRequest},
		{"unknown field", `{"email":"a@jkkn.ac.in","extra":true}`, http.StatusBadRequest},
		{"foreign domain", `{"email":"someone@gmail.com"}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, router, "/api/auth/email/send-code", tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
	assert.Empty(t, f.mailer.sent)
}

func TestSendCodeEndpointRateLimits(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	for i := 0; i < 3; i++ {
		rec := postJSON(t, router, "/api/auth/email/send-code", `{"email":"student@jkkn.ac.in"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := postJSON(t, router, "/api/auth/email/send-code", `{"email":"student@jkkn.ac.in"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestVerifyCodeEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	rec := postJSON(t, router, "/api/auth/email/send-code", `{"email":"student@jkkn.ac.in"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	code := f.mailer.sent[0]

	rec = postJSON(t, router, "/api/auth/email/verify-code", `{"email":"student@jkkn.ac.in","code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := findCookie(t, rec, auth.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, auth.SessionTokenBytes*2)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	var payload struct {
		User struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "student@jkkn.ac.in", payload.User.Email)
	assert.Equal(t, "user", payload.User.Role)
}

func TestVerifyCodeEndpointRejectsWrongCode(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	rec := postJSON(t, router, "/api/auth/email/send-code", `{"email":"student@jkkn.ac.in"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	wrong := "000000"
	if f.mailer.sent[0] == wrong {
		wrong = "000001"
	}
	rec = postJSON(t, router, "/api/auth/email/verify-code", `{"email":"student@jkkn.ac.in","code":"`+wrong+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, findCookie(t, rec, auth.SessionCookieName))
}

func TestVerifyCodeEndpointRejectsMalformedCode(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	for _, code := range []string{"", "12345", "1234567", "12345a"} {
		rec := postJSON(t, router, "/api/auth/email/verify-code", `{"email":"student@jkkn.ac.in","code":"`+code+`"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "code %q", code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())

	token := f.login(t, "student@jkkn.ac.in")
	req = httptest.NewRequest(http.MethodGet, "/api/auth/validate", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Valid bool `json:"valid"`
		User  struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.True(t, payload.Valid)
	assert.Equal(t, "student@jkkn.ac.in", payload.User.Email)
}

func TestMeEndpointRequiresSession(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := f.login(t, "student@jkkn.ac.in")
	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "student@jkkn.ac.in")
}

func TestLogoutEndpointClearsCookie(t *testing.T) {
	f := newFixture(t, testConfig())
	router := f.server.Router()
	token := f.login(t, "student@jkkn.ac.in")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(t, rec, auth.SessionCookieName)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
	assert.Empty(t, f.sessions.sessions)

	// Logging out without a session is still a 200.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"campusgate/internal/auth"
	"campusgate/internal/config"
)

type memUsers struct {
	users []*auth.User
	seq   int
}

func (m *memUsers) find(match func(*auth.User) bool) *auth.User {
	for _, u := range m.users {
		if match(u) {
			return u
		}
	}
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.ID == id }), nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.Email == email }), nil
}

func (m *memUsers) FindByGoogleID(_ context.Context, googleID string) (*auth.User, error) {
	return m.find(func(u *auth.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID }), nil
}

func (m *memUsers) Create(_ context.Context, user *auth.User) (*auth.User, error) {
	m.seq++
	user.ID = fmt.Sprintf("user-%d", m.seq)
	if user.Role == "" {
		user.Role = "user"
	}
	m.users = append(m.users, user)
	return user, nil
}

func (m *memUsers) RefreshProfile(_ context.Context, googleID string, profile auth.GoogleProfile) (*auth.User, error) {
	u := m.find(func(u *auth.User) bool { return u.GoogleID != nil && *u.GoogleID == googleID })
	if u == nil {
		return nil, errors.New("no user for google id")
	}
	u.Email = profile.Email
	return u, nil
}

func (m *memUsers) LinkGoogle(_ context.Context, userID string, profile auth.GoogleProfile) (*auth.User, error) {
	u := m.find(func(u *auth.User) bool { return u.ID == userID })
	if u == nil {
		return nil, errors.New("no user for id")
	}
	u.GoogleID = &profile.GoogleID
	return u, nil
}

type memSessions struct {
	users    *memUsers
	sessions map[string]*auth.Session
	findErr  error
}

func (m *memSessions) Create(_ context.Context, session *auth.Session) error {
	if session.ID == "" {
		session.ID = fmt.Sprintf("sess-%d", len(m.sessions)+1)
	}
	m.sessions[session.Token] = session
	return nil
}

func (m *memSessions) FindValid(_ context.Context, token string, now time.Time) (*auth.Session, *auth.User, error) {
	if m.findErr != nil {
		return nil, nil, m.findErr
	}
	sess, ok := m.sessions[token]
	if !ok || !sess.ExpiresAt.After(now) {
		return nil, nil, nil
	}
	user := m.users.find(func(u *auth.User) bool { return u.ID == sess.UserID })
	if user == nil {
		return nil, nil, nil
	}
	return sess, user, nil
}

func (m *memSessions) DeleteByToken(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID string) error {
	for token, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type memCodes struct {
	codes []*auth.VerificationCode
}

func (m *memCodes) Create(_ context.Context, email, code string, now, expires time.Time) error {
	for _, c := range m.codes {
		if c.Email == email && c.UsedAt == nil {
			used := now
			c.UsedAt = &used
		}
	}
	m.codes = append(m.codes, &auth.VerificationCode{
		ID:        fmt.Sprintf("code-%d", len(m.codes)+1),
		Email:     email,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: expires,
	})
	return nil
}

func (m *memCodes) Consume(_ context.Context, email, code string, now time.Time) (bool, error) {
	for _, c := range m.codes {
		if c.Email == email && c.Code == code && c.UsedAt == nil && c.ExpiresAt.After(now) {
			used := now
			c.UsedAt = &used
			return true, nil
		}
	}
	return false, nil
}

func (m *memCodes) CountSince(_ context.Context, email string, since time.Time) (int, error) {
	count := 0
	for _, c := range m.codes {
		if c.Email == email && c.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *memCodes) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeProvider struct {
	profiles map[string]*auth.GoogleProfile
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*auth.GoogleProfile, error) {
	profile, ok := p.profiles[code]
	if !ok {
		return nil, errors.New("invalid authorization code")
	}
	return profile, nil
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendCode(_ context.Context, to, code string) error {
	m.sent = append(m.sent, code)
	return nil
}

type fixture struct {
	server   *Server
	users    *memUsers
	sessions *memSessions
	codes    *memCodes
	provider *fakeProvider
	mailer   *fakeMailer
}

func testConfig() config.Config {
	return config.Config{
		AllowedDomain: "jkkn.ac.in",
		SessionTTL:    30 * 24 * time.Hour,
		CodeTTL:       2 * time.Minute,
		StateTTL:      10 * time.Minute,
	}
}

func newFixture(t *testing.T, cfg config.Config) *fixture {
	t.Helper()

	users := &memUsers{}
	f := &fixture{
		users:    users,
		sessions: &memSessions{users: users, sessions: make(map[string]*auth.Session)},
		codes:    &memCodes{},
		provider: &fakeProvider{profiles: make(map[string]*auth.GoogleProfile)},
		mailer:   &fakeMailer{},
	}

	flow := auth.NewFlow(
		auth.NewDomainPolicy(cfg.AllowedDomain),
		f.users, f.sessions, f.codes, f.provider, f.mailer, nil,
		auth.FlowConfig{SessionTTL: cfg.SessionTTL, CodeTTL: cfg.CodeTTL},
	)

	srv, err := NewServer(cfg, flow, f.provider)
	if err != nil {
		t.Fatalf("server init: %v", err)
	}
	f.server = srv
	return f
}

// login creates a user with an active session and returns the session token.
func (f *fixture) login(t *testing.T, email string) string {
	t.Helper()

	user, err := f.users.Create(context.Background(), &auth.User{Email: email})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token := auth.NewToken(auth.SessionTokenBytes)
	err = f.sessions.Create(context.Background(), &auth.Session{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}

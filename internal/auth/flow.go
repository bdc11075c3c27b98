package auth

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	codeWindow    = 10 * time.Minute
	codeWindowMax = 3
)

// SendCodeOutcome is the closed result set of SendCode.
type SendCodeOutcome string

const (
	SendSent           SendCodeOutcome = "sent"
	SendInvalidDomain  SendCodeOutcome = "invalid_domain"
	SendRateLimited    SendCodeOutcome = "rate_limited"
	SendDeliveryFailed SendCodeOutcome = "delivery_failed"
)

// VerifyCodeOutcome is the closed result set of VerifyCode.
type VerifyCodeOutcome string

const (
	VerifySuccess          VerifyCodeOutcome = "success"
	VerifyInvalidDomain    VerifyCodeOutcome = "invalid_domain"
	VerifyInvalidOrExpired VerifyCodeOutcome = "invalid_or_expired"
	VerifyTooManyAttempts  VerifyCodeOutcome = "too_many_attempts"
)

// OAuthOutcome is the closed result set of CompleteOAuth. Each terminal
// branch of the callback maps to its own value so the login page can render
// distinct messages.
type OAuthOutcome string

const (
	OAuthSuccess        OAuthOutcome = "success"
	OAuthCancelled      OAuthOutcome = "cancelled"
	OAuthInvalidState   OAuthOutcome = "invalid_state"
	OAuthMissingCode    OAuthOutcome = "missing_code"
	OAuthDomainDenied   OAuthOutcome = "domain_denied"
	OAuthExchangeFailed OAuthOutcome = "exchange_failed"
)

// OAuthCallback carries the provider redirect parameters plus the state the
// handler recovered from (and already deleted out of) the state cookie.
type OAuthCallback struct {
	Code          string
	State         string
	StoredState   string
	ProviderError string
}

// Login is a freshly issued session together with its user.
type Login struct {
	User    *User
	Session *Session
}

// CodeMailer delivers a verification code out-of-band.
type CodeMailer interface {
	SendCode(ctx context.Context, to, code string) error
}

// Flow implements both credential paths over the shared stores. All
// dependencies are fixed at construction; a Flow is safe for concurrent use.
type Flow struct {
	policy   DomainPolicy
	users    UserStore
	sessions SessionStore
	codes    CodeStore
	google   IdentityProvider
	mailer   CodeMailer
	limiter  AttemptLimiter

	sessionTTL time.Duration
	codeTTL    time.Duration
	now        func() time.Time
}

type FlowConfig struct {
	SessionTTL time.Duration
	CodeTTL    time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewFlow(policy DomainPolicy, users UserStore, sessions SessionStore, codes CodeStore, google IdentityProvider, mailer CodeMailer, limiter AttemptLimiter, cfg FlowConfig) *Flow {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.CodeTTL == 0 {
		cfg.CodeTTL = 2 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Flow{
		policy:     policy,
		users:      users,
		sessions:   sessions,
		codes:      codes,
		google:     google,
		mailer:     mailer,
		limiter:    limiter,
		sessionTTL: cfg.SessionTTL,
		codeTTL:    cfg.CodeTTL,
		now:        cfg.Now,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SendCode creates and emails a fresh one-time code. Prior pending codes for
// the email become unusable even when the new email is never delivered.
func (f *Flow) SendCode(ctx context.Context, email string) (SendCodeOutcome, error) {
	email = NormalizeEmail(email)

	if !f.policy.Allows(email, "") {
		return SendInvalidDomain, nil
	}

	if f.limiter != nil && f.limiter.CooldownActive(ctx, email) {
		return SendRateLimited, nil
	}

	count, err := f.codes.CountSince(ctx, email, f.now().Add(-codeWindow))
	if err != nil {
		// Fail closed: an unreadable window must not allow unbounded issuance.
		log.Printf("send code: rate limit check failed for %s: %v", email, err)
		return SendRateLimited, nil
	}
	if count >= codeWindowMax {
		return SendRateLimited, nil
	}

	code := NewCode()
	now := f.now()
	if err := f.codes.Create(ctx, email, code, now, now.Add(f.codeTTL)); err != nil {
		return "", fmt.Errorf("create verification code: %w", err)
	}

	if err := f.mailer.SendCode(ctx, email, code); err != nil {
		log.Printf("send code: delivery failed for %s: %v", email, err)
		return SendDeliveryFailed, nil
	}

	if f.limiter != nil {
		f.limiter.StartCooldown(ctx, email)
	}
	return SendSent, nil
}

// VerifyCode consumes a pending code and issues a session. A code verifies
// successfully exactly once.
func (f *Flow) VerifyCode(ctx context.Context, email, code string) (VerifyCodeOutcome, *Login, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)

	if !f.policy.Allows(email, "") {
		return VerifyInvalidDomain, nil, nil
	}

	if f.limiter != nil {
		locked, err := f.limiter.RegisterVerifyAttempt(ctx, email)
		if err != nil {
			log.Printf("verify code: attempt limiter failed for %s: %v", email, err)
			locked = true
		}
		if locked {
			return VerifyTooManyAttempts, nil, nil
		}
	}

	ok, err := f.codes.Consume(ctx, email, code, f.now())
	if err != nil {
		return "", nil, fmt.Errorf("consume verification code: %w", err)
	}
	if !ok {
		return VerifyInvalidOrExpired, nil, nil
	}

	if f.limiter != nil {
		f.limiter.ResetVerify(ctx, email)
	}

	user, err := f.findOrCreateByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}

	login, err := f.createLogin(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return VerifySuccess, login, nil
}

// CompleteOAuth runs the callback gates in order: provider error, state
// check, code presence, exchange, domain policy, user upsert, session. A
// failed gate short-circuits everything after it; no session exists unless
// every gate passed.
func (f *Flow) CompleteOAuth(ctx context.Context, cb OAuthCallback) (OAuthOutcome, *Login, error) {
	if cb.ProviderError != "" {
		log.Printf("oauth callback: provider reported %q", cb.ProviderError)
		return OAuthCancelled, nil, nil
	}

	if cb.State == "" || cb.StoredState == "" || cb.State != cb.StoredState {
		log.Printf("oauth callback: state mismatch")
		return OAuthInvalidState, nil, nil
	}

	if cb.Code == "" {
		return OAuthMissingCode, nil, nil
	}

	profile, err := f.google.Exchange(ctx, cb.Code)
	if err != nil {
		log.Printf("oauth callback: exchange failed: %v", err)
		return OAuthExchangeFailed, nil, nil
	}

	if !f.policy.Allows(profile.Email, profile.HostedDomain) {
		log.Printf("oauth callback: domain denied for %s", profile.Email)
		return OAuthDomainDenied, nil, nil
	}

	user, err := f.FindOrCreate(ctx, profile)
	if err != nil {
		return "", nil, err
	}

	login, err := f.createLogin(ctx, user)
	if err != nil {
		return "", nil, err
	}
	return OAuthSuccess, login, nil
}

// FindOrCreate upserts a user from a verified Google profile. Subject-id
// match takes precedence over email match so a changed Google email still
// resolves to the same account, and an email-first account gets the Google
// identity linked instead of duplicated.
func (f *Flow) FindOrCreate(ctx context.Context, profile *GoogleProfile) (*User, error) {
	p := *profile
	p.Email = NormalizeEmail(p.Email)

	existing, err := f.users.FindByGoogleID(ctx, p.GoogleID)
	if err != nil {
		return nil, fmt.Errorf("find user by google id: %w", err)
	}
	if existing != nil {
		return f.users.RefreshProfile(ctx, p.GoogleID, p)
	}

	byEmail, err := f.users.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if byEmail != nil {
		return f.users.LinkGoogle(ctx, byEmail.ID, p)
	}

	return f.users.Create(ctx, &User{
		Email:     p.Email,
		GoogleID:  &p.GoogleID,
		FullName:  nonEmptyPtr(p.FullName),
		AvatarURL: nonEmptyPtr(p.AvatarURL),
		Role:      "user",
	})
}

func (f *Flow) findOrCreateByEmail(ctx context.Context, email string) (*User, error) {
	user, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user != nil {
		return user, nil
	}
	return f.users.Create(ctx, &User{Email: email, Role: "user"})
}

// Validate resolves a session token to its user. Unknown, malformed and
// expired tokens all return (nil, nil, nil); only store failures error.
func (f *Flow) Validate(ctx context.Context, token string) (*Session, *User, error) {
	if token == "" {
		return nil, nil, nil
	}
	return f.sessions.FindValid(ctx, token, f.now())
}

// Logout deletes the session row. Deleting an unknown token is not an error.
func (f *Flow) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return f.sessions.DeleteByToken(ctx, token)
}

// RevokeAll deletes every session belonging to the user.
func (f *Flow) RevokeAll(ctx context.Context, userID string) error {
	return f.sessions.DeleteByUser(ctx, userID)
}

func (f *Flow) createLogin(ctx context.Context, user *User) (*Login, error) {
	now := f.now()
	session := &Session{
		UserID:    user.ID,
		Token:     NewToken(SessionTokenBytes),
		ExpiresAt: now.Add(f.sessionTTL),
		CreatedAt: now,
	}
	if err := f.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Login{User: user, Session: session}, nil
}

func nonEmptyPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

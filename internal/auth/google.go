package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"campusgate/internal/config"
)

const exchangeTimeout = 15 * time.Second

// IdentityProvider abstracts the OAuth provider for the login flow.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	// Exchange trades the authorization code for tokens, verifies the ID
	// token and returns the decoded profile.
	Exchange(ctx context.Context, code string) (*GoogleProfile, error)
}

// GoogleProvider performs the Google authorization-code exchange and
// cryptographic ID-token verification.
type GoogleProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	hosted   string
}

// NewGoogleProvider discovers Google's OIDC endpoints once at startup; the
// returned provider is safe for concurrent use.
func NewGoogleProvider(ctx context.Context, cfg config.GoogleConfig, allowedDomain string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		hosted:   allowedDomain,
	}, nil
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(
		state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("hd", p.hosted),
	)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token in token response")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id_token: %w", err)
	}

	var claims struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		HD      string `json:"hd"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("parse id_token claims: %w", err)
	}
	if claims.Sub == "" || claims.Email == "" {
		return nil, errors.New("id_token missing subject or email")
	}

	return &GoogleProfile{
		GoogleID:     claims.Sub,
		Email:        claims.Email,
		FullName:     claims.Name,
		AvatarURL:    claims.Picture,
		HostedDomain: claims.HD,
	}, nil
}

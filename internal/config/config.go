package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	BaseURL           string
	DatabaseURL       string
	RedisURL          string
	LogFile           string
	AllowedDomain     string
	SessionTTL        time.Duration
	CodeTTL           time.Duration
	StateTTL          time.Duration
	SecureCookies     bool
	GatewayFailClosed bool
	PortalUpstream    string
	Google            GoogleConfig
	Email             EmailConfig
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Secure   bool
}

func (e EmailConfig) Enabled() bool {
	return e.Host != "" && e.Port != 0 && e.From != ""
}

func Load() (Config, error) {
	clean := func(val string) string {
		return strings.Trim(val, "\"' \t\r\n")
	}

	rawPort := strings.Trim(getenvDefault("EMAIL_SERVER_PORT", "587"), "\"' ")
	emailPort, err := strconv.Atoi(rawPort)
	if err != nil {
		emailPort = 587
	}

	cfg := Config{
		Port:              getenvDefault("PORT", "8080"),
		BaseURL:           getenvDefault("APP_BASE_URL", "http://localhost:3000"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          getenvDefault("REDIS_URL", "redis://localhost:6379"),
		LogFile:           getenvDefault("LOG_FILE", "logs/server.log"),
		AllowedDomain:     strings.ToLower(clean(getenvDefault("ALLOWED_DOMAIN", "jkkn.ac.in"))),
		SessionTTL:        30 * 24 * time.Hour,
		CodeTTL:           2 * time.Minute,
		StateTTL:          10 * time.Minute,
		SecureCookies:     parseBool(getenvDefault("SECURE_COOKIES", "true")),
		GatewayFailClosed: parseBool(os.Getenv("GATEWAY_FAIL_CLOSED")),
		PortalUpstream:    os.Getenv("PORTAL_UPSTREAM_URL"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.AllowedDomain == "" {
		return Config{}, fmt.Errorf("ALLOWED_DOMAIN is required")
	}

	cfg.Google = GoogleConfig{
		ClientID:     clean(os.Getenv("GOOGLE_CLIENT_ID")),
		ClientSecret: clean(os.Getenv("GOOGLE_CLIENT_SECRET")),
		RedirectURL:  getenvDefault("GOOGLE_REDIRECT_URI", cfg.BaseURL+"/api/auth/google/callback"),
	}

	cfg.Email = EmailConfig{
		Host:     clean(os.Getenv("EMAIL_SERVER_HOST")),
		Port:     emailPort,
		Username: clean(os.Getenv("EMAIL_SERVER_USER")),
		Password: clean(os.Getenv("EMAIL_SERVER_PASSWORD")),
		From:     clean(os.Getenv("EMAIL_FROM")),
		FromName: getenvDefault("EMAIL_FROM_NAME", "Campus Portal"),
		Secure:   parseBool(os.Getenv("EMAIL_SERVER_SECURE")),
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func parseBool(val string) bool {
	if val == "" {
		return false
	}
	val = strings.ToLower(strings.Trim(val, "\"' "))
	return val == "1" || val == "true" || val == "yes"
}

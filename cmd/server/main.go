package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"campusgate/internal/auth"
	"campusgate/internal/config"
	"campusgate/internal/database"
	"campusgate/internal/email"
	redisx "campusgate/internal/redis"
	"campusgate/internal/server"
)

const cleanupInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logOutput := io.Writer(os.Stdout)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			log.Fatalf("log setup error: %v", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("log file open error: %v", err)
		}
		defer f.Close()
		logOutput = io.MultiWriter(os.Stdout, f)
	}
	log.SetOutput(logOutput)
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lshortfile)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	users := auth.NewUserRepository(db)
	sessions := auth.NewSessionRepository(db)
	codes := auth.NewVerificationCodeRepository(db)
	limiter := &auth.RateLimiter{Redis: redisClient}
	mailer := email.NewSender(cfg.Email)

	var google auth.IdentityProvider
	if cfg.Google.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		provider, err := auth.NewGoogleProvider(ctx, cfg.Google, cfg.AllowedDomain)
		cancel()
		if err != nil {
			log.Fatalf("google provider error: %v", err)
		}
		google = provider
	} else {
		log.Printf("google sign-in disabled: client credentials not configured")
	}

	flow := auth.NewFlow(
		auth.NewDomainPolicy(cfg.AllowedDomain),
		users, sessions, codes, google, mailer, limiter,
		auth.FlowConfig{SessionTTL: cfg.SessionTTL, CodeTTL: cfg.CodeTTL},
	)

	api, err := server.NewServer(cfg, flow, google)
	if err != nil {
		log.Fatalf("server init error: %v", err)
	}

	go cleanupLoop(sessions, codes)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	log.Printf("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func cleanupLoop(sessions *auth.SessionRepository, codes *auth.VerificationCodeRepository) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		now := time.Now()

		if n, err := sessions.DeleteExpired(ctx, now); err != nil {
			log.Printf("cleanup: delete expired sessions: %v", err)
		} else if n > 0 {
			log.Printf("cleanup: removed %d expired sessions", n)
		}
		if n, err := codes.DeleteExpired(ctx, now); err != nil {
			log.Printf("cleanup: delete expired codes: %v", err)
		} else if n > 0 {
			log.Printf("cleanup: removed %d expired verification codes", n)
		}

		cancel()
	}
}

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter bounds wrong-code guesses and back-to-back code emails.
// Both limits sit on top of the store-level 3-per-10-minute window.
type AttemptLimiter interface {
	RegisterVerifyAttempt(ctx context.Context, email string) (locked bool, err error)
	ResetVerify(ctx context.Context, email string)
	CooldownActive(ctx context.Context, email string) bool
	StartCooldown(ctx context.Context, email string)
}

type RateLimiter struct {
	Redis *redis.Client
}

const (
	verifyMaxAttempts = 5
	verifyAttemptTTL  = 10 * time.Minute
	sendCooldown      = 60 * time.Second
)

func (r *RateLimiter) verifyAttemptKey(email string) string {
	return "verify_attempts:" + strings.ToLower(email)
}

func (r *RateLimiter) sendCooldownKey(email string) string {
	return "send_cooldown:" + strings.ToLower(email)
}

func (r *RateLimiter) RegisterVerifyAttempt(ctx context.Context, email string) (bool, error) {
	key := r.verifyAttemptKey(email)

	attempts, err := r.Redis.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if attempts == 1 {
		r.Redis.Expire(ctx, key, verifyAttemptTTL)
	}
	return attempts > verifyMaxAttempts, nil
}

func (r *RateLimiter) ResetVerify(ctx context.Context, email string) {
	r.Redis.Del(ctx, r.verifyAttemptKey(email))
}

func (r *RateLimiter) CooldownActive(ctx context.Context, email string) bool {
	exists, _ := r.Redis.Exists(ctx, r.sendCooldownKey(email)).Result()
	return exists == 1
}

func (r *RateLimiter) StartCooldown(ctx context.Context, email string) {
	r.Redis.Set(ctx, r.sendCooldownKey(email), "1", sendCooldown)
}

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerificationCodeRepository struct {
	DB *pgxpool.Pool
}

func NewVerificationCodeRepository(db *pgxpool.Pool) *VerificationCodeRepository {
	return &VerificationCodeRepository{DB: db}
}

// Create invalidates every pending code for the email and inserts the new one
// inside a single transaction, so concurrent send-code requests cannot leave
// two simultaneously valid codes.
func (r *VerificationCodeRepository) Create(ctx context.Context, email, code string, now, expires time.Time) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin verification code transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		UPDATE verification_codes
		SET "used_at"=$1
		WHERE "email"=$2 AND "used_at" IS NULL
	`, now, email); err != nil {
		return fmt.Errorf("invalidate previous codes: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO verification_codes ("id","email","code","created_at","expires_at")
		VALUES ($1,$2,$3,$4,$5)
	`, uuid.NewString(), email, code, now, expires); err != nil {
		return fmt.Errorf("insert verification code: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *VerificationCodeRepository) Consume(ctx context.Context, email, code string, now time.Time) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE verification_codes
		SET "used_at"=$1
		WHERE "email"=$2 AND "code"=$3 AND "used_at" IS NULL AND "expires_at" > $1
	`, now, email, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *VerificationCodeRepository) CountSince(ctx context.Context, email string, since time.Time) (int, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM verification_codes
		WHERE "email"=$1 AND "created_at" > $2
	`, email, since)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM verification_codes WHERE "expires_at" <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

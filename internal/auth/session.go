package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionRepository struct {
	DB *pgxpool.Pool
}

func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{DB: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO sessions ("id","user_id","session_token","expires_at")
		VALUES ($1,$2,$3,$4)
	`, session.ID, session.UserID, session.Token, session.ExpiresAt)
	return err
}

func (r *SessionRepository) FindValid(ctx context.Context, token string, now time.Time) (*Session, *User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT s."id",s."user_id",s."expires_at",s."created_at",
		       u."id",u."email",u."google_id",u."full_name",u."avatar_url",u."role",u."created_at",u."updated_at"
		FROM sessions s
		INNER JOIN users u ON u."id" = s."user_id"
		WHERE s."session_token"=$1 AND s."expires_at" > $2
	`, token, now)

	var (
		sess Session
		user User
	)
	sess.Token = token
	if err := row.Scan(
		&sess.ID, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt,
		&user.ID, &user.Email, &user.GoogleID, &user.FullName, &user.AvatarURL, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return &sess, &user, nil
}

func (r *SessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM sessions WHERE "session_token"=$1`, token)
	return err
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM sessions WHERE "user_id"=$1`, userID)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM sessions WHERE "expires_at" <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

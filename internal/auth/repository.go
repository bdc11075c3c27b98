package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `"id","email","google_id","full_name","avatar_url","role","created_at","updated_at"`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "id"=$1
	`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "email"=$1
	`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "google_id"=$1
	`, googleID)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) Create(ctx context.Context, user *User) (*User, error) {
	id := uuid.NewString()
	role := user.Role
	if role == "" {
		role = "user"
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users ("id","email","google_id","full_name","avatar_url","role")
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+userColumns+`
	`, id, user.Email, user.GoogleID, user.FullName, user.AvatarURL, role)
	return scanUser(row)
}

func (r *UserRepository) RefreshProfile(ctx context.Context, googleID string, profile GoogleProfile) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users
		SET "email"=$1, "full_name"=$2, "avatar_url"=$3, "updated_at"=NOW()
		WHERE "google_id"=$4
		RETURNING `+userColumns+`
	`, profile.Email, profile.FullName, profile.AvatarURL, googleID)
	return scanUser(row)
}

func (r *UserRepository) LinkGoogle(ctx context.Context, userID string, profile GoogleProfile) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users
		SET "google_id"=$1, "full_name"=$2, "avatar_url"=$3, "updated_at"=NOW()
		WHERE "id"=$4
		RETURNING `+userColumns+`
	`, profile.GoogleID, profile.FullName, profile.AvatarURL, userID)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		id        string
		email     string
		googleID  sql.NullString
		fullName  sql.NullString
		avatarURL sql.NullString
		role      string
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &email, &googleID, &fullName, &avatarURL, &role, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return &User{
		ID:        id,
		Email:     email,
		GoogleID:  nullStringPtr(googleID),
		FullName:  nullStringPtr(fullName),
		AvatarURL: nullStringPtr(avatarURL),
		Role:      role,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

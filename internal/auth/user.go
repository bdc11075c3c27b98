package auth

import "time"

type User struct {
	ID        string
	Email     string
	GoogleID  *string
	FullName  *string
	AvatarURL *string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GoogleProfile is the identity extracted from a verified Google ID token.
type GoogleProfile struct {
	GoogleID     string
	Email        string
	FullName     string
	AvatarURL    string
	HostedDomain string
}

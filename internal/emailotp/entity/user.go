package entity

import (
	"time"

	"github.com/wardenid/warden/internal/pkg/valueobject"
)

type User struct {
	ID            int64
	Email         string
	Name          string
	EmailVerified bool
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type NewUser struct {
	ID            int64
	Email         string
	Name          string
	EmailVerified bool
	Status        UserStatus
}

// UserCredential is the password credential attached to a user.
//
// A user provisioned through OTP sign-in may not have one until a password
// reset creates it.
type UserCredential struct {
	UserID    int64
	Password  string // hashed
	UpdatedAt time.Time
}

type UserCredentialInfo struct {
	ID       int64
	Email    string
	Status   UserStatus
	Password string
}

type Session struct {
	ID        int64
	UserID    int64
	Token     string // hashed at rest
	ExpiresAt time.Time
	Metadata  valueobject.JSONMap
}

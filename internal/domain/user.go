package domain

import (
	"context"
	"time"
)

// User is an authenticated account that can create invitation links.
// swagger:model User
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	PasswordHash string    `json:"-"`
	Salt         string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository defines storage operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, email string, expiry time.Duration) (string, error)
}

// TokenVerifier validates an access token and returns the user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// PasswordHasher hashes and compares passwords with a per-user salt.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (string, error)
	Compare(hash, salt, password string) error
}

// AuthResult is returned by signup and login.
// swagger:model AuthResult
type AuthResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// AuthService defines signup and login.
type AuthService interface {
	SignUp(ctx context.Context, email, password, firstName string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

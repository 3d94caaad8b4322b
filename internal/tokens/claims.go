package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Type string

const (
	Access  Type = "access"
	Refresh Type = "refresh"
	Reset   Type = "reset"
)

type Claims struct {
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	Type        Type     `json:"type"`
	jwt.RegisteredClaims
}

// Remaining is how long the token stays valid after now; zero once expired.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Identity is the subject a token pair is minted for.
type Identity struct {
	UserID      string
	Email       string
	Permissions []string
}

type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessJTI        string
	RefreshJTI       string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

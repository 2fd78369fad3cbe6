package token

import "time"

// Maker issues and verifies access tokens for back-office users.
type Maker interface {
	CreateToken(email, role string, duration time.Duration) (string, error)
	VerifyToken(token string) (*Payload, error)
}

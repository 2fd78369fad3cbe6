package token

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"medequip-backend/utils"
)

var (
	ErrExpired    = errors.New("token has expired")
	ErrUnknownKey = errors.New("token was signed with an unknown key")
)

// Payload is the claim set carried inside a token.
type Payload struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

func NewPayload(email, role string, duration time.Duration) (*Payload, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if duration <= 0 {
		return nil, errors.New("duration must be positive")
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	issuedAt := time.Now().In(utils.DateLocation)
	return &Payload{
		ID:        tokenID,
		Email:     email,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiredAt: issuedAt.Add(duration),
	}, nil
}

func (p *Payload) Valid() error {
	if time.Now().In(utils.DateLocation).After(p.ExpiredAt) {
		return ErrExpired
	}
	return nil
}

// HasRole reports whether the token's role is one of roles.
func (p *Payload) HasRole(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

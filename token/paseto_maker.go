package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/o1egl/paseto"
	"golang.org/x/crypto/chacha20poly1305"
)

// keyFooter names the key a token was encrypted with so keys can rotate
// without logging everyone out.
type keyFooter struct {
	KeyID string `json:"kid"`
}

// PasetoMaker issues v2 local tokens with the current key and accepts tokens
// from any retired key it was given.
type PasetoMaker struct {
	paseto  *paseto.V2
	current string
	keys    map[string][]byte
}

// NewPasetoMaker takes the active 32-byte key followed by any retired keys.
func NewPasetoMaker(symmetricKey string, retired ...string) (Maker, error) {
	maker := &PasetoMaker{
		paseto: paseto.NewV2(),
		keys:   make(map[string][]byte, len(retired)+1),
	}
	for i, key := range append([]string{symmetricKey}, retired...) {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("invalid key size: must be exactly %d characters", chacha20poly1305.KeySize)
		}
		id := keyID(key)
		maker.keys[id] = []byte(key)
		if i == 0 {
			maker.current = id
		}
	}
	return maker, nil
}

func keyID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

func (maker *PasetoMaker) CreateToken(email, role string, duration time.Duration) (string, error) {
	payload, err := NewPayload(email, role, duration)
	if err != nil {
		return "", fmt.Errorf("failed to create token payload: %w", err)
	}

	token, err := maker.paseto.Encrypt(maker.keys[maker.current], payload, keyFooter{KeyID: maker.current})
	if err != nil {
		return "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return token, nil
}

func (maker *PasetoMaker) VerifyToken(token string) (*Payload, error) {
	var footer keyFooter
	if err := paseto.ParseFooter(token, &footer); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	key, ok := maker.keys[footer.KeyID]
	if !ok {
		return nil, fmt.Errorf("invalid token: %w", ErrUnknownKey)
	}

	payload := &Payload{}
	if err := maker.paseto.Decrypt(token, key, payload, nil); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if err := payload.Valid(); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return payload, nil
}

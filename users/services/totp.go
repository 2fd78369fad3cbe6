package services

import (
	"github.com/pquerna/otp/totp"
)

// TOTPSetup is what an authenticator app needs to enrol an account.
type TOTPSetup struct {
	Secret    string `json:"-"`
	QRCodeURL string `json:"qr_code_url"`
	ManualKey string `json:"manual_key"`
}

// GenerateTOTPSecret creates a new authenticator secret for email.
func GenerateTOTPSecret(issuer, email string) (*TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: email,
	})
	if err != nil {
		return nil, err
	}
	return &TOTPSetup{Secret: key.Secret(), QRCodeURL: key.URL(), ManualKey: key.Secret()}, nil
}

// ValidateTOTP checks code against secret. An account without a secret has
// no second factor and always passes.
func ValidateTOTP(secret, code string) bool {
	if secret == "" {
		return true
	}
	if code == "" {
		return false
	}
	return totp.Validate(code, secret)
}

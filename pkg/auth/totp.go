package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new TOTP secret for an account. The returned
// key carries the otpauth:// URL for enrollment in an authenticator app.
func GenerateTOTPSecret(issuer, username string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: username,
	})
}

// ValidateTOTP checks a 6-digit code against a stored secret.
func ValidateTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}

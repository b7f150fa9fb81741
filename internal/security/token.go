package security

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

// NewResetToken returns 32 bytes of CSPRNG entropy, hex-encoded. The token
// is opaque: it carries no meaning outside a store lookup.
func NewResetToken() (string, error) {
	buf := make([]byte, 32)

	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf), nil
}

func ExpiryFrom(now time.Time) time.Time {
	return now.UTC().Add(ResetTokenTTL)
}

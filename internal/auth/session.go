package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie. The value is a signed token, not the
// raw email.
const CookieName = "user"

// SessionTTL is the one hour cookie window clients rely on.
const SessionTTL = time.Hour

var ErrInvalidSession = errors.New("invalid session")

type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager issues and verifies the signed session token carried by the
// `user` cookie. Sessions are stateless: there is no revocation list, so a
// stolen cookie stays valid until expiry.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a session token for the normalized email.
func (m *Manager) Issue(email string) (string, error) {
	now := time.Now().UTC()

	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify returns the email carried by a valid, unexpired session token.
func (m *Manager) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return "", ErrInvalidSession
	}

	claims, ok := token.Claims.(*SessionClaims)

	if !ok || !token.Valid || claims.Email == "" {
		return "", ErrInvalidSession
	}

	return claims.Email, nil
}

package user

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"` // never expose hash in JSON
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Public is the shape returned to clients: id, name, email only.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email}
}

// HasPendingReset reports whether a reset token is set and unexpired at now.
func (u User) HasPendingReset(now time.Time) bool {
	return u.ResetToken != nil && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
}

var nameRe = regexp.MustCompile(`^[A-Za-z ]+$`)

// NormalizeEmail lowercases the canonical lookup/storage key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// ValidEmail accepts only a bare address. ParseAddress also takes RFC 5322
// display-name forms ("Jane <jane@x.com>"), which must not become the stored
// login key or an SMTP recipient.
func ValidEmail(email string) bool {
	if email == "" {
		return false
	}

	addr, err := mail.ParseAddress(email)

	return err == nil && addr.Address == email
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rmoralesc/accounthub/internal/domain/user"
	"github.com/rmoralesc/accounthub/internal/mail"
	"github.com/rmoralesc/accounthub/internal/repo/postgres"
	"github.com/rmoralesc/accounthub/internal/security"
)

// Error taxonomy surfaced to the HTTP boundary. Invalid credentials stays
// one indistinguishable error for "no such user" and "wrong password".
var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrEmailTaken            = errors.New("email already registered")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMailDelivery          = errors.New("failed to send reset email")
)

// ValidationError carries the exact message shown to the client.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (user.User, error)
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	UpdatePasswordAndClearToken(ctx context.Context, id, passwordHash string) error
}

// Auth mediates every identity state transition: signup, login, the
// reset-token lifecycle, and the current-user lookup behind the cookie.
type Auth struct {
	store       UserStore
	mailer      mail.Mailer
	hasher      security.Hasher
	frontendURL string
	log         *slog.Logger

	now func() time.Time
}

func NewAuth(store UserStore, mailer mail.Mailer, hasher security.Hasher, frontendURL string, log *slog.Logger) *Auth {
	return &Auth{
		store:       store,
		mailer:      mailer,
		hasher:      hasher,
		frontendURL: frontendURL,
		log:         log,
		now:         time.Now,
	}
}

func (a *Auth) SignUp(ctx context.Context, name, email, password string) (user.User, error) {
	email = user.NormalizeEmail(email)

	if err := validateName(name); err != nil {
		return user.User{}, err
	}
	if err := validateEmail(email); err != nil {
		return user.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return user.User{}, err
	}

	hash, err := a.hasher.Hash(password)

	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := a.store.Create(ctx, name, email, hash)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			return user.User{}, ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

func (a *Auth) Login(ctx context.Context, email, password string) (user.User, error) {
	email = user.NormalizeEmail(email)

	if err := validateEmail(email); err != nil {
		return user.User{}, err
	}
	if err := validatePassword(password); err != nil {
		return user.User{}, err
	}

	u, err := a.store.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// burn a hash comparison so the unknown-account path costs
			// the same as a mismatch
			a.hasher.DummyCheck(password)
			return user.User{}, ErrInvalidCredentials
		}

		return user.User{}, err
	}

	if err := a.hasher.Check(u.PasswordHash, password); err != nil {
		return user.User{}, ErrInvalidCredentials
	}

	return u, nil
}

// CurrentUser resolves the email carried by a verified session cookie.
func (a *Auth) CurrentUser(ctx context.Context, email string) (user.User, error) {
	u, err := a.store.GetByEmail(ctx, user.NormalizeEmail(email))

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return user.User{}, ErrInvalidCredentials
		}

		return user.User{}, err
	}

	return u, nil
}

// RequestPasswordReset generates and persists a fresh token, then attempts
// delivery. The response is generic whether or not the account exists. The
// token is already committed when delivery is attempted; a mail failure
// leaves a valid but undelivered token behind.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)

	if err := validateEmail(email); err != nil {
		return err
	}

	u, err := a.store.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			// match the cost of the hashing the present-user path pays
			a.hasher.DummyCheck(email)
			return nil
		}

		return err
	}

	token, err := security.NewResetToken()

	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiry := security.ExpiryFrom(a.now())

	if err := a.store.SetResetToken(ctx, u.ID, token, expiry); err != nil {
		return err
	}

	err = a.mailer.SendPasswordReset(ctx, mail.PasswordResetInput{
		Email:     u.Email,
		Name:      u.Name,
		ResetLink: fmt.Sprintf("%s/reset-password?token=%s", a.frontendURL, token),
	})

	if err != nil {
		a.log.Error("reset mail delivery failed", "err", err, "user_id", u.ID)
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	return nil
}

// ValidateResetToken is a pure read; clients call it before rendering the
// reset form.
func (a *Auth) ValidateResetToken(ctx context.Context, token string) error {
	if token == "" {
		return invalid("Token is required")
	}

	_, err := a.store.GetByResetToken(ctx, token, a.now())

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}

		return err
	}

	return nil
}

// ResetPassword consumes a token: the new hash lands and the token clears in
// the same store update, so a consumed token never validates again.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return invalid("Token is required")
	}

	if err := validateResetPassword(password); err != nil {
		return err
	}

	u, err := a.store.GetByResetToken(ctx, token, a.now())

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}

		return err
	}

	hash, err := a.hasher.Hash(password)

	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return a.store.UpdatePasswordAndClearToken(ctx, u.ID, hash)
}

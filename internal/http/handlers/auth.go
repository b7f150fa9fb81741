package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmoralesc/accounthub/internal/auth"
	"github.com/rmoralesc/accounthub/internal/domain/user"
	"github.com/rmoralesc/accounthub/internal/http/middlewares"
	"github.com/rmoralesc/accounthub/internal/service"
)

type AuthService interface {
	SignUp(ctx context.Context, name, email, password string) (user.User, error)
	Login(ctx context.Context, email, password string) (user.User, error)
	CurrentUser(ctx context.Context, email string) (user.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ValidateResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, password string) error
}

type SessionIssuer interface {
	Issue(email string) (string, error)
	TTL() time.Duration
}

type AuthHandler struct {
	svc          AuthService
	sessions     SessionIssuer
	secureCookie bool
}

func NewAuthHandler(svc AuthService, sessions SessionIssuer, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		sessions:     sessions,
		secureCookie: secureCookie,
	}
}

// Request bodies carry no binding constraints beyond shape; the service owns
// validation so the messages match what clients already display.

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.svc.SignUp(cctx, req.Name, req.Email, req.Password)

	if err != nil {
		h.respondAuthError(ctx, err, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"id":      u.ID,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.svc.Login(cctx, req.Email, req.Password)

	if err != nil {
		h.respondAuthError(ctx, err, "Could not log in")
		return
	}

	token, err := h.sessions.Issue(u.Email)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setSessionCookie(ctx, token)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    u.Public(),
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	// stateless sessions: nothing server-side to invalidate
	h.clearSessionCookie(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
	})
}

func (h *AuthHandler) CurrentUser(ctx *gin.Context) {
	email, ok := middlewares.EmailFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Unauthorized: No user cookie found")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.svc.CurrentUser(cctx, email)

	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			RespondUnAuthorized(ctx, "unauthorized", "Unauthorized: User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req EmailRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// mail delivery is the one call here that can legitimately take seconds
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()

	err := h.svc.RequestPasswordReset(cctx, req.Email)

	if err != nil {
		h.respondAuthError(ctx, err, "Could not process reset request")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "If the email exists, a reset link has been sent.",
	})
}

func (h *AuthHandler) ValidateToken(ctx *gin.Context) {
	var req TokenRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.ValidateResetToken(cctx, req.Token); err != nil {
		h.respondAuthError(ctx, err, "Could not validate token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Token is valid",
	})
}

func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.svc.ResetPassword(cctx, req.Token, req.Password); err != nil {
		h.respondAuthError(ctx, err, "Could not reset password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Password has been reset successfully",
	})
}

// Helper functions

func (h *AuthHandler) respondAuthError(ctx *gin.Context, err error, fallback string) {
	var vErr *service.ValidationError

	switch {
	case errors.As(err, &vErr):
		RespondBadRequest(ctx, vErr.Message, nil)
	case errors.Is(err, service.ErrEmailTaken):
		RespondConflict(ctx, "email_taken", "Email already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		RespondBadRequest(ctx, "Invalid or expired token", nil)
	case errors.Is(err, service.ErrMailDelivery):
		RespondError(ctx, http.StatusInternalServerError, "mail_error", "Failed to send reset email", nil)
	default:
		RespondInternal(ctx, fallback)
	}
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	maxAge := int(h.sessions.TTL().Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		auth.CookieName,
		token,
		maxAge,
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		auth.CookieName,
		"",
		-1,
		"/",
		"",
		h.secureCookie,
		true,
	)
}

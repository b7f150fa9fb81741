package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rmoralesc/accounthub/internal/domain/user"
	"github.com/rmoralesc/accounthub/internal/repo/postgres"
)

type UsersStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	Update(ctx context.Context, id, name, email string) error
	Delete(ctx context.Context, id string) error
}

// UsersHandler is the management CRUD surface. It reads and writes the same
// users table the auth service does, but never touches credential fields.
type UsersHandler struct {
	store UsersStore
}

func NewUsersHandler(store UsersStore) *UsersHandler {
	return &UsersHandler{store: store}
}

type UpsertUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	items := make([]user.Public, 0, len(users))

	for _, u := range users {
		items = append(items, u.Public())
	}

	ctx.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// userID rejects malformed ids before they reach the store; a non-UUID would
// otherwise error on the UUID column and surface as a 500.
func userID(ctx *gin.Context) (string, bool) {
	id := ctx.Param("id")

	if _, err := uuid.Parse(id); err != nil {
		RespondNotFound(ctx, "User not found")
		return "", false
	}

	return id, true
}

func (h *UsersHandler) GetUserById(ctx *gin.Context) {
	id, ok := userID(ctx)

	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u.Public())
}

// CreateUser inserts a record with no credentials; such accounts cannot log
// in until a password reset gives them a hash.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req UpsertUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.store.Create(cctx, req.Name, user.NormalizeEmail(req.Email), "")

	if err != nil {
		if errors.Is(err, postgres.ErrEmailAlreadyUsed) {
			RespondConflict(ctx, "email_taken", "Email already registered")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u.Public())
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var req UpsertUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	id, ok := userID(ctx)

	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.store.Update(cctx, id, req.Name, user.NormalizeEmail(req.Email))

	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrUserNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, postgres.ErrEmailAlreadyUsed):
			RespondConflict(ctx, "email_taken", "Email already registered")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id, ok := userID(ctx)

	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

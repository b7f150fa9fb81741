package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmoralesc/accounthub/internal/domain/user"
	"github.com/rmoralesc/accounthub/internal/http/handlers"
	"github.com/rmoralesc/accounthub/internal/repo/postgres"
)

type fakeUsersStore struct {
	listFn    func(ctx context.Context) ([]user.User, error)
	getByIDFn func(ctx context.Context, id string) (user.User, error)
	createFn  func(ctx context.Context, name, email, passwordHash string) (user.User, error)
	updateFn  func(ctx context.Context, id, name, email string) error
	deleteFn  func(ctx context.Context, id string) error
}

func (f *fakeUsersStore) List(ctx context.Context) ([]user.User, error) {
	return f.listFn(ctx)
}

func (f *fakeUsersStore) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeUsersStore) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	return f.createFn(ctx, name, email, passwordHash)
}

func (f *fakeUsersStore) Update(ctx context.Context, id, name, email string) error {
	return f.updateFn(ctx, id, name, email)
}

func (f *fakeUsersStore) Delete(ctx context.Context, id string) error {
	return f.deleteFn(ctx, id)
}

func newUsersTestRouter(store handlers.UsersStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewUsersHandler(store)

	r := gin.New()
	r.GET("/users", h.ListUsers)
	r.POST("/users", h.CreateUser)
	r.GET("/users/:id", h.GetUserById)
	r.PUT("/users/:id", h.UpdateUser)
	r.DELETE("/users/:id", h.DeleteUser)

	return r
}

func TestListUsersHandler(t *testing.T) {
	store := &fakeUsersStore{
		listFn: func(_ context.Context) ([]user.User, error) {
			return []user.User{
				{ID: "u-1", Name: "Jane Doe", Email: "jane@x.com", PasswordHash: "$2a$x", CreatedAt: time.Now()},
				{ID: "u-2", Name: "John Roe", Email: "john@x.com"},
			}, nil
		},
	}

	r := newUsersTestRouter(store)
	w := doJSON(t, r, http.MethodGet, "/users", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)

	if body["count"] != float64(2) {
		t.Errorf("got count %v", body["count"])
	}

	items, ok := body["items"].([]any)

	if !ok || len(items) != 2 {
		t.Fatalf("unexpected items: %v", body["items"])
	}

	first, _ := items[0].(map[string]any)

	if first["email"] != "jane@x.com" {
		t.Errorf("unexpected first item: %v", first)
	}

	for _, key := range []string{"password_hash", "passwordHash", "reset_token"} {
		if _, leaked := first[key]; leaked {
			t.Errorf("credential field %q leaked in listing", key)
		}
	}
}

const (
	knownUserID   = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
	missingUserID = "aa0e8400-e29b-41d4-a716-446655440000"
)

func TestGetUserByIdHandler(t *testing.T) {
	store := &fakeUsersStore{
		getByIDFn: func(_ context.Context, id string) (user.User, error) {
			if id != knownUserID {
				return user.User{}, postgres.ErrUserNotFound
			}
			return user.User{ID: knownUserID, Name: "Jane Doe", Email: "jane@x.com"}, nil
		},
	}

	r := newUsersTestRouter(store)

	t.Run("found", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/users/"+knownUserID, "")

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if body := decodeBody(t, w); body["id"] != knownUserID {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("missing", func(t *testing.T) {
		w := doJSON(t, r, http.MethodGet, "/users/"+missingUserID, "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if msg := errMessage(t, w); msg != "User not found" {
			t.Errorf("got error message %q", msg)
		}
	})
}

// Malformed ids must not reach the store: the UUID column would reject them
// as a query error and the response would degrade to a 500.
func TestMalformedUserID(t *testing.T) {
	store := &fakeUsersStore{
		getByIDFn: func(_ context.Context, _ string) (user.User, error) {
			t.Error("store called with a malformed id")
			return user.User{}, postgres.ErrUserNotFound
		},
		updateFn: func(_ context.Context, _, _, _ string) error {
			t.Error("store called with a malformed id")
			return nil
		},
		deleteFn: func(_ context.Context, _ string) error {
			t.Error("store called with a malformed id")
			return nil
		},
	}

	r := newUsersTestRouter(store)

	tests := []struct {
		name   string
		method string
		body   string
	}{
		{name: "get", method: http.MethodGet},
		{name: "update", method: http.MethodPut, body: `{"name":"Jane Doe","email":"jane@x.com"}`},
		{name: "delete", method: http.MethodDelete},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, tc.method, "/users/not-a-uuid", tc.body)

			if w.Code != http.StatusNotFound {
				t.Fatalf("got status %d: %s", w.Code, w.Body.String())
			}

			if msg := errMessage(t, w); msg != "User not found" {
				t.Errorf("got error message %q", msg)
			}
		})
	}
}

func TestCreateUserHandler(t *testing.T) {
	t.Run("created without credentials", func(t *testing.T) {
		var gotHash string

		store := &fakeUsersStore{
			createFn: func(_ context.Context, name, email, passwordHash string) (user.User, error) {
				gotHash = passwordHash
				return user.User{ID: "u-3", Name: name, Email: email}, nil
			},
		}

		r := newUsersTestRouter(store)
		w := doJSON(t, r, http.MethodPost, "/users", `{"name":"Jane Doe","email":"Jane@X.com"}`)

		if w.Code != http.StatusCreated {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if gotHash != "" {
			t.Errorf("management create stored a credential hash %q", gotHash)
		}

		body := decodeBody(t, w)

		if body["email"] != "jane@x.com" {
			t.Errorf("email not normalized: %v", body["email"])
		}
	})

	t.Run("missing email rejected by binding", func(t *testing.T) {
		store := &fakeUsersStore{
			createFn: func(_ context.Context, _, _, _ string) (user.User, error) {
				t.Fatal("store called despite invalid body")
				return user.User{}, nil
			},
		}

		r := newUsersTestRouter(store)
		w := doJSON(t, r, http.MethodPost, "/users", `{"name":"Jane Doe"}`)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		store := &fakeUsersStore{
			createFn: func(_ context.Context, _, _, _ string) (user.User, error) {
				return user.User{}, postgres.ErrEmailAlreadyUsed
			},
		}

		r := newUsersTestRouter(store)
		w := doJSON(t, r, http.MethodPost, "/users", `{"name":"Jane Doe","email":"jane@x.com"}`)

		if w.Code != http.StatusConflict {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if msg := errMessage(t, w); msg != "Email already registered" {
			t.Errorf("got error message %q", msg)
		}
	})
}

func TestUpdateUserHandler(t *testing.T) {
	tests := []struct {
		name       string
		storeErr   error
		wantStatus int
		wantMsg    string
	}{
		{name: "updated", wantStatus: http.StatusOK},
		{name: "missing", storeErr: postgres.ErrUserNotFound, wantStatus: http.StatusNotFound, wantMsg: "User not found"},
		{name: "email collision", storeErr: postgres.ErrEmailAlreadyUsed, wantStatus: http.StatusConflict, wantMsg: "Email already registered"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeUsersStore{
				updateFn: func(_ context.Context, id, _, email string) error {
					if id != knownUserID {
						t.Errorf("store called with id %q", id)
					}
					if email != "jane@x.com" {
						t.Errorf("email not normalized: %q", email)
					}
					return tc.storeErr
				},
			}

			r := newUsersTestRouter(store)
			w := doJSON(t, r, http.MethodPut, "/users/"+knownUserID, `{"name":"Jane Doe","email":"JANE@x.com"}`)

			if w.Code != tc.wantStatus {
				t.Fatalf("got status %d: %s", w.Code, w.Body.String())
			}

			if tc.wantStatus == http.StatusOK {
				if body := decodeBody(t, w); body["message"] != "User updated" {
					t.Errorf("got message %v", body["message"])
				}
				return
			}

			if msg := errMessage(t, w); msg != tc.wantMsg {
				t.Errorf("got error message %q, want %q", msg, tc.wantMsg)
			}
		})
	}
}

func TestDeleteUserHandler(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		store := &fakeUsersStore{
			deleteFn: func(_ context.Context, id string) error {
				if id != knownUserID {
					t.Errorf("store called with id %q", id)
				}
				return nil
			},
		}

		r := newUsersTestRouter(store)
		w := doJSON(t, r, http.MethodDelete, "/users/"+knownUserID, "")

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if body := decodeBody(t, w); body["message"] != "User deleted" {
			t.Errorf("got message %v", body["message"])
		}
	})

	t.Run("missing", func(t *testing.T) {
		store := &fakeUsersStore{
			deleteFn: func(_ context.Context, _ string) error {
				return postgres.ErrUserNotFound
			},
		}

		r := newUsersTestRouter(store)
		w := doJSON(t, r, http.MethodDelete, "/users/"+missingUserID, "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("got status %d: %s", w.Code, w.Body.String())
		}

		if msg := errMessage(t, w); msg != "User not found" {
			t.Errorf("got error message %q", msg)
		}
	})
}

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmoralesc/accounthub/internal/config"
	"github.com/rmoralesc/accounthub/internal/db"
	apphttp "github.com/rmoralesc/accounthub/internal/http"
)

func testConfig() config.Config {
	return config.Config{
		Env:             "test",
		FrontendURL:     "http://localhost:5173",
		SessionSecret:   "test-secret-key",
		BcryptCost:      4,
		RateLimit:       1000,
		RateLimitWindow: 15 * time.Minute,
		CORSOrigins:     []string{"http://localhost:5173"},
	}
}

// setupAuthStack needs a reachable postgres; set TEST_DB_DSN to run these.
func setupAuthStack(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	gin.SetMode(gin.TestMode)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	if err := db.Migrate(dsn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return apphttp.NewAuthRouter(logger, pool, testConfig()), pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `TRUNCATE users CASCADE`)

	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, *http.Response) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w, w.Result()
}

func mustReadJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any

	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}

	return out
}

func sessionCookie(t *testing.T, response *http.Response) *http.Cookie {
	t.Helper()

	for _, c := range response.Cookies() {
		if c.Name == "user" {
			return c
		}
	}

	t.Fatalf("user cookie not found in response")
	return nil
}

func TestAuthIntegration_Signup_Login_User_Logout(t *testing.T) {
	router, pool := setupAuthStack(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	// sign up
	w, _ := doRequest(router, http.MethodPost, "/signup",
		`{"name":"Sam Doe","email":"sam@example.com","password":"password1"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, body=%s", w.Code, w.Body.String())
	}

	if body := mustReadJSON(t, w); body["message"] != "Registration successful" {
		t.Fatalf("signup body=%s", w.Body.String())
	}

	// duplicate signup conflicts
	w, _ = doRequest(router, http.MethodPost, "/signup",
		`{"name":"Sam Doe","email":"SAM@example.com","password":"password1"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup got status %d, body=%s", w.Code, w.Body.String())
	}

	// log in
	w, response := doRequest(router, http.MethodPost, "/login",
		`{"email":"sam@example.com","password":"password1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login got status %d, body=%s", w.Code, w.Body.String())
	}

	session := sessionCookie(t, response)

	if !session.HttpOnly || session.Value == "sam@example.com" {
		t.Fatalf("session cookie not hardened: %+v", session)
	}

	// cookie grants access to /user
	w, _ = doRequest(router, http.MethodGet, "/user", "", session)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /user got status %d, body=%s", w.Code, w.Body.String())
	}

	if body := mustReadJSON(t, w); body["email"] != "sam@example.com" {
		t.Fatalf("GET /user body=%s", w.Body.String())
	}

	// logout clears the cookie
	w, response = doRequest(router, http.MethodPost, "/logout", "")

	if w.Code != http.StatusOK {
		t.Fatalf("logout got status %d, body=%s", w.Code, w.Body.String())
	}

	cleared := sessionCookie(t, response)

	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Fatalf("logout did not clear the session cookie: %+v", cleared)
	}

	// no cookie, no /user
	w, _ = doRequest(router, http.MethodGet, "/user", "")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("GET /user without cookie got status %d", w.Code)
	}
}

func TestAuthIntegration_PasswordResetFlow(t *testing.T) {
	router, pool := setupAuthStack(t)
	resetDB(t, pool)
	defer resetDB(t, pool)

	w, _ := doRequest(router, http.MethodPost, "/signup",
		`{"name":"Sam Doe","email":"sam@example.com","password":"password1"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("signup got status %d, body=%s", w.Code, w.Body.String())
	}

	// request a reset; the response is generic either way
	w, _ = doRequest(router, http.MethodPost, "/forgot-password", `{"email":"sam@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password got status %d, body=%s", w.Code, w.Body.String())
	}

	w, _ = doRequest(router, http.MethodPost, "/forgot-password", `{"email":"ghost@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("forgot-password(unknown) got status %d, body=%s", w.Code, w.Body.String())
	}

	// read the token straight from the table, as the mail would carry it
	var token string

	err := pool.QueryRow(context.Background(),
		`SELECT reset_token FROM users WHERE email = 'sam@example.com'`).Scan(&token)

	if err != nil || token == "" {
		t.Fatalf("reset token not persisted: %v", err)
	}

	w, _ = doRequest(router, http.MethodPost, "/validate-token", `{"token":"`+token+`"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("validate-token got status %d, body=%s", w.Code, w.Body.String())
	}

	// weak replacement rejected by the stricter reset policy
	w, _ = doRequest(router, http.MethodPost, "/reset-password",
		`{"token":"`+token+`","password":"password1"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("weak reset got status %d, body=%s", w.Code, w.Body.String())
	}

	w, _ = doRequest(router, http.MethodPost, "/reset-password",
		`{"token":"`+token+`","password":"Newpass1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("reset-password got status %d, body=%s", w.Code, w.Body.String())
	}

	// token is consumed
	w, _ = doRequest(router, http.MethodPost, "/validate-token", `{"token":"`+token+`"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("consumed token got status %d, body=%s", w.Code, w.Body.String())
	}

	// old password is dead, new one works
	w, _ = doRequest(router, http.MethodPost, "/login",
		`{"email":"sam@example.com","password":"password1"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login(old password) got status %d, body=%s", w.Code, w.Body.String())
	}

	w, _ = doRequest(router, http.MethodPost, "/login",
		`{"email":"sam@example.com","password":"Newpass1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login(new password) got status %d, body=%s", w.Code, w.Body.String())
	}
}

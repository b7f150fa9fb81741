package middlewares

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func requireJSONRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequireJSON())

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "ok"}) }

	r.GET("/users", ok)
	r.POST("/login", ok)
	r.POST("/logout", ok)

	return r
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "json post", method: http.MethodPost, path: "/login", body: `{}`, contentType: "application/json", wantStatus: http.StatusOK},
		{name: "json with charset", method: http.MethodPost, path: "/login", body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "form post rejected", method: http.MethodPost, path: "/login", body: "a=b", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "post with body but no content type", method: http.MethodPost, path: "/login", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
		{name: "bodyless post exempt", method: http.MethodPost, path: "/logout", wantStatus: http.StatusOK},
		{name: "get exempt", method: http.MethodGet, path: "/users", wantStatus: http.StatusOK},
	}

	r := requireJSONRouter()

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request

			if tc.body == "" {
				req = httptest.NewRequest(tc.method, tc.path, nil)
			} else {
				req = httptest.NewRequest(tc.method, tc.path, bytes.NewBufferString(tc.body))
			}

			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("got status %d, want %d: %s", w.Code, tc.wantStatus, w.Body.String())
			}
		})
	}
}

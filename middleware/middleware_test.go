package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*utils.Identity, error) {
	if token == "good" || token == "revoked" {
		return &utils.Identity{ID: "u1", Email: "u1@example.com"}, nil
	}
	return nil, utils.ErrInvalidToken
}

type stubRevocations map[string]bool

func (s stubRevocations) IsRevoked(_ context.Context, token string) bool { return s[token] }

type stubProfiles struct{ err error }

func (s stubProfiles) Resolve(_ context.Context, id utils.Identity) (*models.UserProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.UserProfile{ID: id.ID, DisplayName: "Ana"}, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authEngine(profiles ProfileResolver) *gin.Engine {
	r := gin.New()
	r.Use(AuthRequired(stubVerifier{}, stubRevocations{"revoked": true}, profiles))
	r.GET("/me", func(c *gin.Context) {
		p, _ := c.Get(ContextProfileKey)
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserIDKey), "name": p.(*models.UserProfile).DisplayName})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	r := authEngine(stubProfiles{})
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"revoked", "Bearer revoked", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"u1","name":"Ana"}`, w.Body.String())
			}
		})
	}
}

func TestAuthRequiredProfileFailure(t *testing.T) {
	r := authEngine(stubProfiles{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(4))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429, 429}, codes)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestMetricsSetsProcessTime(t *testing.T) {
	r := gin.New()
	r.Use(RequestMetrics())
	r.GET("/items/:id", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"id": c.Param("id")}) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(ProcessTimeHeader))
}

package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darezone/api/middleware"
	"github.com/darezone/api/services"
)

func TestParsePagination(t *testing.T) {
	cases := []struct {
		page, limit string
		want        services.PageQuery
	}{
		{"", "", services.PageQuery{Page: 1, Limit: 20}},
		{"3", "50", services.PageQuery{Page: 3, Limit: 50}},
		{"0", "0", services.PageQuery{Page: 1, Limit: 20}},
		{"-2", "101", services.PageQuery{Page: 1, Limit: 20}},
		{"abc", "100", services.PageQuery{Page: 1, Limit: 100}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s/%s", tc.page, tc.limit), func(t *testing.T) {
			assert.Equal(t, tc.want, parsePagination(tc.page, tc.limit))
		})
	}
}

func errorResponse(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	ctx.Set(middleware.ContextUserIDKey, "u1")
	respondError(ctx, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondErrorMapsAppErrors(t *testing.T) {
	status, body := errorResponse(t, fmt.Errorf("wrapped: %w", services.ErrDuplicateCheckin))
	assert.Equal(t, http.StatusConflict, status)
	assert.EqualValues(t, services.ErrDuplicateCheckin.Code, body["code"])
	assert.Equal(t, services.ErrDuplicateCheckin.Message, body["message"])

	status, body = errorResponse(t, services.ErrNotMember)
	assert.Equal(t, http.StatusForbidden, status)
	assert.EqualValues(t, 40310, body["code"])
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	status, body := errorResponse(t, errors.New("dial tcp: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.EqualValues(t, 50000, body["code"])
	assert.NotContains(t, body["message"], "dial tcp")
}

func TestRequireUserRejectsMissingIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	_, ok := requireUser(ctx)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

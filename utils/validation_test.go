package utils

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type joinBody struct {
	InviteCode string `json:"invite_code" binding:"required,invitecode"`
	Day        string `json:"day" binding:"omitempty,isodate"`
}

func bindJoin(t *testing.T, body string) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	ctx.Request.Header.Set("Content-Type", "application/json")
	var req joinBody
	return ctx.ShouldBindJSON(&req)
}

func TestCustomValidators(t *testing.T) {
	assert.NoError(t, bindJoin(t, `{"invite_code":"abc234","day":"2024-05-01"}`))

	err := bindJoin(t, `{"invite_code":"abc"}`)
	assert.Error(t, err)
	assert.Equal(t, "invite code must be 6 letters or digits", ValidationMessage(err))

	err = bindJoin(t, `{"invite_code":"ABC234","day":"05/01/2024"}`)
	assert.Equal(t, "day must be a date in YYYY-MM-DD form", ValidationMessage(err))

	err = bindJoin(t, `{}`)
	assert.Equal(t, "invite_code is required", ValidationMessage(err))
}

func TestIsExpoPushToken(t *testing.T) {
	assert.True(t, IsExpoPushToken("ExponentPushToken[xxxx]"))
	assert.False(t, IsExpoPushToken("fcm:abcd"))
}

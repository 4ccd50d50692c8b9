package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoPusherSendsPayload(t *testing.T) {
	var got ExpoPushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer expo", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	p := NewExpoPusher(srv.URL, "expo", time.Second)
	err := p.Send(context.Background(), "ExponentPushToken[abc]", "Hi", "Body", map[string]interface{}{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", got.To)
	assert.Equal(t, "default", got.Sound)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, 1, got.Badge)
	assert.Equal(t, "v", got.Data["k"])
}

func TestExpoPusherOpensCircuitAfterFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewExpoPusher(srv.URL, "", time.Second)
	for i := 0; i < 5; i++ {
		assert.Error(t, p.Send(context.Background(), "t", "a", "b", nil))
	}
	err := p.Send(context.Background(), "t", "a", "b", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

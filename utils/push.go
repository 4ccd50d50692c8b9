package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// ExpoPushMessage is the body accepted by the Expo push endpoint.
type ExpoPushMessage struct {
	To       string                 `json:"to"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Sound    string                 `json:"sound"`
	Priority string                 `json:"priority"`
	Badge    int                    `json:"badge"`
}

// ExpoPusher delivers push notifications through Expo behind a circuit breaker.
type ExpoPusher struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	cb          *gobreaker.CircuitBreaker[struct{}]
}

// NewExpoPusher creates a pusher. The breaker opens after five consecutive failures and probes again after 30s.
func NewExpoPusher(endpoint, accessToken string, timeout time.Duration) *ExpoPusher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	p := &ExpoPusher{
		endpoint:    endpoint,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
	p.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "expo-push",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			L().Warn("circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	CircuitBreakerState.WithLabelValues("expo-push").Set(0)
	return p
}

// Send posts one message.
func (p *ExpoPusher) Send(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, p.send(ctx, token, title, body, data)
	})
	switch {
	case err == nil:
		PushDeliveriesTotal.WithLabelValues("sent").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		PushDeliveriesTotal.WithLabelValues("circuit_open").Inc()
	default:
		PushDeliveriesTotal.WithLabelValues("failed").Inc()
	}
	return err
}

func (p *ExpoPusher) send(ctx context.Context, token, title, body string, data map[string]interface{}) error {
	payload, err := json.Marshal(ExpoPushMessage{
		To:       token,
		Title:    title,
		Body:     body,
		Data:     data,
		Sound:    "default",
		Priority: "high",
		Badge:    1,
	})
	if err != nil {
		return fmt.Errorf("marshal push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.accessToken)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}

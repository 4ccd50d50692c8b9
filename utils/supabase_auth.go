package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token the identity provider does not accept.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified caller as reported by the identity provider.
type Identity struct {
	ID        string
	Email     string
	Metadata  map[string]interface{}
	ExpiresAt time.Time
}

// SupabaseAuth verifies Supabase access tokens, locally with the project JWT secret when
// configured and otherwise against GET {URL}/auth/v1/user.
type SupabaseAuth struct {
	url       string
	anonKey   string
	jwtSecret string
	client    *http.Client
}

// NewSupabaseAuth builds a verifier.
func NewSupabaseAuth(url, anonKey, jwtSecret string) *SupabaseAuth {
	return &SupabaseAuth{
		url:       strings.TrimRight(url, "/"),
		anonKey:   anonKey,
		jwtSecret: jwtSecret,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Verify validates token and returns the identity it belongs to.
func (a *SupabaseAuth) Verify(ctx context.Context, token string) (*Identity, error) {
	if a.jwtSecret != "" {
		id, err := a.verifyLocal(token)
		if err == nil {
			return id, nil
		}
		if a.anonKey == "" {
			return nil, err
		}
	}
	return a.verifyRemote(ctx, token)
}

func (a *SupabaseAuth) verifyLocal(token string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(a.jwtSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	meta, _ := claims["user_metadata"].(map[string]interface{})
	id := &Identity{ID: sub, Email: email, Metadata: meta}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

type supabaseUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (a *SupabaseAuth) verifyRemote(ctx context.Context, token string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("apikey", a.anonKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth provider request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrInvalidToken
	}
	var u supabaseUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode auth user: %w", err)
	}
	if u.ID == "" {
		return nil, ErrInvalidToken
	}
	id := &Identity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
	// the REST endpoint does not return exp; read it from the unverified payload for revocation TTLs
	if claims, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{}); err == nil {
		if exp, err := claims.Claims.GetExpirationTime(); err == nil && exp != nil {
			id.ExpiresAt = exp.Time
		}
	}
	return id, nil
}

package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrObjectExists is returned when the target path is already taken.
	ErrObjectExists = errors.New("object already exists")
	// ErrObjectNotFound is returned when deleting a path that does not exist.
	ErrObjectNotFound = errors.New("object not found")
)

// SupabaseStorage talks to the Supabase Storage REST API with the service-role key.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewSupabaseStorage creates a storage client rooted at the project URL.
func NewSupabaseStorage(projectURL, serviceKey string) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(projectURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *SupabaseStorage) setHeaders(req *http.Request) {
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
}

// Upload stores data at bucket/path without overwriting.
func (s *SupabaseStorage) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")

	status, body, err := s.do(req)
	if err != nil {
		return err
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusConflict || isDuplicateBody(body):
		return ErrObjectExists
	default:
		return fmt.Errorf("storage upload: status %d: %s", status, truncate(body, 200))
	}
}

// Delete removes bucket/path.
func (s *SupabaseStorage) Delete(ctx context.Context, bucket, path string) error {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s", s.baseURL, bucket)
	payload, _ := json.Marshal(map[string][]string{"prefixes": {path}})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	status, body, err := s.do(req)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return ErrObjectNotFound
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("storage delete: status %d: %s", status, truncate(body, 200))
	}
	// the bulk endpoint answers 200 with an empty list when nothing matched
	if strings.TrimSpace(string(body)) == "[]" {
		return ErrObjectNotFound
	}
	return nil
}

// PublicURL returns the public URL for bucket/path.
func (s *SupabaseStorage) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, bucket, path)
}

func (s *SupabaseStorage) do(req *http.Request) (int, []byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isDuplicateBody(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "duplicate") || strings.Contains(lower, "already exists")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

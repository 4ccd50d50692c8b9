package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/darezone/api/utils"
)

// Cache is the read-through cache used for leaderboards. Implemented by utils.RedisCache.
type Cache interface {
	GetJSON(ctx context.Context, key string, out interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{})
	InvalidatePrefix(ctx context.Context, prefix string)
}

// Pusher delivers one push message. Implemented by utils.ExpoPusher.
type Pusher interface {
	Send(ctx context.Context, token, title, body string, data map[string]interface{}) error
}

// BlobStore stores media objects. Implemented by utils.SupabaseStorage.
type BlobStore interface {
	Upload(ctx context.Context, bucket, path, contentType string, data []byte) error
	Delete(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
}

// Notifier records a notification for a user; failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, in NotificationInput)
}

// PageQuery is a 1-based page request.
type PageQuery struct {
	Page  int
	Limit int
}

// Normalize clamps out-of-range values to page 1 and the given default limit (max 100).
func (q PageQuery) Normalize(defaultLimit int) PageQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = defaultLimit
	}
	return q
}

// Offset returns the row offset of the page.
func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

func logger() *zap.Logger {
	return utils.L()
}

func invalidate(ctx context.Context, c Cache, prefix string) {
	if c != nil {
		c.InvalidatePrefix(ctx, prefix)
	}
}

func leaderboardPrefix(challengeID string) string {
	return "leaderboard:" + challengeID + ":"
}

// ErrStorageDisabled is returned by uploads when no blob store is configured.
var ErrStorageDisabled = &AppError{Kind: KindInternal, Code: 50070, Message: "media storage is not configured"}

type noStore struct{}

func (noStore) Upload(context.Context, string, string, string, []byte) error {
	return ErrStorageDisabled
}
func (noStore) Delete(context.Context, string, string) error { return ErrStorageDisabled }
func (noStore) PublicURL(string, string) string              { return "" }

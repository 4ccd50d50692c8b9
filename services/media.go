package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

// Upload kinds.
const (
	MediaPhoto  = "photo"
	MediaVideo  = "video"
	MediaAvatar = "avatar"
)

const publicObjectMarker = "/storage/v1/object/public/"

var imageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

var videoTypes = map[string]string{
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
	"video/x-msvideo": "avi",
	"video/avi":       "avi",
}

// MediaConfig names the buckets and size limits per kind.
type MediaConfig struct {
	PhotoBucket    string
	VideoBucket    string
	AvatarBucket   string
	MaxPhotoBytes  int64
	MaxVideoBytes  int64
	MaxAvatarBytes int64
}

// MediaService validates uploads and stores them in blob storage.
type MediaService struct {
	db    *gorm.DB
	store BlobStore
	cfg   MediaConfig
}

// NewMediaService creates the service.
func NewMediaService(db *gorm.DB, store BlobStore, cfg MediaConfig) *MediaService {
	return &MediaService{db: db, store: store, cfg: cfg}
}

// UploadInput is one file to store.
type UploadInput struct {
	Kind        string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult describes a stored object.
type UploadResult struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Bucket   string `json:"bucket"`
}

func (s *MediaService) rules(kind string) (bucket string, types map[string]string, limit int64, err error) {
	switch kind {
	case MediaPhoto:
		return s.cfg.PhotoBucket, imageTypes, s.cfg.MaxPhotoBytes, nil
	case MediaAvatar:
		return s.cfg.AvatarBucket, imageTypes, s.cfg.MaxAvatarBytes, nil
	case MediaVideo:
		return s.cfg.VideoBucket, videoTypes, s.cfg.MaxVideoBytes, nil
	}
	return "", nil, 0, ErrInvalidMediaKind
}

// Upload checks type and size, stores the object under {user_id}/{uuid}.{ext} and records it.
func (s *MediaService) Upload(ctx context.Context, userID string, in UploadInput) (*UploadResult, error) {
	bucket, types, limit, err := s.rules(in.Kind)
	if err != nil {
		return nil, err
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(in.ContentType, ";", 2)[0]))
	ext, ok := types[contentType]
	if !ok {
		return nil, ErrInvalidContentType
	}
	if limit > 0 && in.Size > limit {
		return nil, ErrFileTooLarge
	}
	// read one byte past the limit so an understated Size is still caught
	r := in.Body
	if limit > 0 {
		r = io.LimitReader(in.Body, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, badRequest(40075, "file is empty")
	}

	objectPath := userID + "/" + uuid.NewString() + "." + ext
	if err := s.store.Upload(ctx, bucket, objectPath, contentType, data); err != nil {
		if errors.Is(err, utils.ErrObjectExists) {
			return nil, ErrObjectExists
		}
		return nil, fmt.Errorf("upload object: %w", err)
	}
	publicURL := s.store.PublicURL(bucket, objectPath)

	obj := models.MediaObject{
		UserID:      userID,
		Kind:        in.Kind,
		Bucket:      bucket,
		Path:        objectPath,
		URL:         publicURL,
		ContentType: contentType,
		Size:        int64(len(data)),
	}
	if err := s.db.WithContext(ctx).Create(&obj).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrObjectExists
		}
		return nil, fmt.Errorf("record object: %w", err)
	}
	logger().Sugar().Infof("user %s uploaded %s/%s (%d bytes)", userID, bucket, objectPath, obj.Size)

	return &UploadResult{URL: publicURL, Filename: objectPath, Size: obj.Size, Type: in.Kind, Bucket: bucket}, nil
}

// Delete removes an object the caller owns, identified by its public URL.
func (s *MediaService) Delete(ctx context.Context, userID, publicURL string) error {
	bucket, objectPath, err := splitPublicURL(publicURL)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(objectPath, userID+"/") {
		return ErrNotObjectOwner
	}
	if bucket != s.cfg.PhotoBucket && bucket != s.cfg.VideoBucket && bucket != s.cfg.AvatarBucket {
		return ErrUnknownBucket
	}
	if err := s.store.Delete(ctx, bucket, objectPath); err != nil {
		if errors.Is(err, utils.ErrObjectNotFound) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete object: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("bucket = ? AND path = ?", bucket, objectPath).Delete(&models.MediaObject{}).Error; err != nil {
		logger().Sugar().Warnf("delete media record %s/%s: %v", bucket, objectPath, err)
	}
	return nil
}

// splitPublicURL extracts bucket and object path from a public storage URL.
func splitPublicURL(raw string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", ErrInvalidMediaURL
	}
	i := strings.Index(u.Path, publicObjectMarker)
	if i < 0 {
		return "", "", ErrInvalidMediaURL
	}
	rest := u.Path[i+len(publicObjectMarker):]
	bucket, objectPath, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || objectPath == "" {
		return "", "", ErrInvalidMediaURL
	}
	clean := path.Clean(objectPath)
	if clean != objectPath || strings.HasPrefix(clean, "..") {
		return "", "", ErrInvalidMediaURL
	}
	return bucket, objectPath, nil
}

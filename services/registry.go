package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/darezone/api/config"
)

// Backends are the external collaborators behind the services. Any of them may be nil:
// a nil Cache disables caching, a nil Pusher disables push and a nil Store rejects uploads.
type Backends struct {
	Cache  Cache
	Pusher Pusher
	Store  BlobStore
}

// Registry holds one instance of every service, sharing a guard, calendar and notifier.
type Registry struct {
	Calendar      *Calendar
	Profiles      *ProfileService
	Notifications *NotificationService
	Challenges    *ChallengeService
	Checkins      *CheckinService
	Hitches       *HitchService
	Friends       *FriendService
	Stats         *StatsService
	Users         *UserService
	Media         *MediaService
}

// NewRegistry builds the service graph from configuration.
func NewRegistry(db *gorm.DB, cfg config.AppConfig, b Backends) (*Registry, error) {
	cal, err := NewCalendar(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	store := b.Store
	if store == nil {
		store = noStore{}
	}
	guard := NewMembershipGuard(db)
	notifications := NewNotificationService(db, b.Pusher, time.Duration(cfg.PushTimeoutSec)*time.Second)
	stats := NewStatsService(db, guard, cal, b.Cache)
	friends := NewFriendService(db, notifications)

	const mb = int64(1 << 20)
	return &Registry{
		Calendar:      cal,
		Profiles:      NewProfileService(db),
		Notifications: notifications,
		Challenges: NewChallengeService(db, guard, notifications, cal, b.Cache, ChallengeConfig{
			MaxHabits:         cfg.MaxHabitsPerChallenge,
			DefaultHitchCount: cfg.DefaultHitchCount,
		}),
		Checkins: NewCheckinService(db, guard, notifications, cal, b.Cache, NewPointsSchedule(cfg.PointsSchedule), cfg.StreakMilestones),
		Hitches:  NewHitchService(db, notifications, cal),
		Friends:  friends,
		Stats:    stats,
		Users:    NewUserService(db, stats, friends),
		Media: NewMediaService(db, store, MediaConfig{
			PhotoBucket:    cfg.StorageBucketPhotos,
			VideoBucket:    cfg.StorageBucketVideos,
			AvatarBucket:   cfg.StorageBucketAvatars,
			MaxPhotoBytes:  int64(cfg.MaxPhotoSizeMB) * mb,
			MaxVideoBytes:  int64(cfg.MaxVideoSizeMB) * mb,
			MaxAvatarBytes: int64(cfg.MaxAvatarSizeMB) * mb,
		}),
	}, nil
}

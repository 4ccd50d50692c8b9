package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// PointsRule awards Points to a check-in whose resulting streak is at least MinStreak.
type PointsRule struct {
	MinStreak int `json:"min_streak"`
	Points    int `json:"points"`
}

// AppConfig holds environment driven configuration values.
// Secrets (Supabase keys, Expo token, DB password) have no defaults and must come from config.json or the environment.
type AppConfig struct {
	AppPort            string
	AppVersion         string
	Environment        string
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Relational store
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	// Redis for caching and token revocation; disabled when RedisHost is empty
	RedisHost       string
	RedisPort       int
	RedisDB         int
	RedisPassword   string
	CacheTTLSeconds int
	// Hosted identity + storage provider
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	// Push delivery
	ExpoAccessToken string
	ExpoPushURL     string
	PushTimeoutSec  int
	// Media buckets and limits
	StorageBucketPhotos  string
	StorageBucketVideos  string
	StorageBucketAvatars string
	MaxPhotoSizeMB       int
	MaxVideoSizeMB       int
	MaxAvatarSizeMB      int
	// Business rules
	MaxHabitsPerChallenge  int
	DefaultHitchCount      int
	PointsPerCheckin       int
	PointsStreakMultiplier int
	PointsSchedule         []PointsRule
	StreakMilestones       []int
	Timezone               string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.SupabaseURL == "" {
		log.Fatal("SUPABASE_URL must be set in config.json or environment variables")
	}
	if cfg.SupabaseJWTSecret == "" && cfg.SupabaseAnonKey == "" {
		log.Fatal("one of SUPABASE_JWT_SECRET or SUPABASE_ANON_KEY must be set")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Defaults returns a configuration holding only default values. Used by tools and tests that skip Load.
func Defaults() AppConfig {
	var c AppConfig
	applyDefaults(&c)
	return c
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
// Both grouped sections ({"app": {...}, "database": {...}}) and flat keys are accepted.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyJSONSections(raw, out)
	return nil
}

func applyJSONSections(raw map[string]any, out *AppConfig) {
	section := func(name string) map[string]any {
		if m, ok := raw[name].(map[string]any); ok {
			return m
		}
		// flat keys live on the root object
		return raw
	}

	app := section("app")
	setString(&out.AppPort, app, "AppPort")
	setString(&out.AppVersion, app, "Version")
	setString(&out.Environment, app, "Environment")
	setInt(&out.RateLimitPerMinute, app, "RateLimitPerMinute")
	setStrings(&out.AllowedOrigins, app, "AllowedOrigins")
	setString(&out.GinMode, app, "GinMode")

	dbs := section("database")
	setString(&out.DBDriver, dbs, "DBDriver")
	setString(&out.DatabaseURI, dbs, "DatabaseURI")
	setString(&out.DBHost, dbs, "DBHost")
	setString(&out.DBPort, dbs, "DBPort")
	setString(&out.DBUser, dbs, "DBUser")
	setString(&out.DBPassword, dbs, "DBPassword")
	setString(&out.DBName, dbs, "DBName")
	setString(&out.DBSSLMode, dbs, "DBSSLMode")

	rds := section("redis")
	setString(&out.RedisHost, rds, "RedisHost")
	setInt(&out.RedisPort, rds, "RedisPort")
	setInt(&out.RedisDB, rds, "RedisDB")
	setString(&out.RedisPassword, rds, "RedisPassword")
	setInt(&out.CacheTTLSeconds, rds, "CacheTTLSeconds")

	sb := section("supabase")
	setString(&out.SupabaseURL, sb, "URL")
	setString(&out.SupabaseAnonKey, sb, "AnonKey")
	setString(&out.SupabaseServiceRoleKey, sb, "ServiceRoleKey")
	setString(&out.SupabaseJWTSecret, sb, "JWTSecret")

	push := section("push")
	setString(&out.ExpoAccessToken, push, "ExpoAccessToken")
	setString(&out.ExpoPushURL, push, "ExpoPushURL")
	setInt(&out.PushTimeoutSec, push, "TimeoutSec")

	st := section("storage")
	setString(&out.StorageBucketPhotos, st, "BucketPhotos")
	setString(&out.StorageBucketVideos, st, "BucketVideos")
	setString(&out.StorageBucketAvatars, st, "BucketAvatars")
	setInt(&out.MaxPhotoSizeMB, st, "MaxPhotoSizeMB")
	setInt(&out.MaxVideoSizeMB, st, "MaxVideoSizeMB")
	setInt(&out.MaxAvatarSizeMB, st, "MaxAvatarSizeMB")

	biz := section("business")
	setInt(&out.MaxHabitsPerChallenge, biz, "MaxHabitsPerChallenge")
	setInt(&out.DefaultHitchCount, biz, "DefaultHitchCount")
	setInt(&out.PointsPerCheckin, biz, "PointsPerCheckin")
	setInt(&out.PointsStreakMultiplier, biz, "PointsStreakMultiplier")
	setString(&out.Timezone, biz, "Timezone")
	if arr, ok := biz["StreakMilestones"].([]any); ok {
		for _, it := range arr {
			if f, ok := it.(float64); ok {
				out.StreakMilestones = append(out.StreakMilestones, int(f))
			}
		}
	}
	if arr, ok := biz["PointsSchedule"].([]any); ok {
		for _, it := range arr {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			var rule PointsRule
			setInt(&rule.MinStreak, m, "min_streak")
			setInt(&rule.Points, m, "points")
			out.PointsSchedule = append(out.PointsSchedule, rule)
		}
	}

	lg := section("log")
	setString(&out.LogLevel, lg, "Level")
	setString(&out.LogPath, lg, "Path")
	setString(&out.GinPath, lg, "GinPath")
	setInt(&out.LogMaxSizeMB, lg, "MaxSizeMB")
	setInt(&out.LogMaxBackups, lg, "MaxBackups")
	setInt(&out.LogMaxAgeDays, lg, "MaxAgeDays")
	if b, ok := lg["Compress"].(bool); ok {
		out.LogCompress = b
	}
}

func setString(dst *string, m map[string]any, key string) {
	if s, ok := m[key].(string); ok && s != "" {
		*dst = s
	}
}

func setInt(dst *int, m map[string]any, key string) {
	switch t := m[key].(type) {
	case float64:
		*dst = int(t)
	case int:
		*dst = t
	case json.Number:
		i, _ := t.Int64()
		*dst = int(i)
	}
}

func setStrings(dst *[]string, m map[string]any, key string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	res := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			res = append(res, s)
		}
	}
	if len(res) > 0 {
		*dst = res
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.AppVersion == "" {
		c.AppVersion = "1.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "postgres"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "mysql":
			c.DBPort = "3306"
		default:
			c.DBPort = "5432"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "postgres"
	}
	if c.DBName == "" {
		c.DBName = "darezone"
	}
	if c.DBSSLMode == "" {
		c.DBSSLMode = "require"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 60
	}
	if c.ExpoPushURL == "" {
		c.ExpoPushURL = "https://exp.host/--/api/v2/push/send"
	}
	if c.PushTimeoutSec == 0 {
		c.PushTimeoutSec = 10
	}
	if c.StorageBucketPhotos == "" {
		c.StorageBucketPhotos = "darezone-photos"
	}
	if c.StorageBucketVideos == "" {
		c.StorageBucketVideos = "darezone-videos"
	}
	if c.StorageBucketAvatars == "" {
		c.StorageBucketAvatars = "darezone-avatars"
	}
	if c.MaxPhotoSizeMB == 0 {
		c.MaxPhotoSizeMB = 10
	}
	if c.MaxVideoSizeMB == 0 {
		c.MaxVideoSizeMB = 50
	}
	if c.MaxAvatarSizeMB == 0 {
		c.MaxAvatarSizeMB = 5
	}
	if c.MaxHabitsPerChallenge == 0 {
		c.MaxHabitsPerChallenge = 4
	}
	if c.DefaultHitchCount == 0 {
		c.DefaultHitchCount = 2
	}
	if c.PointsPerCheckin == 0 {
		c.PointsPerCheckin = 10
	}
	if c.PointsStreakMultiplier == 0 {
		c.PointsStreakMultiplier = 2
	}
	if len(c.PointsSchedule) == 0 {
		c.PointsSchedule = []PointsRule{
			{MinStreak: 1, Points: c.PointsPerCheckin},
			{MinStreak: 2, Points: c.PointsPerCheckin * c.PointsStreakMultiplier},
		}
	}
	if len(c.StreakMilestones) == 0 {
		c.StreakMilestones = []int{7, 14, 30, 60, 100}
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("APP_VERSION", ""); v != "" {
		c.AppVersion = v
	}
	if v := getEnv("ENVIRONMENT", ""); v != "" {
		c.Environment = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("DB_SSLMODE", ""); v != "" {
		c.DBSSLMode = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTLSeconds = mustParseInt(v)
	}
	if v := getEnv("SUPABASE_URL", ""); v != "" {
		c.SupabaseURL = strings.TrimRight(v, "/")
	}
	if v := getEnv("SUPABASE_ANON_KEY", ""); v != "" {
		c.SupabaseAnonKey = v
	}
	if v := getEnv("SUPABASE_SERVICE_ROLE_KEY", ""); v != "" {
		c.SupabaseServiceRoleKey = v
	}
	if v := getEnv("SUPABASE_JWT_SECRET", ""); v != "" {
		c.SupabaseJWTSecret = v
	}
	if v := getEnv("EXPO_ACCESS_TOKEN", ""); v != "" {
		c.ExpoAccessToken = v
	}
	if v := getEnv("EXPO_PUSH_URL", ""); v != "" {
		c.ExpoPushURL = v
	}
	if v := getEnv("PUSH_TIMEOUT_SEC", ""); v != "" {
		c.PushTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("STORAGE_BUCKET_PHOTOS", ""); v != "" {
		c.StorageBucketPhotos = v
	}
	if v := getEnv("STORAGE_BUCKET_VIDEOS", ""); v != "" {
		c.StorageBucketVideos = v
	}
	if v := getEnv("STORAGE_BUCKET_AVATARS", ""); v != "" {
		c.StorageBucketAvatars = v
	}
	if v := getEnv("MAX_PHOTO_SIZE_MB", ""); v != "" {
		c.MaxPhotoSizeMB = mustParseInt(v)
	}
	if v := getEnv("MAX_VIDEO_SIZE_MB", ""); v != "" {
		c.MaxVideoSizeMB = mustParseInt(v)
	}
	if v := getEnv("MAX_AVATAR_SIZE_MB", ""); v != "" {
		c.MaxAvatarSizeMB = mustParseInt(v)
	}
	if v := getEnv("MAX_HABITS_PER_CHALLENGE", ""); v != "" {
		c.MaxHabitsPerChallenge = mustParseInt(v)
	}
	if v := getEnv("DEFAULT_HITCH_COUNT", ""); v != "" {
		c.DefaultHitchCount = mustParseInt(v)
	}
	if v := getEnv("TIMEZONE", ""); v != "" {
		c.Timezone = v
	}
	if v := getEnv("STREAK_MILESTONES", ""); v != "" {
		c.StreakMilestones = c.StreakMilestones[:0]
		for _, item := range readListEnv("STREAK_MILESTONES", nil) {
			c.StreakMilestones = append(c.StreakMilestones, mustParseInt(item))
		}
	}
	// Rebuild the default schedule when only the scalar knobs change through the environment.
	base, mult := getEnv("POINTS_PER_CHECKIN", ""), getEnv("POINTS_STREAK_MULTIPLIER", "")
	if base != "" || mult != "" {
		if base != "" {
			c.PointsPerCheckin = mustParseInt(base)
		}
		if mult != "" {
			c.PointsStreakMultiplier = mustParseInt(mult)
		}
		c.PointsSchedule = []PointsRule{
			{MinStreak: 1, Points: c.PointsPerCheckin},
			{MinStreak: 2, Points: c.PointsPerCheckin * c.PointsStreakMultiplier},
		}
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

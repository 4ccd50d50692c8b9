package main

import (
	"time"

	"github.com/darezone/api/config"
	"github.com/darezone/api/models"
	"github.com/darezone/api/routes"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)

	var backends services.Backends
	rc := utils.GetRedis()
	if rc != nil {
		backends.Cache = utils.NewRedisCache(rc, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	}
	if cfg.ExpoPushURL != "" {
		backends.Pusher = utils.NewExpoPusher(cfg.ExpoPushURL, cfg.ExpoAccessToken, time.Duration(cfg.PushTimeoutSec)*time.Second)
	}
	if cfg.SupabaseServiceRoleKey != "" {
		backends.Store = utils.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey)
	} else {
		utils.Sugar.Warn("SUPABASE_SERVICE_ROLE_KEY not set, media uploads are disabled")
	}

	reg, err := services.NewRegistry(db, cfg, backends)
	if err != nil {
		utils.Sugar.Fatalf("build services: %v", err)
	}

	r := routes.SetupRouter(cfg, routes.Services{
		Verifier:      utils.NewSupabaseAuth(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseJWTSecret),
		Blacklist:     utils.NewTokenBlacklist(rc),
		Profiles:      reg.Profiles,
		Users:         reg.Users,
		Challenges:    reg.Challenges,
		Checkins:      reg.Checkins,
		Hitches:       reg.Hitches,
		Friends:       reg.Friends,
		Notifications: reg.Notifications,
		Media:         reg.Media,
		Stats:         reg.Stats,
	})

	utils.Sugar.Infof("Starting %s server on port %s (graceful)", cfg.Environment, cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

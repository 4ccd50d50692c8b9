package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/darezone/api/config"
	"github.com/darezone/api/controllers"
	"github.com/darezone/api/middleware"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// Services bundles everything the HTTP layer needs.
type Services struct {
	Verifier      middleware.TokenVerifier
	Blacklist     *utils.TokenBlacklist
	Profiles      middleware.ProfileResolver
	Users         *services.UserService
	Challenges    *services.ChallengeService
	Checkins      *services.CheckinService
	Hitches       *services.HitchService
	Friends       *services.FriendService
	Notifications *services.NotificationService
	Media         *services.MediaService
	Stats         *services.StatsService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, svc Services) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	utils.RegisterValidators()

	r := gin.New()
	// Access log goes to its own rolling file when configured, otherwise to the app logger
	accessLog := utils.L()
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			accessLog = gl
		} else {
			utils.L().Sugar().Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, true))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "X-Process-Time"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestMetrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": cfg.AppVersion, "environment": cfg.Environment})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authCtl := controllers.NewAuthController(svc.Stats, svc.Blacklist)
	userCtl := controllers.NewUserController(svc.Users)
	challengeCtl := controllers.NewChallengeController(svc.Challenges)
	checkinCtl := controllers.NewCheckinController(svc.Checkins)
	hitchCtl := controllers.NewHitchController(svc.Hitches)
	friendCtl := controllers.NewFriendController(svc.Friends)
	notificationCtl := controllers.NewNotificationController(svc.Notifications)
	mediaCtl := controllers.NewMediaController(svc.Media)
	statsCtl := controllers.NewStatsController(svc.Stats)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	api.Use(middleware.AuthRequired(svc.Verifier, svc.Blacklist, svc.Profiles))
	{
		auth := api.Group("/auth")
		auth.POST("/verify", authCtl.Verify)
		auth.GET("/me", authCtl.Me)
		auth.POST("/logout", authCtl.Logout)

		users := api.Group("/users")
		users.GET("/me", userCtl.Me)
		users.PATCH("/me", userCtl.UpdateMe)
		users.GET("/me/stats", userCtl.Stats)
		users.GET("/search", userCtl.Search)
		users.GET("/:id", userCtl.Public)

		challenges := api.Group("/challenges")
		challenges.POST("", challengeCtl.Create)
		challenges.GET("", challengeCtl.List)
		challenges.POST("/join", challengeCtl.Join)
		challenges.GET("/:id", challengeCtl.Get)
		challenges.PATCH("/:id", challengeCtl.Update)
		challenges.POST("/:id/leave", challengeCtl.Leave)
		challenges.GET("/:id/members", challengeCtl.Members)
		challenges.GET("/:id/progress", challengeCtl.Progress)

		checkins := api.Group("/checkins")
		checkins.POST("", checkinCtl.Create)
		checkins.GET("", checkinCtl.List)
		checkins.GET("/challenges/:id/today", checkinCtl.Today)
		checkins.GET("/:id", checkinCtl.Get)
		checkins.PATCH("/:id", checkinCtl.Update)
		checkins.DELETE("/:id", checkinCtl.Delete)

		api.POST("/hitch", hitchCtl.Send)

		friends := api.Group("/friends")
		friends.POST("/request", friendCtl.Request)
		friends.POST("/requests/:id/respond", friendCtl.Respond)
		friends.GET("", friendCtl.List)
		friends.GET("/requests", friendCtl.Requests)
		friends.DELETE("/:user_id", friendCtl.Remove)

		notifications := api.Group("/notifications")
		notifications.GET("", notificationCtl.List)
		notifications.GET("/unread/count", notificationCtl.UnreadCount)
		notifications.POST("/mark-read", notificationCtl.MarkRead)
		notifications.POST("/mark-all-read", notificationCtl.MarkAllRead)
		notifications.POST("/register-push-token", notificationCtl.RegisterPushToken)
		notifications.DELETE("/push-token", notificationCtl.UnregisterPushToken)
		notifications.DELETE("/:id", notificationCtl.Delete)

		media := api.Group("/media")
		media.POST("/upload", mediaCtl.Upload)
		media.DELETE("", mediaCtl.Delete)

		api.GET("/history", statsCtl.History)
		api.GET("/stats/:challenge_id", statsCtl.Challenge)
		api.GET("/leaderboard/:challenge_id", statsCtl.Leaderboard)
		api.GET("/dashboard", statsCtl.Dashboard)
	}

	return r
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// StatsController serves history, per-challenge stats, leaderboards and the dashboard.
type StatsController struct {
	stats *services.StatsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(stats *services.StatsService) *StatsController {
	return &StatsController{stats: stats}
}

// History pages the caller's challenge participations.
func (s *StatsController) History(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	page := parsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))
	filter := services.HistoryFilter{Status: ctx.Query("status"), Search: ctx.Query("search")}
	result, err := s.stats.History(ctx.Request.Context(), userID, filter, page)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

func (s *StatsController) Challenge(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	stats, err := s.stats.ChallengeStats(ctx.Request.Context(), userID, ctx.Param("challenge_id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// Leaderboard ranks active members by points (default), streak or completion rate.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	board, err := s.stats.Leaderboard(ctx.Request.Context(), userID, ctx.Param("challenge_id"), ctx.Query("sort_by"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, board)
}

func (s *StatsController) Dashboard(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	dashboard, err := s.stats.Dashboard(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, dashboard)
}

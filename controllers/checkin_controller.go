package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// CheckinController handles daily check-ins.
type CheckinController struct {
	checkins *services.CheckinService
}

// NewCheckinController creates a new CheckinController instance.
func NewCheckinController(checkins *services.CheckinService) *CheckinController {
	return &CheckinController{checkins: checkins}
}

type createCheckinRequest struct {
	ChallengeID string `json:"challenge_id" binding:"required"`
	HabitID     string `json:"habit_id" binding:"required"`
	PhotoURL    string `json:"photo_url" binding:"max=1024"`
	VideoURL    string `json:"video_url" binding:"max=1024"`
	Caption     string `json:"caption"`
}

type updateCheckinRequest struct {
	Caption *string `json:"caption"`
}

// Create records today's check-in and returns the streak outcome.
func (c *CheckinController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req createCheckinRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := c.checkins.Create(ctx.Request.Context(), userID, services.CheckinInput{
		ChallengeID: req.ChallengeID,
		HabitID:     req.HabitID,
		PhotoURL:    req.PhotoURL,
		VideoURL:    req.VideoURL,
		Caption:     req.Caption,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, result)
}

// List pages check-ins of one challenge, or the caller's own when no challenge is given.
func (c *CheckinController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	page := parsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))
	result, err := c.checkins.List(ctx.Request.Context(), userID, ctx.Query("challenge_id"), page)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

func (c *CheckinController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	checkin, err := c.checkins.Get(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, checkin)
}

// Update edits the caption of a same-day check-in.
func (c *CheckinController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req updateCheckinRequest
	if !bindJSON(ctx, &req) {
		return
	}
	checkin, err := c.checkins.UpdateCaption(ctx.Request.Context(), userID, ctx.Param("id"), req.Caption)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, checkin)
}

func (c *CheckinController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := c.checkins.Delete(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.NoContent(ctx)
}

// Today shows who has checked in to each habit today.
func (c *CheckinController) Today(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	habits, err := c.checkins.Today(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, habits)
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// HitchController sends reminders to teammates who have not checked in.
type HitchController struct {
	hitches *services.HitchService
}

// NewHitchController creates a new HitchController instance.
func NewHitchController(hitches *services.HitchService) *HitchController {
	return &HitchController{hitches: hitches}
}

type hitchRequest struct {
	ChallengeID   string   `json:"challenge_id" binding:"required"`
	HabitID       string   `json:"habit_id" binding:"required"`
	TargetUserIDs []string `json:"target_user_ids"`
}

// Send spends one hitch on a batch of reminders.
func (h *HitchController) Send(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req hitchRequest
	if !bindJSON(ctx, &req) {
		return
	}
	result, err := h.hitches.Send(ctx.Request.Context(), userID, services.HitchInput{
		ChallengeID:   req.ChallengeID,
		HabitID:       req.HabitID,
		TargetUserIDs: req.TargetUserIDs,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// ChallengeController handles challenge lifecycle and membership endpoints.
type ChallengeController struct {
	challenges *services.ChallengeService
}

// NewChallengeController creates a new ChallengeController instance.
func NewChallengeController(challenges *services.ChallengeService) *ChallengeController {
	return &ChallengeController{challenges: challenges}
}

type createChallengeRequest struct {
	Name            string   `json:"name" binding:"required"`
	Description     string   `json:"description" binding:"max=2000"`
	Type            string   `json:"type" binding:"omitempty,oneof=individual group"`
	StartDate       string   `json:"start_date" binding:"required,isodate"`
	EndDate         string   `json:"end_date" binding:"required,isodate"`
	HabitIDs        []string `json:"habit_ids" binding:"required"`
	CheckinType     string   `json:"checkin_type" binding:"omitempty,oneof=photo video caption any"`
	RequireEvidence *bool    `json:"require_evidence"`
	MaxMembers      int      `json:"max_members" binding:"omitempty,min=1,max=50"`
	IsPublic        bool     `json:"is_public"`
}

type updateChallengeRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Status      *string `json:"status" binding:"omitempty,oneof=pending active completed failed archived"`
	MaxMembers  *int    `json:"max_members" binding:"omitempty,min=1,max=50"`
	IsPublic    *bool   `json:"is_public"`
}

type joinChallengeRequest struct {
	InviteCode string `json:"invite_code" binding:"required,invitecode"`
}

// Create starts a new challenge with the caller as creator.
func (c *ChallengeController) Create(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req createChallengeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := c.challenges.Create(ctx.Request.Context(), userID, services.CreateChallengeInput{
		Name:            req.Name,
		Description:     req.Description,
		Type:            req.Type,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		HabitIDs:        req.HabitIDs,
		CheckinType:     req.CheckinType,
		RequireEvidence: req.RequireEvidence,
		MaxMembers:      req.MaxMembers,
		IsPublic:        req.IsPublic,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, view)
}

// List returns the caller's challenges, optionally filtered by status.
func (c *ChallengeController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	page := parsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))
	result, err := c.challenges.List(ctx.Request.Context(), userID, ctx.Query("status"), page)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// Get returns one challenge with habits and members.
func (c *ChallengeController) Get(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	view, err := c.challenges.Get(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// Update edits challenge fields or moves its status.
func (c *ChallengeController) Update(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req updateChallengeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := c.challenges.Update(ctx.Request.Context(), userID, ctx.Param("id"), services.UpdateChallengeInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		MaxMembers:  req.MaxMembers,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// Join adds the caller to the challenge behind an invite code.
func (c *ChallengeController) Join(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req joinChallengeRequest
	if !bindJSON(ctx, &req) {
		return
	}
	view, err := c.challenges.Join(ctx.Request.Context(), userID, req.InviteCode)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, view)
}

// Leave marks the caller's membership as left.
func (c *ChallengeController) Leave(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := c.challenges.Leave(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "Left challenge"})
}

// Members lists the active members of a challenge.
func (c *ChallengeController) Members(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	members, err := c.challenges.Members(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, members)
}

// Progress returns per-member habit completion for a date, today by default.
func (c *ChallengeController) Progress(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	date := ctx.Query("date")
	if date == "" {
		date = ctx.Query("target_date")
	}
	progress, err := c.challenges.Progress(ctx.Request.Context(), userID, ctx.Param("id"), date)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, progress)
}

package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// UserController handles profile reads, edits and user search.
type UserController struct {
	users *services.UserService
}

// NewUserController creates a new UserController instance.
func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

type updateProfileRequest struct {
	FullName    *string `json:"full_name" binding:"omitempty,max=100"`
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" binding:"omitempty,max=1024"`
}

// Me returns the caller's own profile.
func (u *UserController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	profile, err := u.users.Me(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, profile)
}

// UpdateMe applies a partial profile update.
func (u *UserController) UpdateMe(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req updateProfileRequest
	if !bindJSON(ctx, &req) {
		return
	}
	profile, err := u.users.UpdateMe(ctx.Request.Context(), userID, services.UpdateProfileInput{
		FullName:    req.FullName,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, profile)
}

// Stats returns the caller's aggregate numbers.
func (u *UserController) Stats(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	stats, err := u.users.Stats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// Search finds users by display or full name.
func (u *UserController) Search(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	results, err := u.users.Search(ctx.Request.Context(), userID, ctx.Query("q"), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, results)
}

// Public returns another user's profile when the caller may see it.
func (u *UserController) Public(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	user, err := u.users.Public(ctx.Request.Context(), userID, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

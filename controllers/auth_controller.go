package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/darezone/api/middleware"
	"github.com/darezone/api/models"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// AuthController exposes token verification, the current profile and logout.
// Sign-up and sign-in happen against Supabase directly.
type AuthController struct {
	stats     *services.StatsService
	blacklist *utils.TokenBlacklist
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(stats *services.StatsService, blacklist *utils.TokenBlacklist) *AuthController {
	return &AuthController{stats: stats, blacklist: blacklist}
}

// Verify echoes the identity behind a valid token.
func (a *AuthController) Verify(ctx *gin.Context) {
	value, _ := ctx.Get(middleware.ContextIdentityKey)
	identity, ok := value.(*utils.Identity)
	if !ok {
		respondError(ctx, services.ErrUnauthenticated)
		return
	}
	utils.Success(ctx, gin.H{"valid": true, "user_id": identity.ID, "email": identity.Email})
}

// Me returns the caller's profile with aggregate stats.
func (a *AuthController) Me(ctx *gin.Context) {
	value, _ := ctx.Get(middleware.ContextProfileKey)
	profile, ok := value.(*models.UserProfile)
	if !ok {
		respondError(ctx, services.ErrUnauthenticated)
		return
	}
	totals, err := a.stats.Profile(ctx.Request.Context(), profile.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"id":           profile.ID,
		"email":        profile.Email,
		"full_name":    profile.FullName,
		"display_name": profile.DisplayName,
		"avatar_url":   profile.AvatarURL,
		"bio":          profile.Bio,
		"account_type": profile.AccountType,
		"stats":        totals,
		"created_at":   profile.CreatedAt,
	})
}

// Logout revokes the presented token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expires := time.Now().Add(time.Hour)
	if value, ok := ctx.Get(middleware.ContextIdentityKey); ok {
		if id, ok := value.(*utils.Identity); ok && !id.ExpiresAt.IsZero() {
			expires = id.ExpiresAt
		}
	}
	if token != "" && a.blacklist != nil {
		a.blacklist.Revoke(ctx.Request.Context(), token, expires)
	}
	utils.Success(ctx, gin.H{"success": true, "message": "Logged out successfully. Please clear your auth token."})
}

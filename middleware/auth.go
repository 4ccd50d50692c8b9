package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/darezone/api/models"
	"github.com/darezone/api/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextIdentityKey stores the verified *utils.Identity.
	ContextIdentityKey = "identity"
	// ContextTokenKey stores the raw bearer token, used by logout.
	ContextTokenKey = "token"
	// ContextProfileKey stores the caller's *models.UserProfile.
	ContextProfileKey = "profile"
)

// TokenVerifier validates a bearer token. Implemented by utils.SupabaseAuth.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*utils.Identity, error)
}

// RevocationList reports tokens revoked by logout. Implemented by utils.TokenBlacklist.
type RevocationList interface {
	IsRevoked(ctx context.Context, token string) bool
}

// ProfileResolver loads or lazily creates the caller's profile.
type ProfileResolver interface {
	Resolve(ctx context.Context, id utils.Identity) (*models.UserProfile, error)
}

// AuthRequired ensures the request carries a valid Supabase access token and attaches the caller's profile.
// revoked and profiles may be nil.
func AuthRequired(verifier TokenVerifier, revoked RevocationList, profiles ProfileResolver) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if revoked != nil && revoked.IsRevoked(ctx.Request.Context(), tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		identity, err := verifier.Verify(ctx.Request.Context(), tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
			ctx.Abort()
			return
		}

		if profiles != nil {
			profile, err := profiles.Resolve(ctx.Request.Context(), *identity)
			if err != nil {
				utils.L().Error("resolve profile failed", zap.String("user_id", identity.ID), zap.Error(err))
				utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to load user profile")
				ctx.Abort()
				return
			}
			ctx.Set(ContextProfileKey, profile)
		}

		ctx.Set(ContextUserIDKey, identity.ID)
		ctx.Set(ContextIdentityKey, identity)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

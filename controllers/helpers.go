package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/darezone/api/middleware"
	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

func parsePagination(pageStr, limitStr string) services.PageQuery {
	page := 1
	limit := 20
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return services.PageQuery{Page: page, Limit: limit}
}

func getUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

// requireUser returns the caller id or answers 401.
func requireUser(ctx *gin.Context) (string, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

// bindJSON decodes and validates the body, answering 400 on failure.
func bindJSON(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40000, utils.ValidationMessage(err))
		return false
	}
	return true
}

// respondError maps service errors onto the response envelope. Anything that is not an
// *services.AppError is logged and reported as a generic 500.
func respondError(ctx *gin.Context, err error) {
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		utils.Error(ctx, appErr.Status(), appErr.Code, appErr.Message)
		return
	}
	userID, _ := getUserID(ctx)
	utils.L().Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("user_id", userID),
		zap.Error(err))
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
}

package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// NotificationController exposes the in-app inbox and push token registration.
type NotificationController struct {
	notifications *services.NotificationService
}

// NewNotificationController creates a new NotificationController instance.
func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

type markReadRequest struct {
	NotificationIDs []string `json:"notification_ids" binding:"required"`
}

type pushTokenRequest struct {
	PushToken string `json:"push_token" binding:"required,expotoken"`
}

// List pages the caller's notifications, newest first.
func (n *NotificationController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(ctx.DefaultQuery("unread_only", "false"))
	page := parsePagination(ctx.DefaultQuery("page", "1"), ctx.DefaultQuery("limit", "20"))
	result, err := n.notifications.List(ctx.Request.Context(), userID, unreadOnly, page)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

func (n *NotificationController) UnreadCount(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	count, err := n.notifications.UnreadCount(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"unread_count": count})
}

func (n *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req markReadRequest
	if !bindJSON(ctx, &req) {
		return
	}
	updated, err := n.notifications.MarkRead(ctx.Request.Context(), userID, req.NotificationIDs)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"updated_count": updated})
}

func (n *NotificationController) MarkAllRead(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	updated, err := n.notifications.MarkAllRead(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"updated_count": updated})
}

func (n *NotificationController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := n.notifications.Delete(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.NoContent(ctx)
}

// RegisterPushToken stores an Expo push token for the caller's device.
func (n *NotificationController) RegisterPushToken(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req pushTokenRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if err := n.notifications.RegisterPushToken(ctx.Request.Context(), userID, req.PushToken); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "Push token registered"})
}

func (n *NotificationController) UnregisterPushToken(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := n.notifications.UnregisterPushToken(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "Push token removed"})
}

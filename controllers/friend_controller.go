package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// FriendController manages friend requests and the friend list.
type FriendController struct {
	friends *services.FriendService
}

// NewFriendController creates a new FriendController instance.
func NewFriendController(friends *services.FriendService) *FriendController {
	return &FriendController{friends: friends}
}

type friendRequestBody struct {
	UserID string `json:"user_id" binding:"required"`
}

type friendRespondBody struct {
	Action string `json:"action" binding:"required"`
}

// Request sends a friend request to another user.
func (f *FriendController) Request(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req friendRequestBody
	if !bindJSON(ctx, &req) {
		return
	}
	friendship, err := f.friends.Request(ctx.Request.Context(), userID, req.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, friendship)
}

// Respond accepts, rejects or blocks a pending request addressed to the caller.
func (f *FriendController) Respond(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req friendRespondBody
	if !bindJSON(ctx, &req) {
		return
	}
	friendship, err := f.friends.Respond(ctx.Request.Context(), userID, ctx.Param("id"), req.Action)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, friendship)
}

// List returns friends, accepted by default.
func (f *FriendController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	friends, err := f.friends.List(ctx.Request.Context(), userID, ctx.DefaultQuery("status", "accepted"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, friends)
}

// Requests returns incoming and outgoing pending requests.
func (f *FriendController) Requests(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	requests, err := f.friends.Requests(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, requests)
}

// Remove deletes the friendship with another user in either direction.
func (f *FriendController) Remove(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	if err := f.friends.Remove(ctx.Request.Context(), userID, ctx.Param("user_id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.NoContent(ctx)
}

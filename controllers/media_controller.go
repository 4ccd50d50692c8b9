package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/darezone/api/services"
	"github.com/darezone/api/utils"
)

// MediaController uploads and deletes check-in media and avatars.
type MediaController struct {
	media *services.MediaService
}

// NewMediaController creates a new MediaController instance.
func NewMediaController(media *services.MediaService) *MediaController {
	return &MediaController{media: media}
}

// Upload stores a multipart file. The kind comes from the type query parameter
// (photo, video or avatar) and defaults to photo.
func (m *MediaController) Upload(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40076, "no file uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	result, err := m.media.Upload(ctx.Request.Context(), userID, services.UploadInput{
		Kind:        ctx.DefaultQuery("type", services.MediaPhoto),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, result)
}

// Delete removes one of the caller's files by public URL.
func (m *MediaController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	target := ctx.Query("url")
	if target == "" {
		utils.Error(ctx, http.StatusBadRequest, 40077, "url is required")
		return
	}
	if err := m.media.Delete(ctx.Request.Context(), userID, target); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "File deleted"})
}

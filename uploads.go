package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mizanpos/pos_backend/config"
	"github.com/mizanpos/pos_backend/models"
)

// uploadImageHandler accepts one multipart image, checks size and type
// before a single byte goes to storage, and returns the public URLs.
func uploadImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if err := models.ValidateImageUpload(fileHeader.Size, contentType); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			config.LogError(logger, "uploads", "uploadImageHandler", "open multipart file", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
			return
		}
		defer file.Close()

		// FormFile size already passed the cap; re-limit the reader anyway
		data, err := io.ReadAll(io.LimitReader(file, models.MaxImageSize+1))
		if err != nil {
			config.LogError(logger, "uploads", "uploadImageHandler", "read multipart file", fileHeader.Filename, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read upload"})
			return
		}
		if int64(len(data)) > models.MaxImageSize {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "image exceeds the 5MB limit"})
			return
		}

		resp, err := models.UploadImage(c.Request.Context(), data, contentType)
		if err != nil {
			config.LogError(logger, "uploads", "uploadImageHandler", "store image", fileHeader.Filename, err)
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

func deleteImageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ImageUrl string `json:"image_url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := models.DeleteImage(c.Request.Context(), input.ImageUrl); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

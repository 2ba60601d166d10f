package models

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/mizanpos/pos_backend/utils"
)

// MaxImageSize caps uploads at 5 MB.
const MaxImageSize = 5 * 1024 * 1024

// ThumbnailWidth is the pixel width of generated listing thumbnails.
const ThumbnailWidth = 200

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

type UploadResponse struct {
	ImageUrl     string `json:"image_url"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func ValidateImageUpload(size int64, contentType string) error {
	if size > MaxImageSize {
		return errors.New("image exceeds the 5MB limit")
	}
	if !allowedImageTypes[contentType] {
		return errors.New("only jpeg and png images are allowed")
	}
	return nil
}

// UploadImage stores the original and a thumbnail under a generated name
// and returns their public URLs.
func UploadImage(ctx context.Context, data []byte, contentType string) (*UploadResponse, error) {
	if err := ValidateImageUpload(int64(len(data)), contentType); err != nil {
		return nil, err
	}

	ext := ".jpg"
	if contentType == "image/png" {
		ext = ".png"
	}
	base := utils.GenerateUniqueFilename()
	objectName := base + ext
	thumbName := base + "_thumb.jpg"

	if err := utils.SaveBytesToGCS(ctx, objectName, data, contentType); err != nil {
		return nil, err
	}

	thumb, err := buildThumbnail(data)
	if err != nil {
		// the original is already stored; serve it for both sizes
		return &UploadResponse{
			ImageUrl:     utils.GetCloudURL(objectName),
			ThumbnailUrl: utils.GetCloudURL(objectName),
		}, nil
	}
	if err := utils.SaveBytesToGCS(ctx, thumbName, thumb, "image/jpeg"); err != nil {
		return nil, err
	}

	return &UploadResponse{
		ImageUrl:     utils.GetCloudURL(objectName),
		ThumbnailUrl: utils.GetCloudURL(thumbName),
	}, nil
}

func buildThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DeleteImage removes an uploaded object and its thumbnail when present.
func DeleteImage(ctx context.Context, imageUrl string) error {
	objectName := utils.ExtractObjectName(imageUrl)
	if objectName == "" {
		return errors.New("not a managed image url")
	}
	if err := utils.DeleteImageFromGCS(ctx, objectName); err != nil {
		return err
	}

	if dot := strings.LastIndex(objectName, "."); dot > 0 {
		thumbName := objectName[:dot] + "_thumb.jpg"
		_ = utils.DeleteImageFromGCS(ctx, thumbName)
	}
	return nil
}

package handler

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"reviewhub/config"
	"reviewhub/internal/middleware"
	"reviewhub/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sniffLen = 512

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

type UploadHandler struct {
	cloud cloudinary.Client
	cfg   *config.CloudinaryConfig
}

// NewUploadHandler accepts a nil client; uploads then answer 503.
func NewUploadHandler(cloud cloudinary.Client, cfg *config.CloudinaryConfig) *UploadHandler {
	return &UploadHandler{cloud: cloud, cfg: cfg}
}

// Upload stores an image (proof screenshot, avatar, chat media) and returns its URLs.
func (h *UploadHandler) Upload(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if h.cfg.MaxUploadBytes > 0 && file.Size > h.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	// The type is taken from the bytes; the part's Content-Type header is client supplied.
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	head = head[:n]
	if !allowedImageTypes[http.DetectContentType(head)] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported content type"})
		return
	}

	userID := middleware.GetUserID(c)
	folder := strings.TrimSuffix(h.cfg.Folder, "/") + "/" + strconv.FormatUint(uint64(userID), 10)
	publicID := "img_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]

	res, err := h.cloud.UploadImage(c.Request.Context(), io.MultiReader(bytes.NewReader(head), f), folder, publicID)
	if errors.Is(err, cloudinary.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}
	if err != nil {
		log.Error().Err(err).Str("component", "upload").Uint("user_id", userID).Msg("cloudinary upload failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"url":           res.URL,
		"thumbnail_url": res.ThumbnailURL,
		"public_id":     res.PublicID,
		"bytes":         res.Bytes,
	})
}

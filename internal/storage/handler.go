package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/owenshapw/poemVerse/internal/imageurl"
	"github.com/owenshapw/poemVerse/internal/logs"
	"github.com/owenshapw/poemVerse/internal/media"
)

type Handler struct {
	chain      *Chain
	normalizer imageurl.Normalizer
	maxBytes   int64
}

func NewHandler(chain *Chain, normalizer imageurl.Normalizer, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Handler{chain: chain, normalizer: normalizer, maxBytes: maxBytes}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/upload_image", h.UploadImage)
	r.GET("/storage/status", h.Status)
}

// UploadImage stores a multipart "file" field and returns its public URL.
func (h *Handler) UploadImage(c *gin.Context) {
	if c.Request.ContentLength > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "only image uploads are accepted"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}

	// A client that hangs up must not abort a provider call already in flight.
	url, err := h.chain.Upload(context.WithoutCancel(c.Request.Context()), Object{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
	})
	if err != nil {
		if errors.Is(err, media.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is not a decodable image"})
			return
		}
		logs.LogJSON("ERROR", "Image upload failed", map[string]interface{}{
			"route":    "/api/upload_image",
			"userID":   c.GetString("user_id"),
			"filename": header.Filename,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": h.normalizer.Normalize(url)})
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.chain.Status()})
}

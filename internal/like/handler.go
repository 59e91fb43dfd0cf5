package like

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owenshapw/poemVerse/internal/logs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register expects the identity middleware to run first.
func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/articles/:id/like", h.ToggleLike)
	r.GET("/articles/:id/likes", h.GetLikeStatus)
	r.GET("/articles/:id/likes/stats", h.GetLikeStats)
	r.POST("/articles/likes/batch", h.BatchLikes)
}

type toggleRequest struct {
	DeviceID string `json:"device_id"`
}

type batchRequest struct {
	ArticleIDs []string `json:"article_ids"`
	DeviceID   string   `json:"device_id"`
}

// ActorFrom resolves the actor: bearer identity first, then the device id from
// the body, the query string or the X-Device-ID header.
func ActorFrom(c *gin.Context, bodyDeviceID string) Actor {
	deviceID := bodyDeviceID
	if deviceID == "" {
		deviceID = c.GetString("device_id")
	}
	return Actor{
		UserID:   c.GetString("user_id"),
		DeviceID: deviceID,
		IP:       c.ClientIP(),
	}
}

// ToggleLike POST /api/articles/:id/like
func (h *Handler) ToggleLike(c *gin.Context) {
	route := c.FullPath()
	articleID := c.Param("id")

	var req toggleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	actor := ActorFrom(c, req.DeviceID)
	status, err := h.svc.Toggle(c.Request.Context(), articleID, actor)
	if err != nil {
		h.fail(c, route, articleID, actor, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetLikeStatus GET /api/articles/:id/likes
func (h *Handler) GetLikeStatus(c *gin.Context) {
	articleID := c.Param("id")
	actor := ActorFrom(c, "")

	status, err := h.svc.Status(c.Request.Context(), articleID, actor)
	if err != nil {
		h.fail(c, c.FullPath(), articleID, actor, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetLikeStats GET /api/articles/:id/likes/stats
func (h *Handler) GetLikeStats(c *gin.Context) {
	articleID := c.Param("id")
	actor := ActorFrom(c, "")

	status, err := h.svc.Status(c.Request.Context(), articleID, actor)
	if err != nil {
		h.fail(c, c.FullPath(), articleID, actor, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"article_id": status.ArticleID,
		"like_count": status.LikeCount,
		"is_liked":   status.IsLiked,
		"stats":      gin.H{"total_likes": status.LikeCount},
	})
}

// BatchLikes POST /api/articles/likes/batch
func (h *Handler) BatchLikes(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	actor := ActorFrom(c, req.DeviceID)
	likes, err := h.svc.Batch(c.Request.Context(), req.ArticleIDs, actor)
	if err != nil {
		h.fail(c, c.FullPath(), "", actor, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}

func (h *Handler) fail(c *gin.Context, route, articleID string, actor Actor, err error) {
	fields := map[string]interface{}{
		"route":     route,
		"userID":    actor.UserID,
		"deviceID":  actor.DeviceID,
		"articleID": articleID,
	}

	switch {
	case errors.Is(err, ErrMissingActor):
		c.JSON(http.StatusBadRequest, gin.H{"error": "user or device id required"})
		logs.LogJSON("WARN", "Like without actor", fields)
	case errors.Is(err, ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		logs.LogJSON("WARN", "Article not found", fields)
	default:
		fields["error"] = err.Error()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		logs.LogJSON("ERROR", "Like operation failed", fields)
	}
}

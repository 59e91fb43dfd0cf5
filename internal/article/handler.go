package article

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

// Register mounts read routes on public and write routes on authed. The preview
// middlewares (rate limiting) wrap only the preview route.
func (h *Handler) Register(public, authed gin.IRoutes, preview ...gin.HandlerFunc) {
	public.GET("/articles/:id", h.GetArticle)
	public.GET("/articles/:id/comments", h.GetComments)

	authed.POST("/articles", h.CreateArticle)
	authed.PUT("/articles/:id", h.UpdateArticle)
	authed.DELETE("/articles/:id", h.DeleteArticle)
	authed.POST("/generate", h.Regenerate)
	authed.POST("/generate/preview", append(preview, h.Preview)...)
	authed.POST("/comments", h.CreateComment)
	authed.DELETE("/comments/:id", h.DeleteComment)
}

// CreateArticle POST /api/articles
func (h *Handler) CreateArticle(c *gin.Context) {
	userID := c.GetString("user_id")

	var in CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.svc.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.fail(c, "", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "article created",
		"article": a,
	})
}

// GetArticle GET /api/articles/:id
func (h *Handler) GetArticle(c *gin.Context) {
	id := c.Param("id")

	a, err := h.svc.Get(c.Request.Context(), id, c.GetString("user_id"))
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"article": a})
}

// UpdateArticle PUT /api/articles/:id
func (h *Handler) UpdateArticle(c *gin.Context) {
	id := c.Param("id")

	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.svc.Update(c.Request.Context(), id, c.GetString("user_id"), in)
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "article updated", "article": a})
}

// DeleteArticle DELETE /api/articles/:id
func (h *Handler) DeleteArticle(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.Delete(c.Request.Context(), id, c.GetString("user_id")); err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "article deleted"})
}

// Regenerate POST /api/generate
func (h *Handler) Regenerate(c *gin.Context) {
	var req struct {
		ArticleID string `json:"article_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ArticleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article_id is required"})
		return
	}

	a, err := h.svc.Regenerate(c.Request.Context(), req.ArticleID, c.GetString("user_id"))
	if err != nil {
		h.fail(c, req.ArticleID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cover regenerated", "article": a})
}

// Preview POST /api/generate/preview
func (h *Handler) Preview(c *gin.Context) {
	var in PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	url, err := h.svc.Preview(c.Request.Context(), in)
	if err != nil {
		h.fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preview_url": url})
}

// GetComments GET /api/articles/:id/comments
func (h *Handler) GetComments(c *gin.Context) {
	id := c.Param("id")

	comments, err := h.svc.ListComments(c.Request.Context(), id, c.GetString("user_id"))
	if err != nil {
		h.fail(c, id, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateComment POST /api/comments
func (h *Handler) CreateComment(c *gin.Context) {
	var req struct {
		ArticleID string `json:"article_id"`
		Content   string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), c.GetString("user_id"), req.ArticleID, req.Content)
	if err != nil {
		h.fail(c, req.ArticleID, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "comment created", "comment": comment})
}

// DeleteComment DELETE /api/comments/:id
func (h *Handler) DeleteComment(c *gin.Context) {
	if err := h.svc.DeleteComment(c.Request.Context(), c.Param("id"), c.GetString("user_id")); err != nil {
		h.fail(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (h *Handler) fail(c *gin.Context, articleID string, err error) {
	fields := map[string]interface{}{
		"route":     c.FullPath(),
		"userID":    c.GetString("user_id"),
		"articleID": articleID,
	}

	switch {
	case errors.Is(err, ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrArticleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		logs.LogJSON("WARN", "Article not found", fields)
	case errors.Is(err, ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		logs.LogJSON("WARN", "Forbidden article operation", fields)
	case errors.Is(err, ErrNoCover):
		fields["error"] = err.Error()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generation failed"})
		logs.LogJSON("ERROR", "Cover generation failed", fields)
	default:
		fields["error"] = err.Error()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		logs.LogJSON("ERROR", "Article operation failed", fields)
	}
}

package feed

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/owenshapw/poemVerse/internal/logs"
)

type Handler struct {
	assembler *Assembler
}

func NewHandler(a *Assembler) *Handler {
	return &Handler{assembler: a}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/articles", h.ListArticles)
	r.GET("/articles/home", h.Home)
	r.GET("/articles/user/:user_id", h.UserArticles)
}

// ListArticles GET /api/articles?page=&per_page=
func (h *Handler) ListArticles(c *gin.Context) {
	h.page(c, "")
}

// UserArticles GET /api/articles/user/:user_id
func (h *Handler) UserArticles(c *gin.Context) {
	h.page(c, c.Param("user_id"))
}

func (h *Handler) page(c *gin.Context, ownerID string) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(DefaultPerPage)))
	viewerID := c.GetString("user_id")

	p, err := h.assembler.Page(c.Request.Context(), viewerID, ownerID, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load articles"})
		logs.LogJSON("ERROR", "Feed query failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  c.FullPath(),
			"userID": viewerID,
		})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Home GET /api/articles/home?limit=
func (h *Handler) Home(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	viewerID := c.GetString("user_id")

	home, err := h.assembler.Home(c.Request.Context(), viewerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load home feed"})
		logs.LogJSON("ERROR", "Home feed query failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  c.FullPath(),
			"userID": viewerID,
		})
		return
	}
	c.JSON(http.StatusOK, home)
}

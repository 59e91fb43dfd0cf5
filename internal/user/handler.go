package user

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/owenshapw/poemVerse/internal/logs"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/users/:id", h.GetUser)
}

// GetUser GET /api/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	route := c.FullPath()
	currentUserID := c.GetString("user_id")
	id := c.Param("id")

	u, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			logs.LogJSON("WARN", "User not found", map[string]interface{}{
				"route":  route,
				"userID": currentUserID,
				"extra":  fmt.Sprintf("User not found : %s", id),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		logs.LogJSON("ERROR", "User lookup failed", map[string]interface{}{
			"error":  err.Error(),
			"route":  route,
			"userID": currentUserID,
		})
		return
	}

	response := gin.H{
		"id":         u.ID,
		"username":   u.Username,
		"created_at": u.CreatedAt,
	}
	// The email is only shown to its owner.
	if currentUserID == u.ID {
		response["email"] = u.Email
	}
	c.JSON(http.StatusOK, response)
}

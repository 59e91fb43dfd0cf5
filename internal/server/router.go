// Package server wires the HTTP surface.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/owenshapw/poemVerse/internal/article"
	"github.com/owenshapw/poemVerse/internal/feed"
	"github.com/owenshapw/poemVerse/internal/like"
	"github.com/owenshapw/poemVerse/internal/middleware"
	"github.com/owenshapw/poemVerse/internal/storage"
	"github.com/owenshapw/poemVerse/internal/user"
)

// Deps is everything the router mounts.
type Deps struct {
	Verifier middleware.TokenVerifier
	Preview  *middleware.RateLimiter
	Registry *prometheus.Registry

	Articles *article.Handler
	Feed     *feed.Handler
	Likes    *like.Handler
	Storage  *storage.Handler
	Users    *user.Handler
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.DeviceHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(middleware.Identity(d.Verifier))

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(d.Verifier))

	var preview []gin.HandlerFunc
	if d.Preview != nil {
		preview = append(preview, d.Preview.Handler())
	}

	d.Feed.Register(api)
	d.Likes.Register(api)
	d.Articles.Register(api, authed, preview...)
	d.Storage.Register(api)
	d.Users.Register(api)

	return r
}

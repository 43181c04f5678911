// Package api exposes the summary pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medical-summary/internal/helper"
	"medical-summary/internal/storage"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

type HealthChecker interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	MaxBodyBytes int64
	// DB is optional; readiness reports it as disabled when nil.
	DB HealthChecker
}

func NewRouter(controller *SummaryController, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		requestID(),
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			ExposeHeaders: []string{"Content-Disposition", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}),
	)
	if cfg.MaxBodyBytes > 0 {
		router.Use(limitBodySize(cfg.MaxBodyBytes))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", readiness(cfg.DB))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/uploads", controller.Upload)
		v1.POST("/summaries", controller.Summarize)
		v1.GET("/reports", controller.ListReports)
	}
	router.GET(storage.FilesRoute+":name", controller.Download)

	return router
}

func readiness(db HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     fmt.Sprintf("unhealthy: %v", err),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "ok"})
	}
}

// requestID propagates the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id, _ = helper.GenerateUUID()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

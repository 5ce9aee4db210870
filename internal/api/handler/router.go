package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next()

	log.WithFields(log.Fields{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}).Info("HTTP Request")
}

// SetupRouter configures the operational routes. Everything under /api needs an admin token.
func SetupRouter(h *Handler, adminSecret []byte) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", AdminAuth(adminSecret))
	{
		jobs := api.Group("/jobs")
		jobs.POST("/check-expired", h.CheckExpired)
		jobs.GET("/status", h.JobStatus)
		jobs.POST("/start", h.StartJobs)
		jobs.POST("/stop", h.StopJobs)
		jobs.POST("/restart", h.RestartJobs)
		jobs.POST("/:index/trigger", h.TriggerJob)

		auctions := api.Group("/auctions")
		auctions.POST("/notify-pending", h.NotifyPending)
		auctions.POST("/:id/notify-winner", h.NotifyWinner)
	}

	router.NoRoute(func(c *gin.Context) {
		JSONError(c, http.StatusNotFound, errNotFound, "not found", nil)
	})
	return router
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/ticket_backend/config"
	"bitbucket.org/mmdatafocus/ticket_backend/metrics"
	"bitbucket.org/mmdatafocus/ticket_backend/utils"
	"bitbucket.org/mmdatafocus/ticket_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const correlationIdHeader = "x-correlation-id"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client func() *redis.Client
	limit  int64
	window time.Duration
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// correlationMiddleware generates a correlation id once per request, attaches
// it to the context and echoes it back.
func correlationMiddleware(c *gin.Context) {
	cid := c.GetHeader(correlationIdHeader)
	if cid == "" {
		cid = uuid.NewString()
	}
	c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
	c.Header(correlationIdHeader, cid)
	c.Next()
}

func corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS.
	if config.IsProduction() {
		corsConfig.AllowOrigins = config.CorsAllowedOrigins()
		if len(corsConfig.AllowOrigins) == 0 {
			// deny all
			corsConfig.AllowOriginFunc = func(string) bool { return false }
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", correlationIdHeader)
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", correlationIdHeader)
	return cors.New(corsConfig)
}

func newRouter(wf *workflow.TicketWorkflow, reg *metrics.Registry, logger *logrus.Logger, limiter *RateLimiter) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = config.MaxUploadBytes()
	r.Use(correlationMiddleware)
	r.Use(corsMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	if limiter != nil {
		r.Use(limiter.RateLimitMiddleware)
	}

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(reg.Handler()))

	api := r.Group("/api")
	api.POST("/excel/convert", convertHandler(wf, logger))
	api.POST("/ticket/csv", ticketCSVHandler(wf, logger))
	api.POST("/ticket/xlsx", ticketXlsxHandler(wf, logger))
	api.POST("/sin-stock/xlsx", sinStockXlsxHandler(wf, logger))

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	port := config.Port()
	logger := config.GetLogger()
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	store, err := utils.NewUploadStore(sigCtx, config.UploadDir())
	if err != nil {
		logger.WithFields(logrus.Fields{
			"field":    "storage",
			"provider": utils.GetStorageProvider(),
		}).Fatal("could not create upload store: " + err.Error())
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	reg := metrics.NewRegistry()
	wf := workflow.NewTicketWorkflow(store, logger,
		workflow.WithMetrics(reg),
		workflow.WithDroppedColumns(config.DroppedStockColumns()),
	)

	var limiter *RateLimiter
	if config.RateLimitEnabled() {
		limiter = NewRateLimiter(config.GetRedisDB, config.RateLimitMaxRequests(), time.Duration(config.RateLimitWindowSeconds())*time.Second)
		// Connect after the port is open; requests pass unlimited until Redis is ready.
		go config.ConnectRedisWithRetry(sigCtx)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(wf, reg, logger, limiter),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"info":     "Server Started",
		"storage":  utils.GetStorageProvider(),
		"rate_lim": limiter != nil,
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	config.CloseRedis()
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance. client may return nil while Redis
// is still connecting; requests are let through until it does.
func NewRateLimiter(client func() *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := rl.client()
	if client == nil || c.Request.URL.Path == "/healthz" {
		c.Next()
		return
	}

	// IP-based rate limiting.
	key := "ratelimit:" + c.ClientIP()

	count, err := client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	// First hit of the window starts the expiry.
	if count == 1 {
		if err := client.Expire(c.Request.Context(), key, rl.window).Err(); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

// Package server exposes the HTTP API the web frontend talks to.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/blackcape/expense-reporter/internal/auth"
	"github.com/blackcape/expense-reporter/internal/common"
	"github.com/blackcape/expense-reporter/internal/extract"
	"github.com/blackcape/expense-reporter/internal/ledger"
	"github.com/blackcape/expense-reporter/internal/receipt"
	"github.com/blackcape/expense-reporter/internal/report"
	"github.com/blackcape/expense-reporter/internal/trip"
)

// Server wires the domain stores and external collaborators into routes.
type Server struct {
	receipts  *receipt.Store
	items     *ledger.Ledger
	trips     *trip.Registry
	extractor extract.Extractor
	rates     trip.RateSource
	renderer  report.Renderer
	auth      *auth.Service
	logger    *slog.Logger
}

func New(
	receipts *receipt.Store,
	items *ledger.Ledger,
	trips *trip.Registry,
	extractor extract.Extractor,
	rates trip.RateSource,
	renderer report.Renderer,
	authSvc *auth.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		receipts:  receipts,
		items:     items,
		trips:     trips,
		extractor: extractor,
		rates:     rates,
		renderer:  renderer,
		auth:      authSvc,
		logger:    logger,
	}
}

// Router builds the gin engine with CORS, auth, and all routes.
func (s *Server) Router(cfg common.ServerConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	corsConfig := cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           86400,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/google", s.handleGoogleLogin)

		protected := v1.Group("/")
		protected.Use(s.authRequired())
		{
			protected.POST("/parse-receipt", s.handleParseReceipt)
			protected.GET("/receipts", s.handleListReceipts)

			protected.GET("/trips", s.handleListTrips)
			protected.POST("/trips", s.handleAddTrip)
			protected.PATCH("/trips/:id", s.handleUpdateTrip)
			protected.DELETE("/trips/:id", s.handleRemoveTrip)
			protected.POST("/trips/:id/rates", s.handleFetchRates)

			protected.GET("/items", s.handleListItems)
			protected.POST("/items", s.handleAddItem)
			protected.POST("/items/:id/split", s.handleSplitItem)
			protected.PATCH("/items/:id", s.handleUpdateItem)
			protected.PUT("/items/:id/receipts", s.handleSetItemReceipts)
			protected.POST("/items/:id/amount/commit", s.handleCommitAmount)
			protected.DELETE("/items/:id", s.handleRemoveItem)

			protected.GET("/perdiem", s.handlePerDiem)
			protected.GET("/report", s.handleReport)
			protected.GET("/report/document", s.handleReportDocument)
		}
	}

	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// internal/api/server.go

// Package api exposes the protocol engines over HTTP: state queries for the
// gallery/launchpad UI and transition submission returning a signature or a
// typed error.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/streetsync/launchpad-engine/internal/curve"
	"github.com/streetsync/launchpad-engine/internal/export"
	"github.com/streetsync/launchpad-engine/internal/market"
	"github.com/streetsync/launchpad-engine/internal/storage"
)

type Server struct {
	curves   *curve.Engine
	market   *market.Engine
	store    storage.Storage
	exporter *export.Exporter
	logger   *zap.Logger
	http     *http.Server
}

// NewServer wires the engines into a gin router. store may be nil when
// history persistence is not configured.
func NewServer(addr string, curves *curve.Engine, mkt *market.Engine, store storage.Storage, logger *zap.Logger) *Server {
	s := &Server{
		curves:   curves,
		market:   mkt,
		store:    store,
		exporter: export.NewExporter(logger),
		logger:   logger.Named("api"),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/curves", s.handleListCurves)
		apiGroup.POST("/curves", s.handleInitializeCurve)
		apiGroup.GET("/curves/:mint", s.handleGetCurve)
		apiGroup.GET("/curves/:mint/quote", s.handleQuoteBuy)
		apiGroup.POST("/curves/:mint/buy", s.handleCurveBuy)

		apiGroup.GET("/listings", s.handleListings)
		apiGroup.POST("/listings", s.handleCreateListing)
		apiGroup.POST("/listings/:mint/:seller/cancel", s.handleCancelListing)
		apiGroup.POST("/listings/:mint/:seller/buy", s.handleListingBuy)

		apiGroup.GET("/history", s.handleHistory)
		apiGroup.GET("/history/export", s.handleHistoryExport)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("HTTP API listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

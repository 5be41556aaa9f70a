// Package httpapi serves the read API over the trends schema plus the
// insight write-back endpoint for the external generator.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"moda.fit/trendpulse/internal/db"
	"moda.fit/trendpulse/internal/globaltime"
	"moda.fit/trendpulse/internal/insight"
)

const (
	defaultPageSize  = 25
	maxPageSize      = 200
	memberLimit      = 50
	insightTextLimit = 4000
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type Server struct {
	pool   *db.Pool
	logger zerolog.Logger
	opts   Options
}

func NewServer(pool *db.Pool, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8094
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return &Server{
		pool:   pool,
		logger: logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			AllowedOrigins:  origins,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.opts.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/clusters", s.handleClusters)
	api.GET("/clusters/:cluster_uuid", s.handleClusterDetail)
	api.GET("/clusters/:cluster_uuid/insight-request", s.handleInsightRequest)
	api.POST("/clusters/:cluster_uuid/insight", s.handleSetInsight)

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("trendpulse api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("trendpulse api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.pool.Ping(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("health check ping failed")
		return internalError(c, "Database unreachable")
	}
	return success(c, map[string]any{
		"service": "trendpulse",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.GetStats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleClusters(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}
	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}
	minScore, err := parsePositiveInt(c.QueryParam("min_score"), 0, 0, 100)
	if err != nil {
		return failValidation(c, map[string]string{"min_score": err.Error()})
	}

	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && status != "active" && status != "stale" {
		return failValidation(c, map[string]string{"status": "must be active or stale"})
	}

	items, err := s.pool.ListClusters(c.Request().Context(), db.ClusterListOptions{
		Status:   status,
		MinScore: minScore,
		Query:    c.QueryParam("q"),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("query clusters failed")
		return internalError(c, "Failed to load clusters")
	}

	return success(c, map[string]any{
		"items":     items,
		"page":      page,
		"page_size": pageSize,
	})
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	clusterUUID, err := parseClusterUUID(c.Param("cluster_uuid"))
	if err != nil {
		return failValidation(c, map[string]string{"cluster_uuid": err.Error()})
	}

	detail, err := s.pool.GetClusterByUUID(c.Request().Context(), clusterUUID, memberLimit)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("query cluster detail failed")
		return internalError(c, "Failed to load cluster")
	}
	return success(c, detail)
}

func (s *Server) handleInsightRequest(c echo.Context) error {
	clusterUUID, err := parseClusterUUID(c.Param("cluster_uuid"))
	if err != nil {
		return failValidation(c, map[string]string{"cluster_uuid": err.Error()})
	}

	ctx := c.Request().Context()
	detail, err := s.pool.GetClusterByUUID(ctx, clusterUUID, 1)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("query cluster for insight request failed")
		return internalError(c, "Failed to load cluster")
	}

	texts, err := s.pool.TopMemberTexts(ctx, detail.Cluster.ClusterID, 5)
	if err != nil {
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("query member texts failed")
		return internalError(c, "Failed to load cluster members")
	}

	req := insight.BuildRequest(
		detail.Cluster.ClusterUUID,
		detail.Cluster.Fingerprint,
		detail.Cluster.Title,
		detail.Cluster.CommonHashtags,
		detail.Cluster.CommonKeywords,
		detail.Cluster.TrendScore,
		detail.Cluster.GrowthPct,
		texts,
	)
	return success(c, req)
}

type setInsightRequest struct {
	Title   string `json:"title"`
	Insight string `json:"insight"`
}

func (s *Server) handleSetInsight(c echo.Context) error {
	clusterUUID, err := parseClusterUUID(c.Param("cluster_uuid"))
	if err != nil {
		return failValidation(c, map[string]string{"cluster_uuid": err.Error()})
	}

	var req setInsightRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	fieldErrors := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		fieldErrors["title"] = "must not be empty"
	}
	if strings.TrimSpace(req.Insight) == "" {
		fieldErrors["insight"] = "must not be empty"
	}
	if len(req.Insight) > insightTextLimit {
		fieldErrors["insight"] = fmt.Sprintf("must not exceed %d bytes", insightTextLimit)
	}
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	// Stored verbatim: the generator owns the wording.
	state := insight.Ready(req.Insight)
	if err := s.pool.SetClusterInsight(c.Request().Context(), clusterUUID, req.Title, state); err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("store insight failed")
		return internalError(c, "Failed to store insight")
	}

	return success(c, map[string]any{
		"cluster_uuid":   clusterUUID,
		"insight_status": state.Status(),
	})
}

func parseClusterUUID(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if !isUUID(trimmed) {
		return "", fmt.Errorf("must be a UUID")
	}
	return trimmed, nil
}

func isUUID(value string) bool {
	if len(value) != 36 {
		return false
	}
	for i, r := range value {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
			if !isHex {
				return false
			}
		}
	}
	return true
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}

// Package server exposes the traffic session over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/chrisdamba/stationflow/internal/loader"
	"github.com/chrisdamba/stationflow/internal/markers"
	"github.com/chrisdamba/stationflow/internal/models"
	"github.com/chrisdamba/stationflow/internal/repositories"
	"github.com/chrisdamba/stationflow/internal/traffic"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DatasetLoader fetches a fresh station and trip pair.
type DatasetLoader interface {
	Load(ctx context.Context, stationsSource, tripsSource string) (*loader.Dataset, error)
}

type Server struct {
	cfg     *models.Config
	session *traffic.Session
	loader  DatasetLoader
	history repositories.TrafficRepository
	router  *gin.Engine
	srv     *http.Server
}

type StationsResponse struct {
	SnapshotID  string                  `json:"snapshot_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Filter      models.TimeFilter       `json:"filter"`
	Label       string                  `json:"label"`
	MaxTraffic  int                     `json:"max_traffic"`
	Markers     []markers.Marker        `json:"markers"`
	Stations    []models.StationTraffic `json:"stations"`
}

type filterRequest struct {
	Time *int `json:"time" binding:"required,min=-1,max=1439"`
}

func New(cfg *models.Config, session *traffic.Session, ld DatasetLoader) *Server {
	s := &Server{cfg: cfg, session: session, loader: ld}
	s.router = s.setupRouter()
	return s
}

// WithHistory enables the snapshot endpoints backed by repo.
func (s *Server) WithHistory(repo repositories.TrafficRepository) *Server {
	s.history = repo
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := s.cfg.Server.AllowedOrigins
	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/stations", s.handleStations)
		api.GET("/trips/count", s.handleTripCount)
		api.GET("/filter", s.handleGetFilter)
		api.PUT("/filter", s.handleSetFilter)
		api.POST("/reload", s.handleReload)
		api.POST("/snapshots", s.handleSaveSnapshot)
		api.GET("/snapshots/latest", s.handleLatestSnapshot)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	stations, trips := s.session.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"ready":    s.session.Ready(),
		"stations": stations,
		"trips":    trips,
		"time":     time.Now().Format(time.RFC3339),
	})
}

// handleStations aggregates under ?time= or, when absent, the session filter.
func (s *Server) handleStations(c *gin.Context) {
	if !s.session.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": models.ErrNoData.Error()})
		return
	}

	snapshot, ok := s.recompute(c)
	if !ok {
		return
	}
	if len(snapshot.Stations) == 0 {
		log.Printf("No stations loaded, nothing to draw")
	}

	c.JSON(http.StatusOK, StationsResponse{
		SnapshotID:  snapshot.ID,
		GeneratedAt: snapshot.GeneratedAt,
		Filter:      snapshot.Filter,
		Label:       markers.FormatTime(snapshot.Filter),
		MaxTraffic:  snapshot.MaxTraffic,
		Markers:     markers.Build(snapshot.Stations, snapshot.Filter),
		Stations:    snapshot.Stations,
	})
}

// queryFilter reads ?time=, falling back to the session filter.
func (s *Server) queryFilter(c *gin.Context) (models.TimeFilter, bool) {
	raw := c.Query("time")
	if raw == "" {
		return s.session.Filter(), true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid time %q", raw)})
		return 0, false
	}
	filter := models.TimeFilter(v)
	if err := filter.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return filter, true
}

func (s *Server) recompute(c *gin.Context) (models.Snapshot, bool) {
	filter, ok := s.queryFilter(c)
	if !ok {
		return models.Snapshot{}, false
	}
	snapshot, err := s.session.RecomputeAt(filter)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.Snapshot{}, false
	}
	return snapshot, true
}

func (s *Server) handleSaveSnapshot(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "snapshot history is not configured"})
		return
	}
	if !s.session.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": models.ErrNoData.Error()})
		return
	}
	snapshot, ok := s.recompute(c)
	if !ok {
		return
	}
	if err := s.history.SaveSnapshot(c.Request.Context(), snapshot); err != nil {
		log.Printf("Error saving snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save snapshot"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"snapshot_id": snapshot.ID, "time": snapshot.Filter, "stations": len(snapshot.Stations)})
}

func (s *Server) handleLatestSnapshot(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "snapshot history is not configured"})
		return
	}
	filter, ok := s.queryFilter(c)
	if !ok {
		return
	}
	snapshot, err := s.history.Latest(c.Request.Context(), filter)
	if err != nil {
		log.Printf("Error reading snapshot: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read snapshot"})
		return
	}
	if snapshot == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no snapshot stored for %s", markers.FormatTime(filter))})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) handleTripCount(c *gin.Context) {
	_, trips := s.session.Counts()
	c.JSON(http.StatusOK, gin.H{"count": trips})
}

func (s *Server) handleGetFilter(c *gin.Context) {
	filter := s.session.Filter()
	c.JSON(http.StatusOK, gin.H{"time": filter, "label": markers.FormatTime(filter)})
}

func (s *Server) handleSetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filter := models.TimeFilter(*req.Time)
	if err := s.session.SetFilter(filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"time": filter, "label": markers.FormatTime(filter)})
}

func (s *Server) handleReload(c *gin.Context) {
	if err := s.Reload(c.Request.Context()); err != nil {
		log.Printf("Error reloading data: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	stations, trips := s.session.Counts()
	c.JSON(http.StatusOK, gin.H{"stations": stations, "trips": trips, "loaded_at": s.session.LoadedAt()})
}

// Reload fetches both sources and replaces the session's lists. On failure
// the previous lists are kept.
func (s *Server) Reload(ctx context.Context) error {
	ds, err := s.loader.Load(ctx, s.cfg.StationsSource, s.cfg.TripsSource)
	if err != nil {
		return err
	}
	s.session.Replace(ds.Stations, ds.Trips)
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Printf("server shut down successfully")
	return nil
}

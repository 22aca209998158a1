package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/jaki95/playlist2album/config"
	"github.com/jaki95/playlist2album/internal/archive"
	"github.com/jaki95/playlist2album/internal/audio"
	"github.com/jaki95/playlist2album/internal/downloader"
	"github.com/jaki95/playlist2album/internal/fetch"
	"github.com/jaki95/playlist2album/internal/finalize"
	"github.com/jaki95/playlist2album/internal/job"
	"github.com/jaki95/playlist2album/internal/progress"
	"github.com/jaki95/playlist2album/internal/storage"
)

const shutdownTimeout = 30 * time.Second

// Components are the collaborators the server is assembled from.
type Components struct {
	Resolver downloader.Resolver
	Fetcher  downloader.Fetcher
	Tagger   audio.Tagger
	Storage  storage.Storage
}

// Server handles HTTP requests for playlist-to-album jobs
type Server struct {
	cfg    *config.Config
	router *gin.Engine

	registry    *job.Registry
	tracker     *progress.Tracker
	coordinator *fetch.Coordinator
	pipeline    *finalize.Pipeline
	store       storage.Storage
	scheduler   *cron.Cron

	// Background fetches outlive the request that started them.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New builds the server and its collaborators from configuration
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	tagger, err := newTagger(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	ytdlp := downloader.NewYtDlp(cfg.Fetch.YtDlpPath, cfg.Fetch.FFmpegPath, cfg.FileExtension, cfg.Fetch.Timeout)
	router := downloader.NewDefaultRouter(ytdlp, downloader.NewPageResolver(cfg.Fetch.Timeout), downloader.NewHTTPFetcher(cfg.Fetch.Timeout))

	return NewWithComponents(cfg, Components{
		Resolver: router,
		Fetcher:  router,
		Tagger:   tagger,
		Storage:  store,
	}), nil
}

// NewWithComponents assembles a server around the given collaborators
func NewWithComponents(cfg *config.Config, comps Components) *Server {
	registry := job.NewRegistry()
	tracker := progress.NewTracker()
	packager := archive.NewZipPackager(filepath.Join(cfg.DataDir, "staging"), comps.Storage)

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:         cfg,
		registry:    registry,
		tracker:     tracker,
		coordinator: fetch.NewCoordinator(registry, tracker, comps.Resolver, comps.Fetcher, filepath.Join(cfg.DataDir, "jobs")),
		pipeline:    finalize.NewPipeline(registry, comps.Tagger, packager),
		store:       comps.Storage,
		baseCtx:     baseCtx,
		cancel:      cancel,
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes(s.router)
	return s
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	sc := cfg.Storage
	switch sc.Type {
	case "gcs":
		return storage.NewGCSStorage(ctx, sc.Bucket, sc.Prefix, sc.CredentialsFile, sc.PublicBaseURL)
	case "minio":
		return storage.NewMinioStorage(ctx, storage.MinioOptions{
			Endpoint:      sc.Endpoint,
			AccessKey:     sc.AccessKey,
			SecretKey:     sc.SecretKey,
			UseSSL:        sc.UseSSL,
			Bucket:        sc.Bucket,
			Prefix:        sc.Prefix,
			PublicBaseURL: sc.PublicBaseURL,
		})
	default:
		return storage.NewLocalStorage(sc.OutputDir)
	}
}

func newTagger(cfg *config.Config) (audio.Tagger, error) {
	switch cfg.Tagger {
	case "ffmpeg":
		return audio.NewFFmpegTagger(cfg.Fetch.FFmpegPath), nil
	case "", "id3":
		if cfg.FileExtension != "mp3" {
			return nil, fmt.Errorf("id3 tagger only writes mp3 files, got %s", cfg.FileExtension)
		}
		return audio.NewID3Tagger(), nil
	default:
		return nil, fmt.Errorf("unknown tagger: %s", cfg.Tagger)
	}
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)
	router.GET(storage.DownloadPrefix+":name", s.downloadArtifact)

	api := router.Group("/api")
	{
		api.POST("/jobs", s.createJob)
		api.GET("/jobs", s.listJobs)
		api.GET("/jobs/:id", s.getJob)
		api.GET("/jobs/:id/progress", s.getProgress)
		api.GET("/jobs/:id/progress/stream", s.streamProgress)
		api.GET("/jobs/:id/manifest", s.getManifest)
		api.POST("/jobs/:id/finalize", s.finalizeJob)
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Handler exposes the router, mostly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	if err := s.StartRetention(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    ":" + s.cfg.Server.Port,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", s.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close stops background work and releases storage.
func (s *Server) Close() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
	s.cancel()
	s.coordinator.Wait()
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close storage", "error", err)
	}
}

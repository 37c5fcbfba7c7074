package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"mp4tomp3/config"
	"mp4tomp3/core/media"
	"mp4tomp3/core/utils"
	"mp4tomp3/db"
	"mp4tomp3/logger"
	"mp4tomp3/repository"
	"mp4tomp3/storage"
	"mp4tomp3/store"
)

// Start wires the application together and runs the HTTP server until
// SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	converter := media.NewConverter(cfg.FFmpegPath, cfg.FFprobePath)
	deps := converter.Deps()

	// Best-effort provisioning runs once here, never per request.
	if !deps.Provision(context.Background()) {
		logger.Warn("ffmpeg unavailable at startup, conversions will fail until it is installed")
	}

	if err := utils.EnsureDir(cfg.UploadDir); err != nil {
		return err
	}

	ttl := time.Duration(cfg.JobTTLMinutes) * time.Minute

	var jobs store.JobStore
	if cfg.RedisAddr != "" {
		redisStore, err := store.NewRedisJobStore(cfg, ttl)
		if err != nil {
			return err
		}
		jobs = redisStore
		logger.Info("using Redis job store", logger.String("addr", cfg.RedisAddr))
	} else {
		jobs = store.NewMemoryJobStore(ttl)
		logger.Info("using in-memory job store")
	}
	defer jobs.Close()

	var archive *storage.Archive
	if cfg.MinioEndpoint != "" {
		a, err := storage.NewArchive(cfg)
		if err != nil {
			return err
		}
		archive = a
		logger.Info("archiving converted files to MinIO", logger.String("bucket", cfg.MinioBucket))
	}

	var history repository.ConversionRepository
	if cfg.MySQLDSN != "" {
		if err := db.ConnectGorm(cfg.MySQLDSN); err != nil {
			return err
		}
		defer db.CloseGorm()
		history = repository.NewGormConversionRepository(db.DB)
		logger.Info("recording conversion history to MySQL")
	}

	hub := NewProgressHub()
	apiHandler := NewAPIHandler(cfg, converter, deps, jobs, hub, archive, history)

	router := NewRouter(apiHandler)

	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
		// Write timeout stays generous: downloads of long conversions pass
		// through here. Conversions themselves run detached from requests.
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// NewRouter builds the route table for the given handler set.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/convert", h.ConvertHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs/{id}", h.JobStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}/download", h.DownloadHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/history", h.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/jobs/{id}", h.WSProgressHandler)
	router.HandleFunc("/healthz", h.HealthzHandler).Methods(http.MethodGet)

	// The upload form UI.
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.cfg.WebAppDir)))

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

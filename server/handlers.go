package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"mp4tomp3/config"
	"mp4tomp3/core/media"
	"mp4tomp3/logger"
	"mp4tomp3/model"
	"mp4tomp3/repository"
	"mp4tomp3/storage"
	"mp4tomp3/store"
)

// Converter is the conversion operation the handlers drive. Satisfied by
// *media.Converter; replaced by fakes in tests.
type Converter interface {
	Convert(ctx context.Context, inputPath string, onProgress media.ProgressFunc) (string, error)
}

// APIHandler carries the dependencies of all HTTP handlers.
type APIHandler struct {
	cfg       *config.Config
	converter Converter
	deps      *media.Deps
	jobs      store.JobStore
	hub       *ProgressHub
	archive   *storage.Archive               // nil when MinIO is not configured
	history   repository.ConversionRepository // nil when MySQL is not configured
}

// NewAPIHandler creates the handler set. archive and history may be nil.
func NewAPIHandler(
	cfg *config.Config,
	converter Converter,
	deps *media.Deps,
	jobs store.JobStore,
	hub *ProgressHub,
	archive *storage.Archive,
	history repository.ConversionRepository,
) *APIHandler {
	return &APIHandler{
		cfg:       cfg,
		converter: converter,
		deps:      deps,
		jobs:      jobs,
		hub:       hub,
		archive:   archive,
		history:   history,
	}
}

var (
	nonAlphaNumeric = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]`)
	multipleSpaces  = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips characters that are unsafe in a filesystem path
// while keeping the original base name recognizable.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = multipleSpaces.ReplaceAllString(strings.TrimSpace(base), "_")
	base = nonAlphaNumeric.ReplaceAllString(base, "")
	if len(base) > 150 {
		base = base[len(base)-150:]
	}
	if base == "" || base == "." {
		base = "upload.mp4"
	}
	return base
}

// ConvertHandler accepts a multipart MP4 upload and starts a conversion job.
// Expected form field: videoFile. Responds 202 with the initial job status.
func (h *APIHandler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB in memory, rest spooled
		http.Error(w, "Failed to parse upload, the file may be too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("videoFile")
	if err != nil {
		http.Error(w, "Please upload a file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Reject wrong extensions before spending disk on the upload. The core
	// re-validates; this is just the cheap front door.
	if vErr := media.ValidateExtension(header.Filename); vErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":     vErr.UserMessage(),
			"errorKind": string(vErr.Kind),
		})
		return
	}

	// Each upload gets its own directory, so identical basenames from
	// concurrent users can never collide on the derived output path.
	jobID := uuid.New().String()
	jobDir := filepath.Join(h.cfg.UploadDir, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		logger.Error("failed to create job dir", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	sourcePath := filepath.Join(jobDir, sanitizeFilename(header.Filename))
	dst, err := os.Create(sourcePath)
	if err != nil {
		logger.Error("failed to create upload file", logger.ErrorField(err))
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.RemoveAll(jobDir)
		logger.Error("failed to save upload", logger.ErrorField(err))
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}
	dst.Close()

	job := &model.ConversionJob{
		ID:         jobID,
		SourceName: header.Filename,
		SourcePath: sourcePath,
		State:      model.JobPending,
		Label:      "Queued",
		CreatedAt:  time.Now(),
	}
	if err := h.jobs.Put(r.Context(), job); err != nil {
		logger.Error("failed to store job", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("conversion job accepted",
		logger.String("jobId", jobID), logger.String("file", header.Filename))

	// Snapshot the response before the job goroutine starts mutating the record.
	status := job.Status()
	go h.runJob(job)

	writeJSON(w, http.StatusAccepted, status)
}

// runJob drives one conversion to completion, mirroring every progress step
// into the job store and the websocket hub.
func (h *APIHandler) runJob(job *model.ConversionJob) {
	ctx := context.Background()
	started := time.Now()

	job.State = model.JobConverting
	h.publish(ctx, job)

	outputPath, err := h.converter.Convert(ctx, job.SourcePath, func(fraction float64, label string) {
		job.Fraction = fraction
		job.Label = label
		h.publish(ctx, job)
	})

	job.FinishedAt = time.Now()
	if err != nil {
		var ce *media.ConversionError
		if !errors.As(err, &ce) {
			ce = &media.ConversionError{Kind: media.ErrUnexpected, Message: "Conversion failed."}
		}
		logger.Error("conversion failed",
			logger.String("jobId", job.ID), logger.ErrorField(err))
		job.State = model.JobFailed
		job.ErrorKind = string(ce.Kind)
		job.Message = "Error: " + ce.UserMessage()
	} else {
		job.State = model.JobDone
		job.OutputPath = outputPath
		job.Fraction = 1.0
		job.Message = "Conversion successful!"

		if h.archive != nil {
			ttl := time.Duration(h.cfg.JobTTLMinutes) * time.Minute
			if url, aErr := h.archive.Store(ctx, job.ID, outputPath, ttl); aErr != nil {
				// Local download still works; archive failure is not fatal.
				logger.Warn("archive upload failed",
					logger.String("jobId", job.ID), logger.ErrorField(aErr))
			} else {
				job.ArchiveURL = url
			}
		}
	}

	h.publish(ctx, job)
	h.recordHistory(job, time.Since(started))
}

// publish writes the job to the store and pushes a progress event.
func (h *APIHandler) publish(ctx context.Context, job *model.ConversionJob) {
	if err := h.jobs.Put(ctx, job); err != nil {
		logger.Warn("failed to update job", logger.String("jobId", job.ID), logger.ErrorField(err))
	}
	h.hub.Publish(model.ProgressEvent{
		JobID:    job.ID,
		Fraction: job.Fraction,
		Label:    job.Label,
		State:    job.State,
		Message:  job.Message,
	})
}

func (h *APIHandler) recordHistory(job *model.ConversionJob, took time.Duration) {
	if h.history == nil {
		return
	}
	outcome := "success"
	if job.State == model.JobFailed {
		outcome = job.ErrorKind
	}
	rec := &model.ConversionRecord{
		JobID:      job.ID,
		SourceName: job.SourceName,
		Outcome:    outcome,
		DurationMS: took.Milliseconds(),
	}
	if err := h.history.Record(rec); err != nil {
		logger.Warn("failed to record history", logger.ErrorField(err))
	}
}

// JobStatusHandler returns the current status of a job.
func (h *APIHandler) JobStatusHandler(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		logger.Error("failed to load job", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job.Status())
}

// DownloadHandler serves the converted MP3, or redirects to the archived
// object when one exists.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]
	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.State != model.JobDone {
		http.Error(w, "Conversion is not finished", http.StatusConflict)
		return
	}

	if job.ArchiveURL != "" {
		http.Redirect(w, r, job.ArchiveURL, http.StatusTemporaryRedirect)
		return
	}

	if _, err := os.Stat(job.OutputPath); err != nil {
		http.Error(w, "Converted file is no longer available", http.StatusGone)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputPath)))
	http.ServeFile(w, r, job.OutputPath)
}

// HistoryHandler returns recent conversion records when MySQL is configured.
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, "History is not enabled", http.StatusNotFound)
		return
	}
	recs, err := h.history.Recent(20)
	if err != nil {
		logger.Error("failed to load history", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// HealthzHandler reports liveness and which external binaries are reachable.
func (h *APIHandler) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ffmpegOK := h.deps.EncoderAvailable(ctx)
	ffprobeOK := h.deps.ProberAvailable(ctx)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"ffmpeg":  ffmpegOK,
		"ffprobe": ffprobeOK,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/dubsync/internal/job"
	"github.com/maauso/dubsync/internal/media"
	"github.com/maauso/dubsync/internal/storage"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.SyncService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.SyncService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Analyze handles POST /analyze requests.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !h.decode(w, r, &req) {
		return
	}

	info, err := h.service.Analyze(r.Context(), req.WorkingDir, req.Path)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrInputNotFound):
			writeError(w, http.StatusNotFound, err.Error(), "FILE_NOT_FOUND")
		case errors.Is(err, media.ErrProbe), errors.Is(err, media.ErrNoAudioStream):
			h.logger.Warn("probe failed",
				slog.String("path", req.Path),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusUnprocessableEntity, err.Error(), "PROBE_FAILED")
		default:
			h.logger.Error("failed to analyze file",
				slog.String("path", req.Path),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to analyze file", "ANALYZE_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Duration: info.Duration,
		Channels: info.Channels,
		Codec:    info.Codec,
	})
}

// StartSync handles POST /start-sync requests.
// A request arriving while a job runs is answered with "already running"
// and does not disturb the running job.
func (h *Handlers) StartSync(w http.ResponseWriter, r *http.Request) {
	var req StartSyncRequest
	if !h.decode(w, r, &req) {
		return
	}

	started, err := h.service.Start(r.Context(), job.SyncInput{
		MasterName: req.MasterName,
		DubName:    req.DubName,
		WorkDir:    req.WorkingDir,
		PushToS3:   req.PushToS3,
	})
	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobRunning):
			writeJSON(w, http.StatusOK, StartSyncResponse{Status: StatusAlreadyRunning})
		case errors.Is(err, storage.ErrS3NotConfigured):
			writeError(w, http.StatusBadRequest, "push_to_s3 requested but S3 is not configured", "S3_NOT_CONFIGURED")
		case errors.Is(err, job.ErrInputRequired):
			writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		default:
			h.logger.Error("failed to start sync job",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to start sync job", "JOB_START_FAILED")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, StartSyncResponse{
		Status: StatusStarted,
		JobID:  started.ID,
	})
}

// Logs handles GET /logs requests.
func (h *Handlers) Logs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Logs())
}

// Progress handles GET /progress requests.
func (h *Handlers) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProgressResponse{Progress: h.service.Progress()})
}

// CurrentJob handles GET /jobs/current requests.
func (h *Handlers) CurrentJob(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Current()
	if err != nil {
		writeError(w, http.StatusNotFound, "no job has been started", "JOB_NOT_FOUND")
		return
	}
	writeJSON(w, http.StatusOK, newJobResponse(current))
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, newJobResponse(found))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, newJobResponse(j))
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

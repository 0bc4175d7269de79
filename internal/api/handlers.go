package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bobarin/placeguide/internal/db"
	"github.com/bobarin/placeguide/internal/guide"
	"github.com/bobarin/placeguide/internal/logger"
	"github.com/bobarin/placeguide/internal/models"
	"github.com/bobarin/placeguide/internal/queue"
)

const healthTimeout = 2 * time.Second

// RunLog is the read side of the run log; *db.DB implements it.
type RunLog interface {
	ListRuns(ctx context.Context, filter db.RunFilter) ([]models.GuideRun, error)
	CountRuns(ctx context.Context, filter db.RunFilter) (int, error)
}

type Handler struct {
	pipeline *guide.Pipeline
	queue    *queue.Queue // nil when async generation is disabled
	runs     RunLog       // nil when the run log is disabled
}

func NewHandler(pipeline *guide.Pipeline, q *queue.Queue, runs RunLog) *Handler {
	return &Handler{
		pipeline: pipeline,
		queue:    q,
		runs:     runs,
	}
}

// decodeGuideRequest reads the request body and applies the silent defaults.
// An empty body is a request with every field missing.
func (h *Handler) decodeGuideRequest(r *http.Request) (models.GuideRequest, error) {
	var body models.GenerateGuideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return models.GuideRequest{}, err
	}
	return body.Normalize(h.pipeline.DefaultSelector()), nil
}

// GenerateGuide handles POST /generate_guide
func (h *Handler) GenerateGuide(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeGuideRequest(r)
	if err != nil {
		respondGuideError(w, http.StatusBadRequest, "Invalid request body", guide.KindInput)
		return
	}

	resp, err := h.pipeline.Generate(r.Context(), req)
	if err != nil {
		kind := guide.KindOf(err)
		logger.Errorf("[API] generate_guide failed (request_id=%s, kind=%s): %v", middleware.GetReqID(r.Context()), kind, err)
		respondGuideError(w, http.StatusInternalServerError, err.Error(), kind)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// CreateGuideJob handles POST /v1/guides
func (h *Handler) CreateGuideJob(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Async generation is not enabled")
		return
	}

	req, err := h.decodeGuideRequest(r)
	if err != nil {
		respondGuideError(w, http.StatusBadRequest, "Invalid request body", guide.KindInput)
		return
	}

	job, err := h.queue.EnqueueGenerateGuide(r.Context(), req)
	if err != nil {
		logger.Errorf("[API] failed to enqueue guide job: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateGuideJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// GetGuideJob handles GET /v1/guides/{id}
func (h *Handler) GetGuideJob(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, http.StatusServiceUnavailable, "Async generation is not enabled")
		return
	}

	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.queue.GetJob(r.Context(), jobID)
	if errors.Is(err, queue.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// ListProfiles handles GET /v1/profiles
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = models.DefaultLanguage
	}

	table := h.pipeline.Table()
	selectors := table.Selectors()

	summaries := make([]models.ProfileSummary, 0, len(selectors))
	for _, selector := range selectors {
		res := table.Resolve(lang, selector)
		summaries = append(summaries, models.ProfileSummary{
			Selector:   selector,
			Acoustic:   res.Acoustic,
			HasPersona: res.Persona != nil && res.Persona.ToneInstruction != "",
			IsDefault:  selector == table.DefaultSelector,
		})
	}

	respondJSON(w, http.StatusOK, models.ListProfilesResponse{
		Variant:  table.Variant,
		Language: lang,
		Default:  table.DefaultProfile(lang),
		Profiles: summaries,
	})
}

// ListRuns handles GET /v1/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Run log is not enabled")
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.JobStatus(statusFilter) {
		case models.JobStatusSucceeded, models.JobStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: succeeded, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	filter := db.RunFilter{Status: statusFilter, Limit: limit, Offset: offset}

	total, err := h.runs.CountRuns(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count runs")
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	respondJSON(w, http.StatusOK, models.ListRunsResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondGuideError writes the pipeline failure body. It never carries script
// or audio.
func respondGuideError(w http.ResponseWriter, status int, message string, kind guide.Kind) {
	respondJSON(w, status, models.ErrorResponse{Error: message, ErrorKind: string(kind)})
}

// Health check. With async generation enabled, Redis must answer as well.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.queue.Ping(ctx); err != nil {
		logger.Warnf("[API] health: redis unavailable: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Redis: "unavailable"})
		return
	}

	pending, err := h.queue.GetQueueLength(ctx, queue.QueueGenerateGuide)
	if err != nil {
		logger.Warnf("[API] health: queue length: %v", err)
		respondJSON(w, http.StatusServiceUnavailable, models.HealthResponse{Status: "unavailable", Redis: "unavailable"})
		return
	}

	respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Redis: "ok", QueueLength: &pending})
}

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/pipeline"
	"github.com/opensource-finance/harrier/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *pipeline.Service
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	version string
}

// NewHandler creates a new API handler.
func NewHandler(svc *pipeline.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// RunRequest is the request body for POST /runs.
type RunRequest struct {
	Region     string `json:"region"`
	SourceFile string `json:"sourceFile"`
}

// RunPipeline handles POST /runs requests.
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Region == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "region is required",
		})
		return
	}
	if req.SourceFile == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "sourceFile is required",
		})
		return
	}

	run, err := h.svc.RunRegion(ctx, req.Region, req.SourceFile)
	if err != nil {
		slog.Error("pipeline run failed",
			"region", req.Region,
			"source_file", req.SourceFile,
			"error", err,
		)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrEmptyInput) {
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, map[string]string{
			"error": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// GetRun retrieves a pipeline run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "run id is required",
		})
		return
	}

	run, err := h.repo.GetRun(ctx, runID)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "run not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get run", "id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load run",
		})
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// ListRuns retrieves recent runs, optionally filtered by region.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	region := r.URL.Query().Get("region")

	runs, err := h.repo.ListRuns(ctx, region, 50)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list runs",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// AdvisoryRequest is the request body for POST /advisories.
type AdvisoryRequest struct {
	RunID  string `json:"runId"`
	Branch string `json:"branch"`
}

// GenerateAdvisory handles POST /advisories requests.
func (h *Handler) GenerateAdvisory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AdvisoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.RunID == "" || req.Branch == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "runId and branch are required",
		})
		return
	}

	records, ok := h.svc.Records(req.RunID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "run not held in memory; re-run the pipeline first",
		})
		return
	}

	result, err := h.svc.GenerateAdvisory(ctx, req.Branch, records)
	if err != nil {
		slog.Error("advisory generation failed",
			"branch", req.Branch,
			"run_id", req.RunID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "advisory generation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAdvisory retrieves the latest advisory for a branch.
func (h *Handler) GetAdvisory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branch := chi.URLParam(r, "branch")

	if branch == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "branch is required",
		})
		return
	}

	adv, err := h.repo.LatestAdvisoryForBranch(ctx, branch)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no advisory for branch",
		})
		return
	}
	if err != nil {
		slog.Error("failed to get advisory", "branch", branch, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load advisory",
		})
		return
	}

	writeJSON(w, http.StatusOK, adv)
}

// ListDispatches retrieves dispatch outcomes for a branch.
func (h *Handler) ListDispatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	branch := chi.URLParam(r, "branch")

	dispatches, err := h.repo.ListDispatches(ctx, branch, 50)
	if err != nil {
		slog.Error("failed to list dispatches", "branch", branch, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list dispatches",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dispatches": dispatches,
		"count":      len(dispatches),
	})
}

// RegionSummary handles GET /summaries/region/{region}.
func (h *Handler) RegionSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	region := chi.URLParam(r, "region")
	runID := r.URL.Query().Get("runId")

	records, ok := h.runRecords(w, runID)
	if !ok {
		return
	}

	summary, err := h.svc.RegionSummary(ctx, region, records)
	if err != nil {
		slog.Error("region summary failed", "region", region, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "summary generation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"region":  region,
		"summary": summary,
	})
}

// DeviceSummary handles GET /summaries/devices.
func (h *Handler) DeviceSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := r.URL.Query().Get("runId")

	records, ok := h.runRecords(w, runID)
	if !ok {
		return
	}

	summary, err := h.svc.DeviceSummary(ctx, records)
	if err != nil {
		slog.Error("device summary failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "summary generation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"summary": summary,
	})
}

// runRecords resolves the classified records for a runId query
// parameter, writing the error response itself when they are missing.
func (h *Handler) runRecords(w http.ResponseWriter, runID string) ([]domain.ClassifiedRecord, bool) {
	if runID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "runId query parameter is required",
		})
		return nil, false
	}
	records, ok := h.svc.Records(runID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "run not held in memory; re-run the pipeline first",
		})
		return nil, false
	}
	return records, true
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

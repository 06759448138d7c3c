package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/api/middleware"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/infra/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/jobs"
	"github.com/dvloznov/ocr-ledger/internal/logger"
)

// TextProcessor runs OCR text through the whole pipeline.
type TextProcessor interface {
	Process(ctx context.Context, text string) (*domain.ProcessResult, error)
}

// DemoExtractor runs the built-in sample through extraction only.
type DemoExtractor interface {
	Demo(ctx context.Context) (any, error)
}

// RunLister lists recorded processing runs.
type RunLister interface {
	ListRecentRuns(ctx context.Context, limit int) ([]*bigquery.RunRow, error)
}

// OCRRequest is the inbound body of the OCR endpoint.
type OCRRequest struct {
	Text string `json:"text"`
}

// JobRequest is the inbound body of POST /api/jobs.
type JobRequest struct {
	Text   string `json:"text"`
	GCSURI string `json:"gcs_uri"`
}

// StatusForError maps a pipeline error to an HTTP status.
func StatusForError(err error) int {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// OCRHandler handles the synchronous OCR endpoints.
type OCRHandler struct {
	processor TextProcessor
	demo      DemoExtractor
}

// NewOCRHandler creates a new OCR handler.
func NewOCRHandler(processor TextProcessor, demo DemoExtractor) *OCRHandler {
	return &OCRHandler{processor: processor, demo: demo}
}

// ProcessOCR handles POST / and POST /api/transactions/ocr
func (h *OCRHandler) ProcessOCR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req OCRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	result, err := h.processor.Process(ctx, req.Text)
	if err != nil {
		log.Error().Err(err).Msg("Failed to process OCR text")
		middleware.WriteError(w, StatusForError(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// Demo handles GET /
func (h *OCRHandler) Demo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	parsed, err := h.demo.Demo(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Demo extraction failed")
		middleware.WriteError(w, StatusForError(err), err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, parsed)
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
	}
}

// EnqueueJob handles POST /api/jobs
func (h *JobsHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	hasText := strings.TrimSpace(req.Text) != ""
	if hasText == (req.GCSURI != "") {
		middleware.WriteError(w, http.StatusBadRequest, "exactly one of text and gcs_uri is required")
		return
	}

	job := &jobs.ProcessTextJob{
		Text:   req.Text,
		GCSURI: req.GCSURI,
	}

	if err := h.publisher.PublishProcessText(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue OCR job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue OCR job")
		return
	}

	log.Info().Str("job_id", job.JobID).Msg("OCR job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  queryInt(query.Get("limit")),
		Offset: queryInt(query.Get("offset")),
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// RunsHandler handles the processing run audit endpoint.
type RunsHandler struct {
	runs RunLister
}

// NewRunsHandler creates a new runs handler. runs may be nil when the audit
// log is not configured.
func NewRunsHandler(runs RunLister) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// ListRuns handles GET /api/runs
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Run audit is not configured")
		return
	}

	ctx := r.Context()

	runs, err := h.runs.ListRecentRuns(ctx, queryInt(r.URL.Query().Get("limit")))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	if runs == nil {
		runs = []*bigquery.RunRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func queryInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

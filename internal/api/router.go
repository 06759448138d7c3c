// Package api assembles the HTTP surface of the OCR service.
package api

import (
	"net/http"
	"strings"

	"github.com/dvloznov/ocr-ledger/internal/api/handlers"
	"github.com/dvloznov/ocr-ledger/internal/api/middleware"
	"github.com/dvloznov/ocr-ledger/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the routes are served by. Runs may be nil.
type Deps struct {
	Processor handlers.TextProcessor
	Demo      handlers.DemoExtractor
	JobStore  jobs.JobStore
	Publisher jobs.Publisher
	Runs      handlers.RunLister
	Log       zerolog.Logger
}

// NewRouter returns the routed handler wrapped in the standard middleware.
func NewRouter(deps Deps) http.Handler {
	ocrHandler := handlers.NewOCRHandler(deps.Processor, deps.Demo)
	jobsHandler := handlers.NewJobsHandler(deps.JobStore, deps.Publisher)
	runsHandler := handlers.NewRunsHandler(deps.Runs)

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			ocrHandler.Demo(w, r)
		case http.MethodPost:
			ocrHandler.ProcessOCR(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/ocr", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ocrHandler.ProcessOCR(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jobsHandler.ListJobs(w, r)
		case http.MethodPost:
			jobsHandler.EnqueueJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.ListRuns(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", handlers.Health)

	return middleware.Chain(mux,
		middleware.Recovery(deps.Log),
		middleware.RequestID,
		middleware.Logger(deps.Log),
		middleware.CORS,
	)
}

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/api"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/infra/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	ProcessFunc func(ctx context.Context, text string) (*domain.ProcessResult, error)
}

func (f *fakeProcessor) Process(ctx context.Context, text string) (*domain.ProcessResult, error) {
	return f.ProcessFunc(ctx, text)
}

type fakeDemo struct {
	value any
	err   error
}

func (f *fakeDemo) Demo(ctx context.Context) (any, error) { return f.value, f.err }

type fakeRuns struct {
	rows  []*bigquery.RunRow
	limit int
}

func (f *fakeRuns) ListRecentRuns(ctx context.Context, limit int) ([]*bigquery.RunRow, error) {
	f.limit = limit
	return f.rows, nil
}

func newTestRouter(t *testing.T, processor *fakeProcessor, runs *fakeRuns) (http.Handler, *inmemory.Store) {
	t.Helper()

	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store)
	t.Cleanup(func() { _ = queue.Close() })

	deps := api.Deps{
		Processor: processor,
		Demo:      &fakeDemo{value: []any{map[string]any{"purpose": "Uber Eats"}}},
		JobStore:  store,
		Publisher: queue,
		Log:       logger.NewWithWriter(&bytes.Buffer{}),
	}
	if runs != nil {
		deps.Runs = runs
	}
	return api.NewRouter(deps), store
}

func okProcessor() *fakeProcessor {
	return &fakeProcessor{ProcessFunc: func(ctx context.Context, text string) (*domain.ProcessResult, error) {
		return &domain.ProcessResult{
			Transactions: []domain.Transaction{{Purpose: text, Amount: 63.86, Currency: "EUR"}},
			Notion:       domain.UploadReport{Uploaded: []domain.UploadOutcome{{Success: true, ID: "page-1"}}},
		}, nil
	}}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestRouter_ProcessOCR(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	for _, path := range []string{"/", "/api/transactions/ocr"} {
		rec := do(router, http.MethodPost, path, `{"text":"Uber Eats"}`)

		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{
			"transactions": [{"purpose":"Uber Eats","amount":63.86,"currency":"EUR"}],
			"notion": {"uploaded":[{"success":true,"id":"page-1"}]}
		}`, rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
}

func TestRouter_ProcessOCR_BadRequests(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: `text=hi`, want: "Invalid request body"},
		{name: "missing text", body: `{}`, want: "text is required"},
		{name: "blank text", body: `{"text":"   "}`, want: "text is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/transactions/ocr", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tt.want), rec.Body.String())
		})
	}
}

func TestRouter_ProcessOCR_StageErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "gateway rejected",
			err:        fmt.Errorf("Process: %w", &domain.GatewayError{StatusCode: 401, Body: "bad key"}),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "missing key",
			err:        fmt.Errorf("Process: %w", &domain.ConfigurationError{Setting: "AI_GATEWAY_API_KEY"}),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "other",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, &fakeProcessor{ProcessFunc: func(ctx context.Context, text string) (*domain.ProcessResult, error) {
				return nil, tt.err
			}}, nil)

			rec := do(router, http.MethodPost, "/", `{"text":"x"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestRouter_Demo(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	rec := do(router, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"purpose":"Uber Eats"}]`, rec.Body.String())
}

func TestRouter_NotFoundAndMethods(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/nope", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodPut, "/", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodGet, "/api/transactions/ocr", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(router, http.MethodDelete, "/api/jobs/abc", "").Code)
}

func TestRouter_Jobs(t *testing.T) {
	router, store := newTestRouter(t, okProcessor(), nil)

	rec := do(router, http.MethodPost, "/api/jobs", `{"text":"Uber Eats"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "pending", accepted["status"])

	stored, err := store.GetJob(context.Background(), accepted["job_id"])
	require.NoError(t, err)
	assert.Equal(t, "Uber Eats", stored.Text)

	rec = do(router, http.MethodGet, "/api/jobs/"+accepted["job_id"], "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), accepted["job_id"])
	assert.NotContains(t, rec.Body.String(), "Uber Eats")

	rec = do(router, http.MethodGet, "/api/jobs?status=pending&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/jobs/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/jobs/", "").Code)
}

func TestRouter_EnqueueJob_Validation(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	for _, body := range []string{
		`{}`,
		`{"text":"a","gcs_uri":"gs://bucket/shot.txt"}`,
	} {
		rec := do(router, http.MethodPost, "/api/jobs", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := do(router, http.MethodPost, "/api/jobs", `{"gcs_uri":"gs://bucket/shot.txt"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRouter_Runs(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(router, http.MethodGet, "/api/runs", "").Code)

	runs := &fakeRuns{rows: []*bigquery.RunRow{{RunID: "run-1", Status: bigquery.StatusSuccess, StartedTS: time.Now()}}}
	router, _ = newTestRouter(t, okProcessor(), runs)

	rec := do(router, http.MethodGet, "/api/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run-1"`)
	assert.Equal(t, 5, runs.limit)
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t, okProcessor(), nil)

	rec := do(router, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

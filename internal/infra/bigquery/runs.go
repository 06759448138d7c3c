// Package bigquery records processed OCR requests in a BigQuery audit table.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/domain"
)

const (
	// DefaultDataset is used when no dataset is configured.
	DefaultDataset = "ocr_ledger"

	runsTable = "processing_runs"
)

// Run statuses.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// RunRow is one row of the processing_runs table.
type RunRow struct {
	RunID      string                 `bigquery:"run_id" json:"run_id"`                 // REQUIRED
	StartedTS  time.Time              `bigquery:"started_ts" json:"started_ts"`         // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts" json:"finished_ts"`       // NULLABLE
	Backend    string                 `bigquery:"backend" json:"backend"`               // NULLABLE
	Status     string                 `bigquery:"status" json:"status"`                 // NULLABLE
	TextLength int64                  `bigquery:"text_length" json:"text_length"`       // NULLABLE
	Records    bigquery.NullInt64     `bigquery:"record_count" json:"record_count"`     // NULLABLE
	Uploaded   bigquery.NullInt64     `bigquery:"uploaded_count" json:"uploaded_count"` // NULLABLE
	Failed     bigquery.NullInt64     `bigquery:"failed_count" json:"failed_count"`     // NULLABLE
	ErrorMsg   bigquery.NullString    `bigquery:"error_message" json:"error_message"`   // NULLABLE
}

// RunRepository is the BigQuery-backed run tracker. It holds a shared client
// to avoid creating a new connection for each operation.
type RunRepository struct {
	client  *bigquery.Client
	runner  QueryRunner
	dataset string
}

// NewRunRepository creates a RunRepository for the given project and dataset.
func NewRunRepository(ctx context.Context, projectID, dataset string) (*RunRepository, error) {
	if projectID == "" {
		return nil, &domain.ConfigurationError{Setting: "BIGQUERY_PROJECT"}
	}
	if dataset == "" {
		dataset = DefaultDataset
	}

	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRunRepository: creating client: %w", err)
	}
	return &RunRepository{client: client, runner: NewClientRunner(client), dataset: dataset}, nil
}

// Close closes the BigQuery client connection.
func (r *RunRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// StartRun inserts a RUNNING row and returns its id.
func (r *RunRepository) StartRun(ctx context.Context, backend string, textLength int) (string, error) {
	return StartRunWithRunner(ctx, r.runner, r.dataset, backend, textLength)
}

// FinishRun marks a run SUCCESS with its record counts.
func (r *RunRepository) FinishRun(ctx context.Context, runID string, summary domain.RunSummary) error {
	return FinishRunWithRunner(ctx, r.runner, r.dataset, runID, summary)
}

// FailRun marks a run FAILED. Errors are logged, not returned.
func (r *RunRepository) FailRun(ctx context.Context, runID string, runErr error) {
	FailRunWithRunner(ctx, r.runner, r.dataset, runID, runErr)
}

// ListRecentRuns returns up to limit runs, newest first.
func (r *RunRepository) ListRecentRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	return ListRecentRunsWithRunner(ctx, r.runner, r.dataset, limit)
}

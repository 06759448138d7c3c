package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	maxErrorMessageLen = 2000
	defaultListLimit   = 50
	maxListLimit       = 500
)

// QueryRunner executes parameterized statements against the runs table.
type QueryRunner interface {
	// Exec runs a DML statement and waits for it to finish.
	Exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error

	// ReadRuns runs a SELECT and scans every row into a RunRow.
	ReadRuns(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]*RunRow, error)
}

// ClientRunner is the QueryRunner backed by a BigQuery client.
type ClientRunner struct {
	client *bigquery.Client
}

// NewClientRunner wraps client as a QueryRunner.
func NewClientRunner(client *bigquery.Client) *ClientRunner {
	return &ClientRunner{client: client}
}

// Exec implements QueryRunner.
func (c *ClientRunner) Exec(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := c.client.Query(sql)
	q.Parameters = params
	return runQuery(ctx, q)
}

// ReadRuns implements QueryRunner.
func (c *ClientRunner) ReadRuns(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]*RunRow, error) {
	q := c.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	var rows []*RunRow
	for {
		var r RunRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// StartRunWithRunner inserts a new row with status=RUNNING and returns the
// generated run_id.
func StartRunWithRunner(ctx context.Context, runner QueryRunner, dataset, backend string, textLength int) (string, error) {
	runID := uuid.NewString()

	sql := fmt.Sprintf(`
		INSERT %s.%s (
			run_id,
			started_ts,
			backend,
			status,
			text_length
		)
		VALUES (
			@run_id,
			@started_ts,
			@backend,
			@status,
			@text_length
		)
	`, dataset, runsTable)

	params := []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "backend", Value: backend},
		{Name: "status", Value: StatusRunning},
		{Name: "text_length", Value: textLength},
	}

	if err := runner.Exec(ctx, sql, params); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}

	return runID, nil
}

// FinishRunWithRunner sets status=SUCCESS, finished_ts and the record counts.
func FinishRunWithRunner(ctx context.Context, runner QueryRunner, dataset, runID string, summary domain.RunSummary) error {
	sql := fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    record_count = @record_count,
		    uploaded_count = @uploaded_count,
		    failed_count = @failed_count
		WHERE run_id = @run_id
	`, dataset, runsTable)

	params := []bigquery.QueryParameter{
		{Name: "status", Value: StatusSuccess},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "record_count", Value: summary.Records},
		{Name: "uploaded_count", Value: summary.Uploaded},
		{Name: "failed_count", Value: summary.Failed},
		{Name: "run_id", Value: runID},
	}

	if err := runner.Exec(ctx, sql, params); err != nil {
		return fmt.Errorf("FinishRun: %w", err)
	}
	return nil
}

// FailRunWithRunner sets status=FAILED, finished_ts and error_message.
func FailRunWithRunner(ctx context.Context, runner QueryRunner, dataset, runID string, runErr error) {
	log := logger.FromContext(ctx)

	sql := fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, dataset, runsTable)

	params := []bigquery.QueryParameter{
		{Name: "status", Value: StatusFailed},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: truncateErrorMessage(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runner.Exec(ctx, sql, params); err != nil {
		log.Error().
			Err(err).
			Str("run_id", runID).
			Msg("FailRun: update failed")
	}
}

// ListRecentRunsWithRunner returns the most recent runs, newest first.
func ListRecentRunsWithRunner(ctx context.Context, runner QueryRunner, dataset string, limit int) ([]*RunRow, error) {
	sql := fmt.Sprintf(`
		SELECT
		  run_id,
		  started_ts,
		  finished_ts,
		  backend,
		  status,
		  text_length,
		  record_count,
		  uploaded_count,
		  failed_count,
		  error_message
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, dataset, runsTable)

	rows, err := runner.ReadRuns(ctx, sql, []bigquery.QueryParameter{
		{Name: "limit", Value: clampLimit(limit)},
	})
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: %w", err)
	}
	return rows, nil
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func truncateErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := []rune(err.Error())
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return string(msg)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

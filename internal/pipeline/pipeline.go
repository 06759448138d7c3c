// Package pipeline turns OCR text of a banking-app screenshot into normalized
// transactions: extraction through a text-generation model, normalization of
// the reply, currency conversion and persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/fields"
	"github.com/dvloznov/ocr-ledger/internal/logger"
)

// RunTracker records processed requests for auditing. Tracking failures must
// never change the outcome of a request.
type RunTracker interface {
	StartRun(ctx context.Context, backend string, textLength int) (string, error)
	FinishRun(ctx context.Context, runID string, summary domain.RunSummary) error
	FailRun(ctx context.Context, runID string, runErr error)
}

// Processor runs one OCR request through the pipeline.
type Processor struct {
	pipeline *Pipeline
	runs     RunTracker
	backend  string
	now      func() time.Time
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithRunTracker records every request with the given tracker.
func WithRunTracker(runs RunTracker) ProcessorOption {
	return func(p *Processor) { p.runs = runs }
}

// WithClock overrides the source of today's date.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithBackendName labels recorded runs with the extraction backend.
func WithBackendName(name string) ProcessorOption {
	return func(p *Processor) { p.backend = name }
}

// NewProcessor creates a Processor over the standard OCR pipeline.
func NewProcessor(extractor Extractor, normalizer CurrencyNormalizer, uploader Uploader, opts ...ProcessorOption) *Processor {
	p := &Processor{
		pipeline: NewOCRPipeline(extractor, normalizer, uploader),
		backend:  BackendChat,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process extracts, converts and persists the transactions in text.
// Only an extraction failure is returned as an error; conversion and write
// failures are reported per record in the result.
func (p *Processor) Process(ctx context.Context, text string) (*domain.ProcessResult, error) {
	log := logger.FromContext(ctx)

	runID := p.startRun(ctx, len(text))

	state := &PipelineState{
		Text:  text,
		Today: fields.Today(p.now()),
	}

	if err := p.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("OCR processing failed")
		if p.runs != nil && runID != "" {
			p.runs.FailRun(ctx, runID, err)
		}
		return nil, fmt.Errorf("Process: %w", err)
	}

	txs := state.Transactions
	if txs == nil {
		txs = []domain.Transaction{}
	}
	result := &domain.ProcessResult{Transactions: txs, Notion: state.Report}

	summary := domain.SummarizeRun(result)
	log.Info().
		Str("run_id", runID).
		Int("transactions", summary.Records).
		Int("uploaded", summary.Uploaded).
		Int("upload_failed", summary.Failed).
		Msg("OCR processing finished")

	if p.runs != nil && runID != "" {
		if err := p.runs.FinishRun(ctx, runID, summary); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("Failed to record run result")
		}
	}

	return result, nil
}

func (p *Processor) startRun(ctx context.Context, textLength int) string {
	if p.runs == nil {
		return ""
	}
	runID, err := p.runs.StartRun(ctx, p.backend, textLength)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to record run start")
		return ""
	}
	return runID
}

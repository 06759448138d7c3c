package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ocr-ledger/internal/currency"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/logger"
)

// PipelineStep represents a single step in the OCR pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Text         string
	Today        civil.Date
	Candidate    any
	Transactions []domain.Transaction
	Report       domain.UploadReport
}

// CurrencyNormalizer converts records into the reporting currency.
type CurrencyNormalizer interface {
	Normalize(ctx context.Context, txs []domain.Transaction) []currency.Result
}

// Uploader persists records and reports one outcome per record.
type Uploader interface {
	Upload(ctx context.Context, txs []domain.Transaction) (domain.UploadReport, error)
}

// Step 1: ExtractStep sends the OCR text to the model.
type ExtractStep struct {
	Extractor Extractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	candidate, err := s.Extractor.Extract(ctx, state.Text, state.Today)
	if err != nil {
		return err
	}
	state.Candidate = candidate
	return nil
}

// Step 2: NormalizeStep turns the model reply into records.
type NormalizeStep struct{}

func (s *NormalizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Transactions = NormalizeTransactions(state.Candidate)

	log := logger.FromContext(ctx)
	log.Info().Int("transaction_count", len(state.Transactions)).Msg("Normalized model output")
	return nil
}

// Step 3: ConvertCurrencyStep converts amounts into the reporting currency.
// Per-record failures are recorded on the records, never returned.
type ConvertCurrencyStep struct {
	Normalizer CurrencyNormalizer
}

func (s *ConvertCurrencyStep) Execute(ctx context.Context, state *PipelineState) error {
	results := s.Normalizer.Normalize(ctx, state.Transactions)
	if len(results) != len(state.Transactions) {
		return fmt.Errorf("ConvertCurrencyStep: got %d results for %d transactions", len(results), len(state.Transactions))
	}

	converted, failed := currency.Apply(state.Transactions, results)

	log := logger.FromContext(ctx)
	log.Info().
		Int("converted", converted).
		Int("failed", failed).
		Msg("Currency normalization finished")
	return nil
}

// Step 4: PersistStep writes the records to the store. A store that cannot be
// used at all is reported in state.Report; the converted records are still
// returned to the caller.
type PersistStep struct {
	Uploader Uploader
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	report, err := s.Uploader.Upload(ctx, state.Transactions)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Persistence failed")
		state.Report = domain.UploadReport{Error: err.Error()}
		return nil
	}
	state.Report = report
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewOCRPipeline creates the standard extract, normalize, convert, persist pipeline.
func NewOCRPipeline(extractor Extractor, normalizer CurrencyNormalizer, uploader Uploader) *Pipeline {
	return NewPipeline(
		&ExtractStep{Extractor: extractor},
		&NormalizeStep{},
		&ConvertCurrencyStep{Normalizer: normalizer},
		&PersistStep{Uploader: uploader},
	)
}

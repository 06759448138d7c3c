// Package app wires configuration into the OCR pipeline and its collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dvloznov/ocr-ledger/internal/api/handlers"
	"github.com/dvloznov/ocr-ledger/internal/config"
	"github.com/dvloznov/ocr-ledger/internal/currency"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/gcs"
	"github.com/dvloznov/ocr-ledger/internal/infra/bigquery"
	"github.com/dvloznov/ocr-ledger/internal/infra/dynamodb"
	"github.com/dvloznov/ocr-ledger/internal/jobs"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/dvloznov/ocr-ledger/internal/notionsync"
	"github.com/dvloznov/ocr-ledger/internal/pipeline"
	"github.com/rs/zerolog"
)

// httpTimeout bounds every outbound call to the generation and rate services.
const httpTimeout = 60 * time.Second

// App holds the wired pipeline and the resources it owns.
type App struct {
	Config     *config.Config
	Log        zerolog.Logger
	Extraction *pipeline.ExtractionClient
	Rates      *currency.APIClient
	Processor  *pipeline.Processor

	runs    *bigquery.RunRepository
	textsMu sync.Mutex
	texts   gcs.TextFetcher

	closers []func() error
}

// New builds the application from cfg. Missing credentials do not fail
// here; the stage that needs them returns a ConfigurationError.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	ctx = logger.WithContext(ctx, log)
	a := &App{Config: cfg, Log: log}

	if cfg.Extractor.GenerationKey() == "" {
		log.Warn().Str("backend", cfg.Extractor.Backend).Msg("No API key configured for the text-generation backend")
	}

	backend, err := newCompleter(ctx, cfg.Extractor)
	if err != nil {
		return nil, err
	}
	a.Extraction = pipeline.NewExtractionClient(backend)

	httpClient := &http.Client{Timeout: httpTimeout}
	a.Rates = currency.NewAPIClient(cfg.Currency.BaseURL, cfg.Currency.APIKey, httpClient)
	normalizer := currency.NewNormalizer(a.Rates, cfg.Currency.Target)

	store, err := a.newRecordStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	uploader := notionsync.NewUploader(store, time.Now)

	opts := []pipeline.ProcessorOption{pipeline.WithBackendName(cfg.Extractor.Backend)}
	if cfg.Runs.Project != "" {
		runs, err := bigquery.NewRunRepository(ctx, cfg.Runs.Project, cfg.Runs.Dataset)
		if err != nil {
			log.Warn().Err(err).Msg("Run audit disabled")
		} else {
			a.runs = runs
			a.closers = append(a.closers, runs.Close)
			opts = append(opts, pipeline.WithRunTracker(runs))
		}
	}

	a.Processor = pipeline.NewProcessor(a.Extraction, normalizer, uploader, opts...)

	return a, nil
}

// Close releases the clients the application opened.
func (a *App) Close() error {
	a.textsMu.Lock()
	defer a.textsMu.Unlock()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// RunLister returns the run audit, or nil when it is not configured.
func (a *App) RunLister() handlers.RunLister {
	if a.runs == nil {
		return nil
	}
	return a.runs
}

// FetchText reads OCR text from Cloud Storage, opening the client on first use.
func (a *App) FetchText(ctx context.Context, gcsURI string) (string, error) {
	a.textsMu.Lock()
	if a.texts == nil {
		reader, err := gcs.NewReader(ctx)
		if err != nil {
			a.textsMu.Unlock()
			return "", fmt.Errorf("FetchText: %w", err)
		}
		a.texts = reader
		a.closers = append(a.closers, reader.Close)
	}
	texts := a.texts
	a.textsMu.Unlock()

	return texts.FetchText(ctx, gcsURI)
}

// SetTextFetcher replaces the Cloud Storage reader.
func (a *App) SetTextFetcher(f gcs.TextFetcher) {
	a.textsMu.Lock()
	defer a.textsMu.Unlock()
	a.texts = f
}

// HandleJob processes one queued job, reading its text from Cloud Storage
// when the job carries a URI.
func (a *App) HandleJob(ctx context.Context, job *jobs.ProcessTextJob) (*domain.ProcessResult, error) {
	text := job.Text
	if job.GCSURI != "" {
		var err error
		text, err = a.FetchText(ctx, job.GCSURI)
		if err != nil {
			return nil, fmt.Errorf("HandleJob: %w", err)
		}
	}
	return a.Processor.Process(ctx, text)
}

func newCompleter(ctx context.Context, cfg config.ExtractorConfig) (pipeline.Completer, error) {
	var (
		backend pipeline.Completer
		err     error
	)

	switch cfg.Backend {
	case pipeline.BackendChat, "":
		return pipeline.NewChatCompletionsBackend(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.Model,
			&http.Client{Timeout: httpTimeout}), nil
	case pipeline.BackendGemini:
		backend, err = pipeline.NewGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case pipeline.BackendGigaChat:
		backend, err = pipeline.NewGigaChatBackend(ctx, cfg.GigaChatAPIKey, cfg.GigaChatScope, cfg.GigaChatModel)
	default:
		return nil, fmt.Errorf("newCompleter: unknown EXTRACTOR_BACKEND %q", cfg.Backend)
	}

	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return unconfiguredCompleter{err: cfgErr}, nil
	}
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// unconfiguredCompleter stands in for a backend whose credentials are missing.
type unconfiguredCompleter struct {
	err error
}

func (u unconfiguredCompleter) Complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	return "", u.err
}

func (a *App) newRecordStore(ctx context.Context, cfg config.StoreConfig) (notionsync.RecordStore, error) {
	switch cfg.Backend {
	case config.StoreNotion, "":
		return notionsync.NewNotionStore(cfg.NotionAPIKey, cfg.DatabaseID, nil), nil
	case config.StoreDynamoDB:
		store, err := dynamodb.NewStore(ctx, dynamodb.Config{
			Region:    cfg.DynamoDBRegion,
			TableName: cfg.DynamoDBTable,
			Endpoint:  cfg.DynamoDBEndpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("newRecordStore: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("newRecordStore: unknown STORE_BACKEND %q", cfg.Backend)
	}
}

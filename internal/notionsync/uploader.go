// Package notionsync persists normalized transactions to a record store,
// one record per write, with an outcome per record.
package notionsync

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/fields"
	"github.com/dvloznov/ocr-ledger/internal/logger"
)

const (
	// MaxNameLength is the longest title the store accepts, in characters.
	MaxNameLength = 2000

	// NoTransactionsMessage is reported for an empty batch.
	NoTransactionsMessage = "No transactions"
)

// Uploader writes transactions to a RecordStore sequentially, in input order.
type Uploader struct {
	store RecordStore
	now   func() time.Time
}

// NewUploader creates an Uploader. A nil now uses time.Now.
func NewUploader(store RecordStore, now func() time.Time) *Uploader {
	if now == nil {
		now = time.Now
	}
	return &Uploader{store: store, now: now}
}

// Upload writes every transaction and reports one outcome per record.
// Store configuration is checked before anything else and is the only error
// returned; a failed write becomes a failed outcome and the next record is
// still written.
func (u *Uploader) Upload(ctx context.Context, txs []domain.Transaction) (domain.UploadReport, error) {
	log := logger.FromContext(ctx)

	if err := u.store.Validate(); err != nil {
		return domain.UploadReport{}, err
	}

	if len(txs) == 0 {
		return domain.UploadReport{Message: NoTransactionsMessage}, nil
	}

	today := fields.Today(u.now())
	outcomes := make([]domain.UploadOutcome, 0, len(txs))

	for i, tx := range txs {
		entry := ToStoreEntry(tx, today)

		id, err := u.store.CreateRecord(ctx, entry)
		if err != nil {
			msg := writeErrorMessage(err)
			log.Warn().
				Err(err).
				Int("index", i).
				Str("name", entry.Name).
				Msg("Failed to write record")
			outcomes = append(outcomes, domain.UploadOutcome{Success: false, Error: msg})
			continue
		}

		log.Info().
			Int("index", i).
			Str("id", id).
			Str("date", entry.Date.String()).
			Msg("Wrote record")
		outcomes = append(outcomes, domain.UploadOutcome{Success: true, ID: id})
	}

	return domain.UploadReport{Uploaded: outcomes}, nil
}

// ToStoreEntry derives the stored fields of a transaction: display name capped
// at MaxNameLength characters, amount when it parses, and the resolved date.
func ToStoreEntry(tx domain.Transaction, today civil.Date) domain.StoreEntry {
	entry := domain.StoreEntry{
		Name: truncateRunes(tx.DisplayName(), MaxNameLength),
		Date: fields.ExtractDate(tx.DateSource(), today),
	}

	if tx.Amount != nil {
		if amount, err := fields.ParseAmountFloat(tx.Amount); err == nil {
			entry.Amount = &amount
		}
	}

	return entry
}

func writeErrorMessage(err error) string {
	var writeErr *domain.StoreWriteError
	if errors.As(err, &writeErr) && writeErr.Message != "" {
		return writeErr.Message
	}
	return err.Error()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

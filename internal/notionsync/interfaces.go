package notionsync

import (
	"context"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionService defines the subset of the Notion API used for persistence.
// This interface enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in a Notion database with the given properties.
	CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

// RecordStore is a destination that accepts one record per call.
type RecordStore interface {
	// Validate reports missing credentials or destination settings before any write.
	Validate() error

	// CreateRecord writes one entry and returns the store's id for it.
	CreateRecord(ctx context.Context, entry domain.StoreEntry) (string, error)
}

package notionsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// NotionClient is the concrete implementation of NotionService using the official Notion SDK.
type NotionClient struct {
	client *notionapi.Client
}

// NewNotionClient creates a new NotionClient with the provided API token.
func NewNotionClient(token string) *NotionClient {
	return &NotionClient{
		client: notionapi.NewClient(notionapi.Token(token)),
	}
}

// CreatePage creates a new page in a Notion database with the given properties.
func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}

	return page, nil
}

// NotionStore writes records as pages of a Notion database.
type NotionStore struct {
	service    NotionService
	token      string
	databaseID string
}

// NewNotionStore creates a store for the given database. A nil service is
// replaced by a NotionClient built from token.
func NewNotionStore(token, databaseID string, service NotionService) *NotionStore {
	if service == nil && token != "" {
		service = NewNotionClient(token)
	}
	return &NotionStore{service: service, token: token, databaseID: databaseID}
}

// Validate requires both the integration token and the database id.
func (s *NotionStore) Validate() error {
	if s.token == "" {
		return &domain.ConfigurationError{Setting: "NOTION_API_KEY"}
	}
	if s.databaseID == "" {
		return &domain.ConfigurationError{Setting: "DATABASE_ID"}
	}
	return nil
}

// CreateRecord creates one page and returns its id. Notion API errors are
// reported by their message.
func (s *NotionStore) CreateRecord(ctx context.Context, entry domain.StoreEntry) (string, error) {
	page, err := s.service.CreatePage(ctx, s.databaseID, EntryToNotionProperties(entry))
	if err != nil {
		msg := err.Error()
		var apiErr *notionapi.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return "", &domain.StoreWriteError{Message: msg, Err: err}
	}
	return string(page.ID), nil
}

// Package dynamodb stores transaction records in an AWS DynamoDB table.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/google/uuid"
)

// PutItemAPI is the part of the DynamoDB client the store needs.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Config holds the settings for a DynamoDB store.
type Config struct {
	Region    string
	TableName string
	Endpoint  string // e.g. http://localhost:8000 for DynamoDB Local
}

// recordItem is the stored shape of one record.
type recordItem struct {
	ID        string    `dynamodbav:"ID"`
	Name      string    `dynamodbav:"Name"`
	Price     *float64  `dynamodbav:"Price,omitempty"`
	Date      string    `dynamodbav:"Date"`
	CreatedAt time.Time `dynamodbav:"CreatedAt"`
}

// Store writes one item per record, keyed by a generated UUID.
type Store struct {
	api       PutItemAPI
	tableName string
	newID     func() string
	now       func() time.Time
}

// NewStore loads the default AWS configuration and creates a store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("NewStore: unable to load SDK config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewStoreWithAPI(client, cfg.TableName), nil
}

// NewStoreWithAPI creates a store over an existing client.
func NewStoreWithAPI(api PutItemAPI, tableName string) *Store {
	return &Store{
		api:       api,
		tableName: tableName,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Validate requires a table name.
func (s *Store) Validate() error {
	if s.tableName == "" {
		return &domain.ConfigurationError{Setting: "DYNAMODB_TABLE"}
	}
	return nil
}

// CreateRecord puts one item and returns its generated id.
func (s *Store) CreateRecord(ctx context.Context, entry domain.StoreEntry) (string, error) {
	item := recordItem{
		ID:        s.newID(),
		Name:      entry.Name,
		Price:     entry.Amount,
		Date:      entry.Date.String(),
		CreatedAt: s.now().UTC(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", fmt.Errorf("CreateRecord: failed to marshal record: %w", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(ID)"),
	})
	if err != nil {
		return "", &domain.StoreWriteError{
			Message: fmt.Sprintf("PutItem operation failed: %v", err),
			Err:     err,
		}
	}

	return item.ID, nil
}

// Package gcs reads OCR text objects from Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// MaxTextSize caps how much of an object is read as OCR text.
const MaxTextSize = 1 << 20

// TextFetcher provides an interface for reading OCR text by storage URI.
// This interface enables mocking and testing of storage functionality.
type TextFetcher interface {
	FetchText(ctx context.Context, gcsURI string) (string, error)
}

// Reader is the concrete TextFetcher backed by Google Cloud Storage.
// It assumes Application Default Credentials are configured.
type Reader struct {
	client *storage.Client
}

// NewReader creates a Reader with its own storage client.
func NewReader(ctx context.Context) (*Reader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewReader: create storage client: %w", err)
	}
	return &Reader{client: client}, nil
}

// Close closes the storage client.
func (r *Reader) Close() error {
	return r.client.Close()
}

// FetchText downloads the object at gcsURI and returns it as text.
func (r *Reader) FetchText(ctx context.Context, gcsURI string) (string, error) {
	bucketName, objectPath, err := ParseURI(gcsURI)
	if err != nil {
		return "", err
	}

	rc, err := r.client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("FetchText: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, MaxTextSize))
	if err != nil {
		return "", fmt.Errorf("FetchText: reading bytes: %w", err)
	}

	return string(data), nil
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and object path.
func ParseURI(gcsURI string) (bucket, object string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	trimmed := strings.TrimPrefix(gcsURI, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}

	return parts[0], parts[1], nil
}

// ExtractFilename extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/shot.txt" → "shot.txt"
func ExtractFilename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}

	return path.Base(parts[1])
}

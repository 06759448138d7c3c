package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSource(t *testing.T, args ...string) textSource {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	src := addTextFlags(fs)
	require.NoError(t, fs.Parse(args))
	return src
}

func TestTextSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.txt")
	require.NoError(t, os.WriteFile(path, []byte("Uber Eats 742.52 SEK"), 0o600))

	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "inline", args: []string{"-text", "Coffee 4.50"}, want: "Coffee 4.50"},
		{name: "file", args: []string{"-file", path}, want: "Uber Eats 742.52 SEK"},
		{name: "stdin", args: []string{"-file", "-"}, stdin: "Lunch 12", want: "Lunch 12"},
		{name: "none", args: nil, wantErr: true},
		{name: "two sources", args: []string{"-text", "a", "-file", path}, wantErr: true},
		{name: "missing file", args: []string{"-file", filepath.Join(dir, "nope.txt")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := parseSource(t, tt.args...)

			got, err := src.read(context.Background(), nil, strings.NewReader(tt.stdin))

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderResult(t *testing.T) {
	result := &domain.ProcessResult{
		Transactions: []domain.Transaction{
			{Time: "2025-08-22", Purpose: "Uber Eats", Amount: 63.86, Currency: "EUR"},
			{Name: "Taxi", Amount: "120", Currency: "SEK", ConversionError: "rate lookup failed"},
		},
		Notion: domain.UploadReport{Uploaded: []domain.UploadOutcome{
			{Success: true, ID: "page-1"},
			{Success: false, Error: "validation_error"},
		}},
	}

	buf := &bytes.Buffer{}
	renderResult(buf, result)
	out := buf.String()

	assert.Contains(t, out, "Uber Eats")
	assert.Contains(t, out, "63.86")
	assert.Contains(t, out, "120.00")
	assert.Contains(t, out, "rate lookup failed; validation_error")
	assert.Contains(t, out, "Stored 1, failed 1")
}

func TestRenderResult_EmptyAndErrors(t *testing.T) {
	buf := &bytes.Buffer{}
	renderResult(buf, &domain.ProcessResult{
		Transactions: []domain.Transaction{},
		Notion:       domain.UploadReport{Message: "No transactions"},
	})
	assert.Equal(t, "No transactions found.\nNo transactions\n", buf.String())

	buf.Reset()
	renderResult(buf, &domain.ProcessResult{
		Transactions: []domain.Transaction{{Purpose: "Coffee"}},
		Notion:       domain.UploadReport{Error: "missing configuration: NOTION_API_KEY"},
	})
	assert.Contains(t, buf.String(), "Store error: missing configuration: NOTION_API_KEY")
}

package domain

import (
	"cloud.google.com/go/civil"
)

// UploadOutcome is the result of writing one record to the record store.
type UploadOutcome struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UploadReport summarizes a persistence call. Exactly one of the fields is set:
// Uploaded for a processed batch, Message for an empty batch, Error when the
// persistence stage itself could not run.
type UploadReport struct {
	Uploaded []UploadOutcome `json:"uploaded,omitempty"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Counts returns the number of successful and failed writes.
func (r UploadReport) Counts() (succeeded, failed int) {
	for _, o := range r.Uploaded {
		if o.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// StoreEntry is the store-agnostic shape of one record write.
type StoreEntry struct {
	Name   string
	Amount *float64 // nil when the amount could not be parsed
	Date   civil.Date
}

// ProcessResult is what a single OCR request produces.
type ProcessResult struct {
	Transactions []Transaction `json:"transactions"`
	Notion       UploadReport  `json:"notion"`
}

// RunSummary is the audit view of one processed request.
type RunSummary struct {
	Records  int
	Uploaded int
	Failed   int
}

// SummarizeRun counts the records of a result and their store outcomes.
func SummarizeRun(result *ProcessResult) RunSummary {
	uploaded, failed := result.Notion.Counts()
	return RunSummary{
		Records:  len(result.Transactions),
		Uploaded: uploaded,
		Failed:   failed,
	}
}

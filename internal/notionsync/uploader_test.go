package notionsync

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/fields"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Validate() error {
	return m.Called().Error(0)
}

func (m *mockStore) CreateRecord(ctx context.Context, entry domain.StoreEntry) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func fixedClock() time.Time {
	return time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)
}

func byName(name string) any {
	return mock.MatchedBy(func(e domain.StoreEntry) bool { return e.Name == name })
}

func TestUploader_IsolatesFailedWrites(t *testing.T) {
	store := new(mockStore)
	store.On("Validate").Return(nil)
	store.On("CreateRecord", mock.Anything, byName("first")).Return("page-1", nil).Once()
	store.On("CreateRecord", mock.Anything, byName("second")).
		Return("", &domain.StoreWriteError{Message: "body failed validation"}).Once()
	store.On("CreateRecord", mock.Anything, byName("third")).Return("page-3", nil).Once()

	u := NewUploader(store, fixedClock)
	report, err := u.Upload(context.Background(), []domain.Transaction{
		{Purpose: "first", Amount: 1.0},
		{Purpose: "second", Amount: 2.0},
		{Purpose: "third", Amount: 3.0},
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.UploadOutcome{
		{Success: true, ID: "page-1"},
		{Success: false, Error: "body failed validation"},
		{Success: true, ID: "page-3"},
	}, report.Uploaded)
	store.AssertExpectations(t)
}

func TestUploader_PlainErrorMessage(t *testing.T) {
	store := new(mockStore)
	store.On("Validate").Return(nil)
	store.On("CreateRecord", mock.Anything, mock.Anything).Return("", errors.New("HTTP 502"))

	report, err := NewUploader(store, fixedClock).Upload(context.Background(), []domain.Transaction{{Purpose: "x"}})

	require.NoError(t, err)
	require.Len(t, report.Uploaded, 1)
	assert.Equal(t, domain.UploadOutcome{Success: false, Error: "HTTP 502"}, report.Uploaded[0])
}

func TestUploader_PreconditionsBeforeAnyWrite(t *testing.T) {
	store := new(mockStore)
	store.On("Validate").Return(&domain.ConfigurationError{Setting: "NOTION_API_KEY"})

	_, err := NewUploader(store, fixedClock).Upload(context.Background(), []domain.Transaction{{Purpose: "x"}})

	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	store.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestUploader_PreconditionsCheckedForEmptyBatch(t *testing.T) {
	store := new(mockStore)
	store.On("Validate").Return(&domain.ConfigurationError{Setting: "DATABASE_ID"})

	_, err := NewUploader(store, fixedClock).Upload(context.Background(), nil)
	assert.Error(t, err)
}

func TestUploader_EmptyBatch(t *testing.T) {
	store := new(mockStore)
	store.On("Validate").Return(nil)

	report, err := NewUploader(store, fixedClock).Upload(context.Background(), []domain.Transaction{})

	require.NoError(t, err)
	assert.Equal(t, domain.UploadReport{Message: "No transactions"}, report)
	store.AssertNotCalled(t, "CreateRecord", mock.Anything, mock.Anything)
}

func TestToStoreEntry(t *testing.T) {
	today := fixedClockDate()

	tests := []struct {
		name       string
		tx         domain.Transaction
		wantName   string
		wantAmount *float64
		wantDate   string
	}{
		{
			name:       "converted record",
			tx:         domain.Transaction{Time: "2025-08-22", Amount: 63.86, Currency: "EUR", Purpose: "Uber Eats"},
			wantName:   "Uber Eats",
			wantAmount: floatPtr(63.86),
			wantDate:   "2025-08-22",
		},
		{
			name:       "string amount and free-form time",
			tx:         domain.Transaction{Time: "22 August 2025 at 13:11", Amount: "1,234.50 SEK", Name: "Rent"},
			wantName:   "Rent",
			wantAmount: floatPtr(1234.50),
			wantDate:   "2025-08-22",
		},
		{
			name:     "unparseable amount is omitted",
			tx:       domain.Transaction{Amount: "[unclear]", Date: "2023-06-01"},
			wantName: "Unknown",
			wantDate: "2023-06-01",
		},
		{
			name:     "no date falls back to today",
			tx:       domain.Transaction{Purpose: "Coffee"},
			wantName: "Coffee",
			wantDate: "2026-10-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToStoreEntry(tt.tx, today)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantDate, got.Date.String())
		})
	}
}

func TestToStoreEntry_TruncatesName(t *testing.T) {
	long := strings.Repeat("ö", MaxNameLength+10)

	got := ToStoreEntry(domain.Transaction{Purpose: long}, fixedClockDate())

	assert.Equal(t, MaxNameLength, len([]rune(got.Name)))
}

func fixedClockDate() civil.Date {
	return fields.Today(fixedClock())
}

func floatPtr(f float64) *float64 {
	return &f
}

package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	text   string
	result *domain.ProcessResult
	err    error
}

func (s *stubProcessor) Process(ctx context.Context, text string) (*domain.ProcessResult, error) {
	s.text = text
	return s.result, s.err
}

type stubDemo struct{}

func (stubDemo) Demo(ctx context.Context) (any, error) {
	return []any{map[string]any{"purpose": "Uber Eats", "amount": "742.52"}}, nil
}

func request(method, body string, b64 bool) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{Body: body, IsBase64Encoded: b64}
	req.RequestContext.HTTP.Method = method
	req.RequestContext.RequestID = "req-1"
	return req
}

func newHandler(p *stubProcessor) *Handler {
	return &Handler{processor: p, demo: stubDemo{}, log: logger.NewWithWriter(&bytes.Buffer{})}
}

func TestHandle_Process(t *testing.T) {
	p := &stubProcessor{result: &domain.ProcessResult{
		Transactions: []domain.Transaction{},
		Notion:       domain.UploadReport{Message: "No transactions"},
	}}

	resp, err := newHandler(p).Handle(context.Background(), request(http.MethodPost, `{"text":"nothing here"}`, false))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.JSONEq(t, `{"transactions":[],"notion":{"message":"No transactions"}}`, resp.Body)
	assert.Equal(t, "nothing here", p.text)
}

func TestHandle_Base64Body(t *testing.T) {
	p := &stubProcessor{result: &domain.ProcessResult{Transactions: []domain.Transaction{}}}
	body := base64.StdEncoding.EncodeToString([]byte(`{"text":"Coffee 4.50 EUR"}`))

	resp, err := newHandler(p).Handle(context.Background(), request(http.MethodPost, body, true))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Coffee 4.50 EUR", p.text)
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name       string
		req        events.APIGatewayV2HTTPRequest
		err        error
		wantStatus int
	}{
		{name: "bad json", req: request(http.MethodPost, `nope`, false), wantStatus: http.StatusBadRequest},
		{name: "empty text", req: request(http.MethodPost, `{"text":""}`, false), wantStatus: http.StatusBadRequest},
		{name: "bad base64", req: request(http.MethodPost, `%%%`, true), wantStatus: http.StatusBadRequest},
		{
			name:       "gateway error",
			req:        request(http.MethodPost, `{"text":"x"}`, false),
			err:        &domain.GatewayError{StatusCode: 500, Body: "upstream"},
			wantStatus: http.StatusBadGateway,
		},
		{name: "method", req: request(http.MethodDelete, ``, false), wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newHandler(&stubProcessor{err: tt.err}).Handle(context.Background(), tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Body, `"error"`)
		})
	}
}

func TestHandle_Demo(t *testing.T) {
	resp, err := newHandler(&stubProcessor{}).Handle(context.Background(), request(http.MethodGet, "", false))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"purpose":"Uber Eats","amount":"742.52"}]`, resp.Body)
}

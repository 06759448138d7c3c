// Package currency converts transaction amounts into a single reporting currency.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the latest-rates endpoint of currencyapi.com.
const DefaultBaseURL = "https://api.currencyapi.com/v3/latest"

// RateProvider returns the multiplier that converts one unit of from into to.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// APIClient looks rates up from a currencyapi.com-compatible service.
// Rates are fetched on every call and never cached.
type APIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewAPIClient creates an APIClient. An empty baseURL uses DefaultBaseURL; a
// nil httpClient uses http.DefaultClient.
func NewAPIClient(baseURL, apiKey string, httpClient *http.Client) *APIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{baseURL: baseURL, apiKey: apiKey, httpClient: httpClient}
}

// Rate fetches the from->to rate. Codes are case-insensitive. Identical codes
// return 1 without a lookup, even when no API key is configured.
func (c *APIClient) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	base := strings.ToUpper(from)
	target := strings.ToUpper(to)

	if base == "" {
		return decimal.Zero, &domain.MissingParameterError{Parameter: "from"}
	}
	if target == "" {
		return decimal.Zero, &domain.MissingParameterError{Parameter: "to"}
	}
	if base == target {
		return decimal.NewFromInt(1), nil
	}
	if c.apiKey == "" {
		return decimal.Zero, &domain.ConfigurationError{Setting: "CURRENCY_API_KEY"}
	}

	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("currencies", target)
	q.Set("base_currency", base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Rate: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, &domain.RateLookupError{From: base, To: target, Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, &domain.RateLookupError{From: base, To: target, Reason: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, &domain.RateLookupError{
			From:       base,
			To:         target,
			StatusCode: resp.StatusCode,
			Reason:     string(body),
		}
	}

	value, ok := rateValue(body, target)
	if !ok {
		return decimal.Zero, &domain.RateLookupError{
			From:   base,
			To:     target,
			Reason: "Unexpected currency API response structure",
		}
	}

	return decimal.NewFromFloat(value), nil
}

// rateValue reads data.{target}.value and requires it to be a JSON number.
func rateValue(body []byte, target string) (float64, bool) {
	var payload struct {
		Data map[string]map[string]any `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, false
	}

	entry, ok := payload.Data[target]
	if !ok {
		return 0, false
	}
	value, ok := entry["value"].(float64)
	return value, ok
}

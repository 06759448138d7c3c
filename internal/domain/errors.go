package domain

import (
	"fmt"
)

// GatewayError means the text-generation service could not be reached or
// answered with a non-success status. It is fatal to the request.
type GatewayError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 && e.Err != nil {
		return fmt.Sprintf("Chat API error: %v", e.Err)
	}
	return fmt.Sprintf("Chat API error %d: %s", e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ConfigurationError reports a required setting that is not configured.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// MissingParameterError reports an empty currency code passed to a rate lookup.
type MissingParameterError struct {
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("both from and to currencies are required (missing %s)", e.Parameter)
}

// RateLookupError reports a failed or malformed response from the rate service.
type RateLookupError struct {
	From       string
	To         string
	StatusCode int
	Reason     string
}

func (e *RateLookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Currency API error %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("currency rate %s->%s: %s", e.From, e.To, e.Reason)
}

// InvalidAmountError reports an amount that does not parse as a number.
type InvalidAmountError struct {
	Raw any
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("Invalid amount: %v", e.Raw)
}

// StoreWriteError reports a failed write of a single record to the record store.
type StoreWriteError struct {
	Message string
	Err     error
}

func (e *StoreWriteError) Error() string {
	return e.Message
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

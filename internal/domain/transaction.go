package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Transaction is one record extracted from OCR text.
// Fields the model emitted that are not modelled here are kept in Extra and
// written back out unchanged, so a record round-trips as the model produced it.
type Transaction struct {
	Time     string // from "time"
	Date     string // from "date", used when "time" is absent
	Amount   any    // from "amount": number or string until normalized
	Currency string // from "currency"
	Purpose  string // from "purpose"
	Name     string // from "name", display-name fallback

	// ConversionError is set only when currency conversion failed for this record.
	ConversionError string

	Extra map[string]any
}

var knownFields = map[string]bool{
	"time":             true,
	"date":             true,
	"amount":           true,
	"currency":         true,
	"purpose":          true,
	"name":             true,
	"conversion_error": true,
}

// TransactionFromValue lifts a decoded JSON value into a Transaction.
// Non-object values produce an empty record.
func TransactionFromValue(v any) Transaction {
	obj, ok := v.(map[string]any)
	if !ok {
		return Transaction{}
	}

	tx := Transaction{
		Time:            stringField(obj, "time"),
		Date:            stringField(obj, "date"),
		Currency:        stringField(obj, "currency"),
		Purpose:         stringField(obj, "purpose"),
		Name:            stringField(obj, "name"),
		ConversionError: stringField(obj, "conversion_error"),
	}
	if amount, ok := obj["amount"]; ok {
		tx.Amount = amount
	}

	for k, val := range obj {
		if knownFields[k] {
			continue
		}
		if tx.Extra == nil {
			tx.Extra = make(map[string]any)
		}
		tx.Extra[k] = val
	}

	return tx
}

// stringField reads a text field, stringifying scalars the model sometimes
// emits in place of strings (e.g. a bare year).
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// HasAmount reports whether the amount is present and non-empty.
// A zero number or an empty string counts as absent.
func (t Transaction) HasAmount() bool {
	switch v := t.Amount.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}

// DateSource returns the raw value used to resolve the calendar date.
func (t Transaction) DateSource() string {
	if t.Time != "" {
		return t.Time
	}
	return t.Date
}

// DisplayName returns purpose, then name, then "Unknown".
func (t Transaction) DisplayName() string {
	if t.Purpose != "" {
		return t.Purpose
	}
	if t.Name != "" {
		return t.Name
	}
	return "Unknown"
}

// MarshalJSON writes known fields that are set, merged over Extra.
func (t Transaction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+7)
	for k, v := range t.Extra {
		out[k] = v
	}
	setIfNotEmpty(out, "time", t.Time)
	setIfNotEmpty(out, "date", t.Date)
	if t.Amount != nil {
		out["amount"] = t.Amount
	}
	setIfNotEmpty(out, "currency", t.Currency)
	setIfNotEmpty(out, "purpose", t.Purpose)
	setIfNotEmpty(out, "name", t.Name)
	setIfNotEmpty(out, "conversion_error", t.ConversionError)
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = TransactionFromValue(v)
	return nil
}

func setIfNotEmpty(m map[string]any, key, val string) {
	if val != "" {
		m[key] = val
	}
}

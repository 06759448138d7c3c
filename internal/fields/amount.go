// Package fields holds the parsing rules shared by currency conversion and
// persistence: amounts and calendar dates as they appear in OCR output.
package fields

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^0-9+\-.,]`)

// ParseAmount turns a model-supplied amount into a decimal.
// Numbers are used as-is. Strings keep only digits, signs, dots and commas;
// commas are then dropped as thousands separators.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case decimal.Decimal:
		return val, nil
	case json.Number:
		return parseAmountString(val.String(), v)
	case string:
		return parseAmountString(val, v)
	default:
		return decimal.Zero, &domain.InvalidAmountError{Raw: v}
	}
}

func parseAmountString(s string, raw any) (decimal.Decimal, error) {
	cleaned := nonAmountChars.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, &domain.InvalidAmountError{Raw: raw}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &domain.InvalidAmountError{Raw: raw}
	}
	return d, nil
}

// ParseAmountFloat is ParseAmount for callers that need a float64, such as
// number properties in the record store.
func ParseAmountFloat(v any) (float64, error) {
	d, err := ParseAmount(v)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

package pipeline

import (
	"github.com/dvloznov/ocr-ledger/internal/domain"
)

// NormalizeTransactions coerces a decoded model reply into an ordered list of
// records. In order of precedence: a "transactions" array field, the value
// itself when it is an array, any other object as a single record. Anything
// else yields an empty list. It never fails.
func NormalizeTransactions(candidate any) []domain.Transaction {
	items := transactionItems(candidate)

	result := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		result = append(result, domain.TransactionFromValue(item))
	}
	return result
}

func transactionItems(candidate any) []any {
	switch v := candidate.(type) {
	case map[string]any:
		if txs, ok := v["transactions"].([]any); ok {
			return txs
		}
		return []any{v}
	case []any:
		return v
	default:
		return nil
	}
}

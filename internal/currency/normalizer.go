package currency

import (
	"context"
	"strings"

	"github.com/dvloznov/ocr-ledger/internal/domain"
	"github.com/dvloznov/ocr-ledger/internal/fields"
	"github.com/dvloznov/ocr-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// DefaultTarget is the reporting currency.
const DefaultTarget = "EUR"

// Result is the outcome of normalizing one record.
type Result struct {
	Transaction domain.Transaction
	Converted   bool
	Err         error
}

// Normalizer converts records into the target currency one at a time.
type Normalizer struct {
	rates  RateProvider
	target string
}

// NewNormalizer creates a Normalizer. An empty target uses DefaultTarget.
func NewNormalizer(rates RateProvider, target string) *Normalizer {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		target = DefaultTarget
	}
	return &Normalizer{rates: rates, target: target}
}

// Target returns the reporting currency code.
func (n *Normalizer) Target() string {
	return n.target
}

// Normalize returns one Result per input record, in input order. Records with
// no currency or no amount, and records already in the target currency, pass
// through untouched. A failed lookup or conversion leaves the amount and
// currency as they were and sets ConversionError; the remaining records are
// still processed.
func (n *Normalizer) Normalize(ctx context.Context, txs []domain.Transaction) []Result {
	log := logger.FromContext(ctx)

	results := make([]Result, 0, len(txs))
	for i, tx := range txs {
		if tx.Currency == "" || !tx.HasAmount() {
			results = append(results, Result{Transaction: tx})
			continue
		}

		from := strings.ToUpper(tx.Currency)
		if from == n.target {
			results = append(results, Result{Transaction: tx})
			continue
		}

		converted, err := n.convertOne(ctx, tx, from)
		if err != nil {
			log.Warn().
				Err(err).
				Int("index", i).
				Str("currency", from).
				Msg("Currency conversion failed")
			tx.ConversionError = err.Error()
			results = append(results, Result{Transaction: tx, Err: err})
			continue
		}

		results = append(results, Result{Transaction: converted, Converted: true})
	}

	return results
}

func (n *Normalizer) convertOne(ctx context.Context, tx domain.Transaction, from string) (domain.Transaction, error) {
	rate, err := n.rates.Rate(ctx, from, n.target)
	if err != nil {
		return tx, err
	}

	amount, err := Convert(tx.Amount, rate)
	if err != nil {
		return tx, err
	}

	tx.Amount = amount.InexactFloat64()
	tx.Currency = n.target
	return tx, nil
}

// Convert multiplies amount by rate and rounds half away from zero to two
// decimal places. A rate of exactly 1 returns the parsed amount unrounded.
func Convert(amount any, rate decimal.Decimal) (decimal.Decimal, error) {
	parsed, err := fields.ParseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	if rate.Equal(decimal.NewFromInt(1)) {
		return parsed, nil
	}
	return parsed.Mul(rate).Round(2), nil
}

// Apply writes normalized records back over txs and returns how many were
// converted and how many failed.
func Apply(txs []domain.Transaction, results []Result) (converted, failed int) {
	for i, r := range results {
		if i >= len(txs) {
			break
		}
		txs[i] = r.Transaction
		if r.Converted {
			converted++
		}
		if r.Err != nil {
			failed++
		}
	}
	return converted, failed
}

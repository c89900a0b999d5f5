package features

import (
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

// Engine computes feature snapshots from normalized ledger records. It is
// pure: same inputs, same snapshot, no clock and no I/O.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the FeatureSnapshot for one (user, window, as_of) key.
// The caller supplies records covering [asOf-2w, asOf]; rows in the prior
// window [asOf-2w, asOf-w) only feed trend deltas, rows in the target
// window [asOf-w, asOf] feed every aggregate. skipped is the count of rows
// dropped during normalization and is carried through untouched.
func (e *Engine) Compute(userID string, asOf time.Time, windowDays int, records []models.TransactionRecord, skipped int) (models.FeatureSnapshot, error) {
	windowStart := asOf.AddDate(0, 0, -windowDays)
	priorStart := asOf.AddDate(0, 0, -2*windowDays)

	snap := models.FeatureSnapshot{
		UserID:         userID,
		WindowDays:     windowDays,
		AsOf:           asOf,
		SpendTotal:     decimal.Zero,
		IncomeTotal:    decimal.Zero,
		Categories:     make(map[models.Category]models.CategoryStat),
		SkippedRecords: skipped,
	}
	snap.InstallmentRatio = decimal.Zero

	installmentSpend := decimal.Zero
	priorTotals := make(map[models.Category]decimal.Decimal)

	for _, rec := range records {
		if rec.UserID != userID {
			return models.FeatureSnapshot{}, &models.InvariantViolationError{
				Field:  "user_id",
				Detail: "record " + rec.ID + " belongs to " + rec.UserID,
			}
		}
		if !rec.SignValid() {
			return models.FeatureSnapshot{}, &models.InvariantViolationError{
				Field:  "amount",
				Detail: "record " + rec.ID + " sign does not match direction",
			}
		}
		if rec.PostedAt.After(asOf) || rec.PostedAt.Before(priorStart) {
			continue
		}

		if rec.PostedAt.Before(windowStart) {
			// prior window: trend baseline only
			if rec.Direction == models.Debit {
				priorTotals[rec.Category] = priorTotals[rec.Category].Add(rec.Magnitude())
			}
			continue
		}

		snap.TxCount++
		switch rec.Direction {
		case models.Credit:
			snap.IncomeTotal = snap.IncomeTotal.Add(rec.Amount)
		case models.Debit:
			mag := rec.Magnitude()
			snap.SpendTotal = snap.SpendTotal.Add(mag)
			if rec.Installment != nil && rec.Installment.IsInstallment {
				installmentSpend = installmentSpend.Add(mag)
			}

			st := snap.Categories[rec.Category]
			st.Total = st.Total.Add(mag)
			st.Count++
			if rec.PostedAt.After(st.LastSeen) {
				st.LastSeen = rec.PostedAt
			}
			snap.Categories[rec.Category] = st
		}
	}

	for c, st := range snap.Categories {
		st.RecencyDays = int(asOf.Sub(st.LastSeen).Hours() / 24)
		st.TrendDelta = st.Total.Sub(priorTotals[c])
		snap.Categories[c] = st
	}
	// categories active only in the prior window still report a trend
	for c, prior := range priorTotals {
		if _, ok := snap.Categories[c]; ok {
			continue
		}
		snap.Categories[c] = models.CategoryStat{
			TrendDelta:  prior.Neg(),
			RecencyDays: windowDays,
		}
	}

	if snap.SpendTotal.IsPositive() {
		snap.InstallmentRatio = installmentSpend.Div(snap.SpendTotal)
	}

	if snap.SpendTotal.IsNegative() || snap.IncomeTotal.IsNegative() {
		return models.FeatureSnapshot{}, &models.InvariantViolationError{
			Field:  "totals",
			Detail: "negative aggregate total",
		}
	}
	return snap, nil
}

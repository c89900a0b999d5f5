package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryStat aggregates activity for one category within a window.
type CategoryStat struct {
	Total       decimal.Decimal `json:"total"`        // debit magnitude
	Count       int             `json:"count"`        // transactions in window
	LastSeen    time.Time       `json:"last_seen"`    // most recent posted_at
	RecencyDays int             `json:"recency_days"` // days between LastSeen and AsOf
	TrendDelta  decimal.Decimal `json:"trend_delta"`  // total minus prior-window total
}

// FeatureSnapshot is the derived, versioned feature profile for one
// (user, window, as_of) key. All monetary fields are exact decimals;
// rounding happens only at the presentation layer.
type FeatureSnapshot struct {
	UserID           string                    `json:"user_id"`
	WindowDays       int                       `json:"window_days"`
	AsOf             time.Time                 `json:"as_of"`
	SpendTotal       decimal.Decimal           `json:"spend_total"`       // sum of debit magnitudes
	IncomeTotal      decimal.Decimal           `json:"income_total"`      // sum of credits
	TxCount          int                       `json:"tx_count"`
	InstallmentRatio decimal.Decimal           `json:"installment_ratio"` // installment debit / spend, 0 when spend is 0
	Categories       map[Category]CategoryStat `json:"categories"`
	SkippedRecords   int                       `json:"skipped_records"` // rows dropped during normalization
}

// Empty reports whether the window saw no activity at all: no
// transactions and zero totals in both directions.
func (s FeatureSnapshot) Empty() bool {
	return s.TxCount == 0 && s.SpendTotal.IsZero() && s.IncomeTotal.IsZero()
}

// CategoryShare returns the category's share of total spend in [0,1].
func (s FeatureSnapshot) CategoryShare(c Category) decimal.Decimal {
	if s.SpendTotal.IsZero() {
		return decimal.Zero
	}
	st, ok := s.Categories[c]
	if !ok {
		return decimal.Zero
	}
	return st.Total.Div(s.SpendTotal)
}

// TopCategories returns up to n categories ordered by spend descending,
// ties broken by category name ascending for deterministic output.
func (s FeatureSnapshot) TopCategories(n int) []Category {
	out := make([]Category, 0, len(s.Categories))
	for c, st := range s.Categories {
		if st.Total.IsPositive() {
			out = append(out, c)
		}
	}
	// insertion sort; the category set is small and bounded
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := s.Categories[out[j-1]], s.Categories[out[j]]
			if b.Total.GreaterThan(a.Total) || (b.Total.Equal(a.Total) && out[j] < out[j-1]) {
				out[j-1], out[j] = out[j], out[j-1]
			} else {
				break
			}
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// TagKind enumerates the known behavior tags.
type TagKind string

const (
	TagHighInstallmentUsage TagKind = "high_installment_usage"
	TagTravelHeavy          TagKind = "travel_heavy"
	TagStableIncome         TagKind = "stable_income"
	TagSpendConcentrated    TagKind = "spend_concentrated"
	TagRisingSpend          TagKind = "rising_spend"
	TagDormant              TagKind = "dormant"
)

// BehaviorTag labels a detected pattern with its confidence and the
// snapshot evidence that triggered it.
type BehaviorTag struct {
	Kind       TagKind  `json:"kind"`
	Confidence float64  `json:"confidence"` // [0,1]
	Evidence   []string `json:"evidence"`
}

// HasTag reports whether kind is present in tags.
func HasTag(tags []BehaviorTag, kind TagKind) bool {
	for _, t := range tags {
		if t.Kind == kind {
			return true
		}
	}
	return false
}

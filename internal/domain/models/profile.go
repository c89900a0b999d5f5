package models

import "time"

// UserProfile is the consolidated output of one pipeline run for a
// (user, window) key. Insights and Recommendations are always derived from
// the single Snapshot carried here; per-section failures are reported in
// Errors so partial results remain usable.
type UserProfile struct {
	UserID          string                 `json:"user_id"`
	WindowDays      int                    `json:"window_days"`
	ComputedAt      time.Time              `json:"computed_at"`
	Snapshot        FeatureSnapshot        `json:"snapshot"`
	Tags            []BehaviorTag          `json:"tags"`
	Transactions    []TransactionRecord    `json:"transactions"`
	Insights        []InsightRecord        `json:"insights"`
	Recommendations []RecommendationRecord `json:"recommendations"`
	Errors          map[string]string      `json:"errors,omitempty"`
}

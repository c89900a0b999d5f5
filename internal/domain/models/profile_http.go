package models

// Requests for the dashboard HTTP endpoints. Defined in domain for
// consistency and reuse.

type SummaryRequest struct {
	UserID     string `param:"id" json:"user_id" validate:"required"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
	AsOf       string `query:"as_of" json:"as_of"`
}

type TransactionsRequest struct {
	UserID     string `param:"id" json:"user_id" validate:"required"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
	AsOf       string `query:"as_of" json:"as_of"`
	Limit      int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=2000"`
}

type InsightsRequest struct {
	UserID     string `param:"id" json:"user_id" validate:"required"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
	AsOf       string `query:"as_of" json:"as_of"`
}

type RecommendationsRequest struct {
	UserID     string `param:"id" json:"user_id" validate:"required"`
	WindowDays int    `query:"window_days" json:"window_days" default:"90" validate:"gte=7,lte=365"`
	AsOf       string `query:"as_of" json:"as_of"`
}

type FeedbackRequest struct {
	UserID   string `param:"id" json:"user_id" validate:"required"`
	ItemID   string `json:"item_id" validate:"required"`
	Reaction string `json:"reaction" validate:"required,oneof=like dislike"`
	Reason   string `json:"reason" validate:"max=500"`
}

// CategoryTotal is the presentation form of one top-category entry.
type CategoryTotal struct {
	Category Category `json:"category"`
	Total    float64  `json:"total"`
}

// SummaryResponse is the dashboard summary payload. Monetary values are
// rounded here, at the presentation boundary only.
type SummaryResponse struct {
	UserID           string          `json:"user_id"`
	WindowDays       int             `json:"window_days"`
	AsOf             string          `json:"as_of"`
	SpendTotal       float64         `json:"spend_total"`
	IncomeTotal      float64         `json:"income_total"`
	TxCount          int             `json:"tx_count"`
	InstallmentRatio float64         `json:"installment_ratio"`
	TopCategories    []CategoryTotal `json:"top_categories"`
	SkippedRecords   int             `json:"skipped_records,omitempty"`
}

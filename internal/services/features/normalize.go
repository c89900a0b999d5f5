package features

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
)

// RawTransaction is the wire shape of an un-normalized ledger row or feed
// event. Everything is optional until normalization proves otherwise.
type RawTransaction struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	PostedAt      string  `json:"posted_at"` // YYYY-MM-DD or RFC3339
	Direction     string  `json:"direction"`
	Amount        string  `json:"amount"` // decimal string, signed
	Currency      string  `json:"currency"`
	MCC           int     `json:"mcc"`
	MerchantName  string  `json:"merchant_name"`
	Channel       string  `json:"channel"`
	IsInstallment bool    `json:"is_installment"`
	Months        int     `json:"months"`
	MonthlyAmount float64 `json:"monthly_amount"`
}

// mccCategories maps merchant category codes to canonical categories.
// Anchors follow the standard MCC registry.
var mccCategories = map[int]models.Category{
	4511: models.CategoryTravel,     // airlines
	5311: models.CategoryShopping,   // department stores
	5411: models.CategoryGroceries,  // grocery stores
	4900: models.CategoryUtilities,  // utilities
	6513: models.CategoryRent,       // real estate agents/managers
	6300: models.CategoryInsurance,  // insurance sales
	6012: models.CategoryCredit,     // financial institutions
	4829: models.CategoryTransfers,  // money transfer
	6211: models.CategoryInvestment, // security brokers
	7399: models.CategoryOther,      // misc business services
}

// CategoryForMCC resolves an MCC to its canonical category, falling back to
// Other for codes outside the anchor set.
func CategoryForMCC(mcc int) models.Category {
	if c, ok := mccCategories[mcc]; ok {
		return c
	}
	return models.CategoryOther
}

// Normalize converts a raw row into a canonical TransactionRecord. A row
// that cannot be normalized returns a SchemaViolationError and must be
// skipped and counted by the caller; it is never coerced into zero values
// that would corrupt aggregates.
func Normalize(raw RawTransaction) (models.TransactionRecord, error) {
	if raw.ID == "" {
		return models.TransactionRecord{}, &models.SchemaViolationError{RecordID: "?", Reason: "missing id"}
	}
	if raw.UserID == "" {
		return models.TransactionRecord{}, &models.SchemaViolationError{RecordID: raw.ID, Reason: "missing user_id"}
	}

	posted, err := parsePostedAt(raw.PostedAt)
	if err != nil {
		return models.TransactionRecord{}, &models.SchemaViolationError{RecordID: raw.ID, Reason: "bad posted_at: " + raw.PostedAt}
	}

	dir := models.Direction(strings.ToLower(raw.Direction))
	if dir != models.Debit && dir != models.Credit {
		return models.TransactionRecord{}, &models.SchemaViolationError{RecordID: raw.ID, Reason: "bad direction: " + raw.Direction}
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(raw.Amount))
	if err != nil {
		return models.TransactionRecord{}, &models.SchemaViolationError{RecordID: raw.ID, Reason: "bad amount: " + raw.Amount}
	}

	currency := raw.Currency
	if currency == "" {
		currency = "EUR"
	}

	rec := models.TransactionRecord{
		ID:           raw.ID,
		UserID:       raw.UserID,
		PostedAt:     posted,
		Direction:    dir,
		Amount:       amount,
		Currency:     currency,
		Category:     CategoryForMCC(raw.MCC),
		MCC:          raw.MCC,
		MerchantName: raw.MerchantName,
		Channel:      raw.Channel,
	}
	if raw.IsInstallment {
		rec.Installment = &models.Installment{
			IsInstallment: true,
			Months:        raw.Months,
			MonthlyAmount: decimal.NewFromFloat(raw.MonthlyAmount),
		}
	}

	if !rec.SignValid() {
		return models.TransactionRecord{}, &models.SchemaViolationError{
			RecordID: raw.ID,
			Reason:   "amount sign does not match direction " + string(dir),
		}
	}
	return rec, nil
}

func parsePostedAt(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of money movement on a transaction.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Category is the canonical spending category assigned during normalization.
type Category string

const (
	CategoryTravel     Category = "Travel"
	CategoryShopping   Category = "Shopping"
	CategoryGroceries  Category = "Groceries"
	CategoryUtilities  Category = "Utilities"
	CategoryRent       Category = "Rent"
	CategoryInsurance  Category = "Insurance"
	CategoryCredit     Category = "Credit"
	CategoryTransfers  Category = "Transfers"
	CategoryInvestment Category = "Investment"
	CategoryOther      Category = "Other"
)

// Categories lists all canonical categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryTravel, CategoryShopping, CategoryGroceries, CategoryUtilities,
		CategoryRent, CategoryInsurance, CategoryCredit, CategoryTransfers,
		CategoryInvestment, CategoryOther,
	}
}

// Installment describes the installment terms attached to a debit.
type Installment struct {
	IsInstallment bool            `json:"is_installment"`
	Months        int             `json:"months,omitempty"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount,omitempty"`
}

// TransactionRecord is an immutable, normalized ledger fact.
// Amount is signed: credit >= 0, debit <= 0.
type TransactionRecord struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	PostedAt     time.Time       `json:"posted_at"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Category     Category        `json:"category"`
	MCC          int             `json:"mcc"`
	MerchantName string          `json:"merchant_name,omitempty"`
	Channel      string          `json:"channel,omitempty"`
	Installment  *Installment    `json:"installment,omitempty"`
}

// Magnitude returns the absolute monetary value of the record.
func (t TransactionRecord) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// SignValid reports whether the amount sign matches the direction.
func (t TransactionRecord) SignValid() bool {
	switch t.Direction {
	case Credit:
		return !t.Amount.IsNegative()
	case Debit:
		return !t.Amount.IsPositive()
	default:
		return false
	}
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgch "FinSight/pkg/clickhouse"
	applogger "FinSight/pkg/logger"
)

// CHLedger implements Ledger backed by ClickHouse. Rows are returned in
// posted_at ascending order with a stable id tie-break; rows that fail
// validation are skipped and counted, never coerced.
type CHLedger struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHLedger(ch *pkgch.Client, table string) *CHLedger {
	if table == "" {
		table = "finsight.transactions"
	}
	return &CHLedger{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHLedger) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHLedger) Load(ctx context.Context, userID string, from, to time.Time) ([]models.TransactionRecord, int, error) {
	start := time.Now()
	const qtpl = `
        SELECT id, user_id, posted_at, direction, toString(amount), currency,
               category, mcc, merchant_name, channel,
               is_installment, installment_months, toString(installment_monthly)
        FROM %s
        WHERE user_id = ? AND posted_at >= ? AND posted_at <= ?
        ORDER BY posted_at ASC, id ASC
    `
	q := fmt.Sprintf(qtpl, s.table)
	rows, err := s.db.QueryContext(ctx, q, userID, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse ledger query error",
				applogger.String("table", s.table),
				applogger.String("user_id", userID),
				applogger.Error(err),
			)
		}
		return nil, 0, &models.DataUnavailableError{Source: "clickhouse", Err: err}
	}
	defer rows.Close()

	out := make([]models.TransactionRecord, 0, 1024)
	skipped := 0
	for rows.Next() {
		var (
			rec           models.TransactionRecord
			direction     string
			amount        string
			isInstallment bool
			months        int
			monthlyAmount string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.PostedAt, &direction, &amount, &rec.Currency,
			&rec.Category, &rec.MCC, &rec.MerchantName, &rec.Channel,
			&isInstallment, &months, &monthlyAmount); err != nil {
			skipped++
			continue
		}
		rec.Direction = models.Direction(direction)
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil || !rec.SignValid() || rec.ID == "" {
			skipped++
			continue
		}
		if isInstallment {
			monthly, merr := decimal.NewFromString(monthlyAmount)
			if merr != nil {
				monthly = decimal.Zero
			}
			rec.Installment = &models.Installment{
				IsInstallment: true,
				Months:        months,
				MonthlyAmount: monthly,
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse ledger rows error",
				applogger.String("table", s.table),
				applogger.String("user_id", userID),
				applogger.Error(err),
			)
		}
		return nil, 0, &models.DataUnavailableError{Source: "clickhouse", Err: err}
	}
	if s.l != nil {
		s.l.Info("clickhouse ledger load ok",
			applogger.String("table", s.table),
			applogger.String("user_id", userID),
			applogger.Int("rows", len(out)),
			applogger.Int("skipped", skipped),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, skipped, nil
}

func (s *CHLedger) LastPostedAt(ctx context.Context, userID string) (time.Time, bool, error) {
	q := fmt.Sprintf("SELECT max(posted_at) FROM %s WHERE user_id = ?", s.table)
	var last sql.NullTime
	if err := s.db.QueryRowContext(ctx, q, userID).Scan(&last); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, &models.DataUnavailableError{Source: "clickhouse", Err: err}
	}
	if !last.Valid || last.Time.IsZero() {
		return time.Time{}, false, nil
	}
	return last.Time, true, nil
}

var _ domrepo.Ledger = (*CHLedger)(nil)

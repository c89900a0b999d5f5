package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	"FinSight/internal/domain/repository"
	pkgkafka "FinSight/pkg/kafka"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	if table == "" {
		table = "finsight.transactions"
	}
	return &ClickHouseStorage{db: db, table: table}
}

func txArgs(t *models.TransactionRecord) []interface{} {
	months := 0
	monthly := "0"
	isInstallment := false
	if t.Installment != nil && t.Installment.IsInstallment {
		isInstallment = true
		months = t.Installment.Months
		monthly = t.Installment.MonthlyAmount.String()
	}
	return []interface{}{
		t.ID,
		t.UserID,
		t.PostedAt,
		string(t.Direction),
		t.Amount.String(),
		t.Currency,
		string(t.Category),
		t.MCC,
		t.MerchantName,
		t.Channel,
		isInstallment,
		months,
		monthly,
	}
}

const txColumns = "id, user_id, posted_at, direction, amount, currency, category, mcc, merchant_name, channel, is_installment, installment_months, installment_monthly"

func (s *ClickHouseStorage) Store(ctx context.Context, t *models.TransactionRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, txColumns)
	_, err := s.db.ExecContext(ctx, q, txArgs(t)...)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, ts []*models.TransactionRecord) error {
	if len(ts) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(ts); start += chunkSize {
		end := start + chunkSize
		if end > len(ts) {
			end = len(ts)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, t := range ts[start:end] {
			if t == nil || t.ID == "" || t.UserID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, txArgs(t)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, txColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func txPayload(t *models.TransactionRecord) map[string]interface{} {
	payload := map[string]interface{}{
		"id":            t.ID,
		"user_id":       t.UserID,
		"posted_at":     t.PostedAt.Format(time.RFC3339),
		"direction":     string(t.Direction),
		"amount":        t.Amount.String(),
		"currency":      t.Currency,
		"mcc":           t.MCC,
		"merchant_name": t.MerchantName,
		"channel":       t.Channel,
	}
	if t.Installment != nil && t.Installment.IsInstallment {
		payload["is_installment"] = true
		payload["months"] = t.Installment.Months
		monthly, _ := t.Installment.MonthlyAmount.Float64()
		payload["monthly_amount"] = monthly
	}
	return payload
}

func (p *KafkaPublisher) Publish(ctx context.Context, t *models.TransactionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(t.UserID), txPayload(t))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, ts []*models.TransactionRecord) error {
	if len(ts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ts))
	for i, t := range ts {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(t.UserID),
			Value: txPayload(t),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

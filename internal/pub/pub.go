package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/maobits/coban365-sub000/internal/domain"
)

const (
	// SettlementEventsChannel is the Redis pub/sub channel mirroring the
	// Kafka topic for in-process subscribers (panel refresh, alerts).
	SettlementEventsChannel = "settlement_events"

	publishTimeout = 5 * time.Second
)

// SettlementEvent is what downstream consumers see after a submission
// attempt finishes. Published post-commit only; the committed record never
// depends on a publish succeeding.
type SettlementEvent struct {
	EventType       string                `json:"event_type"` // settlement.completed, settlement.failed
	Reference       string                `json:"reference"`
	TransactionID   int64                 `json:"transaction_id,omitempty"`
	CorrespondentID int64                 `json:"correspondent_id"`
	ThirdPartyID    int64                 `json:"third_party_id"`
	TillID          int64                 `json:"till_id"`
	ActorID         string                `json:"actor_id"`
	Kind            domain.SettlementKind `json:"kind"`
	Amount          int64                 `json:"amount"`
	BankCommission  int64                 `json:"bank_commission,omitempty"`
	Dispersion      int64                 `json:"dispersion,omitempty"`
	CashTag         int64                 `json:"cash_tag,omitempty"`
	ErrorMessage    string                `json:"error_message,omitempty"`
	Timestamp       time.Time             `json:"timestamp"`
}

// SettlementEventPublisher fans settlement events out to Kafka and mirrors
// them on Redis pub/sub.
type SettlementEventPublisher struct {
	writer *kafka.Writer
	rdb    *redis.Client
	logger *zap.Logger
}

func NewSettlementEventPublisher(writer *kafka.Writer, rdb *redis.Client, logger *zap.Logger) *SettlementEventPublisher {
	return &SettlementEventPublisher{writer: writer, rdb: rdb, logger: logger}
}

// Publish sends the event to Kafka and Redis. Failures are logged and
// reported but never abort the caller.
func (p *SettlementEventPublisher) Publish(ctx context.Context, event *SettlementEvent) error {
	event.Timestamp = time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal settlement event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var firstErr error

	if p.writer != nil {
		msg := kafka.Message{
			Key:   []byte(event.Reference),
			Value: payload,
		}
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			firstErr = fmt.Errorf("kafka publish: %w", err)
			p.logger.Warn("failed to publish settlement event to kafka",
				zap.String("reference", event.Reference),
				zap.Error(err))
		}
	}

	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, SettlementEventsChannel, payload).Err(); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("redis publish: %w", err)
			}
			p.logger.Warn("failed to mirror settlement event to redis",
				zap.String("reference", event.Reference),
				zap.Error(err))
		}
	}

	if firstErr == nil {
		p.logger.Info("published settlement event",
			zap.String("event_type", event.EventType),
			zap.String("reference", event.Reference),
			zap.String("kind", string(event.Kind)))
	}

	return firstErr
}

// PublishCompleted publishes a committed settlement.
func (p *SettlementEventPublisher) PublishCompleted(ctx context.Context, rec *domain.TransactionRecord) error {
	return p.Publish(ctx, &SettlementEvent{
		EventType:       "settlement.completed",
		Reference:       rec.Reference,
		TransactionID:   rec.ID,
		CorrespondentID: rec.CorrespondentID,
		ThirdPartyID:    rec.ThirdPartyID,
		TillID:          rec.TillID,
		ActorID:         rec.ActorID,
		Kind:            rec.Kind,
		Amount:          rec.Cost,
		BankCommission:  rec.BankCommission,
		Dispersion:      rec.Dispersion,
		CashTag:         rec.CashTag,
	})
}

// PublishFailed publishes a submission that the data layer rejected.
func (p *SettlementEventPublisher) PublishFailed(ctx context.Context, rec *domain.TransactionRecord, cause error) error {
	return p.Publish(ctx, &SettlementEvent{
		EventType:       "settlement.failed",
		Reference:       rec.Reference,
		CorrespondentID: rec.CorrespondentID,
		ThirdPartyID:    rec.ThirdPartyID,
		TillID:          rec.TillID,
		ActorID:         rec.ActorID,
		Kind:            rec.Kind,
		Amount:          rec.Cost,
		ErrorMessage:    cause.Error(),
	})
}

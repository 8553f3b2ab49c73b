package events

import (
	"context"
	"encoding/json"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cartservice/internal/domain"
	"cartservice/internal/platform/kafka"
)

// Publisher announces completed reservation changes to interested
// consumers. Publishing is best-effort: the reservation is already
// committed, so a delivery failure is logged, never surfaced.
type Publisher interface {
	ReservationChanged(ctx context.Context, event domain.ReservationChangedEvent)
}

// KafkaPublisher writes reservation events keyed by product id, so one
// product's history lands on one partition in order.
type KafkaPublisher struct {
	producer kafka.Producer
	logger   *zap.Logger
}

func NewKafkaPublisher(producer kafka.Producer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
	}
}

func (p *KafkaPublisher) ReservationChanged(ctx context.Context, event domain.ReservationChangedEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to serialize reservation event",
			zap.Error(err),
			zap.Int64("product_id", event.ProductID),
		)
		return
	}

	msg := kafkago.Message{
		Key:   []byte(strconv.FormatInt(event.ProductID, 10)),
		Value: payload,
	}

	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		p.logger.Error("failed to publish reservation event",
			zap.Error(err),
			zap.Int64("product_id", event.ProductID),
			zap.Int64("user_id", event.UserID),
		)
		return
	}

	p.logger.Info("sent reservation event",
		zap.Int64("product_id", event.ProductID),
		zap.Int64("user_id", event.UserID),
		zap.Int("quantity_delta", event.QuantityDelta),
	)
}

// NopPublisher is wired when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) ReservationChanged(context.Context, domain.ReservationChangedEvent) {}

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/pkg/models"
)

// OutfitGeneratedEvent is the wire payload published after every generation.
// Downstream consumers (analytics, the affinity graph loader) key off the
// user so one user's events stay ordered within a partition.
type OutfitGeneratedEvent struct {
	EventID     uuid.UUID         `json:"event_id"`
	UserID      uuid.UUID         `json:"user_id"`
	Occasion    string            `json:"occasion"`
	ItemIDs     []uuid.UUID       `json:"item_ids"`
	Categories  []models.Category `json:"categories"`
	Strategy    string            `json:"strategy"`
	Confidence  float64           `json:"confidence"`
	Incomplete  bool              `json:"incomplete"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// KafkaPublisher writes generation events to the outfit-generated topic.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewKafkaPublisher returns nil (not an error) when Kafka is disabled, so
// callers can wire it straight into optional-publisher slots.
func NewKafkaPublisher(cfg *config.Config, logger *logrus.Logger) *KafkaPublisher {
	if !cfg.Kafka.Enabled || len(cfg.Kafka.Brokers) == 0 {
		return nil
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Kafka.Brokers...),
			Topic:        cfg.Kafka.Topics.OutfitGenerated,
			Balancer:     &kafka.Hash{}, // key by user for per-user ordering
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		},
		logger: logger,
	}
}

// PublishOutfitGenerated emits one event for a finished generation.
func (p *KafkaPublisher) PublishOutfitGenerated(ctx context.Context, result *models.OutfitResult, occasion string) error {
	event := OutfitGeneratedEvent{
		EventID:     uuid.New(),
		UserID:      result.UserID,
		Occasion:    occasion,
		Strategy:    result.Strategy,
		Confidence:  result.Confidence,
		Incomplete:  result.Incomplete,
		GeneratedAt: result.GeneratedAt,
	}
	for _, item := range result.Items {
		event.ItemIDs = append(event.ItemIDs, item.ID)
		event.Categories = append(event.Categories, item.Category)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outfit event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(result.UserID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "occasion", Value: []byte(occasion)},
			{Key: "timestamp", Value: []byte(event.GeneratedAt.Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.WithError(err).WithField("user_id", result.UserID).Error("Failed to publish outfit event")
		return fmt.Errorf("failed to write outfit event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id": event.EventID,
		"user_id":  result.UserID,
		"occasion": occasion,
	}).Debug("Outfit event published")

	return nil
}

func (p *KafkaPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

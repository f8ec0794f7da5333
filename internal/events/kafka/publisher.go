package kafka

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/papertrade/funds/pkg/config"
)

// Publisher writes committed ledger events to a kafka topic. Delivery is a
// notification concern; the ledger table stays authoritative.
type Publisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

func NewPublisher(cfg config.KafkaConfig, logger zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Topic:    cfg.Topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Value: data,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

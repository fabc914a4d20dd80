package promo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/example/danceschool-promos/internal/email"
)

// KafkaOutbox publishes composed messages for the email worker to deliver.
type KafkaOutbox struct {
	Writer *kafka.Writer
}

func (o *KafkaOutbox) Publish(ctx context.Context, msg email.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email message: %w", err)
	}
	return o.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.MessageID),
		Value: payload,
	})
}

package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	deliveredCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_emails_delivered_total",
		Help: "Emails delivered, by provider",
	}, []string{"provider"})
	failedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_emails_failed_total",
		Help: "Emails that no provider could deliver",
	})
)

type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Worker consumes composed messages and fans over providers in order. Delivery
// is fire-and-forget from the dispatcher's perspective: a message every
// provider rejects is logged and dropped, not redriven.
type Worker struct {
	ReaderFactory func() *kafka.Reader
	Providers     []Provider
	Logger        zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	if len(w.Providers) == 0 {
		return errors.New("at least one provider required")
	}
	reader := w.ReaderFactory()
	defer reader.Close()
	tracer := otel.Tracer("email-worker")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch message: %w", err)
		}

		var payload Message
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			w.Logger.Error().Err(err).Msg("failed to decode email payload")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		spanCtx, span := tracer.Start(ctx, "deliver_email")
		span.SetAttributes(attribute.String("message.id", payload.MessageID))

		sent := false
		for _, provider := range w.Providers {
			if err := w.deliverWithProvider(spanCtx, provider, payload); err != nil {
				span.RecordError(err)
				w.Logger.Warn().Err(err).Str("provider", provider.Name()).Msg("provider send failed")
				continue
			}
			deliveredCounter.WithLabelValues(provider.Name()).Inc()
			sent = true
			break
		}

		if !sent {
			failedCounter.Inc()
			w.Logger.Error().
				Str("message_id", payload.MessageID).
				Str("to", payload.To).
				Msg("all providers failed, dropping message")
		}

		span.End()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (w *Worker) deliverWithProvider(ctx context.Context, provider Provider, msg Message) error {
	op := backoff.NewExponentialBackOff()
	op.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return provider.Send(attemptCtx, msg)
	}, op)
}

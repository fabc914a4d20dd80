package mailinglist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const maxSubscribeAttempts = 3

var subscriptionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mailinglist_subscriptions_total",
	Help: "Registration events processed, by outcome",
}, []string{"outcome"})

// RegistrationEvent is published by the registration subsystem after a
// completed registration. The data map mirrors the registration's annotation
// bag; only the mailList flag matters here.
type RegistrationEvent struct {
	RegistrationID string         `json:"registration_id"`
	CustomerID     int64          `json:"customer_id"`
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Data           map[string]any `json:"data,omitempty"`
}

// wantsMailingList tolerates a missing or malformed data map.
func wantsMailingList(ev RegistrationEvent) bool {
	if ev.Data == nil {
		return false
	}
	switch v := ev.Data["mailList"].(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	default:
		return true
	}
}

// Worker subscribes opted-in registrants to the mailing list. Subscription is
// best effort: after the retry budget is spent the event is dropped with an
// error log, matching the at-most-a-few-attempts behavior of the original
// registration hook.
type Worker struct {
	ReaderFactory func() *kafka.Reader
	Client        *Client
	Logger        zerolog.Logger
}

func (w *Worker) Run(ctx context.Context) error {
	reader := w.ReaderFactory()
	defer reader.Close()
	tracer := otel.Tracer("mailinglist-worker")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			return fmt.Errorf("fetch message: %w", err)
		}

		var ev RegistrationEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			w.Logger.Error().Err(err).Msg("failed to decode registration event")
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		if !wantsMailingList(ev) {
			subscriptionCounter.WithLabelValues("not_requested").Inc()
			if err := reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("commit message: %w", err)
			}
			continue
		}

		if !w.Client.Configured() {
			subscriptionCounter.WithLabelValues("unconfigured").Inc()
			w.Logger.Info().Int64("customer_id", ev.CustomerID).Msg("mailing list provider not set up, skipping customer")
			if err := reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("commit message: %w", err)
			}
			continue
		}

		spanCtx, span := tracer.Start(ctx, "subscribe_customer")
		span.SetAttributes(attribute.Int64("customer.id", ev.CustomerID))

		w.Logger.Info().Int64("customer_id", ev.CustomerID).Msg("adding customer to mailing list")
		op := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSubscribeAttempts)
		err = backoff.Retry(func() error {
			return w.Client.Subscribe(spanCtx, ev.Email, ev.FirstName, ev.LastName)
		}, backoff.WithContext(op, spanCtx))
		if err != nil {
			span.RecordError(err)
			subscriptionCounter.WithLabelValues("failed").Inc()
			w.Logger.Error().Err(err).Int64("customer_id", ev.CustomerID).Msg("mailing list subscription failed, dropping event")
		} else {
			subscriptionCounter.WithLabelValues("subscribed").Inc()
		}

		span.End()
		if err := reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

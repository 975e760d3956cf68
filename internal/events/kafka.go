package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Kafka publishes events asynchronously through franz-go. Delivery failures
// are logged and dropped; the scheduler's source of truth is the store, not
// the event stream.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the brokers and makes sure the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

// ensureTopic creates the topic when it is missing; an already-exists
// response is fine.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	resps, err := admin.CreateTopics(ctx, -1, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	for _, resp := range resps {
		if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
		}
	}
	return nil
}

func (k *Kafka) Emit(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode event", "type", event.Type, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(event.CampaignID.String()),
		Value: payload,
	}
	k.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("failed to publish event", "type", event.Type, "error", err)
		}
	})
}

func (k *Kafka) Close() {
	k.client.Close()
}

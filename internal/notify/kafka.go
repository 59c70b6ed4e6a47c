// Package notify forwards SOC alerts to out-of-band channels.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/munai7/TrustGate/internal/models"
)

// syncProducer is the subset of *kgo.Client the publisher needs
type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Flush(ctx context.Context) error
	Close()
}

// KafkaConfig holds producer settings
type KafkaConfig struct {
	Brokers         []string
	Topic           string
	Retries         int
	DeliveryTimeout time.Duration
}

// KafkaPublisher writes each alert as one JSON record keyed by source address
type KafkaPublisher struct {
	client syncProducer
	topic  string
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher creates a producer client. Records wait for all in-sync replicas.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return newKafkaPublisher(client, cfg.Topic, logger), nil
}

func newKafkaPublisher(client syncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{client: client, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Name() string {
	return "kafka"
}

// Publish blocks until the broker acknowledges the record
func (p *KafkaPublisher) Publish(ctx context.Context, alert *models.Alert) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka publisher is closed")
	}

	value, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(alert.SourceAddress),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "alert_id", Value: []byte(alert.ID.String())},
			{Key: "reason", Value: []byte(alert.Reason)},
		},
	}

	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce alert: %w", err)
	}
	return nil
}

// Close flushes buffered records and shuts the client down
func (p *KafkaPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka publisher closed with unflushed alerts", slog.Any("error", err))
	}
	p.client.Close()
	return nil
}

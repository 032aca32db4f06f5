// Package kafka relays audit outbox rows to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"petchain/pkg/platform/audit/store/postgres"
)

const defaultBatchSize = 100

// Producer is the subset of *kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Outbox is the subset of the postgres outbox store the relay needs.
type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// TxRunner runs fn inside a database transaction carried by ctx.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Relay moves outbox rows to Kafka. Rows are produced synchronously and only
// marked published once every record in the batch is acknowledged, so a
// crash re-sends rather than drops. Consumers dedupe on the event id header.
type Relay struct {
	producer  Producer
	outbox    Outbox
	runTx     TxRunner
	topic     string
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

// Option configures the Relay.
type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithTxRunner makes each flush run in one database transaction.
func WithTxRunner(run TxRunner) Option {
	return func(r *Relay) { r.runTx = run }
}

// New creates an outbox relay producing to topic.
func New(producer Producer, outbox Outbox, topic string, opts ...Option) (*Relay, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if outbox == nil {
		return nil, errors.New("outbox is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	r := &Relay{
		producer:  producer,
		outbox:    outbox,
		topic:     topic,
		batchSize: defaultBatchSize,
		runTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Flush relays one batch and returns the number of rows published.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	published := 0
	err := r.runTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			records[i] = r.record(e)
			ids[i] = e.ID
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			r.metrics.IncProduceFailures()
			return fmt.Errorf("produce audit records: %w", err)
		}

		if err := r.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "outbox relay failed", "topic", r.topic, "error", err)
		}
		return 0, err
	}

	r.metrics.AddRelayed(published)
	if published > 0 && r.logger != nil {
		r.logger.DebugContext(ctx, "outbox relayed", "topic", r.topic, "count", published)
	}
	return published, nil
}

// record keys by transaction fingerprint so every verdict on the same
// transaction lands on the same partition.
func (r *Relay) record(e postgres.Entry) *kgo.Record {
	return &kgo.Record{
		Topic: r.topic,
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(e.ID.String())},
			{Key: "event_type", Value: []byte(e.EventType)},
		},
		Timestamp: e.CreatedAt,
	}
}

// NewClient builds a franz-go client for the given brokers.
func NewClient(brokers []string, clientID string) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	return kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression(), kgo.NoCompression()),
	)
}

// EnsureTopic creates topic if it does not exist.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, t := range resp {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Metrics holds Prometheus metrics for the outbox relay.
type Metrics struct {
	Relayed         prometheus.Counter
	ProduceFailures prometheus.Counter
}

// NewMetrics registers the relay metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Relayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "petchain_audit_outbox_relayed_total",
			Help: "Total number of outbox rows relayed to Kafka",
		}),
		ProduceFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "petchain_audit_outbox_produce_failures_total",
			Help: "Total number of failed outbox relay batches",
		}),
	}
}

func (m *Metrics) AddRelayed(n int) {
	if m != nil && n > 0 {
		m.Relayed.Add(float64(n))
	}
}

func (m *Metrics) IncProduceFailures() {
	if m != nil {
		m.ProduceFailures.Inc()
	}
}

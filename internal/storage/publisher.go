package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/IshaanNene/NewsCatcher/internal/config"
	"github.com/IshaanNene/NewsCatcher/internal/types"
)

// Publisher receives every record accepted by a PublishingStore.
type Publisher interface {
	Publish(ctx context.Context, rec *types.NewsRecord) error
	Close() error
	Name() string
}

// --- Kafka ---

// KafkaPublisher writes accepted records to a Kafka topic, keyed by record id.
type KafkaPublisher struct {
	writer *kafka.Writer
	count  int64
	mu     sync.Mutex
	logger *slog.Logger
}

// NewKafkaPublisher creates a synchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "kafka_publisher", "topic", topic),
	}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, rec *types.NewsRecord) error {
	payload, err := rec.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(rec.ID),
		Value: payload,
		Time:  rec.CreatedAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to kafka: %w", err)
	}
	p.mu.Lock()
	p.count++
	p.mu.Unlock()
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	p.logger.Info("kafka publisher closing", "published", p.count)
	p.mu.Unlock()
	return p.writer.Close()
}

// --- JSONL ---

// JSONLPublisher appends accepted records to a newline-delimited JSON file.
type JSONLPublisher struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLPublisher opens outputPath for appending.
func NewJSONLPublisher(outputPath string, logger *slog.Logger) (*JSONLPublisher, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	return &JSONLPublisher{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_publisher"),
	}, nil
}

func (p *JSONLPublisher) Name() string { return "jsonl" }

func (p *JSONLPublisher) Publish(_ context.Context, rec *types.NewsRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode JSONL: %w", err)
	}
	p.count++
	return nil
}

func (p *JSONLPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("JSONL written", "path", p.path, "records", p.count)
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// --- Fan-out ---

// PublishingStore persists through the wrapped Store, then hands each saved
// record to every publisher. Publish failures are logged and never fail the save.
type PublishingStore struct {
	Store
	publishers []Publisher
	logger     *slog.Logger
}

// NewPublishingStore wraps store. With no publishers it behaves exactly like store.
func NewPublishingStore(store Store, publishers []Publisher, logger *slog.Logger) *PublishingStore {
	return &PublishingStore{
		Store:      store,
		publishers: publishers,
		logger:     logger.With("component", "publishing_store"),
	}
}

func (s *PublishingStore) Save(ctx context.Context, rec *types.NewsRecord) (*types.NewsRecord, error) {
	saved, err := s.Store.Save(ctx, rec)
	if err != nil {
		return nil, err
	}
	for _, p := range s.publishers {
		if err := p.Publish(ctx, saved); err != nil {
			s.logger.Error("publish failed", "publisher", p.Name(), "id", saved.ID, "error", err)
		}
	}
	return saved, nil
}

func (s *PublishingStore) Close() error {
	var errs []error
	for _, p := range s.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	if err := s.Store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PublishersFromConfig builds the publishers enabled in cfg.
func PublishersFromConfig(cfg config.PublishConfig, logger *slog.Logger) ([]Publisher, error) {
	var out []Publisher
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		out = append(out, NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger))
	}
	if cfg.JSONLPath != "" {
		p, err := NewJSONLPublisher(cfg.JSONLPath, logger)
		if err != nil {
			for _, opened := range out {
				_ = opened.Close()
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

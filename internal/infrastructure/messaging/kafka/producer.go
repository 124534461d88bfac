// Package kafka carries diagnosis jobs and their results over Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeServiceUnavailable, "producer closed")

const (
	maxMessageBytes = 1 << 20
	batchTimeout    = 10 * time.Millisecond
	writeTimeout    = 10 * time.Second
)

// messageWriter is the part of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ diagnosis.JobPublisher = (*Producer)(nil)

// Producer implements diagnosis.JobPublisher.
type Producer struct {
	writer      messageWriter
	jobTopic    string
	resultTopic string
	logger      logging.Logger
	closed      atomic.Bool
}

func NewProducer(cfg config.KafkaConfig, log logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  max(cfg.MaxRetries, 1),
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		Compression:  kafka.Snappy,
	}
	return newProducer(w, cfg, log), nil
}

func newProducer(w messageWriter, cfg config.KafkaConfig, log logging.Logger) *Producer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Producer{
		writer:      w,
		jobTopic:    cfg.JobTopic,
		resultTopic: cfg.ResultTopic,
		logger:      log.Named("kafka_producer"),
	}
}

// PublishJob writes job to the job topic keyed by its ID.
func (p *Producer) PublishJob(ctx context.Context, job diagnosis.Job) error {
	return p.publish(ctx, p.jobTopic, job.ID, EventDiagnosisRequested, job,
		kafka.Header{Key: HeaderAttempt, Value: []byte(strconv.Itoa(job.Attempt))})
}

// PublishResult writes result to the result topic keyed by the job ID.
func (p *Producer) PublishResult(ctx context.Context, result diagnosis.JobResult) error {
	return p.publish(ctx, p.resultTopic, result.JobID, EventDiagnosisCompleted, result)
}

func (p *Producer) publish(ctx context.Context, topic, key, eventType string, payload any, headers ...kafka.Header) error {
	if topic == "" {
		return errors.New(errors.ErrCodeValidation, "topic is required").WithDetail(eventType)
	}
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   value,
		Headers: append([]kafka.Header{{Key: HeaderEventType, Value: []byte(eventType)}}, headers...),
		Time:    env.Timestamp,
	}
	return p.write(ctx, msg)
}

func (p *Producer) write(ctx context.Context, msg kafka.Message) error {
	if p.closed.Load() {
		return ErrProducerClosed
	}
	if len(msg.Value) > maxMessageBytes {
		return errors.Newf(errors.ErrCodeValidation, "message of %d bytes exceeds %d", len(msg.Value), maxMessageBytes)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "kafka publish failed").WithDetail(msg.Topic)
	}
	p.logger.Debug("message published", logging.String("topic", msg.Topic), logging.String("key", string(msg.Key)))
	return nil
}

// Close flushes pending writes. Safe to call more than once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.writer.Close()
}

package kafka

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/LawLens/internal/application/diagnosis"
	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

const (
	defaultRetryBackoff = time.Second
	maxRetryBackoff     = 30 * time.Second
	fetchErrorPause     = time.Second
	sessionTimeout      = 30 * time.Second
)

// JobHandler runs one queued job. A non-nil error asks for a retry.
type JobHandler interface {
	HandleJob(ctx context.Context, job diagnosis.Job) (*diagnosis.JobResult, error)
}

// messageReader is the part of kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads jobs from the job topic and hands them to a JobHandler,
// retrying with exponential backoff and parking exhausted jobs on the
// dead-letter topic.
type Consumer struct {
	reader     messageReader
	handler    JobHandler
	dlq        *Producer
	dlqTopic   string
	maxRetries int
	backoff    time.Duration
	logger     logging.Logger
}

func NewConsumer(cfg config.KafkaConfig, handler JobHandler, dlq *Producer, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if cfg.JobTopic == "" || cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka job topic and group id are required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.JobTopic,
		MinBytes:       1,
		MaxBytes:       maxMessageBytes * 10,
		SessionTimeout: sessionTimeout,
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(r, handler, dlq, cfg, log), nil
}

func newConsumer(r messageReader, handler JobHandler, dlq *Producer, cfg config.KafkaConfig, log logging.Logger) *Consumer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Consumer{
		reader:     r,
		handler:    handler,
		dlq:        dlq,
		dlqTopic:   cfg.DeadLetterTopic,
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    defaultRetryBackoff,
		logger:     log.Named("kafka_consumer"),
	}
}

// Run consumes until ctx is cancelled. Every fetched message is committed
// once it has been handled or dead-lettered.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return nil
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchErrorPause):
			}
			continue
		}

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("message left uncommitted",
				logging.String("topic", m.Topic),
				logging.Int64("offset", m.Offset),
				logging.Err(err),
			)
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", logging.Int64("offset", m.Offset), logging.Err(err))
		}
	}
}

// process returns an error only when the message could neither be handled
// nor dead-lettered.
func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	job, err := decodeJob(m)
	if err != nil {
		c.logger.Warn("malformed job message", logging.Int64("offset", m.Offset), logging.Err(err))
		return c.deadLetter(ctx, m, 0, err)
	}

	backoff := c.backoff
	attempts := 0
	for {
		attempts++
		job.Attempt = attempts
		_, err = c.handler.HandleJob(ctx, job)
		if err == nil {
			return nil
		}
		if attempts > c.maxRetries {
			break
		}
		c.logger.Warn("job failed, retrying",
			logging.String("job_id", job.ID),
			logging.Int("attempt", attempts),
			logging.Duration("backoff", backoff),
			logging.Err(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxRetryBackoff)
	}

	c.logger.Error("job failed after retries", logging.String("job_id", job.ID), logging.Int("attempts", attempts), logging.Err(err))
	return c.deadLetter(ctx, m, attempts, err)
}

func decodeJob(m kafka.Message) (diagnosis.Job, error) {
	var job diagnosis.Job
	env, err := ParseEnvelope(m.Value)
	if err != nil {
		return job, err
	}
	if env.EventType != EventDiagnosisRequested {
		return job, errors.Newf(errors.ErrCodeValidation, "unexpected event type %q", env.EventType)
	}
	if err := env.Decode(&job); err != nil {
		return job, err
	}
	if job.ID == "" {
		return job, errors.New(errors.ErrCodeValidation, "job has no id")
	}
	return job, nil
}

// deadLetter copies m to the dead-letter topic with the failure attached.
// Without a dead-letter producer the message is dropped after logging.
func (c *Consumer) deadLetter(ctx context.Context, m kafka.Message, attempts int, cause error) error {
	if c.dlq == nil || c.dlqTopic == "" {
		c.logger.Warn("no dead-letter topic, dropping message", logging.Int64("offset", m.Offset))
		return nil
	}
	headers := make([]kafka.Header, 0, len(m.Headers)+4)
	for _, h := range m.Headers {
		if h.Key == HeaderEventType || h.Key == HeaderAttempt {
			continue
		}
		headers = append(headers, h)
	}
	headers = append(headers,
		kafka.Header{Key: HeaderEventType, Value: []byte(EventDiagnosisDead)},
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(m.Topic)},
		kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		kafka.Header{Key: HeaderAttempt, Value: []byte(strconv.Itoa(attempts))},
	)
	return c.dlq.write(ctx, kafka.Message{
		Topic:   c.dlqTopic,
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
		Time:    time.Now(),
	})
}

// Close stops the reader.
func (c *Consumer) Close() error { return c.reader.Close() }

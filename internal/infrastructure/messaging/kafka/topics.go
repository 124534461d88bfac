package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/LawLens/internal/config"
	"github.com/turtacn/LawLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/LawLens/pkg/errors"
)

// Event types carried in the envelope and the event_type header.
const (
	EventDiagnosisRequested = "diagnosis.requested"
	EventDiagnosisCompleted = "diagnosis.completed"
	EventDiagnosisDead      = "diagnosis.dead_lettered"

	eventSource   = "lawlens"
	schemaVersion = "v1"
)

// Header keys.
const (
	HeaderEventType     = "event_type"
	HeaderAttempt       = "attempt"
	HeaderOriginalTopic = "original_topic"
	HeaderError         = "error_message"
)

// Envelope wraps every payload written to a LawLens topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType string, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        eventSource,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// Decode unmarshals the payload into target.
func (e *Envelope) Decode(target any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "envelope has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}

// ParseEnvelope decodes a message value.
func ParseEnvelope(value []byte) (*Envelope, error) {
	if len(value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

// TopicSpec describes one topic to create.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Retention         time.Duration
}

// Topics lists the job, result and dead-letter topics for cfg.
func Topics(cfg config.KafkaConfig, replication int) []TopicSpec {
	if replication <= 0 {
		replication = 1
	}
	week := 7 * 24 * time.Hour
	return []TopicSpec{
		{Name: cfg.JobTopic, Partitions: 6, ReplicationFactor: replication, Retention: week},
		{Name: cfg.ResultTopic, Partitions: 3, ReplicationFactor: replication, Retention: week},
		{Name: cfg.DeadLetterTopic, Partitions: 1, ReplicationFactor: replication, Retention: 4 * week},
	}
}

type adminConn interface {
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	Close() error
}

// TopicManager creates topics through a broker connection.
type TopicManager struct {
	conn   adminConn
	logger logging.Logger
}

func NewTopicManager(ctx context.Context, brokers []string, log logging.Logger) (*TopicManager, error) {
	if len(brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to dial kafka").WithDetail(brokers[0])
	}
	return &TopicManager{conn: conn, logger: log.Named("kafka_topics")}, nil
}

// EnsureTopics creates every topic in specs that does not exist yet.
func (m *TopicManager) EnsureTopics(specs []TopicSpec) error {
	for _, spec := range specs {
		if spec.Name == "" {
			continue
		}
		if m.exists(spec.Name) {
			continue
		}
		tc := kafka.TopicConfig{
			Topic:             spec.Name,
			NumPartitions:     spec.Partitions,
			ReplicationFactor: spec.ReplicationFactor,
		}
		if spec.Retention > 0 {
			tc.ConfigEntries = []kafka.ConfigEntry{{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(spec.Retention.Milliseconds(), 10)}}
		}
		if err := m.conn.CreateTopics(tc); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
			return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to create topic").WithDetail(spec.Name)
		}
		m.logger.Info("topic created", logging.String("topic", spec.Name), logging.Int("partitions", spec.Partitions))
	}
	return nil
}

func (m *TopicManager) exists(topic string) bool {
	partitions, err := m.conn.ReadPartitions(topic)
	return err == nil && len(partitions) > 0
}

func (m *TopicManager) Close() error { return m.conn.Close() }

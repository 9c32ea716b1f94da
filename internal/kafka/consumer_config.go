package kafka

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	OffsetEarliest = "earliest"
	OffsetLatest   = "latest"
)

// ErrInvalidConfig - конфигурация consumer не прошла проверку.
var ErrInvalidConfig = errors.New("kafka consumer: invalid config")

// ConsumerConfig - настройки consumer-группы. Каждое поле имеет своё значение по умолчанию,
// см. DefaultConsumerConfig.
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	ClientID string

	// AutoOffsetReset: "earliest" | "latest" - откуда читать без сохранённого оффсета.
	AutoOffsetReset string

	// EnableAutoOffsetStore: оффсет сохраняется в момент чтения, Commit ничего не делает.
	// Требует EnableAutoCommit: с синхронным коммитом kafka-go фиксировал бы оффсет
	// в брокере ещё до обработки.
	EnableAutoOffsetStore bool
	// EnableAutoCommit: Commit только отмечает оффсет, сброс в брокер раз в AutoCommitInterval.
	// Иначе Commit синхронный.
	EnableAutoCommit bool
	// EnablePartitionEOF принимается для совместимости; kafka-go не отдаёт события конца партиции.
	EnablePartitionEOF bool

	AutoCommitInterval time.Duration
	MaxPollInterval    time.Duration
	SessionTimeout     time.Duration
	HeartbeatInterval  time.Duration
	PollTimeout        time.Duration
}

// DefaultConsumerConfig - значения по умолчанию для указанных брокеров и группы.
func DefaultConsumerConfig(brokers []string, groupID string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:            brokers,
		GroupID:            groupID,
		ClientID:           "kafka-runner",
		AutoOffsetReset:    OffsetEarliest,
		EnableAutoCommit:   true,
		AutoCommitInterval: 1000 * time.Millisecond,
		MaxPollInterval:    300000 * time.Millisecond,
		SessionTimeout:     10000 * time.Millisecond,
		HeartbeatInterval:  3000 * time.Millisecond,
		PollTimeout:        time.Second,
	}
}

// applyDefaults заполняет незаданные (нулевые) длительности и строки.
func (c *ConsumerConfig) applyDefaults() {
	def := DefaultConsumerConfig(nil, "")
	if c.ClientID == "" {
		c.ClientID = def.ClientID
	}
	if strings.TrimSpace(c.AutoOffsetReset) == "" {
		c.AutoOffsetReset = def.AutoOffsetReset
	}
	if c.AutoCommitInterval <= 0 {
		c.AutoCommitInterval = def.AutoCommitInterval
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = def.MaxPollInterval
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = def.SessionTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
}

// Validate проверяет обязательные поля и согласованность таймаутов.
func (c *ConsumerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("%w: empty broker list", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.GroupID) == "" {
		return fmt.Errorf("%w: empty group id", ErrInvalidConfig)
	}
	if _, err := parseStartOffset(c.AutoOffsetReset); err != nil {
		return err
	}
	if c.EnableAutoOffsetStore && !c.EnableAutoCommit {
		return fmt.Errorf("%w: auto offset store requires auto commit", ErrInvalidConfig)
	}
	if c.HeartbeatInterval >= c.SessionTimeout {
		return fmt.Errorf("%w: heartbeat interval %s must be less than session timeout %s",
			ErrInvalidConfig, c.HeartbeatInterval, c.SessionTimeout)
	}
	return nil
}

// ReaderConfig собирает kafka.ReaderConfig для группы, подписанной на topics.
func (c *ConsumerConfig) ReaderConfig(topics []string) kafka.ReaderConfig {
	offset, err := parseStartOffset(c.AutoOffsetReset)
	if err != nil {
		offset = kafka.FirstOffset
	}

	rc := kafka.ReaderConfig{
		Brokers:     c.Brokers,
		GroupID:     c.GroupID,
		GroupTopics: append([]string(nil), topics...),
		Dialer: &kafka.Dialer{
			ClientID:  c.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
		StartOffset:       offset,
		HeartbeatInterval: c.HeartbeatInterval,
		SessionTimeout:    c.SessionTimeout,
		RebalanceTimeout:  c.MaxPollInterval,
		// 0 - синхронный коммит в CommitMessages
		CommitInterval: 0,
	}
	if c.EnableAutoCommit {
		rc.CommitInterval = c.AutoCommitInterval
	}

	return rc
}

// parseStartOffset нормализует значение auto.offset.reset.
func parseStartOffset(s string) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", OffsetEarliest:
		return kafka.FirstOffset, nil
	case OffsetLatest:
		return kafka.LastOffset, nil
	default:
		return 0, fmt.Errorf("%w: unknown auto offset reset %q", ErrInvalidConfig, s)
	}
}

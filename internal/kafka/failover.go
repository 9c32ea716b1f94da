package kafka

//go:generate mockgen -source=failover.go -destination=./mocks/mock_writer.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

var _ messaging.Failover[kafka.Message] = (*ParkingFailover)(nil)

// Заголовки, которые ParkingFailover добавляет к сообщению.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderError             = "x-error"
	HeaderFailedAt          = "x-failed-at"
)

// writer - минимальный контракт над kafka.Writer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ParkingFailover перекладывает сообщение, которое не удалось обработать,
// в отдельный топик вместе с причиной и исходными координатами.
type ParkingFailover struct {
	writer writer
	topic  string
	log    ports.Logger
	now    func() time.Time
}

// NewParkingFailover - конструктор поверх kafka.Writer.
func NewParkingFailover(brokers []string, topic string, log ports.Logger) (*ParkingFailover, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("%w: empty broker list for parking topic", ErrInvalidConfig)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: empty parking topic", ErrInvalidConfig)
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newParkingFailover(w, topic, log), nil
}

func newParkingFailover(w writer, topic string, log ports.Logger) *ParkingFailover {
	return &ParkingFailover{writer: w, topic: topic, log: log, now: time.Now}
}

// Failover пишет копию msg в parking-топик. Ключ сохраняется, чтобы
// сообщения одного ключа остались в одной партиции.
func (f *ParkingFailover) Failover(ctx context.Context, msg kafka.Message, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderError, Value: []byte(reason)},
		kafka.Header{Key: HeaderFailedAt, Value: []byte(f.now().UTC().Format(time.RFC3339Nano))},
	)

	// Topic не задаётся: он уже указан в writer
	parked := kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers}
	if err := f.writer.WriteMessages(ctx, parked); err != nil {
		return fmt.Errorf("kafka failover: write to %s: %w", f.topic, err)
	}

	metrics.KafkaMessagesParked.WithLabelValues(msg.Topic).Inc()
	f.log.Warnf(ctx, "message parked topic=%s partition=%d offset=%d -> %s: %s",
		msg.Topic, msg.Partition, msg.Offset, f.topic, reason)
	return nil
}

// Close закрывает writer.
func (f *ParkingFailover) Close() error {
	if err := f.writer.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("kafka failover: close writer: %w", err)
	}
	return nil
}

// HeaderValue возвращает значение заголовка key или "".
func HeaderValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

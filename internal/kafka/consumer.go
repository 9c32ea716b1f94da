package kafka

//go:generate mockgen -source=consumer.go -destination=./mocks/mock_reader.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

// Проверка, что Consumer удовлетворяет обобщённому контракту.
var _ messaging.Consumer[kafka.Message] = (*Consumer)(nil)

// ErrNotSubscribed - Poll/Commit до Subscribe.
var ErrNotSubscribed = errors.New("kafka consumer: not subscribed")

// reader - минимальный контракт над kafka.Reader,
// чтобы легко подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// Consumer - адаптер kafka-go consumer-группы к messaging.Consumer.
// Reader создаётся при Subscribe и закрывается при Unsubscribe.
type Consumer struct {
	cfg       ConsumerConfig
	log       ports.Logger
	newReader func(kafka.ReaderConfig) reader

	mu     sync.Mutex
	reader reader
	topics []string
	// gen растёт при каждом новом reader; refs - живые guard текущего reader.
	gen  uint64
	refs int
}

// subscription - guard-сторона одной подписки. Снимает подписку, только если
// её reader всё ещё текущий и других guard на него не осталось.
type subscription struct {
	c   *Consumer
	gen uint64
}

func (s subscription) Unsubscribe() { s.c.release(s.gen) }

// NewConsumer - конструктор; незаданные поля cfg заполняются значениями по умолчанию.
func NewConsumer(cfg ConsumerConfig, log ports.Logger) (*Consumer, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.EnablePartitionEOF {
		log.Warnf(context.Background(), "kafka consumer: partition EOF events are not supported, option ignored")
	}

	return &Consumer{
		cfg: cfg,
		log: log,
		newReader: func(rc kafka.ReaderConfig) reader {
			return kafka.NewReader(rc)
		},
	}, nil
}

// Subscribe создаёт reader группы для topics. Повторный вызов с тем же набором
// топиков переиспользует reader (reader закрывается с последним guard),
// с другим - пересоздаёт reader; guard прежнего набора после этого ничего не закрывает.
func (c *Consumer) Subscribe(ctx context.Context, topics []string) (*messaging.SubscribeGuard, error) {
	if len(topics) == 0 {
		return nil, errors.New("kafka consumer: subscribe: empty topic list")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.reader != nil {
		if sameTopics(c.topics, topics) {
			c.refs++
			return messaging.NewSubscribeGuard(subscription{c: c, gen: c.gen}, topics), nil
		}
		c.closeReaderLocked(ctx)
	}

	rc := c.cfg.ReaderConfig(topics)
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer: subscribe %v: %w", topics, err)
	}

	c.reader = c.newReader(rc)
	c.topics = append([]string(nil), topics...)
	c.gen++
	c.refs = 1
	c.log.Infof(ctx, "kafka consumer subscribed topics=%v group_id=%s brokers=%v auto_commit=%t",
		topics, rc.GroupID, rc.Brokers, c.cfg.EnableAutoCommit)

	return messaging.NewSubscribeGuard(subscription{c: c, gen: c.gen}, topics), nil
}

func (c *Consumer) release(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reader == nil || gen != c.gen {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}
	c.closeReaderLocked(context.Background())
}

// Unsubscribe закрывает текущий reader независимо от guard; ошибка закрытия только логируется.
func (c *Consumer) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeReaderLocked(context.Background())
}

// Poll ждёт сообщение не дольше PollTimeout.
// Истечение таймаута - не ошибка: (zero, false, nil).
func (c *Consumer) Poll(ctx context.Context) (kafka.Message, bool, error) {
	r := c.current()
	if r == nil {
		return kafka.Message{}, false, ErrNotSubscribed
	}

	pctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	var (
		msg kafka.Message
		err error
	)
	if c.cfg.EnableAutoOffsetStore {
		// оффсет сохраняется в момент чтения
		msg, err = r.ReadMessage(pctx)
	} else {
		msg, err = r.FetchMessage(pctx)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return kafka.Message{}, false, nil
		}
		return kafka.Message{}, false, fmt.Errorf("kafka consumer: fetch: %w", err)
	}

	metrics.KafkaMessagesConsumed.WithLabelValues(msg.Topic).Inc()
	return msg, true, nil
}

// Commit подтверждает обработку msg. При EnableAutoCommit kafka-go только
// запоминает оффсет и сбрасывает его в фоне; иначе коммит синхронный.
func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	if c.cfg.EnableAutoOffsetStore {
		return nil
	}
	r := c.current()
	if r == nil {
		return ErrNotSubscribed
	}
	if err := r.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka consumer: commit topic=%s partition=%d offset=%d: %w",
			msg.Topic, msg.Partition, msg.Offset, err)
	}
	return nil
}

func (c *Consumer) AutoCommit() bool { return c.cfg.EnableAutoCommit }

// Close - то же, что Unsubscribe; вызывается при остановке приложения.
func (c *Consumer) Close() error {
	c.Unsubscribe()
	return nil
}

func (c *Consumer) current() reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

func (c *Consumer) closeReaderLocked(ctx context.Context) {
	if c.reader == nil {
		return
	}
	if err := c.reader.Close(); err != nil {
		c.log.Warnf(ctx, "kafka consumer: close reader topics=%v: %v", c.topics, err)
	}
	c.reader = nil
	c.topics = nil
	c.refs = 0
}

// sameTopics сравнивает наборы топиков без учёта порядка.
func sameTopics(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

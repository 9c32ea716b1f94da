package app

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	ikafka "github.com/Gunvolt24/kafka-runner/internal/kafka"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
)

// Worker - фоновый компонент приложения (цикл потребления).
type Worker interface {
	Run(ctx context.Context) error
	Close() error
}

// NewProcessor собирает цепочку "архиватор -> повторы -> failover".
// failover == nil - без failover, ошибка после повторов уходит в Runner.
func NewProcessor(
	archiver messaging.Processor[*domain.Message, domain.ArchiveResult],
	policy messaging.RetryPolicy,
	failover messaging.Failover[kafka.Message],
	log ports.Logger,
) messaging.Processor[kafka.Message, domain.ArchiveResult] {
	var p messaging.Processor[kafka.Message, domain.ArchiveResult] = messaging.NewRetriableProcessor(
		ikafka.DomainProcessor[domain.ArchiveResult](archiver), policy, log,
	)
	if failover != nil {
		p = messaging.NewFailoverProcessor(p, failover, log)
	}
	return p
}

// Pipeline - Runner поверх consumer с фиксированным набором топиков.
type Pipeline struct {
	runner  *messaging.Runner[kafka.Message, domain.ArchiveResult]
	topics  []string
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

var (
	_ Worker            = (*Pipeline)(nil)
	_ ports.RunnerState = (*Pipeline)(nil)
)

// NewPipeline; closers закрываются в Close в переданном порядке.
// pollBackoff == nil - messaging.DefaultPollBackoff.
func NewPipeline(
	consumer messaging.Consumer[kafka.Message],
	processor messaging.Processor[kafka.Message, domain.ArchiveResult],
	topics []string,
	pollBackoff messaging.RetryPolicy,
	log ports.Logger,
	closers ...io.Closer,
) *Pipeline {
	return &Pipeline{
		runner:  messaging.NewRunner(consumer, processor, log, messaging.WithPollBackoff(pollBackoff)),
		topics:  append([]string(nil), topics...),
		closers: closers,
	}
}

func (p *Pipeline) Run(ctx context.Context) error { return p.runner.Run(ctx, p.topics) }

func (p *Pipeline) Subscribed() bool { return p.runner.Subscribed() }

// Close идемпотентен.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		var errs []error
		for _, c := range p.closers {
			if c == nil {
				continue
			}
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		p.closeErr = errors.Join(errs...)
	})
	return p.closeErr
}

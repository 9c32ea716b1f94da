package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

// ErrorOrigin - откуда пришла ошибка Runner.
type ErrorOrigin int

const (
	OriginConsumer ErrorOrigin = iota + 1
	OriginProcessor
)

func (o ErrorOrigin) String() string {
	switch o {
	case OriginConsumer:
		return "consumer"
	case OriginProcessor:
		return "processor"
	default:
		return "unknown"
	}
}

// RunnerError - ошибка, завершившая Runner.
// Op: "subscribe", "commit" (consumer) или "process" (processor).
type RunnerError struct {
	Origin ErrorOrigin
	Op     string
	Err    error
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("runner: %s: %s: %v", e.Origin, e.Op, e.Err)
}

func (e *RunnerError) Unwrap() error { return e.Err }

// IsConsumerError - ошибка пришла от брокера (subscribe/commit).
func IsConsumerError(err error) bool {
	var re *RunnerError
	return errors.As(err, &re) && re.Origin == OriginConsumer
}

// IsProcessorError - ошибка пришла от processor (включая retry/failover).
func IsProcessorError(err error) bool {
	var re *RunnerError
	return errors.As(err, &re) && re.Origin == OriginProcessor
}

var tracer = otel.Tracer("messaging-runner")

// DefaultPollBackoff - пауза между подряд идущими ошибками Poll:
// экспонента 100ms..5s, половина задержки случайная.
func DefaultPollBackoff() RetryPolicy {
	return ExponentialPolicy(ExponentialConfig{
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         5 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	})
}

// RunnerOption - необязательная настройка Runner.
type RunnerOption func(*runnerOptions)

type runnerOptions struct {
	pollBackoff RetryPolicy
}

// WithPollBackoff задаёт паузы между ошибками Poll. nil - DefaultPollBackoff.
// Исчерпанная последовательность начинается заново.
func WithPollBackoff(policy RetryPolicy) RunnerOption {
	return func(o *runnerOptions) { o.pollBackoff = policy }
}

// Runner: subscribe -> poll -> process -> commit в одном цикле.
type Runner[T, O any] struct {
	consumer    Consumer[T]
	processor   Processor[T, O]
	log         ports.Logger
	pollBackoff RetryPolicy
	sleep       func(context.Context, time.Duration) bool
	subscribed  atomic.Bool
}

func NewRunner[T, O any](consumer Consumer[T], processor Processor[T, O], log ports.Logger, opts ...RunnerOption) *Runner[T, O] {
	var o runnerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.pollBackoff == nil {
		o.pollBackoff = DefaultPollBackoff()
	}
	return &Runner[T, O]{
		consumer:    consumer,
		processor:   processor,
		log:         log,
		pollBackoff: o.pollBackoff,
		sleep:       sleepContext,
	}
}

// Subscribed - Runner сейчас держит подписку (для readiness).
func (r *Runner[T, O]) Subscribed() bool { return r.subscribed.Load() }

// Run подписывается на topics и крутит цикл до отмены ctx или фатальной ошибки.
//
// Отмена проверяется неблокирующе в начале каждой итерации, поэтому задержка
// реакции ограничена таймаутом Poll. Обработка и коммит уже полученного item
// отменой не прерываются. Отмена возвращает nil; остальные ошибки - *RunnerError.
// Ошибки Poll считаются временными: логируются, цикл продолжается после паузы
// из pollBackoff; пауза прерывается отменой ctx и сбрасывается успешным Poll.
func (r *Runner[T, O]) Run(ctx context.Context, topics []string) error {
	guard, err := r.consumer.Subscribe(ctx, topics)
	if err != nil {
		return &RunnerError{Origin: OriginConsumer, Op: "subscribe", Err: err}
	}
	r.subscribed.Store(true)
	defer func() {
		r.subscribed.Store(false)
		r.log.Infof(ctx, "unsubscribe topics=%v", topics)
		guard.Release()
	}()

	r.log.Infof(ctx, "runner started topics=%v auto_commit=%t", topics, r.consumer.AutoCommit())

	// обработка и коммит не должны обрываться отменой
	workCtx := context.WithoutCancel(ctx)

	var pollSeq DelaySequence
	for {
		select {
		case <-ctx.Done():
			r.log.Warnf(ctx, "runner received stop signal, quitting")
			return nil
		default:
		}

		item, ok, err := r.consumer.Poll(ctx)
		if err == nil {
			pollSeq = nil
		}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				// poll прерван отменой; выход на следующей проверке
				continue
			}
			metrics.PollsTotal.WithLabelValues("error").Inc()
			if pollSeq == nil {
				pollSeq = r.pollBackoff.Sequence()
			}
			delay, more := pollSeq.Next()
			if !more {
				pollSeq = r.pollBackoff.Sequence()
				delay, _ = pollSeq.Next()
			}
			r.log.Warnf(ctx, "poll message with error: %v (next poll in %s)", err, delay)
			r.sleep(ctx, delay)
			continue
		case !ok:
			metrics.PollsTotal.WithLabelValues("empty").Inc()
			continue
		}

		metrics.PollsTotal.WithLabelValues("item").Inc()
		if err := r.handle(workCtx, item); err != nil {
			return err
		}
	}
}

// handle обрабатывает и коммитит один item.
func (r *Runner[T, O]) handle(ctx context.Context, item T) error {
	ctx, span := tracer.Start(ctx, "messaging.ProcessItem", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	start := time.Now()
	_, err := r.processor.Process(ctx, item)
	metrics.ProcessDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ItemsProcessed.WithLabelValues("failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "process failed")
		return &RunnerError{Origin: OriginProcessor, Op: "process", Err: err}
	}
	metrics.ItemsProcessed.WithLabelValues("success").Inc()

	if err := r.consumer.Commit(ctx, item); err != nil {
		metrics.CommitsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return &RunnerError{Origin: OriginConsumer, Op: "commit", Err: err}
	}
	metrics.CommitsTotal.WithLabelValues("ok").Inc()
	return nil
}

package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

// RetryError - обёрнутый processor упал на всех попытках.
// Err - ошибка последней попытки.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry: %d attempt(s) failed: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// RetriableProcessor повторяет обёрнутый Processor по задержкам из RetryPolicy.
type RetriableProcessor[T, O any] struct {
	processor Processor[T, O]
	policy    RetryPolicy
	log       ports.Logger
	sleep     func(ctx context.Context, d time.Duration) bool
}

// NewRetriableProcessor - конструктор; policy == nil означает "без повторов".
func NewRetriableProcessor[T, O any](processor Processor[T, O], policy RetryPolicy, log ports.Logger) *RetriableProcessor[T, O] {
	if policy == nil {
		policy = Delays()
	}
	return &RetriableProcessor[T, O]{
		processor: processor,
		policy:    policy,
		log:       log,
		sleep:     sleepContext,
	}
}

// Process вызывает processor, пока тот не вернёт успех или не кончится последовательность задержек.
// Последовательность создаётся заново на каждый вызов.
func (r *RetriableProcessor[T, O]) Process(ctx context.Context, item T) (O, error) {
	seq := r.policy.Sequence()
	attempt := 0
	for {
		attempt++
		out, err := r.processor.Process(ctx, item)
		if err == nil {
			return out, nil
		}

		delay, ok := seq.Next()
		if !ok {
			var zero O
			return zero, &RetryError{Attempts: attempt, Err: err}
		}

		metrics.ProcessRetries.Inc()
		r.log.Warnf(ctx, "retry attempt %d failed: %v (next in %s)", attempt, err, delay)
		if !r.sleep(ctx, delay) {
			var zero O
			return zero, &RetryError{Attempts: attempt, Err: err}
		}
	}
}

// sleepContext ждёт d; false, если контекст завершился раньше.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

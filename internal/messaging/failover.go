package messaging

import (
	"context"
	"fmt"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

// FailoverKind различает исходы FailoverProcessor.
type FailoverKind int

const (
	// FailoverHandled: processor упал, failover отработал. Item не коммитится.
	FailoverHandled FailoverKind = iota + 1
	// FailoverFailed: упали и processor, и failover.
	FailoverFailed
)

func (k FailoverKind) String() string {
	switch k {
	case FailoverHandled:
		return "process"
	case FailoverFailed:
		return "failover"
	default:
		return "unknown"
	}
}

// FailoverError несёт исходную ошибку processor без изменений
// и, для FailoverFailed, ошибку самого обработчика.
type FailoverError struct {
	Kind        FailoverKind
	Err         error
	FailoverErr error
}

func (e *FailoverError) Error() string {
	if e.Kind == FailoverFailed {
		return fmt.Sprintf("failover: process: %v; failover: %v", e.Err, e.FailoverErr)
	}
	return fmt.Sprintf("failover: process: %v (handled)", e.Err)
}

func (e *FailoverError) Unwrap() []error {
	if e.FailoverErr != nil {
		return []error{e.Err, e.FailoverErr}
	}
	return []error{e.Err}
}

// FailoverProcessor передаёт упавший item в Failover.
//
// Поддерживаемая композиция: NewFailoverProcessor(NewRetriableProcessor(p, ...), f),
// то есть "N повторов, затем failover". Обратный порядок вызывает failover
// на каждой попытке.
type FailoverProcessor[T, O any] struct {
	processor Processor[T, O]
	failover  Failover[T]
	log       ports.Logger
}

func NewFailoverProcessor[T, O any](processor Processor[T, O], failover Failover[T], log ports.Logger) *FailoverProcessor[T, O] {
	return &FailoverProcessor[T, O]{processor: processor, failover: failover, log: log}
}

// Process возвращает результат processor либо *FailoverError.
// Даже при успешном failover результат считается неуспешным.
func (f *FailoverProcessor[T, O]) Process(ctx context.Context, item T) (O, error) {
	out, err := f.processor.Process(ctx, item)
	if err == nil {
		return out, nil
	}

	var zero O
	if ferr := f.failover.Failover(ctx, item, err); ferr != nil {
		metrics.FailoverTotal.WithLabelValues("failed").Inc()
		f.log.Errorf(ctx, "failover failed: %v (process error: %v)", ferr, err)
		return zero, &FailoverError{Kind: FailoverFailed, Err: err, FailoverErr: ferr}
	}

	metrics.FailoverTotal.WithLabelValues("handled").Inc()
	f.log.Warnf(ctx, "item handed to failover: %v", err)
	return zero, &FailoverError{Kind: FailoverHandled, Err: err}
}

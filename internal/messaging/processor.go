package messaging

import "context"

// Processor - единица работы над одним item.
// Повторов и восстановления внутри нет: они добавляются только обёртками
// (RetriableProcessor, FailoverProcessor). Реализация должна выдерживать
// повторный вызов с тем же item.
type Processor[T, O any] interface {
	Process(ctx context.Context, item T) (O, error)
}

// ProcessorFunc позволяет использовать обычную функцию как Processor.
type ProcessorFunc[T, O any] func(ctx context.Context, item T) (O, error)

func (f ProcessorFunc[T, O]) Process(ctx context.Context, item T) (O, error) {
	return f(ctx, item)
}

// Failover - терминальное действие над item, обработка которого окончательно не удалась
// (например, запись в отдельный топик). Ожидается идемпотентность.
type Failover[T any] interface {
	Failover(ctx context.Context, item T, cause error) error
}

// FailoverFunc - функция как Failover.
type FailoverFunc[T any] func(ctx context.Context, item T, cause error) error

func (f FailoverFunc[T]) Failover(ctx context.Context, item T, cause error) error {
	return f(ctx, item, cause)
}

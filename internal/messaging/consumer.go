// Пакет messaging: обобщённый конвейер потребления сообщений.
// Брокер, обработчик и failover подключаются через интерфейсы,
// Runner связывает подписку, poll, обработку и коммит оффсетов.
package messaging

import (
	"context"
	"sync"

	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

// Consumer - контракт pull-клиента брокера.
//
// Poll ждёт сообщение не дольше внутреннего таймаута; ok=false без ошибки
// означает "за отведённое время ничего не пришло".
// Subscribe идемпотентен для одного и того же набора топиков.
// Unsubscribe не возвращает ошибок (только логирует) и безопасен при повторном вызове.
// Commit подтверждает полную обработку item. AutoCommit сообщает, пишет ли Commit
// только локальную отметку (фоновой сброс) или сразу коммитит в брокер.
type Consumer[T any] interface {
	Poll(ctx context.Context) (item T, ok bool, err error)
	Subscribe(ctx context.Context, topics []string) (*SubscribeGuard, error)
	Unsubscribe()
	Commit(ctx context.Context, item T) error
	AutoCommit() bool
}

// Unsubscriber - то, что умеет снять подписку.
type Unsubscriber interface {
	Unsubscribe()
}

// SubscribeGuard владеет активной подпиской. Пока guard не освобождён,
// consumer подписан на топики, переданные при создании.
// Release снимает подписку ровно один раз.
type SubscribeGuard struct {
	consumer Unsubscriber
	topics   []string
	once     sync.Once
}

// NewSubscribeGuard - вызывается реализацией Consumer после успешной подписки.
func NewSubscribeGuard(consumer Unsubscriber, topics []string) *SubscribeGuard {
	metrics.ActiveSubscriptions.Inc()
	return &SubscribeGuard{
		consumer: consumer,
		topics:   append([]string(nil), topics...),
	}
}

// Topics возвращает копию набора топиков подписки.
func (g *SubscribeGuard) Topics() []string {
	return append([]string(nil), g.topics...)
}

// Release снимает подписку. Повторные вызовы ничего не делают.
func (g *SubscribeGuard) Release() {
	if g == nil {
		return
	}
	g.once.Do(func() {
		metrics.ActiveSubscriptions.Dec()
		g.consumer.Unsubscribe()
	})
}

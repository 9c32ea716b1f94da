package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/pkg/ctxmeta"
)

// ToDomain копирует сообщение kafka-go в доменную запись.
// При повторяющихся ключах заголовков остаётся последнее значение.
func ToDomain(msg kafka.Message) *domain.Message {
	out := &domain.Message{
		Topic:      msg.Topic,
		Partition:  msg.Partition,
		Offset:     msg.Offset,
		Key:        append([]byte(nil), msg.Key...),
		Value:      append([]byte(nil), msg.Value...),
		ProducedAt: msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

// DomainProcessor поднимает процессор доменных сообщений до процессора kafka.Message.
// ID сообщения кладётся в контекст (ctxmeta) для логов.
func DomainProcessor[O any](p messaging.Processor[*domain.Message, O]) messaging.Processor[kafka.Message, O] {
	return messaging.ProcessorFunc[kafka.Message, O](func(ctx context.Context, msg kafka.Message) (O, error) {
		dm := ToDomain(msg)
		return p.Process(ctxmeta.WithMessageID(ctx, dm.ID()), dm)
	})
}

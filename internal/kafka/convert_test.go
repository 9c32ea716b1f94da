package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/messaging"
	"github.com/Gunvolt24/kafka-runner/pkg/ctxmeta"
)

func TestToDomain(t *testing.T) {
	ts := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	src := kafka.Message{
		Topic: "events", Partition: 1, Offset: 7, Time: ts,
		Key: []byte("k"), Value: []byte("v"),
		Headers: []kafka.Header{{Key: "a", Value: []byte("1")}, {Key: "a", Value: []byte("2")}},
	}

	got := ToDomain(src)

	if got.ID() != "events/1/7" || !got.ProducedAt.Equal(ts) {
		t.Fatalf("unexpected coordinates: %+v", got)
	}
	if got.Headers["a"] != "2" {
		t.Fatalf("header a: want last value 2, got %q", got.Headers["a"])
	}

	// копия, а не ссылка на буфер kafka-go
	src.Value[0] = 'x'
	if string(got.Value) != "v" {
		t.Fatalf("value must be copied, got %q", got.Value)
	}
}

func TestDomainProcessor(t *testing.T) {
	inner := messaging.ProcessorFunc[*domain.Message, string](func(ctx context.Context, m *domain.Message) (string, error) {
		id, ok := ctxmeta.MessageIDFromContext(ctx)
		if !ok || id != m.ID() {
			return "", errors.New("message id missing in context")
		}
		return m.ID(), nil
	})

	out, err := DomainProcessor[string](inner).Process(context.Background(), kafka.Message{Topic: "t", Offset: 3})
	if err != nil || out != "t/0/3" {
		t.Fatalf("want t/0/3, got %q err=%v", out, err)
	}
}

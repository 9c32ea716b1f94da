//go:build integration

package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
)

func randHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func UniqSuffix() string { return randHex(6) }

// MakeMessage - доменное сообщение с уникальным JSON-значением.
func MakeMessage(topic string, partition int, offset int64, opts ...func(*domain.Message)) domain.Message {
	m := domain.Message{
		Topic:      topic,
		Partition:  partition,
		Offset:     offset,
		Key:        []byte("key-" + UniqSuffix()),
		Value:      MakePayload(),
		Headers:    map[string]string{"source": "itest"},
		ProducedAt: time.Now().UTC().Truncate(time.Millisecond),
		ArchivedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	for _, fn := range opts {
		fn(&m)
	}
	return m
}

// MakePayload - валидный JSON с уникальным id.
func MakePayload() []byte {
	raw, _ := json.Marshal(map[string]any{
		"id":      "evt-" + UniqSuffix(),
		"created": time.Now().UTC().Format(time.RFC3339),
	})
	return raw
}

func WithValue(v []byte) func(*domain.Message) {
	return func(m *domain.Message) { m.Value = v }
}

func WithoutKey() func(*domain.Message) {
	return func(m *domain.Message) { m.Key = nil }
}

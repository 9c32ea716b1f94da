package domain

import (
	"fmt"
	"time"
)

// Message - запись архива: одно сообщение из брокера вместе с координатами.
type Message struct {
	Topic     string            `json:"topic"`
	Partition int               `json:"partition"`
	Offset    int64             `json:"offset"`
	Key       []byte            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	// ProducedAt - время из сообщения, ArchivedAt - время записи в архив.
	ProducedAt time.Time `json:"produced_at"`
	ArchivedAt time.Time `json:"archived_at"`
}

// ID - ключ идемпотентности: topic/partition/offset.
func (m *Message) ID() string {
	return MessageID(m.Topic, m.Partition, m.Offset)
}

func MessageID(topic string, partition int, offset int64) string {
	return fmt.Sprintf("%s/%d/%d", topic, partition, offset)
}

// ArchiveResult - итог обработки одного сообщения.
type ArchiveResult struct {
	ID       string `json:"id"`
	Inserted bool   `json:"inserted"` // false - запись уже была в архиве
}

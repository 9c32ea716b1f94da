package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
)

// Record - сообщение в формате выгрузки архива (ответ GET /messages).
// value хранится как JSON-текст, id (если есть) должен совпадать с координатами.
type Record struct {
	ID         string            `json:"id,omitempty"`
	Topic      string            `json:"topic"`
	Partition  int               `json:"partition"`
	Offset     int64             `json:"offset"`
	Key        string            `json:"key,omitempty"`
	Value      json.RawMessage   `json:"value"`
	Headers    map[string]string `json:"headers,omitempty"`
	ProducedAt *time.Time        `json:"produced_at,omitempty"`
	ArchivedAt *time.Time        `json:"archived_at,omitempty"`
}

// Message переводит запись в доменное сообщение.
func (r Record) Message() (*domain.Message, error) {
	m := &domain.Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Headers:   r.Headers,
	}
	if r.Key != "" {
		m.Key = []byte(r.Key)
	}
	if len(r.Value) > 0 {
		var compact bytes.Buffer
		if err := json.Compact(&compact, r.Value); err != nil {
			return nil, fmt.Errorf("%w: value: %v", ErrInvalidPayload, err)
		}
		m.Value = compact.Bytes()
	}
	if r.ProducedAt != nil {
		m.ProducedAt = *r.ProducedAt
	}
	if r.ArchivedAt != nil {
		m.ArchivedAt = *r.ArchivedAt
	}
	if r.ID != "" && r.ID != m.ID() {
		return nil, fmt.Errorf("%w: id %q не совпадает с координатами %s", ErrInvalidPayload, r.ID, m.ID())
	}
	return m, nil
}

// DecodeRecord - ровно один JSON-объект записи. Неизвестные поля и данные
// после объекта - ErrInvalidPayload.
func DecodeRecord(raw []byte) (*domain.Message, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: record: %v", ErrInvalidPayload, err)
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return nil, fmt.Errorf("%w: record: trailing data", ErrInvalidPayload)
	}
	return r.Message()
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
	"github.com/Gunvolt24/kafka-runner/internal/ports"
)

// Проверка, что MessageRepository удовлетворяет интерфейсу порта.
var _ ports.MessageRepository = (*MessageRepository)(nil)

// MessageRepository - архив сообщений на Postgres (pgxpool).
type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Save - идемпотентная вставка по (topic, partition, offset).
// Повторная запись того же сообщения ничего не меняет и возвращает inserted=false.
func (r *MessageRepository) Save(ctx context.Context, msg *domain.Message) (bool, error) {
	if msg == nil || msg.Topic == "" {
		return false, errors.New("message is empty or topic is required")
	}

	headers := msg.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	var producedAt *time.Time
	if !msg.ProducedAt.IsZero() {
		t := msg.ProducedAt.UTC()
		producedAt = &t
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO archived_messages (
			topic, partition_id, msg_offset, msg_key, msg_value, headers, produced_at, archived_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (topic, partition_id, msg_offset) DO NOTHING
	`,
		msg.Topic, msg.Partition, msg.Offset, msg.Key, msg.Value, headers, producedAt, msg.ArchivedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert message %s: %w", msg.ID(), err)
	}
	return tag.RowsAffected() == 1, nil
}

// Get - запись по координатам. Если не нашли, возвращает (nil, nil).
func (r *MessageRepository) Get(ctx context.Context, topic string, partition int, offset int64) (*domain.Message, error) {
	var (
		m          domain.Message
		producedAt *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT topic, partition_id, msg_offset, msg_key, msg_value, headers, produced_at, archived_at
		FROM archived_messages
		WHERE topic = $1 AND partition_id = $2 AND msg_offset = $3
	`, topic, partition, offset).Scan(
		&m.Topic, &m.Partition, &m.Offset, &m.Key, &m.Value, &m.Headers, &producedAt, &m.ArchivedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select message %s: %w", domain.MessageID(topic, partition, offset), err)
	}
	if producedAt != nil {
		m.ProducedAt = *producedAt
	}
	return &m, nil
}

// List - страница записей топика. Пустой топик даёт пустой срез без ошибки.
func (r *MessageRepository) List(ctx context.Context, topic string, limit, offset int) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT topic, partition_id, msg_offset, msg_key, msg_value, headers, produced_at, archived_at
		FROM archived_messages
		WHERE topic = $1
		ORDER BY partition_id, msg_offset
		LIMIT $2 OFFSET $3
	`, topic, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages topic=%s: %w", topic, err)
	}
	defer rows.Close()

	out := []*domain.Message{}
	for rows.Next() {
		var (
			m          domain.Message
			producedAt *time.Time
		)
		if err := rows.Scan(
			&m.Topic, &m.Partition, &m.Offset, &m.Key, &m.Value, &m.Headers, &producedAt, &m.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message topic=%s: %w", topic, err)
		}
		if producedAt != nil {
			m.ProducedAt = *producedAt
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages topic=%s: %w", topic, err)
	}
	return out, nil
}

// Count - число записей топика.
func (r *MessageRepository) Count(ctx context.Context, topic string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM archived_messages WHERE topic = $1`, topic).Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages topic=%s: %w", topic, err)
	}
	return n, nil
}

func (r *MessageRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

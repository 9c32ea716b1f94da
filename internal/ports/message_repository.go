package ports

import (
	"context"

	"github.com/Gunvolt24/kafka-runner/internal/domain"
)

type MessageRepository interface {
	// Save сохраняет сообщение; inserted=false, если запись с таким ID уже есть.
	Save(ctx context.Context, msg *domain.Message) (inserted bool, err error)
	Get(ctx context.Context, topic string, partition int, offset int64) (*domain.Message, error)
	// List - страница записей топика по возрастанию (partition, offset).
	List(ctx context.Context, topic string, limit, offset int) ([]*domain.Message, error)
	Count(ctx context.Context, topic string) (int64, error)
	Ping(ctx context.Context) error
}

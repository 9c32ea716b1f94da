package ports

import "context"

// ArchiveCache - память о недавно заархивированных координатах topic/partition/offset.
// Реализация потокобезопасна; промах не означает, что сообщения нет в архиве.
type ArchiveCache interface {
	// Seen - true, если сообщение с этими координатами недавно заархивировано.
	Seen(ctx context.Context, topic string, partition int, offset int64) bool

	// Remember - отметить координаты как заархивированные.
	Remember(ctx context.Context, topic string, partition int, offset int64)
}

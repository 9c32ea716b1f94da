package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/Gunvolt24/kafka-runner/internal/ports"
	"github.com/Gunvolt24/kafka-runner/pkg/metrics"
)

var _ ports.ArchiveCache = (*OffsetWindow)(nil)

type partitionKey struct {
	topic     string
	partition int
}

type seenAt struct {
	at   time.Time
	slot int
}

// window - последние оффсеты одной партиции в порядке записи (кольцо).
type window struct {
	key  partitionKey
	ring []int64
	used int
	next int
	seen map[int64]seenAt
}

// OffsetWindow помнит последние заархивированные оффсеты каждой партиции.
// Повторная доставка после ребаланса или рестарта приходит с недавних оффсетов,
// поэтому на партицию хранится окно фиксированного размера. Число партиций
// ограничено, вытесняется давно не использованная.
type OffsetWindow struct {
	size          int
	maxPartitions int
	ttl           time.Duration
	now           func() time.Time

	mu    sync.Mutex
	lru   *list.List // *window, спереди - недавно использованные
	index map[partitionKey]*list.Element
	total int
}

// NewOffsetWindow: size - оффсетов на партицию, maxPartitions - партиций всего
// (<= 0 трактуются как 1); ttl <= 0 - без истечения.
func NewOffsetWindow(size, maxPartitions int, ttl time.Duration) *OffsetWindow {
	if size <= 0 {
		size = 1
	}
	if maxPartitions <= 0 {
		maxPartitions = 1
	}
	return &OffsetWindow{
		size:          size,
		maxPartitions: maxPartitions,
		ttl:           ttl,
		now:           time.Now,
		lru:           list.New(),
		index:         make(map[partitionKey]*list.Element),
	}
}

func (c *OffsetWindow) Seen(_ context.Context, topic string, partition int, offset int64) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[partitionKey{topic, partition}]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return false
	}
	w := elem.Value.(*window)
	s, ok := w.seen[offset]
	if !ok {
		metrics.CacheOps.WithLabelValues("miss").Inc()
		return false
	}
	if c.ttl > 0 && now.Sub(s.at) > c.ttl {
		delete(w.seen, offset)
		c.setTotal(c.total - 1)
		metrics.CacheOps.WithLabelValues("expired").Inc()
		return false
	}

	c.lru.MoveToFront(elem)
	metrics.CacheOps.WithLabelValues("hit").Inc()
	return true
}

func (c *OffsetWindow) Remember(_ context.Context, topic string, partition int, offset int64) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	w := c.windowFor(partitionKey{topic, partition})
	if s, ok := w.seen[offset]; ok {
		w.seen[offset] = seenAt{at: now, slot: s.slot}
		return
	}

	slot := w.next
	if w.used == len(w.ring) {
		// окно заполнено: затираем самый старый оффсет, если слот всё ещё его
		old := w.ring[slot]
		if s, ok := w.seen[old]; ok && s.slot == slot {
			delete(w.seen, old)
			c.setTotal(c.total - 1)
			metrics.CacheOps.WithLabelValues("evicted").Inc()
		}
	} else {
		w.used++
	}
	w.ring[slot] = offset
	w.next = (slot + 1) % len(w.ring)
	w.seen[offset] = seenAt{at: now, slot: slot}
	c.setTotal(c.total + 1)
}

// Len - число оффсетов, которые кэш сейчас помнит.
func (c *OffsetWindow) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// windowFor - окно партиции (создаётся при необходимости) переезжает в начало LRU.
func (c *OffsetWindow) windowFor(key partitionKey) *window {
	if elem, ok := c.index[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*window)
	}

	if c.lru.Len() >= c.maxPartitions {
		if back := c.lru.Back(); back != nil {
			old := back.Value.(*window)
			c.lru.Remove(back)
			delete(c.index, old.key)
			c.setTotal(c.total - len(old.seen))
			metrics.CacheOps.WithLabelValues("evicted").Add(float64(len(old.seen)))
		}
	}

	w := &window{
		key:  key,
		ring: make([]int64, c.size),
		seen: make(map[int64]seenAt, c.size),
	}
	c.index[key] = c.lru.PushFront(w)
	return w
}

func (c *OffsetWindow) setTotal(n int) {
	c.total = n
	metrics.CacheSize.Set(float64(n))
}

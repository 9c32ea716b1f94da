package memory

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newWindow(size, partitions int, ttl time.Duration) (*OffsetWindow, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewOffsetWindow(size, partitions, ttl)
	c.now = clk.now
	return c, clk
}

func TestSeen_RememberedOnlyForSameCoordinates(t *testing.T) {
	ctx := context.Background()
	c, _ := newWindow(4, 4, 0)

	c.Remember(ctx, "events", 0, 10)

	if !c.Seen(ctx, "events", 0, 10) {
		t.Fatalf("expected hit for remembered offset")
	}
	for _, miss := range []struct {
		topic     string
		partition int
		offset    int64
	}{
		{"events", 0, 11},
		{"events", 1, 10},
		{"other", 0, 10},
	} {
		if c.Seen(ctx, miss.topic, miss.partition, miss.offset) {
			t.Fatalf("unexpected hit for %+v", miss)
		}
	}
}

// Окно партиции хранит последние size оффсетов, старейший вытесняется.
func TestRemember_WindowSlides(t *testing.T) {
	ctx := context.Background()
	c, _ := newWindow(3, 1, 0)

	for off := int64(1); off <= 5; off++ {
		c.Remember(ctx, "events", 0, off)
	}

	for _, off := range []int64{1, 2} {
		if c.Seen(ctx, "events", 0, off) {
			t.Fatalf("offset %d must have slid out of the window", off)
		}
	}
	for _, off := range []int64{3, 4, 5} {
		if !c.Seen(ctx, "events", 0, off) {
			t.Fatalf("offset %d must stay in the window", off)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("want 3 offsets tracked, got %d", c.Len())
	}
}

// Повторный Remember не занимает новый слот окна.
func TestRemember_RepeatDoesNotGrow(t *testing.T) {
	ctx := context.Background()
	c, _ := newWindow(2, 1, 0)

	c.Remember(ctx, "events", 0, 1)
	c.Remember(ctx, "events", 0, 2)
	c.Remember(ctx, "events", 0, 2)
	c.Remember(ctx, "events", 0, 2)

	if !c.Seen(ctx, "events", 0, 1) || !c.Seen(ctx, "events", 0, 2) {
		t.Fatalf("repeat remember must not evict older offsets")
	}
	if c.Len() != 2 {
		t.Fatalf("want 2, got %d", c.Len())
	}
}

func TestSeen_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, clk := newWindow(4, 1, time.Minute)

	c.Remember(ctx, "events", 0, 7)
	clk.advance(59 * time.Second)
	if !c.Seen(ctx, "events", 0, 7) {
		t.Fatalf("expected hit before TTL")
	}

	clk.advance(2 * time.Second)
	if c.Seen(ctx, "events", 0, 7) {
		t.Fatalf("expected miss after TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired offset must be dropped, len=%d", c.Len())
	}
}

// Remember продлевает TTL уже известного оффсета.
func TestRemember_RefreshesTTL(t *testing.T) {
	ctx := context.Background()
	c, clk := newWindow(4, 1, time.Minute)

	c.Remember(ctx, "events", 0, 7)
	clk.advance(50 * time.Second)
	c.Remember(ctx, "events", 0, 7)
	clk.advance(50 * time.Second)

	if !c.Seen(ctx, "events", 0, 7) {
		t.Fatalf("refreshed offset must still be cached")
	}
}

// Истёкший и заново запомненный оффсет не теряется, когда затирается его старый слот.
func TestRemember_AfterExpiry_OldSlotDoesNotDropIt(t *testing.T) {
	ctx := context.Background()
	c, clk := newWindow(2, 1, time.Minute)

	c.Remember(ctx, "events", 0, 1) // слот 0
	clk.advance(2 * time.Minute)
	if c.Seen(ctx, "events", 0, 1) {
		t.Fatalf("expected expiry")
	}

	c.Remember(ctx, "events", 0, 1) // слот 1
	c.Remember(ctx, "events", 0, 2) // слот 0, там старая запись offset=1

	if !c.Seen(ctx, "events", 0, 1) || !c.Seen(ctx, "events", 0, 2) {
		t.Fatalf("both offsets must be cached")
	}
	if c.Len() != 2 {
		t.Fatalf("want 2, got %d", c.Len())
	}
}

// При переполнении по партициям вытесняется давно не использованная.
func TestRemember_PartitionLRU(t *testing.T) {
	ctx := context.Background()
	c, _ := newWindow(4, 2, 0)

	c.Remember(ctx, "events", 0, 1)
	c.Remember(ctx, "events", 1, 1)
	c.Remember(ctx, "events", 1, 2)

	if !c.Seen(ctx, "events", 0, 1) { // партиция 0 становится свежей
		t.Fatalf("expected hit for partition 0")
	}
	c.Remember(ctx, "events", 2, 1) // вытесняет партицию 1

	if c.Seen(ctx, "events", 1, 1) || c.Seen(ctx, "events", 1, 2) {
		t.Fatalf("partition 1 must be evicted")
	}
	if !c.Seen(ctx, "events", 0, 1) || !c.Seen(ctx, "events", 2, 1) {
		t.Fatalf("partitions 0 and 2 must stay")
	}
	if c.Len() != 2 {
		t.Fatalf("want 2 offsets tracked, got %d", c.Len())
	}
}

func TestNewOffsetWindow_NonPositiveSizes(t *testing.T) {
	ctx := context.Background()
	c := NewOffsetWindow(0, -1, 0)

	c.Remember(ctx, "a", 0, 1)
	c.Remember(ctx, "a", 0, 2)
	c.Remember(ctx, "b", 0, 1)

	if c.Seen(ctx, "a", 0, 2) || !c.Seen(ctx, "b", 0, 1) || c.Len() != 1 {
		t.Fatalf("want single partition with single offset, len=%d", c.Len())
	}
}

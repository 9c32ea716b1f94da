package messaging

import (
	"context"
	"sync"
	"time"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

// fakeConsumer - in-memory Consumer[int].
// Сначала отдаёт pollErrs, затем items; на пустой очереди вызывает onEmpty.
type fakeConsumer struct {
	mu sync.Mutex

	items        []int
	pollErrs     []error
	subscribeErr error
	commitErr    error
	onEmpty      func()

	subscribed   [][]string
	polls        int
	commits      []int
	unsubscribes int
}

func (f *fakeConsumer) Poll(ctx context.Context) (int, bool, error) {
	f.mu.Lock()
	f.polls++
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		f.mu.Unlock()
		return 0, false, err
	}
	if len(f.items) > 0 {
		it := f.items[0]
		f.items = f.items[1:]
		f.mu.Unlock()
		return it, true, nil
	}
	onEmpty := f.onEmpty
	f.mu.Unlock()

	if onEmpty != nil {
		onEmpty()
		return 0, false, nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Millisecond):
	}
	return 0, false, nil
}

func (f *fakeConsumer) Subscribe(_ context.Context, topics []string) (*SubscribeGuard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscribed = append(f.subscribed, topics)
	return NewSubscribeGuard(f, topics), nil
}

func (f *fakeConsumer) Unsubscribe() {
	f.mu.Lock()
	f.unsubscribes++
	f.mu.Unlock()
}

func (f *fakeConsumer) Commit(_ context.Context, item int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.commits = append(f.commits, item)
	return nil
}

func (f *fakeConsumer) AutoCommit() bool { return false }

func (f *fakeConsumer) stats() (polls int, commits []int, unsubscribes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls, append([]int(nil), f.commits...), f.unsubscribes
}

// flakyProcessor падает первые failures вызовов, затем возвращает item*10.
type flakyProcessor struct {
	mu       sync.Mutex
	failures int
	calls    int
	errs     []error
}

func (p *flakyProcessor) Process(_ context.Context, item int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.calls <= p.failures {
		err := &attemptError{n: p.calls}
		p.errs = append(p.errs, err)
		return 0, err
	}
	return item * 10, nil
}

func (p *flakyProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type attemptError struct{ n int }

func (e *attemptError) Error() string { return "attempt failed" }

// recordSleep подменяет ожидание в RetriableProcessor и запоминает задержки.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) bool {
	return func(_ context.Context, d time.Duration) bool {
		*delays = append(*delays, d)
		return true
	}
}

package messaging

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity() Processor[int, int] {
	return ProcessorFunc[int, int](func(_ context.Context, item int) (int, error) { return item, nil })
}

// runAsync запускает Runner.Run в отдельной горутине и возвращает канал с ошибкой.
func runAsync[O any](ctx context.Context, r *Runner[int, O], topics []string) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx, topics) }()
	return errCh
}

func waitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for Run to stop")
		return nil
	}
}

// Каждый успешно обработанный item коммитится, порядок сохраняется.
func TestRunner_CommitsSuccessfulItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeConsumer{items: []int{1, 2, 3}, onEmpty: cancel}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	err := r.Run(ctx, []string{"events"})

	require.NoError(t, err)
	_, commits, unsubscribes := c.stats()
	assert.Equal(t, []int{1, 2, 3}, commits)
	assert.Equal(t, 1, unsubscribes)
	assert.Equal(t, [][]string{{"events"}}, c.subscribed)
	assert.False(t, r.Subscribed())
}

func TestRunner_SubscribeError(t *testing.T) {
	denied := errors.New("denied")
	c := &fakeConsumer{subscribeErr: denied}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	err := r.Run(context.Background(), []string{"events"})

	var re *RunnerError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OriginConsumer, re.Origin)
	assert.Equal(t, "subscribe", re.Op)
	assert.ErrorIs(t, err, denied)
	assert.True(t, IsConsumerError(err))

	polls, _, unsubscribes := c.stats()
	assert.Zero(t, polls)
	assert.Zero(t, unsubscribes)
}

// Ошибка обработки завершает цикл без коммита и с отпиской.
func TestRunner_ProcessError_NoCommit(t *testing.T) {
	boom := errors.New("boom")
	c := &fakeConsumer{items: []int{1, 2, 3}}
	proc := ProcessorFunc[int, int](func(_ context.Context, item int) (int, error) {
		if item == 2 {
			return 0, boom
		}
		return item, nil
	})
	r := NewRunner[int, int](c, proc, nopLogger{})

	err := r.Run(context.Background(), []string{"events"})

	var re *RunnerError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OriginProcessor, re.Origin)
	assert.Equal(t, "process", re.Op)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsProcessorError(err))
	assert.False(t, IsConsumerError(err))

	polls, commits, unsubscribes := c.stats()
	assert.Equal(t, 2, polls)
	assert.Equal(t, []int{1}, commits)
	assert.Equal(t, 1, unsubscribes)
}

func TestRunner_CommitError(t *testing.T) {
	rejected := errors.New("rejected")
	c := &fakeConsumer{items: []int{1}, commitErr: rejected}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	err := r.Run(context.Background(), []string{"events"})

	var re *RunnerError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, OriginConsumer, re.Origin)
	assert.Equal(t, "commit", re.Op)
	assert.ErrorIs(t, err, rejected)

	_, _, unsubscribes := c.stats()
	assert.Equal(t, 1, unsubscribes)
}

// Ошибки poll временные: цикл продолжается.
func TestRunner_PollErrorsAreTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeConsumer{
		pollErrs: []error{errors.New("broker gone"), errors.New("rebalance")},
		items:    []int{5},
		onEmpty:  cancel,
	}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	err := r.Run(ctx, []string{"events"})

	require.NoError(t, err)
	polls, commits, _ := c.stats()
	assert.Equal(t, 4, polls)
	assert.Equal(t, []int{5}, commits)
}

// downConsumer - Poll всегда возвращает ошибку без ожидания.
type downConsumer struct {
	fakeConsumer
	polls atomic.Int64
}

func (d *downConsumer) Poll(context.Context) (int, bool, error) {
	d.polls.Add(1)
	return 0, false, errors.New("broker down")
}

// Постоянная ошибка poll не крутит цикл вхолостую: между попытками пауза.
func TestRunner_PersistentPollError_BacksOff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := &downConsumer{}
	r := NewRunner[int, int](c, identity(), nopLogger{}, WithPollBackoff(Delays(10*time.Millisecond)))

	require.NoError(t, r.Run(ctx, []string{"events"}))
	assert.LessOrEqual(t, c.polls.Load(), int64(12))
	assert.GreaterOrEqual(t, c.polls.Load(), int64(2))
}

// Пауза после ошибки poll прерывается отменой.
func TestRunner_PollBackoff_CancelledPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &downConsumer{}
	r := NewRunner[int, int](c, identity(), nopLogger{}, WithPollBackoff(Delays(time.Hour)))

	errCh := runAsync(ctx, r, []string{"events"})
	require.Eventually(t, func() bool { return c.polls.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, waitErr(t, errCh))
	assert.Equal(t, int64(1), c.polls.Load())
	_, _, unsubscribes := c.stats()
	assert.Equal(t, 1, unsubscribes)
}

// scriptConsumer отдаёт результаты poll по сценарию: nil - item, иначе ошибка.
// После сценария ведёт себя как fakeConsumer.
type scriptConsumer struct {
	fakeConsumer
	steps []error
	next  int
}

func (s *scriptConsumer) Poll(ctx context.Context) (int, bool, error) {
	if s.next < len(s.steps) {
		err := s.steps[s.next]
		s.next++
		if err != nil {
			return 0, false, err
		}
		return s.next, true, nil
	}
	return s.fakeConsumer.Poll(ctx)
}

// Задержки берутся по порядку, исчерпанная последовательность начинается заново,
// успешный poll сбрасывает её.
func TestRunner_PollBackoff_SequenceRestartsAndResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := errors.New("rebalance")
	c := &scriptConsumer{steps: []error{e, e, e, e, nil, e, e}}
	c.onEmpty = cancel
	r := NewRunner[int, int](c, identity(), nopLogger{},
		WithPollBackoff(Delays(time.Millisecond, 2*time.Millisecond, 3*time.Millisecond)))
	var slept []time.Duration
	r.sleep = recordSleep(&slept)

	require.NoError(t, r.Run(ctx, []string{"events"}))
	assert.Equal(t, []time.Duration{
		time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, time.Millisecond,
		time.Millisecond, 2 * time.Millisecond,
	}, slept)
	_, commits, _ := c.stats()
	assert.Equal(t, []int{5}, commits)
}

// Отмена до первой итерации: ни одного poll, подписка снята.
func TestRunner_CancelledBeforeLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &fakeConsumer{items: []int{1}}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	err := r.Run(ctx, []string{"events"})

	require.NoError(t, err)
	polls, commits, unsubscribes := c.stats()
	assert.Zero(t, polls)
	assert.Empty(t, commits)
	assert.Equal(t, 1, unsubscribes)
}

// Отмена во время обработки не прерывает текущий item: он коммитится,
// следующего poll нет.
func TestRunner_CancelDuringProcessing_FinishesInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeConsumer{items: []int{1, 2}}
	var procCtxErr error
	proc := ProcessorFunc[int, int](func(pctx context.Context, item int) (int, error) {
		cancel()
		procCtxErr = pctx.Err()
		return item, nil
	})
	r := NewRunner[int, int](c, proc, nopLogger{})

	err := r.Run(ctx, []string{"events"})

	require.NoError(t, err)
	assert.NoError(t, procCtxErr)
	polls, commits, unsubscribes := c.stats()
	assert.Equal(t, 1, polls)
	assert.Equal(t, []int{1}, commits)
	assert.Equal(t, 1, unsubscribes)
}

// Отмена, пока Runner ждёт в poll.
func TestRunner_CancelWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &fakeConsumer{}
	r := NewRunner[int, int](c, identity(), nopLogger{})

	errCh := runAsync(ctx, r, []string{"events"})
	require.Eventually(t, r.Subscribed, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, waitErr(t, errCh))

	_, commits, unsubscribes := c.stats()
	assert.Empty(t, commits)
	assert.Equal(t, 1, unsubscribes)
	assert.False(t, r.Subscribed())
}

// Сквозной сценарий: одна неудача, повтор через 1s, один коммит.
func TestRunner_RetryThenCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &fakeConsumer{items: []int{1}, onEmpty: cancel}
	inner := &flakyProcessor{failures: 1}
	retry := NewRetriableProcessor[int, int](inner, Delays(time.Second), nopLogger{})
	r := NewRunner[int, int](c, retry, nopLogger{})

	start := time.Now()
	err := r.Run(ctx, []string{"events"})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Equal(t, 2, inner.Calls())
	_, commits, _ := c.stats()
	assert.Equal(t, []int{1}, commits)
}

func TestRunner_AlwaysFailing_ProcessorError(t *testing.T) {
	c := &fakeConsumer{items: []int{1}}
	inner := &flakyProcessor{failures: 100}
	retry := NewRetriableProcessor[int, int](inner, Delays(time.Millisecond, time.Millisecond), nopLogger{})
	r := NewRunner[int, int](c, retry, nopLogger{})

	err := r.Run(context.Background(), []string{"events"})

	require.True(t, IsProcessorError(err))
	var re *RetryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, re.Attempts)

	_, commits, unsubscribes := c.stats()
	assert.Empty(t, commits)
	assert.Equal(t, 1, unsubscribes)
}

// Успешный failover всё равно останавливает Runner без коммита.
func TestRunner_FailoverHandled_StopsWithoutCommit(t *testing.T) {
	boom := errors.New("boom")
	c := &fakeConsumer{items: []int{9}}
	proc := ProcessorFunc[int, int](func(context.Context, int) (int, error) { return 0, boom })
	fo := &recordingFailover{}
	r := NewRunner[int, int](c, NewFailoverProcessor[int, int](proc, fo, nopLogger{}), nopLogger{})

	err := r.Run(context.Background(), []string{"events"})

	require.True(t, IsProcessorError(err))
	var fe *FailoverError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FailoverHandled, fe.Kind)
	assert.ErrorIs(t, err, boom)

	require.Len(t, fo.calls, 1)
	assert.Equal(t, 9, fo.calls[0].item)
	assert.Same(t, boom, fo.calls[0].cause)

	_, commits, unsubscribes := c.stats()
	assert.Empty(t, commits)
	assert.Equal(t, 1, unsubscribes)
}

func TestRunnerError_Message(t *testing.T) {
	err := &RunnerError{Origin: OriginConsumer, Op: "commit", Err: errors.New("x")}
	assert.Equal(t, "runner: consumer: commit: x", err.Error())
	assert.Equal(t, "unknown", ErrorOrigin(0).String())
}

package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/zkbot/pkg/runner"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeMaker struct {
	mu     sync.Mutex
	clock  *clock
	each   time.Duration
	failOn map[int]bool // 1-based call numbers that fail
	gate   chan struct{}
	calls  []string
}

func (m *fakeMaker) BuildAndRun(key string) runner.Outcome {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	m.calls = append(m.calls, key)
	n := len(m.calls)
	m.mu.Unlock()
	if m.clock != nil {
		m.clock.Advance(m.each)
	}
	if m.failOn[n] {
		return runner.Outcome{Program: "drink_" + key, Status: runner.StatusFailed, Stage: runner.StageStep, Step: 4, Err: errors.New("write: device disconnected")}
	}
	return runner.Outcome{Program: "drink_" + key, Status: runner.StatusCompleted}
}

func (m *fakeMaker) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type memJournal struct {
	mu      sync.Mutex
	created []Order
	history map[int64][]Status
}

func (j *memJournal) CreateOrder(o Order) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.created = append(j.created, o)
	id := int64(100 + len(j.created))
	if j.history == nil {
		j.history = map[int64][]Status{}
	}
	j.history[id] = []Status{o.Status}
	return id, nil
}

func (j *memJournal) UpdateStatus(id int64, status Status, _ string, _ time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.history[id] = append(j.history[id], status)
	return nil
}

func (j *memJournal) History(id int64) []Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Status(nil), j.history[id]...)
}

func testMenu(t *testing.T) *Menu {
	m, err := ParseMenu([]byte(`
drinks:
  - key: mango
    label: Badham Juice
    price: 80
  - key: orange
    label: Grape Juice
    price: 70
  - key: lime
    price: 60
    enabled: false
`))
	require.NoError(t, err)
	return m
}

func runQueue(t *testing.T, q *Queue) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()
	return func() {
		stop()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("queue did not stop")
		}
	}
}

func waitFor(t *testing.T, ch <-chan Order) Order {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for order")
		return Order{}
	}
}

func TestQueue_SubmitValidation(t *testing.T) {
	q := NewQueue(&fakeMaker{}, WithMenu(testMenu(t)))

	_, err := q.Submit("kiwi", "", 1)
	assert.ErrorIs(t, err, ErrUnknownDrink)
	_, err = q.Submit("lime", "", 1)
	assert.ErrorIs(t, err, ErrDrinkDisabled)
	_, err = q.Submit("mango", "", 0)
	assert.ErrorIs(t, err, ErrQuantity)

	id, err := q.Submit("mango", "", 2)
	require.NoError(t, err)
	snap := q.Snapshot()
	require.Len(t, snap.Pending, 1)
	assert.Equal(t, id, snap.Pending[0].ID)
	assert.Equal(t, "Guest", snap.Pending[0].Customer)
	assert.Equal(t, 160.0, snap.Pending[0].Total())
	assert.Equal(t, StatusPending, snap.Pending[0].Status)
}

func TestQueue_PositionWaitCancel(t *testing.T) {
	q := NewQueue(&fakeMaker{})
	a, _ := q.Submit("mango", "ann", 2)
	b, _ := q.Submit("orange", "bob", 1)
	c, _ := q.Submit("mango", "cat", 1)

	assert.Equal(t, 1, q.Position(a))
	assert.Equal(t, 3, q.Position(c))
	assert.Equal(t, -1, q.Position(999))

	assert.Equal(t, time.Duration(0), q.EstimatedWait(a))
	assert.Equal(t, 2*DefaultPrepTime, q.EstimatedWait(b))
	assert.Equal(t, 3*DefaultPrepTime, q.EstimatedWait(c))
	assert.Equal(t, time.Duration(0), q.EstimatedWait(999))

	assert.True(t, q.Cancel(b))
	assert.False(t, q.Cancel(b))
	assert.Equal(t, 2, q.Position(c))
	assert.Equal(t, 2, q.Len())

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_RunMakesOrdersInOrder(t *testing.T) {
	clk := newClock()
	maker := &fakeMaker{clock: clk, each: 30 * time.Second}
	journal := &memJournal{}
	completed := make(chan Order, 4)
	q := NewQueue(maker,
		WithJournal(journal),
		WithClock(clk.Now),
		WithHooks(Hooks{OnComplete: func(o Order) { completed <- o }}),
	)

	a, err := q.Submit("mango", "ann", 2)
	require.NoError(t, err)
	b, err := q.Submit("orange", "bob", 1)
	require.NoError(t, err)

	stop := runQueue(t, q)
	defer stop()

	first := waitFor(t, completed)
	assert.Equal(t, a, first.ID)
	assert.Equal(t, StatusCompleted, first.Status)
	assert.Equal(t, time.Minute, first.Duration())
	second := waitFor(t, completed)
	assert.Equal(t, b, second.ID)

	assert.Equal(t, []string{"mango", "mango", "orange"}, maker.Calls())
	assert.Equal(t, []Status{StatusPending, StatusInProgress, StatusCompleted}, journal.History(a))

	// 60s seed, then two 30s drinks: 0.8*60+0.2*30 = 54, 0.8*54+0.2*30 = 49.2
	assert.InDelta(t, 49.2, q.Snapshot().PrepTime.Seconds(), 0.001)
}

func TestQueue_FailureStopsOrder(t *testing.T) {
	maker := &fakeMaker{failOn: map[int]bool{2: true}}
	journal := &memJournal{}
	failed := make(chan Order, 1)
	completed := make(chan Order, 1)
	q := NewQueue(maker, WithJournal(journal), WithHooks(Hooks{
		OnFailed:   func(o Order) { failed <- o },
		OnComplete: func(o Order) { completed <- o },
	}))

	a, _ := q.Submit("mango", "", 3)
	b, _ := q.Submit("orange", "", 1)

	stop := runQueue(t, q)
	defer stop()

	o := waitFor(t, failed)
	assert.Equal(t, a, o.ID)
	assert.Equal(t, StatusFailed, o.Status)
	assert.Contains(t, o.Error, "step-4")
	assert.Contains(t, o.Error, "device disconnected")

	next := waitFor(t, completed)
	assert.Equal(t, b, next.ID)
	assert.Equal(t, []string{"mango", "mango", "orange"}, maker.Calls())
	assert.Equal(t, []Status{StatusPending, StatusInProgress, StatusFailed}, journal.History(a))
	assert.Equal(t, DefaultPrepTime, q.Snapshot().PrepTime, "failed orders do not move the estimate")
}

func TestQueue_PauseResume(t *testing.T) {
	maker := &fakeMaker{}
	completed := make(chan Order, 1)
	q := NewQueue(maker, WithHooks(Hooks{OnComplete: func(o Order) { completed <- o }}))
	q.Pause()

	stop := runQueue(t, q)
	defer stop()

	id, _ := q.Submit("mango", "", 1)
	select {
	case <-completed:
		t.Fatal("paused queue made a drink")
	case <-time.After(50 * time.Millisecond):
	}
	assert.True(t, q.Snapshot().Paused)
	assert.Equal(t, 1, q.Position(id))

	q.Resume()
	assert.Equal(t, id, waitFor(t, completed).ID)
}

func TestQueue_CannotCancelCurrent(t *testing.T) {
	maker := &fakeMaker{gate: make(chan struct{})}
	started := make(chan Order, 1)
	completed := make(chan Order, 1)
	q := NewQueue(maker, WithHooks(Hooks{
		OnStart:    func(o Order) { started <- o },
		OnComplete: func(o Order) { completed <- o },
	}))
	id, _ := q.Submit("mango", "", 1)
	other, _ := q.Submit("orange", "", 1)

	stop := runQueue(t, q)
	defer stop()

	waitFor(t, started)
	assert.False(t, q.Cancel(id))
	snap := q.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, id, snap.Current.ID)
	assert.Equal(t, StatusInProgress, snap.Current.Status)
	assert.Equal(t, DefaultPrepTime, q.EstimatedWait(other))

	close(maker.gate)
	assert.Equal(t, id, waitFor(t, completed).ID)
}

func TestQueue_StopFinishesCurrentDrinkOnly(t *testing.T) {
	maker := &fakeMaker{gate: make(chan struct{})}
	started := make(chan Order, 1)
	q := NewQueue(maker, WithHooks(Hooks{OnStart: func(o Order) { started <- o }}))
	id, _ := q.Submit("mango", "", 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	waitFor(t, started)
	cancel()
	close(maker.gate)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("queue did not stop")
	}
	assert.Equal(t, []string{"mango"}, maker.Calls())
	assert.Nil(t, q.Snapshot().Current)
	assert.Equal(t, -1, q.Position(id))
}

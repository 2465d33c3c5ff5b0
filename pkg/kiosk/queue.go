package kiosk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/runner"
)

// DefaultPrepTime seeds the per-drink preparation estimate.
const DefaultPrepTime = 60 * time.Second

var (
	// ErrUnknownDrink is returned when ordering a drink that is not on the menu.
	ErrUnknownDrink = errors.New("drink not on menu")
	// ErrDrinkDisabled is returned when ordering a drink that is switched off.
	ErrDrinkDisabled = errors.New("drink not available")
	// ErrQuantity is returned for orders of less than one drink.
	ErrQuantity = errors.New("quantity must be at least 1")
)

// Maker makes one drink and reports the run outcome.
type Maker interface {
	BuildAndRun(key string) runner.Outcome
}

// Hooks are called from the worker goroutine as orders move through the queue.
type Hooks struct {
	OnStart    func(Order)
	OnComplete func(Order)
	OnFailed   func(Order) // Order.Error says why
}

// Snapshot is a point-in-time view of the queue.
type Snapshot struct {
	Pending  []Order
	Current  *Order
	Paused   bool
	PrepTime time.Duration
}

// Queue holds pending orders and makes them one at a time from Run.
// Only one Run may be active; it is the sole caller of the maker.
type Queue struct {
	maker   Maker
	menu    *Menu
	journal Journal
	hooks   Hooks
	log     logrus.FieldLogger
	now     func() time.Time

	mu       sync.Mutex
	pending  []*Order
	current  *Order
	paused   bool
	prepTime time.Duration
	nextID   int64
	wake     chan struct{}
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithMenu restricts orders to available drinks on menu.
func WithMenu(m *Menu) QueueOption {
	return func(q *Queue) { q.menu = m }
}

// WithJournal records orders in j.
func WithJournal(j Journal) QueueOption {
	return func(q *Queue) { q.journal = j }
}

// WithHooks sets lifecycle callbacks.
func WithHooks(h Hooks) QueueOption {
	return func(q *Queue) { q.hooks = h }
}

// WithLogger sets the queue's logger.
func WithLogger(l logrus.FieldLogger) QueueOption {
	return func(q *Queue) { q.log = l }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) { q.now = now }
}

// NewQueue creates an empty queue feeding maker.
func NewQueue(maker Maker, opts ...QueueOption) *Queue {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	q := &Queue{
		maker:    maker,
		log:      discard,
		now:      time.Now,
		prepTime: DefaultPrepTime,
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Submit adds an order for quantity units of drink and returns its ID.
func (q *Queue) Submit(drink, customer string, quantity int) (int64, error) {
	if quantity < 1 {
		return 0, ErrQuantity
	}
	var price float64
	if q.menu != nil {
		d, ok := q.menu.Lookup(drink)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownDrink, drink)
		}
		if !d.Available() {
			return 0, fmt.Errorf("%w: %s", ErrDrinkDisabled, drink)
		}
		price = d.Price
	}
	if customer == "" {
		customer = "Guest"
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	o := &Order{
		DrinkKey:  drink,
		Customer:  customer,
		Quantity:  quantity,
		Price:     price,
		Status:    StatusPending,
		CreatedAt: q.now(),
	}
	if q.journal != nil {
		id, err := q.journal.CreateOrder(*o)
		if err != nil {
			return 0, fmt.Errorf("record order: %w", err)
		}
		o.ID = id
	} else {
		q.nextID++
		o.ID = q.nextID
	}
	q.pending = append(q.pending, o)
	q.log.WithFields(logrus.Fields{"order": o.ID, "drink": drink, "quantity": quantity}).Info("Order added")
	q.signal()
	return o.ID, nil
}

// Cancel removes a pending order. Orders already being made cannot be cancelled.
func (q *Queue) Cancel(id int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, o := range q.pending {
		if o.ID != id {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.record(o, StatusCancelled, "")
		q.log.WithField("order", id).Info("Order cancelled")
		return true
	}
	return false
}

// Clear cancels every pending order and returns how many were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	for _, o := range q.pending {
		q.record(o, StatusCancelled, "queue cleared")
	}
	q.pending = nil
	q.log.WithField("orders", n).Warn("Queue cleared")
	return n
}

// Position returns the 1-based position of a pending order, or -1.
func (q *Queue) Position(id int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.position(id)
}

func (q *Queue) position(id int64) int {
	for i, o := range q.pending {
		if o.ID == id {
			return i + 1
		}
	}
	return -1
}

// EstimatedWait estimates how long until a pending order starts: every
// drink ahead of it, including the one being made, at the running average
// preparation time. Unknown orders wait zero.
func (q *Queue) EstimatedWait(id int64) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos := q.position(id)
	if pos < 0 {
		return 0
	}
	drinks := 0
	for _, o := range q.pending[:pos-1] {
		drinks += o.Quantity
	}
	if q.current != nil {
		drinks += q.current.Quantity
	}
	return time.Duration(drinks) * q.prepTime
}

// Len returns the number of pending orders.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pause stops the worker from starting new orders. The current order finishes.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.log.Warn("Queue processing paused")
}

// Resume lets the worker start orders again.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.log.Info("Queue processing resumed")
	q.signal()
}

// Snapshot returns copies of the queue's orders and flags.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{Paused: q.paused, PrepTime: q.prepTime}
	for _, o := range q.pending {
		s.Pending = append(s.Pending, *o)
	}
	if q.current != nil {
		c := *q.current
		s.Current = &c
	}
	return s
}

// Run makes orders until ctx is cancelled. Cancellation never interrupts
// a drink being made; it only stops the next one from starting.
func (q *Queue) Run(ctx context.Context) error {
	q.log.Info("Queue processing started")
	for {
		o := q.next()
		if o == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				continue
			}
		}
		q.process(ctx, o)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (q *Queue) next() *Order {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.paused || len(q.pending) == 0 {
		return nil
	}
	o := q.pending[0]
	q.pending = q.pending[1:]
	o.StartedAt = q.now()
	q.current = o
	q.record(o, StatusInProgress, "")
	return o
}

func (q *Queue) process(ctx context.Context, o *Order) {
	log := q.log.WithFields(logrus.Fields{"order": o.ID, "drink": o.DrinkKey})
	log.Info("Processing order")
	if q.hooks.OnStart != nil {
		q.hooks.OnStart(*o)
	}

	status := StatusCompleted
	msg := ""
	made := 0
	for made < o.Quantity {
		if made > 0 && ctx.Err() != nil {
			status = StatusCancelled
			msg = fmt.Sprintf("queue stopped after %d of %d drinks", made, o.Quantity)
			break
		}
		out := q.maker.BuildAndRun(o.DrinkKey)
		if !out.OK() {
			status = StatusFailed
			msg = runner.Describe(out)
			break
		}
		made++
	}

	q.mu.Lock()
	o.CompletedAt = q.now()
	o.Error = msg
	q.record(o, status, msg)
	if status == StatusCompleted {
		q.updatePrepTime(o.Duration() / time.Duration(o.Quantity))
	}
	q.current = nil
	done := *o
	q.mu.Unlock()

	if status == StatusCompleted {
		log.WithField("duration", done.Duration()).Info("Order completed")
		if q.hooks.OnComplete != nil {
			q.hooks.OnComplete(done)
		}
		return
	}
	log.WithField("error", msg).Error("Order not completed")
	if q.hooks.OnFailed != nil {
		q.hooks.OnFailed(done)
	}
}

// updatePrepTime folds a new per-drink time into the running estimate.
func (q *Queue) updatePrepTime(d time.Duration) {
	if d <= 0 {
		return
	}
	q.prepTime = time.Duration(0.8*float64(q.prepTime) + 0.2*float64(d))
}

// record sets an order's status and journals it. Journal failures are logged;
// the queue keeps going.
func (q *Queue) record(o *Order, status Status, msg string) {
	o.Status = status
	if q.journal == nil {
		return
	}
	if err := q.journal.UpdateStatus(o.ID, status, msg, q.now()); err != nil {
		q.log.WithError(err).WithField("order", o.ID).Warn("Journal update failed")
	}
}

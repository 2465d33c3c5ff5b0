// Package runner executes motion programs against the arm transport.
package runner

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/robot"
)

// ErrBusy is reported when Run is called while another run holds the runner.
var ErrBusy = errors.New("runner busy")

// Transport is the exclusive connection frames are sent over.
type Transport interface {
	Open() error
	Send(f robot.Frame) ([]byte, error)
	Close() error
}

// State is the runner's position in a single execution.
type State int

const (
	Idle State = iota
	Opening
	Running
	Closing
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports progress through a run.
type Event struct {
	State State
	Step  int // 1-based, 0 outside Running
	Total int
	Frame robot.Frame
	Reply []byte
	Err   error
	Time  time.Time
}

// Runner sends a program's steps, in order, over a Transport.
type Runner struct {
	transport Transport
	sleep     func(time.Duration)
	log       logrus.FieldLogger

	mu     sync.RWMutex
	state  State
	busy   bool
	events chan Event
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSleep replaces the step delay wait, mainly for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithLogger sets the runner's logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = l }
}

// New creates a runner over t.
func New(t Transport, opts ...Option) *Runner {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Runner{
		transport: t,
		sleep:     time.Sleep,
		log:       discard,
		events:    make(chan Event, 16),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Events returns a channel that receives progress updates. Updates are
// dropped when the channel is full.
func (r *Runner) Events() <-chan Event {
	return r.events
}

// State returns the current state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Runner) emit(e Event) {
	e.Time = time.Now()
	select {
	case r.events <- e:
	default:
		// Drop if nobody is listening
	}
}

// Run executes p and blocks until every step has been sent and its delay
// honored, or until the first failure. Once the transport opens it is
// closed exactly once before Run returns. A run in progress cannot be
// interrupted: commanded motion cannot be taken back.
func (r *Runner) Run(p *robot.Program) Outcome {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return Outcome{Program: p.Name, Status: StatusFailed, Stage: StageOpen, Err: ErrBusy}
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	log := r.log.WithField("program", p.Name)
	out := Outcome{Program: p.Name, Total: len(p.Steps), Started: time.Now()}

	r.setState(Opening)
	r.emit(Event{State: Opening, Total: out.Total})
	if err := r.transport.Open(); err != nil {
		log.WithError(err).Error("Open failed")
		return r.finish(out.fail(StageOpen, 0, err))
	}
	log.WithField("steps", out.Total).Info("Run started")

	out = r.runSteps(p, out, log)
	return r.finish(out)
}

// runSteps sends every step; the deferred close runs even if sending panics.
func (r *Runner) runSteps(p *robot.Program, out Outcome, log logrus.FieldLogger) Outcome {
	defer func() {
		r.setState(Closing)
		r.emit(Event{State: Closing, Total: out.Total})
		if err := r.transport.Close(); err != nil {
			log.WithError(err).Warn("Close failed")
		}
	}()

	r.setState(Running)
	for i, step := range p.Steps {
		n := i + 1
		for _, f := range robot.Frames(step) {
			reply, err := r.transport.Send(f)
			if err != nil {
				log.WithError(err).WithField("step", n).Error("Send failed")
				return out.fail(StageStep, n, err)
			}
			r.emit(Event{State: Running, Step: n, Total: out.Total, Frame: f, Reply: reply})
		}
		r.sleep(step.Delay)
		out.Sent = n
	}
	out.Status = StatusCompleted
	return out
}

func (r *Runner) finish(out Outcome) Outcome {
	out.Finished = time.Now()
	state := Completed
	if !out.OK() {
		state = Failed
	}
	r.setState(state)
	r.emit(Event{State: state, Step: out.Step, Total: out.Total, Err: out.Err})
	if out.OK() {
		r.log.WithFields(logrus.Fields{
			"program":  out.Program,
			"steps":    out.Sent,
			"duration": out.Duration().Round(time.Millisecond),
		}).Info("Run completed")
	}
	return out
}

// Describe formats a one-line summary of an outcome.
func Describe(o Outcome) string {
	if o.OK() {
		return fmt.Sprintf("%s: completed %d steps in %s", o.Program, o.Sent, o.Duration().Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: failed at %s: %s", o.Program, o.Where(), o.Cause())
}

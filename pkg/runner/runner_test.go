package runner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/gwillem/zkbot/pkg/robot"
)

type stubTransport struct {
	openErr error
	failAt  int // 1-based send call that fails, 0 never
	panicAt int

	opens  int
	sent   []robot.Frame
	closes int
	calls  []string
}

func (s *stubTransport) Open() error {
	s.opens++
	s.calls = append(s.calls, "open")
	return s.openErr
}

func (s *stubTransport) Send(f robot.Frame) ([]byte, error) {
	s.sent = append(s.sent, f)
	s.calls = append(s.calls, "send")
	if len(s.sent) == s.panicAt {
		panic("controller exploded")
	}
	if len(s.sent) == s.failAt {
		return nil, &robot.TransportWriteError{Frame: f, Err: errors.New("device disconnected")}
	}
	return []byte("ok"), nil
}

func (s *stubTransport) Close() error {
	s.closes++
	s.calls = append(s.calls, "close")
	return nil
}

func program(n int) *robot.Program {
	p := robot.NewProgram("test")
	for i := 0; i < n; i++ {
		s := robot.NewStep(robot.LinearMove)
		s.X = robot.Float(float64(i))
		s.Delay = time.Duration(i+1) * time.Millisecond
		p.Steps = append(p.Steps, s)
	}
	return p
}

func newRunner(t *stubTransport, calls *[]string) (*Runner, *[]time.Duration) {
	var slept []time.Duration
	r := New(t, WithSleep(func(d time.Duration) {
		slept = append(slept, d)
		if calls != nil {
			*calls = append(*calls, "sleep")
		}
	}))
	return r, &slept
}

func TestRun_Completed(t *testing.T) {
	tr := &stubTransport{}
	r, slept := newRunner(tr, nil)

	out := r.Run(program(3))
	require.True(t, out.OK(), out.Cause())
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, 3, out.Sent)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, 1, tr.opens)
	assert.Equal(t, 1, tr.closes)
	require.Len(t, tr.sent, 3)
	assert.Equal(t, "G01 X0.0 F20.0", tr.sent[0].Body())
	assert.Equal(t, "G01 X2.0 F20.0", tr.sent[2].Body())
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, *slept)
	assert.Equal(t, Completed, r.State())
}

func TestRun_OpenFailure(t *testing.T) {
	tr := &stubTransport{openErr: &robot.ConnectionError{Port: "COM3", Err: errors.New("busy")}}
	r, slept := newRunner(tr, nil)

	out := r.Run(program(5))
	assert.False(t, out.OK())
	assert.Equal(t, StageOpen, out.Stage)
	assert.Equal(t, "open", out.Where())
	assert.Equal(t, 0, out.Step)
	var cerr *robot.ConnectionError
	assert.ErrorAs(t, out.Err, &cerr)
	assert.Empty(t, tr.sent)
	assert.Equal(t, 0, tr.closes, "a transport that never opened is not closed")
	assert.Empty(t, *slept)
	assert.Equal(t, Failed, r.State())
}

func TestRun_SendFailureAbortsRemainingSteps(t *testing.T) {
	tr := &stubTransport{failAt: 3}
	r, slept := newRunner(tr, nil)

	out := r.Run(program(5))
	assert.False(t, out.OK())
	assert.Equal(t, StageStep, out.Stage)
	assert.Equal(t, 3, out.Step)
	assert.Equal(t, "step-3", out.Where())
	assert.Equal(t, 2, out.Sent)
	assert.Contains(t, out.Cause(), "device disconnected")
	var werr *robot.TransportWriteError
	assert.ErrorAs(t, out.Err, &werr)

	require.Len(t, tr.sent, 3)
	assert.Equal(t, "G01 X2.0 F20.0", tr.sent[2].Body())
	assert.Equal(t, 1, tr.closes)
	assert.Len(t, *slept, 2, "the failing step's delay is not honored")
}

// flakyPort is a serial port whose reads fail from readFailAt onward.
type flakyPort struct {
	reads      int
	readFailAt int
	writes     int
	closes     int
}

func (p *flakyPort) Write(b []byte) (int, error) {
	p.writes++
	return len(b), nil
}

func (p *flakyPort) Read(b []byte) (int, error) {
	p.reads++
	if p.readFailAt > 0 && p.reads >= p.readFailAt {
		return 0, &serial.PortError{}
	}
	return copy(b, "ok"), nil
}

func (p *flakyPort) SetReadTimeout(time.Duration) error { return nil }

func (p *flakyPort) Close() error {
	p.closes++
	return nil
}

func TestRun_ReadFailureStopsAtStep(t *testing.T) {
	port := &flakyPort{readFailAt: 2}
	arm := robot.NewArm(robot.SerialConfig{Port: "/dev/ttyTEST", MaxReply: 16},
		robot.WithOpener(func(string, *serial.Mode) (robot.SerialPort, error) { return port, nil }),
		robot.WithSleep(func(time.Duration) {}),
	)
	r := New(arm, WithSleep(func(time.Duration) {}))

	out := r.Run(program(3))
	assert.False(t, out.OK())
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, "step-2", out.Where())
	assert.Equal(t, 1, out.Sent)
	var rerr *robot.TransportReadError
	assert.ErrorAs(t, out.Err, &rerr)
	assert.Equal(t, 2, port.writes, "step 3 is never written")
	assert.Equal(t, 1, port.closes)
	assert.False(t, arm.IsOpen())
}

func TestRun_FrameOrderAndSilentSteps(t *testing.T) {
	tr := &stubTransport{}
	r, slept := newRunner(tr, &tr.calls)

	p := robot.NewProgram("mixed")
	both := robot.NewStep(robot.PointMove)
	both.Angle = robot.Float(90)
	both.Z = robot.Float(10)
	both.Delay = time.Second
	silent := robot.NewStep(robot.LinearMove)
	silent.Delay = 2 * time.Second
	p.Steps = []robot.Step{both, silent}

	out := r.Run(p)
	require.True(t, out.OK())
	require.Len(t, tr.sent, 2)
	assert.Equal(t, "G06 D7 S1 A90.0", tr.sent[0].Body())
	assert.Equal(t, "G00 Z10.0 F20.0", tr.sent[1].Body())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, []string{"open", "send", "send", "sleep", "sleep", "close"}, tr.calls)
}

func TestRun_EmptyProgram(t *testing.T) {
	tr := &stubTransport{}
	r, _ := newRunner(tr, nil)

	out := r.Run(robot.NewProgram("empty"))
	assert.True(t, out.OK())
	assert.Equal(t, 1, tr.opens)
	assert.Equal(t, 1, tr.closes)
}

func TestRun_ClosesOnPanic(t *testing.T) {
	tr := &stubTransport{panicAt: 2}
	r, _ := newRunner(tr, nil)

	assert.Panics(t, func() { r.Run(program(4)) })
	assert.Equal(t, 1, tr.closes)

	// The runner is usable again afterwards.
	tr.panicAt = 0
	tr.sent = nil
	assert.True(t, r.Run(program(1)).OK())
}

func TestRun_Events(t *testing.T) {
	tr := &stubTransport{}
	r, _ := newRunner(tr, nil)

	r.Run(program(2))

	var states []State
	for len(r.Events()) > 0 {
		states = append(states, (<-r.Events()).State)
	}
	assert.Equal(t, []State{Opening, Running, Running, Closing, Completed}, states)
}

// gatedTransport blocks in Send until release is closed.
type gatedTransport struct {
	entered chan struct{}
	release chan struct{}
	opens   int
}

func (g *gatedTransport) Open() error {
	g.opens++
	return nil
}

func (g *gatedTransport) Send(robot.Frame) ([]byte, error) {
	g.entered <- struct{}{}
	<-g.release
	return nil, nil
}

func (g *gatedTransport) Close() error { return nil }

func TestRun_BusyWhileRunning(t *testing.T) {
	tr := &gatedTransport{entered: make(chan struct{}), release: make(chan struct{})}
	r := New(tr, WithSleep(func(time.Duration) {}))

	done := make(chan Outcome)
	go func() { done <- r.Run(program(1)) }()
	<-tr.entered

	out := r.Run(program(1))
	assert.Equal(t, StatusFailed, out.Status)
	assert.Equal(t, StageOpen, out.Stage)
	assert.ErrorIs(t, out.Err, ErrBusy)

	close(tr.release)
	first := <-done
	assert.True(t, first.OK(), first.Cause())
	assert.Equal(t, 1, tr.opens, "a busy run never opens the transport")
}

func TestOutcome_Describe(t *testing.T) {
	fail := Failure("drink_mango", StageCompose, errors.New("program \"juices/mango\" not found"))
	assert.Equal(t, "compose", fail.Where())
	assert.Contains(t, Describe(fail), "failed at compose")

	ok := Outcome{Program: "p", Status: StatusCompleted, Sent: 3}
	assert.Contains(t, Describe(ok), "completed 3 steps")
	assert.Equal(t, "", ok.Cause())
}

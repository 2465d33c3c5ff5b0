package robot

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// SerialPort is the part of a serial port the arm uses.
type SerialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Opener acquires a serial port.
type Opener func(name string, mode *serial.Mode) (SerialPort, error)

func openSerial(name string, mode *serial.Mode) (SerialPort, error) {
	return serial.Open(name, mode)
}

// Arm is the transport to the arm controller over one serial port.
// It is not safe to share an open Arm between runs.
type Arm struct {
	cfg   SerialConfig
	open  Opener
	sleep func(time.Duration)
	log   logrus.FieldLogger

	mu   sync.Mutex
	port SerialPort
}

// ArmOption customizes an Arm.
type ArmOption func(*Arm)

// WithOpener replaces the function used to open the serial port.
func WithOpener(o Opener) ArmOption {
	return func(a *Arm) { a.open = o }
}

// WithSleep replaces the settle wait, mainly for tests.
func WithSleep(fn func(time.Duration)) ArmOption {
	return func(a *Arm) { a.sleep = fn }
}

// WithLogger sets the arm's logger.
func WithLogger(l logrus.FieldLogger) ArmOption {
	return func(a *Arm) { a.log = l }
}

// NewArm creates an arm transport for the configured port. The port is
// not opened until Open is called.
func NewArm(cfg SerialConfig, opts ...ArmOption) *Arm {
	a := &Arm{
		cfg:   cfg.withDefaults(),
		open:  openSerial,
		sleep: time.Sleep,
		log:   discardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.WithField("port", a.cfg.Port)
	return a
}

// Open acquires the serial port.
func (a *Arm) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return &ConnectionError{Port: a.cfg.Port, Err: ErrAlreadyOpen}
	}
	mode, err := a.cfg.Mode()
	if err != nil {
		return &ConnectionError{Port: a.cfg.Port, Err: err}
	}
	p, err := a.open(a.cfg.Port, mode)
	if err != nil {
		return &ConnectionError{Port: a.cfg.Port, Err: err}
	}
	if err := p.SetReadTimeout(a.cfg.ReadTimeout.Duration()); err != nil {
		p.Close()
		return &ConnectionError{Port: a.cfg.Port, Err: fmt.Errorf("set read timeout: %w", err)}
	}
	a.port = p
	a.log.WithField("baud", a.cfg.BaudRate).Info("Port opened")
	return nil
}

// IsOpen reports whether the port is held.
func (a *Arm) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port != nil
}

// Send writes a frame, waits for the controller to process it and reads
// whatever reply arrives. A read timeout yields an empty reply and no
// error; any other read failure is returned as a TransportReadError.
func (a *Arm) Send(f Frame) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil, &TransportWriteError{Frame: f, Err: ErrNotOpen}
	}
	data := f.Bytes()
	n, err := a.port.Write(data)
	if err != nil {
		return nil, &TransportWriteError{Frame: f, Err: err}
	}
	if n != len(data) {
		return nil, &TransportWriteError{Frame: f, Err: fmt.Errorf("short write: %d of %d bytes", n, len(data))}
	}
	a.log.WithFields(logrus.Fields{"frame": string(f), "bytes": n}).Debug("Sent")

	a.sleep(a.cfg.Settle.Duration())

	buf := make([]byte, a.cfg.MaxReply)
	n, err = a.port.Read(buf)
	if err != nil {
		return nil, &TransportReadError{Frame: f, Err: err}
	}
	if n == 0 {
		a.log.WithField("frame", string(f)).Debug("No reply")
		return nil, nil
	}
	reply := buf[:n]
	a.log.WithField("reply", string(reply)).Debug("Reply")
	return reply, nil
}

// Close releases the port. Closing a closed arm is a no-op.
func (a *Arm) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	a.log.Info("Port closed")
	return err
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	return ports, nil
}

package robot

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when sending on a transport that is not open.
	ErrNotOpen = errors.New("serial port not open")
	// ErrAlreadyOpen is returned when opening a transport that is already held.
	ErrAlreadyOpen = errors.New("serial port already open")
	// ErrStepIndex is returned by program mutators given an out-of-range index.
	ErrStepIndex = errors.New("step index out of range")
)

// ValidationError reports a step that fails structural bounds.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// ProgramNotFoundError reports a program that could not be located or parsed.
type ProgramNotFoundError struct {
	Program string
	Err     error
}

func (e *ProgramNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("program %q not found: %v", e.Program, e.Err)
	}
	return fmt.Sprintf("program %q not found", e.Program)
}

func (e *ProgramNotFoundError) Unwrap() error {
	return e.Err
}

// ConnectionError reports a serial device that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// TransportWriteError reports a frame that could not be written.
type TransportWriteError struct {
	Frame Frame
	Err   error
}

func (e *TransportWriteError) Error() string {
	return fmt.Sprintf("write %q: %v", e.Frame, e.Err)
}

func (e *TransportWriteError) Unwrap() error {
	return e.Err
}

// TransportReadError reports a failed read of the reply to a written frame.
type TransportReadError struct {
	Frame Frame
	Err   error
}

func (e *TransportReadError) Error() string {
	return fmt.Sprintf("read reply to %q: %v", e.Frame, e.Err)
}

func (e *TransportReadError) Unwrap() error {
	return e.Err
}

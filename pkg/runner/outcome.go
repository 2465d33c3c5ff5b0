package runner

import (
	"fmt"
	"time"
)

// Status is the final result of a run.
type Status int

const (
	StatusFailed Status = iota
	StatusCompleted
)

func (s Status) String() string {
	if s == StatusCompleted {
		return "completed"
	}
	return "failed"
}

// Stage names where a failed run stopped.
type Stage string

const (
	StageCompose Stage = "compose"
	StageOpen    Stage = "open"
	StageStep    Stage = "step"
)

// Outcome is the structured result of one run.
type Outcome struct {
	Program  string
	Status   Status
	Stage    Stage // set when Status is StatusFailed
	Step     int   // 1-based failing step, 0 when no step was attempted
	Total    int
	Sent     int // steps fully sent, delays included
	Err      error
	Started  time.Time
	Finished time.Time
}

// Failure builds a failed outcome for a run that never reached the transport.
func Failure(program string, stage Stage, err error) Outcome {
	t := time.Now()
	return Outcome{Program: program, Status: StatusFailed, Stage: stage, Err: err, Started: t, Finished: t}
}

func (o Outcome) fail(stage Stage, step int, err error) Outcome {
	o.Status = StatusFailed
	o.Stage = stage
	o.Step = step
	o.Err = err
	return o
}

// OK reports whether the run completed.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted
}

// Where returns "compose", "open" or "step-N" for a failed run.
func (o Outcome) Where() string {
	if o.Stage == StageStep {
		return fmt.Sprintf("step-%d", o.Step)
	}
	return string(o.Stage)
}

// Cause returns the underlying error text, or "" for a completed run.
func (o Outcome) Cause() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Duration returns how long the run took.
func (o Outcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}

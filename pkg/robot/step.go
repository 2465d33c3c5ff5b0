package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Step defaults applied when a program document omits a field.
const (
	DefaultFeedRate = 20.0
	DefaultDelay    = 500 * time.Millisecond
)

// Step is one atomic arm instruction: an optional move, an optional
// end-effector angle and a delay honored after the step is sent.
// Nil coordinates are left out of the move frame entirely.
type Step struct {
	Command  Command
	X        *float64
	Y        *float64
	Z        *float64
	FeedRate float64
	Angle    *float64 // end-effector angle in degrees
	Delay    time.Duration
}

// NewStep returns a step with the default feed rate and delay.
func NewStep(cmd Command) Step {
	return Step{Command: cmd, FeedRate: DefaultFeedRate, Delay: DefaultDelay}
}

// Float returns a pointer to v, for filling optional step fields.
func Float(v float64) *float64 {
	return &v
}

// HasMove reports whether any axis is set.
func (s Step) HasMove() bool {
	return s.X != nil || s.Y != nil || s.Z != nil
}

// Clone returns a deep copy of s that shares no pointers with it.
func (s Step) Clone() Step {
	c := s
	c.X = clonePtr(s.X)
	c.Y = clonePtr(s.Y)
	c.Z = clonePtr(s.Z)
	c.Angle = clonePtr(s.Angle)
	return c
}

// Equal reports whether two steps carry the same values.
func (s Step) Equal(o Step) bool {
	return s.Command == o.Command &&
		equalPtr(s.X, o.X) && equalPtr(s.Y, o.Y) && equalPtr(s.Z, o.Z) &&
		equalPtr(s.Angle, o.Angle) &&
		s.FeedRate == o.FeedRate && s.Delay == o.Delay
}

func (s Step) String() string {
	return fmt.Sprintf("%s x=%s y=%s z=%s f=%s do0=%s delay=%s",
		s.Command, optString(s.X), optString(s.Y), optString(s.Z),
		formatNumber(s.FeedRate), optString(s.Angle), s.Delay)
}

// stepDocument is the persisted form of a step.
type stepDocument struct {
	Cmd   Command  `json:"cmd"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Z     *float64 `json:"z"`
	F     *float64 `json:"f"`
	Delay *float64 `json:"delay"`
	DO0   *float64 `json:"do0"`
}

// MarshalJSON writes the step in the persisted document form.
func (s Step) MarshalJSON() ([]byte, error) {
	f := s.FeedRate
	delay := s.Delay.Seconds()
	return json.Marshal(stepDocument{
		Cmd:   s.Command,
		X:     s.X,
		Y:     s.Y,
		Z:     s.Z,
		F:     &f,
		Delay: &delay,
		DO0:   s.Angle,
	})
}

// UnmarshalJSON reads a persisted step, filling omitted fields with defaults.
func (s *Step) UnmarshalJSON(data []byte) error {
	var doc stepDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	step := NewStep(LinearMove)
	if doc.Cmd != "" {
		step.Command = doc.Cmd
	}
	step.X, step.Y, step.Z = doc.X, doc.Y, doc.Z
	step.Angle = doc.DO0
	if doc.F != nil {
		step.FeedRate = *doc.F
	}
	if doc.Delay != nil {
		step.Delay = seconds(*doc.Delay)
	}
	*s = step
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Second)))
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func optString(p *float64) string {
	if p == nil {
		return "-"
	}
	return formatNumber(*p)
}

package robot

import "math"

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Limits holds the workspace bounds a step is validated against.
type Limits struct {
	X     Range `json:"x"`
	Y     Range `json:"y"`
	Z     Range `json:"z"`
	Angle Range `json:"angle"`
}

// DefaultLimits returns the arm's factory workspace bounds in millimeters and degrees.
func DefaultLimits() Limits {
	return Limits{
		X:     Range{Min: -200, Max: 200},
		Y:     Range{Min: -200, Max: 200},
		Z:     Range{Min: -50, Max: 250},
		Angle: Range{Min: 0, Max: 180},
	}
}

// IsZero reports whether no bounds have been set.
func (l Limits) IsZero() bool {
	return l == Limits{}
}

// Validate checks a step's command, coordinates, angle, feed rate and delay.
func (l Limits) Validate(s Step) error {
	if !s.Command.Valid() {
		return &ValidationError{Field: "cmd", Value: s.Command, Reason: "must be G00 or G01"}
	}
	axes := []struct {
		name string
		v    *float64
		r    Range
	}{
		{"x", s.X, l.X},
		{"y", s.Y, l.Y},
		{"z", s.Z, l.Z},
	}
	for _, a := range axes {
		if a.v != nil && !a.r.Contains(*a.v) {
			return &ValidationError{Field: a.name, Value: *a.v, Reason: outside(a.r)}
		}
	}
	if s.Angle != nil && !l.Angle.Contains(*s.Angle) {
		return &ValidationError{Field: "do0", Value: *s.Angle, Reason: outside(l.Angle)}
	}
	if !(s.FeedRate > 0) || math.IsInf(s.FeedRate, 1) {
		return &ValidationError{Field: "f", Value: s.FeedRate, Reason: "must be greater than zero"}
	}
	if s.Delay < 0 {
		return &ValidationError{Field: "delay", Value: s.Delay, Reason: "must not be negative"}
	}
	return nil
}

func outside(r Range) string {
	return "outside [" + formatNumber(r.Min) + ", " + formatNumber(r.Max) + "]"
}

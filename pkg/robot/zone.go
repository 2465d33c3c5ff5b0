package robot

import (
	"errors"
	"math"
)

// SweepRange walks from Min toward Max in increments of |Step|, inclusive.
// Min greater than Max walks downward.
type SweepRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Zone is a box of the workspace to sweep point by point.
type Zone struct {
	X SweepRange `json:"x"`
	Y SweepRange `json:"y"`
	Z SweepRange `json:"z"`
}

// Point is a target position in millimeters.
type Point struct {
	X, Y, Z float64
}

// Values expands the range, rounding each value to 3 decimals.
func (r SweepRange) Values() ([]float64, error) {
	if r.Step == 0 {
		return nil, errors.New("sweep step cannot be zero")
	}
	step := math.Abs(r.Step)
	var values []float64
	if r.Min <= r.Max {
		for v := r.Min; v <= r.Max; v += step {
			values = append(values, round3(v))
		}
	} else {
		for v := r.Min; v >= r.Max; v -= step {
			values = append(values, round3(v))
		}
	}
	return values, nil
}

// Points returns every X/Y/Z combination in the zone, X varying slowest.
func (z Zone) Points() ([]Point, error) {
	xs, err := z.X.Values()
	if err != nil {
		return nil, err
	}
	ys, err := z.Y.Values()
	if err != nil {
		return nil, err
	}
	zs, err := z.Z.Values()
	if err != nil {
		return nil, err
	}
	points := make([]Point, 0, len(xs)*len(ys)*len(zs))
	for _, x := range xs {
		for _, y := range ys {
			for _, zv := range zs {
				points = append(points, Point{X: x, Y: y, Z: zv})
			}
		}
	}
	return points, nil
}

// Program builds a one-step point move to p.
func (p Point) Program(name string, delay Seconds) *Program {
	prog := NewProgram(name)
	step := NewStep(PointMove)
	step.X, step.Y, step.Z = Float(p.X), Float(p.Y), Float(p.Z)
	step.Delay = delay.Duration()
	prog.Steps = append(prog.Steps, step)
	return prog
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

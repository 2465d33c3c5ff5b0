package robot

import (
	"fmt"
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// DefaultVersion is the version assigned to new programs.
const DefaultVersion = "1.0"

var now = time.Now

// Program is a named, ordered sequence of steps.
//
// Mutators validate steps against Limits (DefaultLimits when unset) and
// refresh ModifiedAt on success.
type Program struct {
	Name        string
	Description string
	Version     string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	Steps       []Step

	Limits Limits
}

// NewProgram returns an empty program stamped with the current time.
func NewProgram(name string) *Program {
	t := now()
	return &Program{
		Name:       name,
		Version:    DefaultVersion,
		CreatedAt:  t,
		ModifiedAt: t,
	}
}

func (p *Program) limits() Limits {
	if p.Limits.IsZero() {
		return DefaultLimits()
	}
	return p.Limits
}

func (p *Program) touch() {
	p.ModifiedAt = now()
}

// Len returns the number of steps.
func (p *Program) Len() int {
	return len(p.Steps)
}

// AddStep appends a validated step.
func (p *Program) AddStep(s Step) error {
	if err := p.limits().Validate(s); err != nil {
		return err
	}
	p.Steps = append(p.Steps, s.Clone())
	p.touch()
	return nil
}

// InsertStep inserts a validated step before index i. i == Len() appends.
func (p *Program) InsertStep(i int, s Step) error {
	if i < 0 || i > len(p.Steps) {
		return fmt.Errorf("insert at %d: %w", i, ErrStepIndex)
	}
	if err := p.limits().Validate(s); err != nil {
		return err
	}
	p.Steps = append(p.Steps, Step{})
	copy(p.Steps[i+1:], p.Steps[i:])
	p.Steps[i] = s.Clone()
	p.touch()
	return nil
}

// RemoveStep deletes the step at index i.
func (p *Program) RemoveStep(i int) error {
	if i < 0 || i >= len(p.Steps) {
		return fmt.Errorf("remove %d: %w", i, ErrStepIndex)
	}
	p.Steps = append(p.Steps[:i], p.Steps[i+1:]...)
	p.touch()
	return nil
}

// UpdateStep replaces the step at index i with a validated step.
func (p *Program) UpdateStep(i int, s Step) error {
	if i < 0 || i >= len(p.Steps) {
		return fmt.Errorf("update %d: %w", i, ErrStepIndex)
	}
	if err := p.limits().Validate(s); err != nil {
		return err
	}
	p.Steps[i] = s.Clone()
	p.touch()
	return nil
}

// Duration returns the sum of all step delays.
func (p *Program) Duration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		d += s.Delay
	}
	return d
}

// Clone returns an independent copy of the program under a new name.
func (p *Program) Clone(name string) *Program {
	c := NewProgram(name)
	c.Description = "Cloned from " + p.Name
	c.Limits = p.Limits
	c.Steps = cloneSteps(p.Steps)
	return c
}

// Merge appends copies of other's steps.
func (p *Program) Merge(other *Program) {
	p.Steps = append(p.Steps, cloneSteps(other.Steps)...)
	p.touch()
}

// Optimize drops steps whose target and angle repeat the preceding step.
func (p *Program) Optimize() {
	var kept []Step
	for i, s := range p.Steps {
		if i > 0 && sameTarget(p.Steps[i-1], s) {
			continue
		}
		kept = append(kept, s)
	}
	p.Steps = kept
	p.touch()
}

// Fingerprint hashes the program's name, description, version and steps.
// Timestamps are not included.
func (p *Program) Fingerprint() (uint64, error) {
	steps := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = s.String()
	}
	return hashstructure.Hash(struct {
		Name        string
		Description string
		Version     string
		Steps       []string
	}{p.Name, p.Description, p.Version, steps}, hashstructure.FormatV2, nil)
}

func sameTarget(a, b Step) bool {
	return equalPtr(a.X, b.X) && equalPtr(a.Y, b.Y) && equalPtr(a.Z, b.Z) && equalPtr(a.Angle, b.Angle)
}

func cloneSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}

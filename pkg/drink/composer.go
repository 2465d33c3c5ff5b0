// Package drink assembles and runs the full program for one drink.
package drink

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gwillem/zkbot/pkg/robot"
)

// Loader reads stored programs by identifier.
type Loader interface {
	Load(id string) (*robot.Program, error)
}

// Lister is implemented by loaders that can enumerate programs.
type Lister interface {
	List(dir string) ([]string, error)
}

// Composer builds a drink program from the origin program, the shared
// cup-and-ice pick program and the drink's own program, in that order.
type Composer struct {
	store   Loader
	origin  string
	pickCup string
	juices  string
}

// NewComposer creates a composer reading sub-programs from store at the
// identifiers in cfg.
func NewComposer(store Loader, cfg robot.ProgramsConfig) *Composer {
	return &Composer{
		store:   store,
		origin:  cfg.Origin,
		pickCup: cfg.PickCup,
		juices:  cfg.Juices,
	}
}

// ProgramID returns the identifier of the drink-specific program for key.
func (c *Composer) ProgramID(key string) string {
	return path.Join(c.juices, key)
}

// Build loads all three sub-programs and concatenates copies of their
// steps into a new program named "drink_<key>". Nothing is assembled
// unless all three load.
func (c *Composer) Build(key string) (*robot.Program, error) {
	if err := checkKey(key); err != nil {
		return nil, &robot.ProgramNotFoundError{Program: key, Err: err}
	}

	ids := []string{c.origin, c.pickCup, c.ProgramID(key)}
	parts := make([]*robot.Program, 0, len(ids))
	for _, id := range ids {
		p, err := c.store.Load(id)
		if err != nil {
			var nf *robot.ProgramNotFoundError
			if errors.As(err, &nf) {
				return nil, err
			}
			return nil, &robot.ProgramNotFoundError{Program: id, Err: err}
		}
		parts = append(parts, p)
	}

	full := robot.NewProgram("drink_" + key)
	full.Description = strings.Join(ids, " + ")
	for _, p := range parts {
		for _, s := range p.Steps {
			full.Steps = append(full.Steps, s.Clone())
		}
	}
	return full, nil
}

// Drinks lists the drink keys that have a program, when the store can list.
func (c *Composer) Drinks() ([]string, error) {
	l, ok := c.store.(Lister)
	if !ok {
		return nil, errors.New("program store cannot list programs")
	}
	ids, err := l.List(c.juices)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, path.Base(id))
	}
	return keys, nil
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid drink key %q", key)
	}
	return nil
}

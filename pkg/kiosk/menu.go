// Package kiosk queues customer orders and feeds them to the drink maker
// one at a time.
package kiosk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Drink is one menu item. Key names the drink's program.
type Drink struct {
	Key     string  `yaml:"key"`
	Label   string  `yaml:"label"`
	Price   float64 `yaml:"price"`
	Enabled *bool   `yaml:"enabled,omitempty"`
}

// Available reports whether the drink can be ordered. Drinks are enabled
// unless the menu says otherwise.
func (d Drink) Available() bool {
	return d.Enabled == nil || *d.Enabled
}

// Menu is the list of drinks offered by the kiosk.
type Menu struct {
	Drinks []Drink `yaml:"drinks"`
}

// LoadMenu reads a YAML menu file.
func LoadMenu(path string) (*Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu: %w", err)
	}
	return ParseMenu(data)
}

// ParseMenu parses and checks a YAML menu.
func ParseMenu(data []byte) (*Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse menu: %w", err)
	}
	seen := make(map[string]bool, len(m.Drinks))
	for i, d := range m.Drinks {
		if d.Key == "" {
			return nil, fmt.Errorf("menu drink %d has no key", i+1)
		}
		if seen[d.Key] {
			return nil, fmt.Errorf("menu drink %q listed twice", d.Key)
		}
		if d.Price < 0 {
			return nil, fmt.Errorf("menu drink %q has negative price", d.Key)
		}
		seen[d.Key] = true
		if m.Drinks[i].Label == "" {
			m.Drinks[i].Label = d.Key
		}
	}
	return &m, nil
}

// Lookup finds a drink by key.
func (m *Menu) Lookup(key string) (Drink, bool) {
	for _, d := range m.Drinks {
		if d.Key == key {
			return d, true
		}
	}
	return Drink{}, false
}

// Available returns the drinks that can be ordered, in menu order.
func (m *Menu) Available() []Drink {
	var out []Drink
	for _, d := range m.Drinks {
		if d.Available() {
			out = append(out, d)
		}
	}
	return out
}

package robot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultProgramName is used when a document carries no name.
const DefaultProgramName = "Untitled"

// programDocument is the persisted program form.
type programDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	CreatedAt   string `json:"created_at"`
	ModifiedAt  string `json:"modified_at"`
	Steps       []Step `json:"steps"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// MarshalProgram encodes p as an indented program document.
func MarshalProgram(p *Program) ([]byte, error) {
	steps := p.Steps
	if steps == nil {
		steps = []Step{}
	}
	return json.MarshalIndent(programDocument{
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		ModifiedAt:  p.ModifiedAt.Format(time.RFC3339Nano),
		Steps:       steps,
	}, "", "  ")
}

// UnmarshalProgram decodes a program document. A bare JSON array of steps is
// accepted as the legacy form and named after fallbackName.
func UnmarshalProgram(data []byte, fallbackName string) (*Program, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var steps []Step
		if err := json.Unmarshal(trimmed, &steps); err != nil {
			return nil, fmt.Errorf("parse legacy program: %w", err)
		}
		p := NewProgram(fallbackName)
		p.Steps = steps
		return p, nil
	}

	var doc programDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	p := NewProgram(doc.Name)
	if p.Name == "" {
		p.Name = DefaultProgramName
	}
	p.Description = doc.Description
	if doc.Version != "" {
		p.Version = doc.Version
	}
	if t, ok := parseTime(doc.CreatedAt); ok {
		p.CreatedAt = t
	}
	if t, ok := parseTime(doc.ModifiedAt); ok {
		p.ModifiedAt = t
	}
	p.Steps = doc.Steps
	return p, nil
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LoadProgram reads a program file. Legacy files are named after the file.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return UnmarshalProgram(data, name)
}

// SaveProgram writes p to path, creating parent directories and stamping ModifiedAt.
func SaveProgram(path string, p *Program) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create program directory: %w", err)
	}
	p.touch()
	data, err := MarshalProgram(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

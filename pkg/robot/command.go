// Package robot provides the motion model and serial transport for the ZKBot arm.
package robot

import (
	"encoding/json"
	"fmt"
)

// Command selects the kind of move the controller performs.
type Command string

// Move commands understood by the controller.
const (
	PointMove  Command = "G00"
	LinearMove Command = "G01"
)

// AllCommands returns the move commands in wire order.
func AllCommands() []Command {
	return []Command{PointMove, LinearMove}
}

// Valid reports whether c is a known move command.
func (c Command) Valid() bool {
	return c == PointMove || c == LinearMove
}

func (c Command) String() string {
	return string(c)
}

// ParseCommand converts a wire tag ("G00", "G01") into a Command.
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if !c.Valid() {
		return "", &ValidationError{Field: "cmd", Value: s, Reason: "must be G00 or G01"}
	}
	return c, nil
}

// UnmarshalJSON rejects unknown command tags.
func (c *Command) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse cmd: %w", err)
	}
	parsed, err := ParseCommand(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

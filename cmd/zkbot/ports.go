package main

import (
	"fmt"
	"strings"

	"github.com/gwillem/zkbot/pkg/robot"
)

type PortsCommand struct {
	All bool `short:"a" long:"all" description:"Include Bluetooth ports"`
}

func (c *PortsCommand) Execute(args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	ports, err := robot.ListPorts()
	if err != nil {
		return err
	}

	found := false
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if !c.All && strings.Contains(port, "Bluetooth") {
			continue
		}
		if port == cfg.Serial.Port {
			found = true
			fmt.Println(successStyle.Render(port + "  (configured)"))
			continue
		}
		fmt.Println(port)
	}
	if !found {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Configured port %s not found", cfg.Serial.Port)))
	}
	return nil
}

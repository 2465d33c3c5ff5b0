package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type ConfigCommand struct {
	Save bool `short:"s" long:"save" description:"Write the effective configuration (file, .env and environment) to the config file"`
}

func (c *ConfigCommand) Execute(args []string) error {
	return c.run(os.Stdout)
}

func (c *ConfigCommand) run(w io.Writer) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if c.Save {
		if err := cfg.SaveTo(opts.Config); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(w, successStyle.Render("Saved configuration to "+opts.Config))
		return nil
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

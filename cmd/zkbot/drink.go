package main

import (
	"errors"
	"fmt"

	"github.com/gwillem/zkbot/pkg/drink"
	"github.com/gwillem/zkbot/pkg/robot"
)

type DrinkCommand struct {
	Plain bool `long:"plain" description:"Print progress lines instead of the live view"`
	List  bool `long:"list" description:"List the drinks that have a juice program"`
	Args  struct {
		Key string `positional-arg-name:"drink" description:"Drink key, e.g. mango"`
	} `positional-args:"yes"`
}

func (c *DrinkCommand) Execute(args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	composer := drink.NewComposer(robot.NewFileStore(cfg.Programs.Dir), cfg.Programs)

	if c.List {
		keys, err := composer.Drinks()
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println(dimStyle.Render("No juice programs in " + cfg.Programs.Dir))
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	}
	if c.Args.Key == "" {
		return errors.New("drink key required (or --list)")
	}

	p, err := composer.Build(c.Args.Key)
	if err != nil {
		return err
	}
	fmt.Println(subHeaderStyle.Render(p.Description))
	return runProgram(cfg, log, p, c.Plain)
}

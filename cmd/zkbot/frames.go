package main

import (
	"fmt"
	"strings"

	"github.com/gwillem/zkbot/pkg/drink"
	"github.com/gwillem/zkbot/pkg/robot"
)

type FramesCommand struct {
	Drink bool `short:"d" long:"drink" description:"Treat the argument as a drink key and show the assembled program"`
	Raw   bool `long:"raw" description:"Print one wire frame per line with no table"`
	Args  struct {
		Target string `positional-arg-name:"program" description:"Program id or drink key"`
	} `positional-args:"yes" required:"yes"`
}

func (c *FramesCommand) Execute(args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	store := robot.NewFileStore(cfg.Programs.Dir)

	var p *robot.Program
	if c.Drink {
		p, err = drink.NewComposer(store, cfg.Programs).Build(c.Args.Target)
	} else {
		p, err = store.Load(c.Args.Target)
	}
	if err != nil {
		return err
	}

	if c.Raw {
		for _, s := range p.Steps {
			for _, f := range robot.Frames(s) {
				fmt.Println(f)
			}
		}
		return nil
	}

	fmt.Println(headerStyle.Render(p.Name))
	if p.Description != "" {
		fmt.Println(dimStyle.Render(p.Description))
	}

	rows := make([][]string, 0, p.Len())
	frames := 0
	for i, s := range p.Steps {
		var wire []string
		for _, f := range robot.Frames(s) {
			wire = append(wire, string(f))
			frames++
		}
		if len(wire) == 0 {
			wire = append(wire, dimStyle.Render("(wait only)"))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(s.Command),
			strings.Join(wire, "\n"),
			s.Delay.String(),
		})
	}
	fmt.Println(newTable([]string{"Step", "Cmd", "Frames", "Delay"}, rows, nil).Render())
	fmt.Printf("%d steps, %d frames, about %s\n", p.Len(), frames, p.Duration())
	return nil
}

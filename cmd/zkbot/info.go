package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/gwillem/zkbot/pkg/robot"
)

type InfoCommand struct {
	Args struct {
		Program string `positional-arg-name:"program" description:"Program id; omit to list all programs"`
	} `positional-args:"yes"`
}

func (c *InfoCommand) Execute(args []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	store := robot.NewFileStore(cfg.Programs.Dir)
	if c.Args.Program == "" {
		return listPrograms(store)
	}

	p, err := store.Load(c.Args.Program)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(p.Name))
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("Version:   %s\n", p.Version)
	fmt.Printf("Created:   %s\n", when(p.CreatedAt))
	fmt.Printf("Modified:  %s\n", when(p.ModifiedAt))
	fmt.Printf("Steps:     %d\n", p.Len())
	fmt.Printf("Duration:  %s\n", p.Duration())
	if sum, err := p.Fingerprint(); err == nil {
		fmt.Printf("Checksum:  %016x\n", sum)
	}
	fmt.Println()

	fmt.Println(stepTable(p, cfg.Limits).Render())
	for i, s := range p.Steps {
		if err := cfg.Limits.Validate(s); err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("step %d outside limits: %v", i+1, err)))
		}
	}
	return nil
}

// stepTable renders a program's steps; steps outside limits are red.
func stepTable(p *robot.Program, limits robot.Limits) *table.Table {
	bad := map[int]bool{}
	rows := make([][]string, 0, p.Len())
	for i, s := range p.Steps {
		if limits.Validate(s) != nil {
			bad[i] = true
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			string(s.Command),
			axis(s.X), axis(s.Y), axis(s.Z),
			fmt.Sprintf("%g", s.FeedRate),
			axis(s.Angle),
			s.Delay.String(),
		})
	}
	return newTable([]string{"#", "Cmd", "X", "Y", "Z", "F", "Actuator", "Delay"}, rows, bad)
}

func listPrograms(store *robot.FileStore) error {
	ids, err := store.List("")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println(dimStyle.Render("No programs in " + store.Dir))
		return nil
	}
	rows := make([][]string, 0, len(ids))
	bad := map[int]bool{}
	for i, id := range ids {
		p, err := store.Load(id)
		if err != nil {
			bad[i] = true
			rows = append(rows, []string{id, "-", "-", err.Error()})
			continue
		}
		rows = append(rows, []string{id, fmt.Sprintf("%d", p.Len()), p.Duration().String(), when(p.ModifiedAt)})
	}
	fmt.Println(newTable([]string{"Program", "Steps", "Duration", "Modified"}, rows, bad).Render())
	return nil
}

func when(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.Time(t))
}

func axis(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

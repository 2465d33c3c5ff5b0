package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/robot"
	"github.com/gwillem/zkbot/pkg/runner"
)

type SweepCommand struct {
	Delay   float64 `long:"delay" default:"1.0" description:"Seconds to wait after each move"`
	Confirm bool    `long:"confirm" description:"Ask the operator whether each move succeeded"`
	Output  string  `short:"o" long:"output" default:"workspace_tests" description:"Directory for CSV results"`
	DryRun  bool    `long:"dry-run" description:"List the points without moving"`
	Args    struct {
		Zone string `positional-arg-name:"zone" description:"Zone name from the config, or 'all'"`
	} `positional-args:"yes" required:"yes"`
}

func (c *SweepCommand) Execute(args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	names := []string{c.Args.Zone}
	if c.Args.Zone == "all" {
		names = names[:0]
		for name := range cfg.Zones {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	arm := robot.NewArm(cfg.Serial, robot.WithLogger(log))
	r := runner.New(arm, runner.WithLogger(log))

	for _, name := range names {
		zone, ok := cfg.Zones[name]
		if !ok {
			return fmt.Errorf("unknown zone %q", name)
		}
		if err := c.sweepZone(r, log, name, zone); err != nil {
			return err
		}
	}
	return nil
}

func (c *SweepCommand) sweepZone(r *runner.Runner, log logrus.FieldLogger, name string, zone robot.Zone) error {
	points, err := zone.Points()
	if err != nil {
		return fmt.Errorf("zone %s: %w", name, err)
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Zone %s: %d points ━━━", name, len(points))))
	fmt.Printf("  X: %g to %g  Y: %g to %g  Z: %g to %g\n",
		zone.X.Min, zone.X.Max, zone.Y.Min, zone.Y.Max, zone.Z.Min, zone.Z.Max)
	fmt.Println()

	if c.DryRun {
		for i, pt := range points {
			fmt.Printf("[%d/%d] X=%7.2f, Y=%7.2f, Z=%7.2f\n", i+1, len(points), pt.X, pt.Y, pt.Z)
		}
		return nil
	}

	results := r.Sweep(name, points, robot.Seconds(c.Delay), func(res runner.SweepResult) runner.SweepResult {
		fmt.Printf("[%d/%d] X=%7.2f, Y=%7.2f, Z=%7.2f ... ", res.N, len(points), res.Point.X, res.Point.Y, res.Point.Z)
		if c.Confirm {
			res = confirmMove(res)
		}
		if res.Status == runner.SweepOK {
			fmt.Println(successStyle.Render("✓ OK"))
		} else {
			fmt.Println(errorStyle.Render("✗ ERROR"))
		}
		return res
	})

	path := filepath.Join(c.Output, fmt.Sprintf("test_%s_%s.csv", name, time.Now().Format("20060102_150405")))
	if err := writeResults(path, results); err != nil {
		log.WithError(err).Error("Could not save sweep results")
	}

	ok, failed := runner.SweepCounts(results)
	total := max(len(results), 1)
	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("Zone '%s' complete: %d points\n", name, len(results))
	fmt.Println(successStyle.Render(fmt.Sprintf("OK:    %d (%.1f%%)", ok, 100*float64(ok)/float64(total))))
	fmt.Println(errorStyle.Render(fmt.Sprintf("ERROR: %d (%.1f%%)", failed, 100*float64(failed)/float64(total))))
	fmt.Printf("Results saved to %s\n", path)
	return nil
}

// confirmMove asks the operator for the verdict, keeping the automatic one
// in the note.
func confirmMove(res runner.SweepResult) runner.SweepResult {
	fmt.Printf("(%s) ", res.Status)
	verdict := runner.SweepOK
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Point %d: X=%.2f, Y=%.2f, Z=%.2f", res.N, res.Point.X, res.Point.Y, res.Point.Z)).
				Description("Did the arm move successfully?").
				Options(
					huh.NewOption("OK (arm moved)", runner.SweepOK),
					huh.NewOption("ERROR (alarm / no move)", runner.SweepError),
				).
				Value(&verdict),
		),
	)
	if err := form.Run(); err != nil {
		verdict = runner.SweepError
	}
	res.Note = fmt.Sprintf("Auto: %s, User: %s | %s", res.Status, verdict, res.Note)
	res.Status = verdict
	return res
}

func writeResults(path string, results []runner.SweepResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := runner.WriteSweepCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

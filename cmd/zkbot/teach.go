package main

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/robot"
)

type TeachCommand struct {
	Args struct {
		Program string `positional-arg-name:"program" description:"Program id to create or edit, e.g. juices/kiwi"`
	} `positional-args:"yes" required:"yes"`
}

const (
	actionAdd      = "add"
	actionInsert   = "insert"
	actionEdit     = "edit"
	actionRemove   = "remove"
	actionTest     = "test"
	actionOptimize = "optimize"
	actionSave     = "save"
	actionQuit     = "quit"
)

type teachSession struct {
	cfg   *robot.Config
	log   *logrus.Logger
	store *robot.FileStore
	id    string
	prog  *robot.Program
	saved uint64

	confirm func(title string) bool
}

func (c *TeachCommand) Execute(args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	store := robot.NewFileStore(cfg.Programs.Dir)

	var p *robot.Program
	if store.Exists(c.Args.Program) {
		if p, err = store.Load(c.Args.Program); err != nil {
			return err
		}
	} else {
		p = robot.NewProgram(path.Base(c.Args.Program))
		fmt.Println(dimStyle.Render("New program " + c.Args.Program))
	}
	p.Limits = cfg.Limits

	s := &teachSession{cfg: cfg, log: log, store: store, id: c.Args.Program, prog: p, confirm: confirm}
	s.saved, _ = p.Fingerprint()
	return s.loop()
}

func (s *teachSession) dirty() bool {
	sum, err := s.prog.Fingerprint()
	return err != nil || sum != s.saved
}

// leave reports whether the session may end, asking first if there are
// unsaved changes.
func (s *teachSession) leave() bool {
	return !s.dirty() || s.confirm("Discard unsaved changes?")
}

func (s *teachSession) loop() error {
	for {
		fmt.Println()
		fmt.Println(headerStyle.Render(s.id))
		if s.prog.Len() > 0 {
			fmt.Println(stepTable(s.prog, s.cfg.Limits).Render())
		}
		status := fmt.Sprintf("%d steps, about %s", s.prog.Len(), s.prog.Duration())
		if s.dirty() {
			status += warnStyle.Render("  (unsaved)")
		}
		fmt.Println(dimStyle.Render(status))

		action, err := s.chooseAction()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if err != nil || action == actionQuit {
			if s.leave() {
				return nil
			}
			continue
		}
		if err := s.do(action); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}
}

func (s *teachSession) chooseAction() (string, error) {
	options := []huh.Option[string]{huh.NewOption("Add step", actionAdd)}
	if s.prog.Len() > 0 {
		options = append(options,
			huh.NewOption("Insert step", actionInsert),
			huh.NewOption("Edit step", actionEdit),
			huh.NewOption("Remove step", actionRemove),
			huh.NewOption("Test step on the arm", actionTest),
			huh.NewOption("Drop repeated positions", actionOptimize),
		)
	}
	options = append(options,
		huh.NewOption("Save", actionSave),
		huh.NewOption("Quit", actionQuit),
	)

	var action string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("What next?").Options(options...).Value(&action),
	)).Run()
	return action, err
}

func (s *teachSession) do(action string) error {
	switch action {
	case actionAdd:
		step, err := stepForm(s.newStep())
		if err != nil {
			return err
		}
		return s.prog.AddStep(step)

	case actionInsert:
		i, err := chooseStep(s.prog, "Insert before step", true)
		if err != nil {
			return err
		}
		step, err := stepForm(s.newStep())
		if err != nil {
			return err
		}
		return s.prog.InsertStep(i, step)

	case actionEdit:
		i, err := chooseStep(s.prog, "Edit step", false)
		if err != nil {
			return err
		}
		step, err := stepForm(s.prog.Steps[i].Clone())
		if err != nil {
			return err
		}
		return s.prog.UpdateStep(i, step)

	case actionRemove:
		i, err := chooseStep(s.prog, "Remove step", false)
		if err != nil {
			return err
		}
		return s.prog.RemoveStep(i)

	case actionTest:
		i, err := chooseStep(s.prog, "Send step", false)
		if err != nil {
			return err
		}
		single := robot.NewProgram(fmt.Sprintf("%s_step%d", s.prog.Name, i+1))
		single.Steps = append(single.Steps, s.prog.Steps[i].Clone())
		return runProgram(s.cfg, s.log, single, true)

	case actionOptimize:
		before := s.prog.Len()
		s.prog.Optimize()
		fmt.Printf("Removed %d steps\n", before-s.prog.Len())
		return nil

	case actionSave:
		if err := s.store.Save(s.prog, s.id); err != nil {
			return err
		}
		s.saved, _ = s.prog.Fingerprint()
		fmt.Println(successStyle.Render("Saved " + s.id))
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}

// newStep starts from the configured defaults and the previous step's position.
func (s *teachSession) newStep() robot.Step {
	step := s.cfg.Defaults.NewStep(robot.LinearMove)
	if n := s.prog.Len(); n > 0 {
		last := s.prog.Steps[n-1].Clone()
		step.Command = last.Command
		step.X, step.Y, step.Z = last.X, last.Y, last.Z
	}
	return step
}

// chooseStep returns a 0-based index. With end set, one past the last step
// is offered too.
func chooseStep(p *robot.Program, title string, end bool) (int, error) {
	var options []huh.Option[int]
	for i, st := range p.Steps {
		options = append(options, huh.NewOption(fmt.Sprintf("%d: %s", i+1, st), i))
	}
	if end {
		options = append(options, huh.NewOption("(end)", p.Len()))
	}
	var i int
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[int]().Title(title).Options(options...).Value(&i),
	)).Run()
	return i, err
}

// stepForm lets the operator edit a step. Blank axes are left out of the move.
func stepForm(step robot.Step) (robot.Step, error) {
	cmd := string(step.Command)
	x, y, z := formatOptional(step.X), formatOptional(step.Y), formatOptional(step.Z)
	angle := formatOptional(step.Angle)
	feed := strconv.FormatFloat(step.FeedRate, 'f', -1, 64)
	delay := strconv.FormatFloat(step.Delay.Seconds(), 'f', -1, 64)

	var cmdOptions []huh.Option[string]
	for _, c := range robot.AllCommands() {
		cmdOptions = append(cmdOptions, huh.NewOption(string(c), string(c)))
	}

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Command").Options(cmdOptions...).Value(&cmd),
			huh.NewInput().Title("X (mm)").Value(&x).Validate(validateOptional),
			huh.NewInput().Title("Y (mm)").Value(&y).Validate(validateOptional),
			huh.NewInput().Title("Z (mm)").Value(&z).Validate(validateOptional),
			huh.NewInput().Title("Feed rate").Value(&feed).Validate(validateNumber),
			huh.NewInput().Title("Actuator angle").Description("Blank for no actuator command").Value(&angle).Validate(validateOptional),
			huh.NewInput().Title("Delay (s)").Value(&delay).Validate(validateNumber),
		),
	).Run()
	if err != nil {
		return step, err
	}
	return buildStep(cmd, x, y, z, feed, angle, delay)
}

// buildStep parses form fields into a step.
func buildStep(cmd, x, y, z, feed, angle, delay string) (robot.Step, error) {
	var step robot.Step
	var err error
	if step.Command, err = robot.ParseCommand(cmd); err != nil {
		return step, err
	}
	for _, f := range []struct {
		dst **float64
		src string
	}{{&step.X, x}, {&step.Y, y}, {&step.Z, z}, {&step.Angle, angle}} {
		if *f.dst, err = parseOptional(f.src); err != nil {
			return step, err
		}
	}
	if step.FeedRate, err = strconv.ParseFloat(strings.TrimSpace(feed), 64); err != nil {
		return step, fmt.Errorf("feed rate: %w", err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(delay), 64)
	if err != nil {
		return step, fmt.Errorf("delay: %w", err)
	}
	step.Delay = time.Duration(secs * float64(time.Second))
	return step, nil
}

func parseOptional(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return &v, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func validateOptional(s string) error {
	_, err := parseOptional(s)
	return err
}

func validateNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return validateOptional(s)
}

func confirm(title string) bool {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&ok),
	)).Run()
	return err == nil && ok
}

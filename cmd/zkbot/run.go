package main

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/zkbot/pkg/robot"
	"github.com/gwillem/zkbot/pkg/runner"
)

type RunCommand struct {
	Plain bool `long:"plain" description:"Print progress lines instead of the live view"`
	Args  struct {
		Program string `positional-arg-name:"program" description:"Program id, e.g. juices/mango"`
	} `positional-args:"yes" required:"yes"`
}

func (c *RunCommand) Execute(args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	p, err := robot.NewFileStore(cfg.Programs.Dir).Load(c.Args.Program)
	if err != nil {
		return err
	}
	return runProgram(cfg, log, p, c.Plain)
}

// runProgram opens the arm, sends p and reports the outcome.
func runProgram(cfg *robot.Config, log *logrus.Logger, p *robot.Program, plain bool) error {
	arm := robot.NewArm(cfg.Serial, robot.WithLogger(log))
	r := runner.New(arm, runner.WithLogger(log))

	var out runner.Outcome
	if plain {
		out = runPlain(r, p)
	} else {
		var err error
		if out, err = runLive(r, p, cfg.Limits, log); err != nil {
			return err
		}
	}

	if !out.OK() {
		fmt.Println(errorStyle.Render(runner.Describe(out)))
		return fmt.Errorf("run failed at %s: %w", out.Where(), out.Err)
	}
	fmt.Println(successStyle.Render(runner.Describe(out)))
	return nil
}

func runPlain(r *runner.Runner, p *robot.Program) runner.Outcome {
	done := make(chan struct{})
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for {
			select {
			case e := <-r.Events():
				printEvent(e)
			case <-done:
				for {
					select {
					case e := <-r.Events():
						printEvent(e)
					default:
						return
					}
				}
			}
		}
	}()

	fmt.Printf("Running %s (%d steps, about %s)\n", p.Name, p.Len(), p.Duration())
	out := r.Run(p)
	close(done)
	<-drained
	return out
}

func printEvent(e runner.Event) {
	switch e.State {
	case runner.Running:
		reply := ""
		if len(e.Reply) > 0 {
			reply = dimStyle.Render(" <- " + strings.TrimSpace(string(e.Reply)))
		}
		fmt.Printf("[%d/%d] %s%s\n", e.Step, e.Total, e.Frame.Body(), reply)
	case runner.Failed:
		fmt.Println(errorStyle.Render(fmt.Sprintf("failed: %v", e.Err)))
	default:
		fmt.Println(dimStyle.Render(e.State.String()))
	}
}

const (
	headerHeight = 3 // title, progress, blank
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Axis colors
var axisColors = map[string]string{
	"X": "196", // red
	"Y": "46",  // green
	"Z": "51",  // cyan
}

var axes = []string{"X", "Y", "Z"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type eventMsg runner.Event
type logMsg string
type doneMsg runner.Outcome

// logHook forwards log entries to the live view.
type logHook struct {
	ch chan string
}

func (h *logHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (h *logHook) Fire(e *logrus.Entry) error {
	select {
	case h.ch <- fmt.Sprintf("%s %-5s %s", e.Time.Format("15:04:05"), strings.ToUpper(e.Level.String()), e.Message):
	default:
	}
	return nil
}

type runModel struct {
	program  *robot.Program
	events   <-chan runner.Event
	logCh    <-chan string
	chart    *streamlinechart.Model
	width    int // terminal width
	height   int // terminal height
	logs     []string
	step     int
	state    runner.State
	frame    robot.Frame
	pos      map[string]float64 // last commanded position per axis
	outcome  *runner.Outcome
	quitting bool
}

func newRunModel(p *robot.Program, events <-chan runner.Event, logs <-chan string, limits robot.Limits) runModel {
	lo := min(limits.X.Min, limits.Y.Min, limits.Z.Min)
	hi := max(limits.X.Max, limits.Y.Max, limits.Z.Max)
	chart := streamlinechart.New(80, 20, streamlinechart.WithYRange(lo, hi))
	for _, axis := range axes {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[axis]))
		chart.SetDataSetStyles(axis, runes.ThinLineStyle, style)
	}
	return runModel{
		program: p,
		events:  events,
		logCh:   logs,
		chart:   &chart,
		pos:     map[string]float64{},
	}
}

func waitForEvent(ch <-chan runner.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

// plotStep pushes the commanded position after step n. Axes a step leaves
// out keep their previous value.
func (m *runModel) plotStep(n int) {
	if n < 1 || n > m.program.Len() {
		return
	}
	s := m.program.Steps[n-1]
	for axis, v := range map[string]*float64{"X": s.X, "Y": s.Y, "Z": s.Z} {
		if v != nil {
			m.pos[axis] = *v
		}
	}
	for _, axis := range axes {
		m.chart.PushDataSet(axis, m.pos[axis])
	}
	m.chart.DrawAll()
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.events), waitForLog(m.logCh))
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "enter":
			if m.outcome == nil {
				m.addLog("A run cannot be interrupted; waiting for the last step")
				return m, nil
			}
			m.quitting = true
			return m, tea.Quit
		}

	case eventMsg:
		e := runner.Event(msg)
		m.state = e.State
		if e.State == runner.Running {
			m.frame = e.Frame
			if e.Step != m.step {
				m.step = e.Step
				m.plotStep(e.Step)
			}
		}
		return m, waitForEvent(m.events)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logCh)

	case doneMsg:
		out := runner.Outcome(msg)
		m.outcome = &out
		m.addLog(runner.Describe(out))
		return m, nil
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("ZKBot Run"))
	sb.WriteString(" - " + m.program.Name)
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s  step %d/%d  %s", m.state, m.step, m.program.Len(), statusStyle.Render(m.frame.Body())))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	switch {
	case len(m.logs) == 0:
		logLines = statusStyle.Render("Running...")
	case m.outcome != nil:
		logLines = strings.Join(m.logs, "\n") + "\n" + statusStyle.Render("Press 'q' to exit")
	default:
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, axis := range axes {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(axisColors[axis])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+axis)
	}
	return strings.Join(items, "  ")
}

// runLive runs p behind the live view. Log output goes to the view's log
// box while it is on screen.
func runLive(r *runner.Runner, p *robot.Program, limits robot.Limits, log *logrus.Logger) (runner.Outcome, error) {
	logs := make(chan string, 32)
	log.AddHook(&logHook{ch: logs})
	prev := log.Out
	log.SetOutput(io.Discard)
	defer log.SetOutput(prev)

	prog := tea.NewProgram(newRunModel(p, r.Events(), logs, limits), tea.WithAltScreen())
	result := make(chan runner.Outcome, 1)
	go func() {
		out := r.Run(p)
		result <- out
		prog.Send(doneMsg(out))
	}()

	if _, err := prog.Run(); err != nil {
		return <-result, fmt.Errorf("run view: %w", err)
	}
	return <-result, nil
}

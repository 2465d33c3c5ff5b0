package drink

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/robot"
	"github.com/gwillem/zkbot/pkg/runner"
)

// Runner executes an assembled program.
type Runner interface {
	Run(p *robot.Program) runner.Outcome
}

// Maker composes and runs drinks. It is what the order queue calls.
type Maker struct {
	composer *Composer
	runner   Runner
	log      logrus.FieldLogger
}

// NewMaker creates a maker. A nil logger discards output.
func NewMaker(c *Composer, r Runner, log logrus.FieldLogger) *Maker {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Maker{composer: c, runner: r, log: log}
}

// BuildAndRun assembles the program for key and runs it, blocking until the
// run finishes. Composition failures are reported before the transport opens.
func (m *Maker) BuildAndRun(key string) runner.Outcome {
	log := m.log.WithField("drink", key)

	p, err := m.composer.Build(key)
	if err != nil {
		log.WithError(err).Error("Compose failed")
		return runner.Failure("drink_"+key, runner.StageCompose, err)
	}
	log.WithFields(logrus.Fields{
		"steps":    p.Len(),
		"estimate": p.Duration(),
	}).Info("Making drink")

	out := m.runner.Run(p)
	if !out.OK() {
		log.WithField("at", out.Where()).WithError(out.Err).Error("Drink failed")
	}
	return out
}

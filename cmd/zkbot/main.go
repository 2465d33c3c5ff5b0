package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/zkbot/pkg/robot"
)

type Options struct {
	Config   string `short:"c" long:"config" default:"zkbot.json" description:"Configuration file"`
	LogLevel string `short:"l" long:"log-level" description:"Override log level (debug, info, warn, error, off)"`

	Run    RunCommand    `command:"run" description:"Run a stored program"`
	Drink  DrinkCommand  `command:"drink" description:"Assemble and run a drink"`
	Frames FramesCommand `command:"frames" description:"Show the frames a program or drink would send, without moving the arm"`
	Info   InfoCommand   `command:"info" description:"Show program details"`
	Teach  TeachCommand  `command:"teach" description:"Create or edit a program step by step"`
	Ports  PortsCommand  `command:"ports" description:"List serial ports"`
	Sweep  SweepCommand  `command:"sweep" description:"Visit every point of a workspace zone"`
	Kiosk  KioskCommand  `command:"kiosk" description:"Take orders and make drinks"`
	Conf   ConfigCommand `command:"config" description:"Show the effective configuration, or write it to the config file"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "ZKBot - juice kiosk robot arm control"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger every command shares.
func setup() (*robot.Config, *logrus.Logger, error) {
	cfg, err := robot.LoadConfig(opts.Config)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	return cfg, robot.NewLogger(cfg.LogLevel), nil
}

package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.bug.st/serial"
)

const DefaultConfigFile = "zkbot.json"

// Environment variables that override the config file.
const (
	EnvPort        = "ZKBOT_PORT"
	EnvBaud        = "ZKBOT_BAUD"
	EnvTimeout     = "ZKBOT_TIMEOUT"
	EnvProgramsDir = "ZKBOT_PROGRAMS_DIR"
	EnvLogLevel    = "ZKBOT_LOG_LEVEL"
)

// Seconds is a duration stored as fractional seconds.
type Seconds float64

// Duration converts s to a time.Duration.
func (s Seconds) Duration() time.Duration {
	return seconds(float64(s))
}

// Config holds the kiosk configuration
type Config struct {
	Serial      SerialConfig    `json:"serial"`
	Programs    ProgramsConfig  `json:"programs"`
	Defaults    StepDefaults    `json:"defaults"`
	Limits      Limits          `json:"limits"`
	LogLevel    string          `json:"log_level"`
	MenuFile    string          `json:"menu_file"`
	JournalFile string          `json:"journal_file"`
	Zones       map[string]Zone `json:"zones,omitempty"`
}

// SerialConfig holds the serial link settings
type SerialConfig struct {
	Port        string  `json:"port"`
	BaudRate    int     `json:"baud"`
	DataBits    int     `json:"bytesize"`
	Parity      string  `json:"parity"`   // N, E, O, M or S
	StopBits    float64 `json:"stopbits"` // 1, 1.5 or 2
	ReadTimeout Seconds `json:"timeout"`
	Settle      Seconds `json:"settle"` // controller processing time after each write
	MaxReply    int     `json:"max_reply"`
}

// ProgramsConfig locates the sub-programs a drink is assembled from
type ProgramsConfig struct {
	Dir     string `json:"dir"`
	Origin  string `json:"origin"`
	PickCup string `json:"pick_cup"`
	Juices  string `json:"juices"`
}

// StepDefaults are applied to steps created in the teaching tool
type StepDefaults struct {
	FeedRate float64 `json:"feed"`
	Delay    Seconds `json:"delay"`
}

// DefaultConfig returns the factory configuration.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "/dev/ttyUSB0",
			BaudRate:    9600,
			DataBits:    8,
			Parity:      "N",
			StopBits:    1,
			ReadTimeout: 1,
			Settle:      0.5,
			MaxReply:    100,
		},
		Programs: ProgramsConfig{
			Dir:     "programs",
			Origin:  "origin",
			PickCup: "common/pick_cup",
			Juices:  "juices",
		},
		Defaults: StepDefaults{
			FeedRate: DefaultFeedRate,
			Delay:    Seconds(DefaultDelay.Seconds()),
		},
		Limits:      DefaultLimits(),
		LogLevel:    "info",
		MenuFile:    "menu.yaml",
		JournalFile: "data/kiosk.db",
		Zones:       DefaultZones(),
	}
}

// DefaultZones returns the surveyed work areas of the kiosk.
func DefaultZones() map[string]Zone {
	return map[string]Zone{
		"delivery_area": {
			X: SweepRange{-20, 35, 10},
			Y: SweepRange{-50, -25, 15},
			Z: SweepRange{-90, -60, 25},
		},
		"juice_dispense": {
			X: SweepRange{-85, -55, 15},
			Y: SweepRange{-80, -50, 10},
			Z: SweepRange{-110, -100, 10},
		},
		"ice_dispense": {
			X: SweepRange{-103, -103, 15},
			Y: SweepRange{-60, -60, 10},
			Z: SweepRange{-110, -75, 10},
		},
		"cup_pick": {
			X: SweepRange{-155, -125, 10},
			Y: SweepRange{-90, -50, 10},
			Z: SweepRange{-110, -65, 10},
		},
	}
}

// NewStep returns a step carrying the configured defaults.
func (d StepDefaults) NewStep(cmd Command) Step {
	s := NewStep(cmd)
	if d.FeedRate > 0 {
		s.FeedRate = d.FeedRate
	}
	if d.Delay > 0 {
		s.Delay = d.Delay.Duration()
	}
	return s
}

func (c SerialConfig) withDefaults() SerialConfig {
	def := DefaultConfig().Serial
	if c.BaudRate == 0 {
		c.BaudRate = def.BaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = def.DataBits
	}
	if c.Parity == "" {
		c.Parity = def.Parity
	}
	if c.StopBits == 0 {
		c.StopBits = def.StopBits
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.MaxReply <= 0 {
		c.MaxReply = def.MaxReply
	}
	return c
}

// Mode converts the settings into a serial mode.
func (c SerialConfig) Mode() (*serial.Mode, error) {
	mode := &serial.Mode{BaudRate: c.BaudRate, DataBits: c.DataBits}
	switch c.Parity {
	case "N", "":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	case "M":
		mode.Parity = serial.MarkParity
	case "S":
		mode.Parity = serial.SpaceParity
	default:
		return nil, fmt.Errorf("unknown parity %q", c.Parity)
	}
	switch c.StopBits {
	case 1, 0:
		mode.StopBits = serial.OneStopBit
	case 1.5:
		mode.StopBits = serial.OnePointFiveStopBits
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %v", c.StopBits)
	}
	return mode, nil
}

// LoadConfig loads .env, then the config file at path if present, then
// environment overrides. An empty path means DefaultConfigFile.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if path == "" {
		path = DefaultConfigFile
	}
	cfg, err := LoadConfigFrom(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = DefaultConfig()
	} else if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFrom loads configuration from a specific file. Fields the file
// omits keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Zones = nil // zones in the file replace the defaults instead of merging
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Zones == nil {
		cfg.Zones = DefaultZones()
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ZKBOT_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		c.Serial.Port = v
	}
	if v := os.Getenv(EnvBaud); v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil || baud <= 0 {
			return fmt.Errorf("invalid %s %q", EnvBaud, v)
		}
		c.Serial.BaudRate = baud
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			return fmt.Errorf("invalid %s %q", EnvTimeout, v)
		}
		c.Serial.ReadTimeout = Seconds(t)
	}
	if v := os.Getenv(EnvProgramsDir); v != "" {
		c.Programs.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

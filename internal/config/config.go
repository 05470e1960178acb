package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"armbridge/internal/armmodel"
	"armbridge/internal/locomotion"
	"armbridge/internal/modes"
	"armbridge/internal/pipeline"
)

// Input sources.
const (
	SourceUDP    = "udp"
	SourceSerial = "serial"
	SourceReplay = "replay"
	SourceSim    = "sim"
)

type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

type InputConfig struct {
	Source   string             `yaml:"source"`
	Listen   string             `yaml:"listen"`
	Serial   SerialConfig       `yaml:"serial"`
	Replay   ReplayConfig       `yaml:"replay"`
	Sim      SimConfig          `yaml:"sim"`
	Record   RecordConfig       `yaml:"record"`
	Recenter RecenterGPIOConfig `yaml:"recenter_gpio"`
}

type SerialConfig struct {
	Path string `yaml:"path"`
	Baud int    `yaml:"baud"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type SimConfig struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
	Loop     bool          `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// RecenterGPIOConfig selects an optional push button that resets the fly
// offset.
type RecenterGPIOConfig struct {
	Enable    bool          `yaml:"enable"`
	Chip      string        `yaml:"chip"`
	Line      int           `yaml:"line"`
	ActiveLow bool          `yaml:"active_low"`
	Poll      time.Duration `yaml:"poll"`
}

type OutputConfig struct {
	Dest string `yaml:"dest"`
}

type WebConfig struct {
	Enable bool   `yaml:"enable"`
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Debug reports whether per-frame tracing is enabled.
func (c LogConfig) Debug() bool { return c.Level == "debug" }

// PipelineConfig starts from a preset and optionally overrides parts of it.
type PipelineConfig struct {
	Preset      string             `yaml:"preset"`
	Controllers []ControllerConfig `yaml:"controllers"`
	Modes       []ModeConfig       `yaml:"modes"`
	Head        *HeadConfig        `yaml:"head"`
	Locomotion  locomotion.Config  `yaml:"locomotion"`
	// ForearmRoll seeds the arm extension (radians) at session start.
	ForearmRoll float64 `yaml:"initial_forearm_roll"`
}

type ControllerConfig struct {
	Name           string     `yaml:"name"`
	Side           string     `yaml:"side"`
	Convention     string     `yaml:"convention"`
	ArmModel       bool       `yaml:"arm_model"`
	PositionScale  float64    `yaml:"position_scale"`
	PositionOffset [3]float64 `yaml:"position_offset"`
	ModeButtons    bool       `yaml:"mode_buttons"`
	Trackpad       bool       `yaml:"trackpad"`
}

type ModeConfig struct {
	Mode  string `yaml:"mode"`
	Label string `yaml:"label"`
}

type HeadConfig struct {
	Tracked bool       `yaml:"tracked"`
	Scale   float64    `yaml:"scale"`
	Offset  [3]float64 `yaml:"offset"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills defaults in place and rejects inconsistent
// settings. Errors name the YAML key at fault.
func DefaultAndValidate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	cfg.Output.Dest = strings.TrimSpace(cfg.Output.Dest)
	if cfg.Output.Dest == "" {
		return fmt.Errorf("output.dest is required")
	}

	in := &cfg.Input
	in.Source = strings.ToLower(strings.TrimSpace(in.Source))
	if in.Source == "" {
		in.Source = SourceUDP
	}
	switch in.Source {
	case SourceUDP:
		if in.Listen == "" {
			in.Listen = ":5005"
		}
	case SourceSerial:
		if in.Serial.Path == "" {
			return fmt.Errorf("input.serial.path is required when input.source is 'serial'")
		}
		if in.Serial.Baud == 0 {
			in.Serial.Baud = 115200
		}
		if in.Serial.Baud < 0 {
			return fmt.Errorf("input.serial.baud must be > 0")
		}
	case SourceReplay:
		if in.Replay.Path == "" {
			return fmt.Errorf("input.replay.path is required when input.source is 'replay'")
		}
		if in.Replay.Speed == 0 {
			in.Replay.Speed = 1
		}
		if in.Replay.Speed < 0 {
			return fmt.Errorf("input.replay.speed must be > 0")
		}
	case SourceSim:
		if in.Sim.Path == "" {
			return fmt.Errorf("input.sim.path is required when input.source is 'sim'")
		}
		if in.Sim.Interval <= 0 {
			in.Sim.Interval = 16 * time.Millisecond
		}
	default:
		return fmt.Errorf("input.source must be one of udp, serial, replay, sim")
	}

	if in.Record.Enable {
		if in.Source == SourceReplay {
			return fmt.Errorf("input.record cannot be used with input.source=replay")
		}
		if in.Record.Path == "" {
			return fmt.Errorf("input.record.path is required when input.record.enable is true")
		}
	}

	if in.Recenter.Enable {
		if in.Recenter.Chip == "" {
			in.Recenter.Chip = "gpiochip0"
		}
		if in.Recenter.Line < 0 {
			return fmt.Errorf("input.recenter_gpio.line must be >= 0")
		}
		if in.Recenter.Poll <= 0 {
			in.Recenter.Poll = 20 * time.Millisecond
		}
	}

	if cfg.Web.Enable && cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "info", "debug":
	default:
		return fmt.Errorf("log.level must be 'info' or 'debug'")
	}

	if cfg.Pipeline.Preset == "" {
		cfg.Pipeline.Preset = pipeline.PresetSingle
	}
	if _, err := cfg.Pipeline.Build(); err != nil {
		return err
	}
	return nil
}

// Build resolves the preset and overrides into a validated pipeline.Config.
func (p PipelineConfig) Build() (pipeline.Config, error) {
	out, err := pipeline.Preset(p.Preset)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("pipeline.preset: %w", err)
	}

	if len(p.Controllers) > 0 {
		out.Controllers = make([]pipeline.ControllerConfig, 0, len(p.Controllers))
		for i, c := range p.Controllers {
			side, err := armmodel.ParseSide(c.Side)
			if err != nil {
				return pipeline.Config{}, fmt.Errorf("pipeline.controllers[%d].side: %w", i, err)
			}
			out.Controllers = append(out.Controllers, pipeline.ControllerConfig{
				Name:           c.Name,
				Side:           side,
				Convention:     pipeline.Convention(strings.ToLower(c.Convention)),
				ArmModel:       c.ArmModel,
				PositionScale:  c.PositionScale,
				PositionOffset: vec(c.PositionOffset),
				ModeButtons:    c.ModeButtons,
				Trackpad:       c.Trackpad,
			})
		}
	}

	if len(p.Modes) > 0 {
		out.Modes = make([]modes.Entry, 0, len(p.Modes))
		for i, m := range p.Modes {
			mode, err := modes.ParseMode(m.Mode)
			if err != nil {
				return pipeline.Config{}, fmt.Errorf("pipeline.modes[%d].mode: %w", i, err)
			}
			label := m.Label
			if label == "" {
				label = mode.String()
			}
			out.Modes = append(out.Modes, modes.Entry{Mode: mode, Label: label})
		}
	}

	if p.Head != nil {
		out.Head = pipeline.HeadConfig{Tracked: p.Head.Tracked, Scale: p.Head.Scale, Offset: vec(p.Head.Offset)}
	}
	if p.Locomotion.Step != 0 {
		out.Locomotion.Step = p.Locomotion.Step
	}
	if p.Locomotion.DeadZone != 0 {
		out.Locomotion.DeadZone = p.Locomotion.DeadZone
	}
	if p.ForearmRoll < 0 || p.ForearmRoll > modes.MaxForearmRoll {
		return pipeline.Config{}, fmt.Errorf("pipeline.initial_forearm_roll must be in [0, %.4f]", modes.MaxForearmRoll)
	}

	if err := out.Validate(); err != nil {
		return pipeline.Config{}, err
	}
	return out, nil
}

func vec(v [3]float64) r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

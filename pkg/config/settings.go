package config

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gochip8/pkg/display"
)

// Settings are the driver options that can be kept in a YAML file:
//
//	cycles: 12
//	hz: 60
//	scale: 8
//	seed: 42
//	mute: true
//	palette:
//	  on: "#33FF66"
//	  off: "#001100"
type Settings struct {
	Cycles  int    `yaml:"cycles"`
	Hz      int    `yaml:"hz"`
	Scale   int    `yaml:"scale"`
	Seed    uint64 `yaml:"seed"`
	Mute    bool   `yaml:"mute"`
	Palette struct {
		On  string `yaml:"on"`
		Off string `yaml:"off"`
	} `yaml:"palette"`
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	s := Settings{
		Cycles: DefaultCyclesPerFrame,
		Hz:     DefaultTimerHz,
		Scale:  DefaultScale,
	}
	s.Palette.On = "#FFFFFF"
	s.Palette.Off = "#000000"
	return s
}

// LoadSettings reads a YAML settings file. Keys missing from the file keep
// their default value.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()

	filename, err := filepath.Abs(path)
	if err != nil {
		return s, err
	}
	in, err := os.ReadFile(filename)
	if err != nil {
		return s, fmt.Errorf("reading settings file: %w", err)
	}
	if err := yaml.Unmarshal(in, &s); err != nil {
		return s, fmt.Errorf("parsing settings file '%s': %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings file '%s': %w", path, err)
	}
	return s, nil
}

// ResolveSettings merges the built-in defaults, the settings file at path
// (skipped when path is empty) and the explicitly set flags, in that order.
func ResolveSettings(path string, flags *flag.FlagSet) (Settings, error) {
	s := DefaultSettings()
	if path != "" {
		var err error
		if s, err = LoadSettings(path); err != nil {
			return s, err
		}
	}
	s.ApplyFlags(flags)
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks value ranges and the palette colours.
func (s Settings) Validate() error {
	if s.Cycles < 1 {
		return fmt.Errorf("cycles must be positive, got %d", s.Cycles)
	}
	if s.Hz < 1 {
		return fmt.Errorf("hz must be positive, got %d", s.Hz)
	}
	if s.Scale < 1 {
		return fmt.Errorf("scale must be positive, got %d", s.Scale)
	}
	_, err := s.DisplayPalette()
	return err
}

// DisplayPalette converts the configured "#RRGGBB" colours.
func (s Settings) DisplayPalette() (display.Palette, error) {
	on, err := parseColor(s.Palette.On)
	if err != nil {
		return display.Palette{}, fmt.Errorf("palette on: %w", err)
	}
	off, err := parseColor(s.Palette.Off)
	if err != nil {
		return display.Palette{}, fmt.Errorf("palette off: %w", err)
	}
	return display.Palette{On: on, Off: off}, nil
}

// ApplyFlags overrides settings with the flags that were set explicitly on
// the command line. Flag names match the YAML keys.
func (s *Settings) ApplyFlags(flags *flag.FlagSet) {
	flags.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch v := getter.Get().(type) {
		case int:
			switch f.Name {
			case "cycles":
				s.Cycles = v
			case "hz":
				s.Hz = v
			case "scale":
				s.Scale = v
			}
		case uint64:
			if f.Name == "seed" {
				s.Seed = v
			}
		case bool:
			if f.Name == "mute" {
				s.Mute = v
			}
		}
	})
}

func parseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour '%s', expected #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour '%s': %w", s, err)
	}
	return color.RGBA{R: byte(v >> 16), G: byte(v >> 8), B: byte(v), A: 0xFF}, nil
}

package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models shopfloor.yml.
type Config struct {
	Shifts  map[string]Shift `yaml:"shifts"`
	Targets struct {
		Safety   float64 `yaml:"safety"`
		Quality  float64 `yaml:"quality"`
		Delivery float64 `yaml:"delivery"`
		Cost     float64 `yaml:"cost"`
	} `yaml:"targets"`
}

// Shift is a named slice of the day in wall-clock terms. An end at or
// before the start means the shift wraps past midnight.
type Shift struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run sf init to generate it", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Shifts) == 0 {
		return fmt.Errorf("config.shifts is required")
	}
	for name, s := range c.Shifts {
		if name == "" {
			return fmt.Errorf("config.shifts contains an empty shift name")
		}
		if _, err := parseClock(s.Start); err != nil {
			return fmt.Errorf("shift %s start: %w", name, err)
		}
		if _, err := parseClock(s.End); err != nil {
			return fmt.Errorf("shift %s end: %w", name, err)
		}
	}
	if c.Targets.Quality < 0 || c.Targets.Quality > 100 {
		return fmt.Errorf("config.targets.quality must be a percentage (0-100)")
	}
	if c.Targets.Safety < 0 || c.Targets.Delivery < 0 || c.Targets.Cost < 0 {
		return fmt.Errorf("config.targets values must not be negative")
	}
	return nil
}

// ShiftWindow resolves a shift name and a calendar day into absolute
// half-open instants. Shifts that wrap past midnight end on the next day.
func (c *Config) ShiftWindow(name string, day time.Time) (time.Time, time.Time, error) {
	s, ok := c.Shifts[name]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("unknown shift %q", name)
	}
	startClock, err := parseClock(s.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("shift %s start: %w", name, err)
	}
	endClock, err := parseClock(s.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("shift %s end: %w", name, err)
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	start := midnight.Add(startClock)
	end := midnight.Add(endClock)
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return start, end, nil
}

// ShiftNames returns the configured shift names sorted for stable display.
func (c *Config) ShiftNames() []string {
	names := make([]string, 0, len(c.Shifts))
	for name := range c.Shifts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", v)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "shopfloor.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `shifts:
  all-day:
    start: "00:00"
    end: "00:00"
  shift-1:
    start: "06:00"
    end: "14:00"
  shift-2:
    start: "14:00"
    end: "22:00"
  shift-3:
    start: "22:00"
    end: "06:00"

# Seed values for per-line SQDC targets; lines without a stored target
# fall back to the same figures at scorecard time.
targets:
  safety: 0
  quality: 95
  delivery: 100
  cost: 30
`

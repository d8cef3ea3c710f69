// Package config loads the host-identity-keyed robot configuration: which
// bus and IMU a robot carries, where its range sensors are mounted, and the
// field it plays on.  The file is read once at process start; there is no
// schema versioning and no hot reload.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/angle"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/field"
	"github.com/strikerbot-team/strikerbot/go-localizer/pkg/tofsensor"
)

const DefaultPath = "/cfg/localizer.yaml"

type Config struct {
	Robots map[string]*Robot `yaml:"robots"`
}

type Robot struct {
	Bus     Bus           `yaml:"bus"`
	IMU     IMU           `yaml:"imu"`
	Range   Range         `yaml:"range"`
	Sensors []SensorMount `yaml:"sensors"`
	Field   field.Field   `yaml:"field"`
	Hub     Hub           `yaml:"hub"`
	Loop    Loop          `yaml:"loop"`
}

type Bus struct {
	Backend string `yaml:"backend"` // "devfs" or "periph"
	Device  string `yaml:"device"`
}

type IMU struct {
	Source string `yaml:"source"` // "bno055", "bno08x" or "dummy"
	Addr   int    `yaml:"addr"`
	Port   string `yaml:"port"`
}

type Range struct {
	MinMM float64 `yaml:"min_mm"`
	MaxMM float64 `yaml:"max_mm"`
}

// SensorMount is the on-disk form of a mount; angles are degrees in the
// file, radians in memory.
type SensorMount struct {
	Name     string  `yaml:"name"`
	Addr     int     `yaml:"addr"`
	OffsetMM float64 `yaml:"offset_mm"`
	AngleDeg float64 `yaml:"angle_deg"`
}

func (m SensorMount) Mount() (tofsensor.Mount, error) {
	a, err := angle.FromFloat(m.AngleDeg * math.Pi / 180)
	if err != nil {
		return tofsensor.Mount{}, errors.Wrapf(err, "bad angle for sensor %q", m.Name)
	}
	return tofsensor.Mount{
		Name:     m.Name,
		Addr:     m.Addr,
		OffsetMM: m.OffsetMM,
		Angle:    a,
	}, nil
}

type Hub struct {
	URL string `yaml:"url"`
}

type Loop struct {
	IntervalMS int `yaml:"interval_ms"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return &cfg, nil
}

// ForHost returns the configuration for the named host, falling back to the
// "default" entry, with unset fields filled from defaults.
func (c *Config) ForHost(hostname string) (*Robot, error) {
	r, ok := c.Robots[hostname]
	if !ok {
		r, ok = c.Robots["default"]
	}
	if !ok {
		return nil, errors.Errorf("no configuration for host %q and no default", hostname)
	}
	applyDefaults(r)
	return r, nil
}

func applyDefaults(r *Robot) {
	if r.Bus.Backend == "" {
		r.Bus.Backend = "devfs"
	}
	if r.Bus.Device == "" {
		r.Bus.Device = "/dev/i2c-1"
	}
	if r.IMU.Source == "" {
		r.IMU.Source = "bno055"
	}
	if r.IMU.Addr == 0 {
		r.IMU.Addr = 0x28
	}
	if r.IMU.Port == "" {
		r.IMU.Port = "/dev/ttyAMA0"
	}
	if r.Range.MinMM == 0 {
		r.Range.MinMM = 10
	}
	if r.Range.MaxMM == 0 {
		r.Range.MaxMM = 2500
	}
	if r.Loop.IntervalMS == 0 {
		r.Loop.IntervalMS = 50
	}
}

// Mounts converts the configured sensor list.
func (r *Robot) Mounts() ([]tofsensor.Mount, error) {
	mounts := make([]tofsensor.Mount, 0, len(r.Sensors))
	for _, s := range r.Sensors {
		m, err := s.Mount()
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, m)
	}
	return mounts, nil
}

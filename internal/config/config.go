// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Instance describes one monitored simulation run. Paths are relative to
// BaseDir unless absolute. Instances are created at startup and never
// mutated afterwards.
type Instance struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	Units      int    `yaml:"units"`
	Artifact   string `yaml:"artifact"`
	StatusFile string `yaml:"status_file"`
	ConfigFile string `yaml:"config_file"`
}

// MonitorConfig is the root configuration for the live monitor.
type MonitorConfig struct {
	BaseDir          string     `yaml:"base_dir"`
	PollIntervalMS   int        `yaml:"poll_interval_ms"`
	StabilityDelayMS int        `yaml:"stability_delay_ms"`
	TickIntervalMS   int        `yaml:"tick_interval_ms"`
	ShutdownGraceMS  int        `yaml:"shutdown_grace_ms"`
	QueueCapacity    int        `yaml:"queue_capacity"`
	TrailLength      int        `yaml:"trail_length"`
	TrailTracks      int        `yaml:"trail_tracks"`
	LatencyWindow    int        `yaml:"latency_window"`
	DefaultEndTime   float64    `yaml:"default_end_time"`
	Reference        string     `yaml:"reference"`
	Instances        []Instance `yaml:"instances"`
}

// Defaults matching the engine's real-time output cadence.
const (
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultStabilityDelay = 10 * time.Millisecond
	DefaultTickInterval   = 50 * time.Millisecond
	DefaultShutdownGrace  = 2 * time.Second
	DefaultQueueCapacity  = 256
	DefaultTrailLength    = 10
	DefaultTrailTracks    = 8
	DefaultLatencyWindow  = 10
	DefaultEndTime        = 100.0
)

// Load loads YAML config, validates it against a CUE schema, and applies
// defaults for unset interval and sizing fields.
func Load(configPath, cueSchemaPath string) (*MonitorConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg MonitorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if len(cfg.Instances) == 0 {
		return nil, fmt.Errorf("config: no instances defined")
	}
	seen := make(map[string]struct{}, len(cfg.Instances))
	for i, inst := range cfg.Instances {
		if inst.ID == "" {
			return nil, fmt.Errorf("config: instance %d has no id", i)
		}
		if _, dup := seen[inst.ID]; dup {
			return nil, fmt.Errorf("config: duplicate instance id %q", inst.ID)
		}
		seen[inst.ID] = struct{}{}
		if inst.Artifact == "" {
			return nil, fmt.Errorf("config: instance %q has no artifact path", inst.ID)
		}
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued knobs. Load calls it; callers that
// build a MonitorConfig in code should too.
func (c *MonitorConfig) ApplyDefaults() {
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = int(DefaultPollInterval / time.Millisecond)
	}
	if c.StabilityDelayMS <= 0 {
		c.StabilityDelayMS = int(DefaultStabilityDelay / time.Millisecond)
	}
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = int(DefaultTickInterval / time.Millisecond)
	}
	if c.ShutdownGraceMS <= 0 {
		c.ShutdownGraceMS = int(DefaultShutdownGrace / time.Millisecond)
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.TrailLength <= 0 {
		c.TrailLength = DefaultTrailLength
	}
	if c.TrailTracks <= 0 {
		c.TrailTracks = DefaultTrailTracks
	}
	if c.LatencyWindow <= 0 {
		c.LatencyWindow = DefaultLatencyWindow
	}
	if c.DefaultEndTime <= 0 {
		c.DefaultEndTime = DefaultEndTime
	}
	for i := range c.Instances {
		if c.Instances[i].Units <= 0 {
			c.Instances[i].Units = 1
		}
		if c.Instances[i].Label == "" {
			c.Instances[i].Label = c.Instances[i].ID
		}
	}
}

// PollInterval returns the watcher poll interval as a duration.
func (c *MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// StabilityDelay returns the torn-write stability delay as a duration.
func (c *MonitorConfig) StabilityDelay() time.Duration {
	return time.Duration(c.StabilityDelayMS) * time.Millisecond
}

// TickInterval returns the render tick cadence as a duration.
func (c *MonitorConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// ShutdownGrace returns the watcher join timeout as a duration.
func (c *MonitorConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceMS) * time.Millisecond
}

// Resolve joins a configured path with the base directory.
func (c *MonitorConfig) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.BaseDir, path)
}

// ArtifactPath returns the absolute artifact path for an instance.
func (c *MonitorConfig) ArtifactPath(inst Instance) string { return c.Resolve(inst.Artifact) }

// StatusPath returns the status marker path for an instance, or "".
func (c *MonitorConfig) StatusPath(inst Instance) string { return c.Resolve(inst.StatusFile) }

// ConfigPath returns the per-instance engine cfg path, or "".
func (c *MonitorConfig) ConfigPath(inst Instance) string { return c.Resolve(inst.ConfigFile) }

// Package seed generates fake simulation artifacts for demos and tests.
// It plays the role of the external engines: it writes cfg and status
// marker files, then periodically rewrites each instance's artifact with
// a rotating particle disc, advancing simulation time until the end time.
package seed

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"nbodywatch/internal/config"
	"nbodywatch/internal/logging"
)

// Seeder rewrites artifacts for every configured instance at a fixed
// cadence. Instances with more units advance simulation time faster, so
// the monitor's speedup metric has something to show.
type Seeder struct {
	cfg       *config.MonitorConfig
	particles int
	interval  time.Duration
	baseStep  float64
	states    map[string]*engineState
}

type engineState struct {
	step int
	time float64
	done bool
}

// New creates a Seeder. particles <= 0 defaults to 256, interval <= 0 to
// 200ms.
func New(cfg *config.MonitorConfig, particles int, interval time.Duration) *Seeder {
	if particles <= 0 {
		particles = 256
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	s := &Seeder{
		cfg:       cfg,
		particles: particles,
		interval:  interval,
		baseStep:  0.25,
		states:    make(map[string]*engineState, len(cfg.Instances)),
	}
	for _, inst := range cfg.Instances {
		s.states[inst.ID] = &engineState{}
	}
	return s
}

// Run prepares cfg and status files, then rewrites artifacts until every
// instance reaches the end time or the context is cancelled.
func (s *Seeder) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)
	if err := s.prepare(); err != nil {
		return err
	}
	log.Info("seeder started",
		"instances", len(s.cfg.Instances),
		"particles", s.particles,
		"end_time", s.cfg.DefaultEndTime)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.tickOnce() {
				log.Info("seeder finished, all instances done")
				return nil
			}
		}
	}
}

// prepare creates instance directories, cfg files and initial status
// markers.
func (s *Seeder) prepare() error {
	for _, inst := range s.cfg.Instances {
		artifact := s.cfg.ArtifactPath(inst)
		if err := os.MkdirAll(filepath.Dir(artifact), 0o755); err != nil {
			return fmt.Errorf("seed: create dir for %s: %w", inst.ID, err)
		}
		if p := s.cfg.ConfigPath(inst); p != "" {
			if err := writeEngineConfig(p, s.cfg.DefaultEndTime); err != nil {
				return err
			}
		}
		if p := s.cfg.StatusPath(inst); p != "" {
			if err := os.WriteFile(p, []byte("running\n"), 0o644); err != nil {
				return fmt.Errorf("seed: write status for %s: %w", inst.ID, err)
			}
		}
	}
	return nil
}

// tickOnce rewrites one artifact per live instance and reports whether
// every instance has finished.
func (s *Seeder) tickOnce() bool {
	allDone := true
	for _, inst := range s.cfg.Instances {
		st := s.states[inst.ID]
		if st.done {
			continue
		}
		st.step++
		st.time += s.baseStep * float64(inst.Units)
		if st.time >= s.cfg.DefaultEndTime {
			st.time = s.cfg.DefaultEndTime
			st.done = true
		}
		if err := WriteArtifact(s.cfg.ArtifactPath(inst), st.step, st.time, s.particles); err != nil {
			st.done = false
			allDone = false
			continue
		}
		if st.done {
			if p := s.cfg.StatusPath(inst); p != "" {
				_ = os.WriteFile(p, []byte("done\n"), 0o644)
			}
		} else {
			allDone = false
		}
	}
	return allDone
}

// WriteArtifact writes a snapshot of a rotating particle disc. The write
// is deliberately not atomic: the file is truncated and then filled line
// by line, the same window a real engine's writer leaves open.
func WriteArtifact(path string, step int, t float64, particles int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("seed: write artifact: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "%d\n", step)
	fmt.Fprintf(f, "%d\n", particles)
	fmt.Fprintf(f, "%g\n", t)
	omega := 0.1
	for i := 0; i < particles; i++ {
		radius := 0.2 + 0.8*float64(i)/float64(particles)
		angle := float64(i)*2*math.Pi*goldenAngle + omega*t/radius
		x := radius * math.Cos(angle)
		y := radius * math.Sin(angle)
		z := 0.05 * math.Sin(float64(i))
		speed := omega / math.Sqrt(radius)
		vx := -speed * math.Sin(angle)
		vy := speed * math.Cos(angle)
		mass := 1.0 / float64(particles) * (1 + 0.5*rand.Float64())
		fmt.Fprintf(f, "%d %g %g %g %g %g %g %g\n", i, mass, x, y, z, vx, vy, 0.0)
	}
	return nil
}

// goldenAngle spreads particles evenly around the disc.
const goldenAngle = 0.38196601125

// writeEngineConfig writes the engine cfg file whose second token is the
// expected end time.
func writeEngineConfig(path string, endTime float64) error {
	content := fmt.Sprintf("0 %g 0.01 1.0 data.inp\n", endTime)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("seed: write engine config: %w", err)
	}
	return nil
}

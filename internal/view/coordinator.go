// Coordinator owning the watcher set and the render tick loop
package view

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"nbodywatch/internal/config"
	"nbodywatch/internal/logging"
	"nbodywatch/internal/scene"
	"nbodywatch/internal/watch"
)

// stallAfter is the display-only threshold after which a running instance
// with no fresh snapshots is flagged as stalled.
const stallAfter = 5 * time.Second

// Coordinator owns the instance watchers and their accumulated states,
// drives the render tick, and exposes the control surface.
type Coordinator struct {
	cfg       *config.MonitorConfig
	sceneW    SceneWriter
	metricsW  MetricsWriter
	controls  *Controls
	queue     *watch.Queue
	watchers  []*watch.Watcher
	states    map[string]*InstanceState
	order     []string
	sessionID string
	now       func() time.Time
	mu        sync.Mutex
}

// NewCoordinator builds the pipeline for every configured instance.
// metricsW may be nil to disable metric export; now may be nil for the
// wall clock.
func NewCoordinator(cfg *config.MonitorConfig, sceneW SceneWriter, metricsW MetricsWriter, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	c := &Coordinator{
		cfg:       cfg,
		sceneW:    sceneW,
		metricsW:  metricsW,
		controls:  NewControls(),
		queue:     watch.NewQueue(cfg.QueueCapacity),
		states:    make(map[string]*InstanceState, len(cfg.Instances)),
		sessionID: uuid.New().String(),
		now:       now,
	}
	for _, inst := range cfg.Instances {
		endTime := readEndTime(cfg.ConfigPath(inst), cfg.DefaultEndTime)
		c.states[inst.ID] = newInstanceState(inst, cfg.TrailLength, cfg.LatencyWindow, endTime)
		c.order = append(c.order, inst.ID)
		c.watchers = append(c.watchers, watch.New(
			inst,
			cfg.ArtifactPath(inst),
			cfg.StatusPath(inst),
			cfg.PollInterval(),
			cfg.StabilityDelay(),
			c.queue,
		))
	}
	return c
}

// SetWriters replaces the scene and metrics writers. Must be called
// before Run; the TUI writer needs the coordinator's controls, so it is
// built after the coordinator.
func (c *Coordinator) SetWriters(sceneW SceneWriter, metricsW MetricsWriter) {
	c.sceneW = sceneW
	c.metricsW = metricsW
}

// Controls returns the shared control knobs.
func (c *Coordinator) Controls() *Controls { return c.controls }

// SessionID identifies this monitor run on exported metric rows.
func (c *Coordinator) SessionID() string { return c.sessionID }

// Run starts one goroutine per watcher and blocks in the render tick loop
// until the context is cancelled. Watchers are joined with a bounded grace
// period; one that fails to stop is abandoned with an operational warning.
func (c *Coordinator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("coordinator starting",
		"instances", len(c.watchers),
		"tick_interval", c.cfg.TickInterval(),
		"poll_interval", c.cfg.PollInterval())

	var wg sync.WaitGroup
	for _, w := range c.watchers {
		wg.Add(1)
		go func(w *watch.Watcher) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	ticker := time.NewTicker(c.cfg.TickInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-ctx.Done():
			c.shutdown(ctx, &wg)
			return
		}
	}
}

func (c *Coordinator) shutdown(ctx context.Context, wg *sync.WaitGroup) {
	log := logging.FromContext(ctx)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("coordinator stopped")
	case <-time.After(c.cfg.ShutdownGrace()):
		log.Error("watcher tasks did not stop within grace period, abandoning",
			"grace", c.cfg.ShutdownGrace())
	}
	c.queue.Close()
}

// tick drains the fan-in queue, folds updates into instance state, and
// emits one scene per instance plus one metric row per accepted snapshot.
func (c *Coordinator) tick(ctx context.Context) {
	log := logging.FromContext(ctx)
	paused := c.controls.Paused()

	c.mu.Lock()
	var rows []scene.MetricsRow
	if !paused {
		for _, u := range c.queue.Drain() {
			st, ok := c.states[u.InstanceID]
			if !ok {
				continue
			}
			if u.Status != "" {
				st.Status = u.Status
				continue
			}
			if u.Sequence <= st.Seq {
				// Watchers only move forward; anything else is a replayed
				// duplicate and is skipped to keep sequences monotonic.
				continue
			}
			st.fold(u, c.now())
			rows = append(rows, c.metricsRow(st, u))
		}
	}

	rotStep := c.controls.RotationSpeed() * c.controls.PlaybackSpeed()
	scenes := make([]scene.Scene, 0, len(c.order))
	for _, id := range c.order {
		st := c.states[id]
		if !paused {
			st.Rotation = math.Mod(st.Rotation+rotStep, 360)
		}
		scenes = append(scenes, c.buildScene(st))
	}
	c.mu.Unlock()

	if bw, ok := c.sceneW.(batchSceneWriter); ok {
		if err := bw.WriteScenes(scenes); err != nil {
			log.Error("scene batch write failed", "err", err)
		}
	} else if c.sceneW != nil {
		for _, s := range scenes {
			if err := c.sceneW.WriteScene(s); err != nil {
				log.Error("scene write failed", "instance", s.InstanceID, "err", err)
			}
		}
	}

	if len(rows) > 0 && c.metricsW != nil {
		if bw, ok := c.metricsW.(batchMetricsWriter); ok {
			if err := bw.WriteMetricsBatch(rows); err != nil {
				log.Error("metrics batch write failed", "err", err)
			}
		} else {
			for _, r := range rows {
				if err := c.metricsW.WriteMetrics(r); err != nil {
					log.Error("metrics write failed", "instance", r.InstanceID, "err", err)
				}
			}
		}
	}
}

func (c *Coordinator) metricsRow(st *InstanceState, u watch.Update) scene.MetricsRow {
	return scene.MetricsRow{
		SessionID:  c.sessionID,
		InstanceID: st.Desc.ID,
		Units:      st.Desc.Units,
		Sequence:   u.Sequence,
		SimTime:    u.Snapshot.Time,
		Particles:  u.Snapshot.Particles,
		DecodeMS:   float64(u.DecodeTime) / float64(time.Millisecond),
		FPS:        st.FPS(),
		Speedup:    c.speedup(st),
		Progress:   st.Progress(),
		Timestamp:  c.now().UTC(),
	}
}

// speedup relates the reference instance's latest decode duration to this
// instance's. Without a reference sample it falls back to the instance's
// unit count.
func (c *Coordinator) speedup(st *InstanceState) float64 {
	if st.lastDecode <= 0 {
		return 1
	}
	ref, ok := c.states[c.cfg.Reference]
	if !ok || ref.lastDecode <= 0 {
		if st.Desc.Units > 0 {
			return float64(st.Desc.Units)
		}
		return 1
	}
	return float64(ref.lastDecode) / float64(st.lastDecode)
}

func (c *Coordinator) buildScene(st *InstanceState) scene.Scene {
	s := scene.Scene{
		InstanceID:  st.Desc.ID,
		Label:       st.Desc.Label,
		Status:      st.Status,
		Progress:    st.Progress(),
		Rotation:    st.Rotation,
		CurrentTime: st.CurrentTime,
		EndTime:     st.EndTime,
		Sequence:    st.Seq,
	}
	if st.Latest == nil {
		s.HUD = fmt.Sprintf("%s | waiting for data", st.Desc.Label)
		return s
	}
	s.Stalled = !st.Done() && c.now().Sub(st.LastUpdate) > stallAfter
	s.HUD = fmt.Sprintf("%s | snapshot %04d | fps %.1f | speedup %.1fx",
		st.Desc.Label, st.Seq, st.FPS(), c.speedup(st))
	s.Points = buildPoints(st, c.controls.ParticleScale())
	if c.controls.TrailsEnabled() && st.Trail.Len() > 1 {
		s.Trails = buildTrails(st, c.cfg.TrailTracks)
	}
	return s
}

// buildPoints maps particles to display points: size follows normalized
// mass, the color scalar follows normalized velocity magnitude.
func buildPoints(st *InstanceState, scale float64) []scene.Point {
	snap := st.Latest
	minMass, maxMass := snap.Masses[0], snap.Masses[0]
	for _, m := range snap.Masses {
		if m < minMass {
			minMass = m
		}
		if m > maxMass {
			maxMass = m
		}
	}
	maxVel := 0.0
	for _, v := range snap.Velocities {
		if v > maxVel {
			maxVel = v
		}
	}
	points := make([]scene.Point, snap.Particles)
	for i := range points {
		massNorm := (snap.Masses[i] - minMass) / (maxMass - minMass + 1e-10)
		scalar := 0.0
		if i < len(snap.Velocities) {
			scalar = snap.Velocities[i] / (maxVel + 1e-10)
		}
		points[i] = scene.Point{
			X:      snap.Positions[i][0],
			Y:      snap.Positions[i][1],
			Z:      snap.Positions[i][2],
			Size:   (50 + 200*massNorm) * scale,
			Scalar: scalar,
		}
	}
	return points
}

// buildTrails follows a small fixed subset of particles through the trail
// window. Track indices are sampled uniformly over the particle range, so
// the same particles stay tracked from tick to tick.
func buildTrails(st *InstanceState, tracks int) []scene.Trail {
	n := st.Latest.Particles
	if tracks > n {
		tracks = n
	}
	if tracks <= 0 {
		return nil
	}
	history := st.Trail.Items()
	trails := make([]scene.Trail, 0, tracks)
	for i := 0; i < tracks; i++ {
		tid := 0
		if tracks > 1 {
			tid = i * (n - 1) / (tracks - 1)
		}
		tr := scene.Trail{ParticleID: tid}
		for _, snap := range history {
			if tid < len(snap.Positions) {
				tr.Points = append(tr.Points, snap.Positions[tid])
			}
		}
		if len(tr.Points) > 1 {
			trails = append(trails, tr)
		}
	}
	return trails
}

// InstanceSummary is a read-only projection of instance state for the
// admin surface.
type InstanceSummary struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Status      string  `json:"status"`
	Stalled     bool    `json:"stalled"`
	Units       int     `json:"units"`
	Sequence    int     `json:"sequence"`
	Particles   int     `json:"particles"`
	CurrentTime float64 `json:"current_time"`
	EndTime     float64 `json:"end_time"`
	Progress    float64 `json:"progress"`
	FPS         float64 `json:"fps"`
	Speedup     float64 `json:"speedup"`
}

// Summaries returns the current per-instance summaries in config order.
func (c *Coordinator) Summaries() []InstanceSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]InstanceSummary, 0, len(c.order))
	for _, id := range c.order {
		st := c.states[id]
		sum := InstanceSummary{
			ID:          st.Desc.ID,
			Label:       st.Desc.Label,
			Status:      st.Status,
			Units:       st.Desc.Units,
			Sequence:    st.Seq,
			CurrentTime: st.CurrentTime,
			EndTime:     st.EndTime,
			Progress:    st.Progress(),
			FPS:         st.FPS(),
			Speedup:     c.speedup(st),
		}
		if st.Latest != nil {
			sum.Particles = st.Latest.Particles
			sum.Stalled = !st.Done() && c.now().Sub(st.LastUpdate) > stallAfter
		}
		out = append(out, sum)
	}
	return out
}

// readEndTime reads the expected simulation end time from the engine's cfg
// artifact (second whitespace token), falling back to def.
func readEndTime(path string, def float64) float64 {
	if path == "" {
		return def
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return def
	}
	tokens := strings.Fields(string(b))
	if len(tokens) < 2 {
		return def
	}
	v, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

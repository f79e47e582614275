// Package watch polls simulation artifact files and feeds decoded
// snapshots into the fan-in queue.
package watch

import (
	"context"
	"math"
	"os"
	"strings"
	"time"

	"nbodywatch/internal/config"
	"nbodywatch/internal/logging"
	"nbodywatch/internal/snapshot"
)

// Watcher monitors the artifact and status marker of exactly one instance.
// It owns no shared state: everything it learns travels through the queue.
type Watcher struct {
	inst       config.Instance
	artifact   string
	statusPath string
	poll       time.Duration
	stability  time.Duration
	queue      *Queue

	lastMtime  time.Time
	lastStatus string
	prev       *snapshot.Snapshot
	seq        int
}

// New creates a watcher for one instance descriptor.
func New(inst config.Instance, artifact, statusPath string, poll, stability time.Duration, q *Queue) *Watcher {
	return &Watcher{
		inst:       inst,
		artifact:   artifact,
		statusPath: statusPath,
		poll:       poll,
		stability:  stability,
		queue:      q,
	}
}

// Run polls until the context is cancelled. A failed poll never terminates
// the loop; whatever went wrong is retried on the next interval.
func (w *Watcher) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Debug("watcher starting", "instance", w.inst.ID, "artifact", w.artifact)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("watcher stopping", "instance", w.inst.ID)
			return
		case <-ticker.C:
			w.pollOnce(ctx)
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) {
	w.pollStatus()
	w.pollArtifact(ctx)
}

// pollStatus reads the status marker wholesale. A missing marker is the
// normal case before the engine starts and is not an error.
func (w *Watcher) pollStatus() {
	if w.statusPath == "" {
		return
	}
	b, err := os.ReadFile(w.statusPath)
	if err != nil {
		return
	}
	s := strings.TrimSpace(string(b))
	if s == "" || s == w.lastStatus {
		return
	}
	w.lastStatus = s
	w.queue.Enqueue(Update{InstanceID: w.inst.ID, Status: s})
}

func (w *Watcher) pollArtifact(ctx context.Context) {
	log := logging.FromContext(ctx)

	info, err := os.Stat(w.artifact)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("artifact stat failed", "instance", w.inst.ID, "err", err)
		}
		return
	}
	mtime := info.ModTime()
	if !mtime.After(w.lastMtime) {
		return
	}

	// Stability check: the engine truncates and rewrites the artifact in
	// place, so a size still moving after a short delay means mid-write.
	initialSize := info.Size()
	select {
	case <-ctx.Done():
		return
	case <-time.After(w.stability):
	}
	info, err = os.Stat(w.artifact)
	if err != nil || info.Size() != initialSize || initialSize == 0 {
		return
	}

	start := time.Now()
	raw, err := os.ReadFile(w.artifact)
	if err != nil {
		log.Warn("artifact read failed", "instance", w.inst.ID, "err", err)
		return
	}
	snap, err := snapshot.Decode(raw)
	decodeTime := time.Since(start)
	if err != nil {
		// Likely a torn write the size check missed. The mtime marker is
		// not advanced, so the same content is retried next poll.
		log.Debug("snapshot rejected", "instance", w.inst.ID, "err", err)
		return
	}

	snap.Velocities = velocityEstimate(w.prev, snap)
	w.seq++
	if !w.queue.Enqueue(Update{
		InstanceID: w.inst.ID,
		Snapshot:   snap,
		Sequence:   w.seq,
		DecodeTime: decodeTime,
	}) {
		// Queue closed during shutdown: pretend this poll never happened.
		w.seq--
		return
	}
	w.prev = snap
	w.lastMtime = mtime
}

// velocityEstimate derives per-particle speed as the Euclidean distance
// between index-aligned positions of two consecutive snapshots. Index i is
// assumed to be the same particle in both snapshots; the engine's output
// order appears stable but this is not verified against the id column. When
// the particle counts differ the estimate degrades to zeros.
func velocityEstimate(prev, cur *snapshot.Snapshot) []float64 {
	v := make([]float64, cur.Particles)
	if prev == nil || prev.Particles != cur.Particles {
		return v
	}
	for i := range cur.Positions {
		dx := cur.Positions[i][0] - prev.Positions[i][0]
		dy := cur.Positions[i][1] - prev.Positions[i][1]
		dz := cur.Positions[i][2] - prev.Positions[i][2]
		v[i] = math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	return v
}

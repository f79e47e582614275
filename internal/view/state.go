package view

import (
	"strings"
	"time"

	"nbodywatch/internal/config"
	"nbodywatch/internal/scene"
	"nbodywatch/internal/snapshot"
	"nbodywatch/internal/watch"
)

// snapshotRing is a fixed-capacity window over the most recent snapshots,
// oldest first. Appending beyond capacity silently evicts the oldest entry.
type snapshotRing struct {
	buf   []*snapshot.Snapshot
	start int
	n     int
}

func newSnapshotRing(capacity int) *snapshotRing {
	if capacity <= 0 {
		capacity = 1
	}
	return &snapshotRing{buf: make([]*snapshot.Snapshot, capacity)}
}

func (r *snapshotRing) Append(s *snapshot.Snapshot) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = s
		r.n++
		return
	}
	r.buf[r.start] = s
	r.start = (r.start + 1) % len(r.buf)
}

func (r *snapshotRing) Len() int { return r.n }

// Items returns the window contents oldest to newest.
func (r *snapshotRing) Items() []*snapshot.Snapshot {
	out := make([]*snapshot.Snapshot, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(r.start+i)%len(r.buf)])
	}
	return out
}

// InstanceState is the per-instance accumulated state. It is written only
// by the render tick; watchers never touch it.
type InstanceState struct {
	Desc        config.Instance
	Latest      *snapshot.Snapshot
	Trail       *snapshotRing
	Status      string
	Seq         int
	CurrentTime float64
	EndTime     float64
	Rotation    float64
	LastUpdate  time.Time

	decodeTimes []time.Duration
	lastDecode  time.Duration
	window      int
}

func newInstanceState(desc config.Instance, trailLen, latencyWindow int, endTime float64) *InstanceState {
	return &InstanceState{
		Desc:    desc,
		Trail:   newSnapshotRing(trailLen),
		Status:  scene.StatusWaiting,
		EndTime: endTime,
		window:  latencyWindow,
	}
}

// fold merges one snapshot update into the state.
func (st *InstanceState) fold(u watch.Update, now time.Time) {
	st.Latest = u.Snapshot
	st.Seq = u.Sequence
	st.CurrentTime = u.Snapshot.Time
	st.Trail.Append(u.Snapshot)
	st.LastUpdate = now
	if st.Status == scene.StatusWaiting {
		st.Status = scene.StatusRunning
	}
	st.lastDecode = u.DecodeTime
	st.decodeTimes = append(st.decodeTimes, u.DecodeTime)
	if len(st.decodeTimes) > st.window {
		st.decodeTimes = st.decodeTimes[len(st.decodeTimes)-st.window:]
	}
}

// FPS is the reciprocal of the mean decode duration over the latency
// window, or 0 before the first accepted snapshot.
func (st *InstanceState) FPS() float64 {
	if len(st.decodeTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range st.decodeTimes {
		sum += d
	}
	mean := sum / time.Duration(len(st.decodeTimes))
	if mean <= 0 {
		return 0
	}
	return float64(time.Second) / float64(mean)
}

// Progress is current_time/expected_end_time clamped to [0,1].
func (st *InstanceState) Progress() float64 {
	if st.EndTime <= 0 {
		return 0
	}
	p := st.CurrentTime / st.EndTime
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Done reports whether the status marker signalled completion.
func (st *InstanceState) Done() bool {
	return strings.HasPrefix(strings.ToLower(st.Status), scene.StatusDone)
}

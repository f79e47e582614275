package view

import (
	"testing"
	"time"

	"nbodywatch/internal/config"
	"nbodywatch/internal/scene"
	"nbodywatch/internal/snapshot"
	"nbodywatch/internal/watch"
)

func snapAt(t float64, positions [][3]float64) *snapshot.Snapshot {
	masses := make([]float64, len(positions))
	for i := range masses {
		masses[i] = 1
	}
	return &snapshot.Snapshot{
		Time:       t,
		Particles:  len(positions),
		Positions:  positions,
		Masses:     masses,
		Velocities: make([]float64, len(positions)),
	}
}

func TestSnapshotRing_NeverExceedsCapacity(t *testing.T) {
	r := newSnapshotRing(3)
	for i := 0; i < 10; i++ {
		r.Append(snapAt(float64(i), [][3]float64{{0, 0, 0}}))
		if r.Len() > 3 {
			t.Fatalf("ring grew past capacity: %d", r.Len())
		}
	}
	items := r.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, want := range []float64{7, 8, 9} {
		if items[i].Time != want {
			t.Errorf("item %d has time %v, want %v", i, items[i].Time, want)
		}
	}
}

func TestInstanceState_FoldAndMetrics(t *testing.T) {
	st := newInstanceState(config.Instance{ID: "P1", Units: 1}, 10, 3, 10.0)
	if st.Status != scene.StatusWaiting || st.FPS() != 0 {
		t.Fatalf("fresh state should be waiting with zero fps: %+v", st)
	}

	now := time.Unix(0, 0)
	for i := 1; i <= 5; i++ {
		st.fold(watch.Update{
			InstanceID: "P1",
			Snapshot:   snapAt(float64(i), [][3]float64{{0, 0, 0}}),
			Sequence:   i,
			DecodeTime: 100 * time.Millisecond,
		}, now)
	}
	if st.Status != scene.StatusRunning {
		t.Errorf("status = %q, want running", st.Status)
	}
	if st.Seq != 5 || st.CurrentTime != 5 {
		t.Errorf("seq/time = %d/%v", st.Seq, st.CurrentTime)
	}
	if len(st.decodeTimes) != 3 {
		t.Errorf("latency window not bounded: %d", len(st.decodeTimes))
	}
	if fps := st.FPS(); fps < 9.9 || fps > 10.1 {
		t.Errorf("fps = %v, want ~10", fps)
	}
	if p := st.Progress(); p != 0.5 {
		t.Errorf("progress = %v, want 0.5", p)
	}
}

func TestInstanceState_ProgressClamped(t *testing.T) {
	st := newInstanceState(config.Instance{ID: "P1"}, 2, 2, 10.0)
	st.CurrentTime = 25
	if p := st.Progress(); p != 1 {
		t.Errorf("progress = %v, want clamp to 1", p)
	}
	st.CurrentTime = -1
	if p := st.Progress(); p != 0 {
		t.Errorf("progress = %v, want clamp to 0", p)
	}
}

func TestInstanceState_DoneFromMarkerText(t *testing.T) {
	st := newInstanceState(config.Instance{ID: "P1"}, 2, 2, 10.0)
	for _, s := range []string{"done", "DONE", "done (wall 12.3s)"} {
		st.Status = s
		if !st.Done() {
			t.Errorf("status %q should count as done", s)
		}
	}
	st.Status = "running fine"
	if st.Done() {
		t.Error("free-text running status must not count as done")
	}
}

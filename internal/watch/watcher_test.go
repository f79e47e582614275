package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nbodywatch/internal/config"
)

func testWatcher(t *testing.T, dir string) (*Watcher, *Queue) {
	t.Helper()
	q := NewQueue(16)
	inst := config.Instance{ID: "P1", Units: 1, Artifact: "data.con", StatusFile: "status.txt"}
	w := New(inst,
		filepath.Join(dir, "data.con"),
		filepath.Join(dir, "status.txt"),
		time.Millisecond, time.Millisecond, q)
	return w, q
}

func writeArtifact(t *testing.T, path string, step, count int, simTime float64, particles []string) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%d\n%g\n", step, count, simTime)
	for _, p := range particles {
		b.WriteString(p + "\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
}

// touch forces a distinct, strictly later mtime regardless of filesystem
// timestamp granularity.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	if err := os.Chtimes(path, ts, ts); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestWatcher_MissingArtifactStaysQuiet(t *testing.T) {
	w, q := testWatcher(t, t.TempDir())
	for i := 0; i < 5; i++ {
		w.pollOnce(context.Background())
	}
	if got := q.Drain(); len(got) != 0 {
		t.Errorf("expected no updates for a missing artifact, got %d", len(got))
	}
}

func TestWatcher_EmitsOnceThenSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	w, q := testWatcher(t, dir)
	path := filepath.Join(dir, "data.con")
	writeArtifact(t, path, 1, 2, 0.5, []string{
		"0 1.0 0 0 0 0 0 0",
		"1 1.0 1 1 1 0 0 0",
	})
	touch(t, path, time.Second)

	w.pollOnce(context.Background())
	w.pollOnce(context.Background())

	got := q.Drain()
	if len(got) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(got))
	}
	u := got[0]
	if u.Snapshot == nil || u.Sequence != 1 || u.Snapshot.Particles != 2 {
		t.Errorf("unexpected update: %+v", u)
	}
	if u.DecodeTime <= 0 {
		t.Errorf("decode time must be measured, got %v", u.DecodeTime)
	}
}

func TestWatcher_SequencesAreMonotonic(t *testing.T) {
	dir := t.TempDir()
	w, q := testWatcher(t, dir)
	path := filepath.Join(dir, "data.con")
	for i := 1; i <= 3; i++ {
		writeArtifact(t, path, i, 1, float64(i), []string{"0 1.0 0 0 0 0 0 0"})
		touch(t, path, time.Duration(i)*time.Second)
		w.pollOnce(context.Background())
	}
	got := q.Drain()
	if len(got) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(got))
	}
	for i, u := range got {
		if u.Sequence != i+1 {
			t.Errorf("update %d has sequence %d", i, u.Sequence)
		}
	}
}

func TestWatcher_EmptyAndTruncatedArtifactSkipped(t *testing.T) {
	dir := t.TempDir()
	w, q := testWatcher(t, dir)
	path := filepath.Join(dir, "data.con")

	// Engine has opened the file but written nothing yet.
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	touch(t, path, time.Second)
	w.pollOnce(context.Background())
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("zero-byte artifact must not emit, got %d updates", len(got))
	}

	// Half the declared particles present: decoder rejects, marker stays.
	writeArtifact(t, path, 1, 4, 1.0, []string{
		"0 1.0 0 0 0 0 0 0",
		"1 1.0 1 1 1 0 0 0",
	})
	touch(t, path, 2*time.Second)
	w.pollOnce(context.Background())
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("torn artifact must not emit, got %d updates", len(got))
	}

	// The write completes without a further mtime bump beyond the rewrite;
	// because the marker was not advanced the retry now succeeds.
	writeArtifact(t, path, 1, 4, 1.0, []string{
		"0 1.0 0 0 0 0 0 0",
		"1 1.0 1 1 1 0 0 0",
		"2 1.0 2 2 2 0 0 0",
		"3 1.0 3 3 3 0 0 0",
	})
	touch(t, path, 3*time.Second)
	w.pollOnce(context.Background())
	got := q.Drain()
	if len(got) != 1 {
		t.Fatalf("expected exactly one update after the stable write, got %d", len(got))
	}
	if got[0].Snapshot.Particles != 4 || got[0].Sequence != 1 {
		t.Errorf("unexpected update: %+v", got[0])
	}
}

func TestWatcher_StatusMarker(t *testing.T) {
	dir := t.TempDir()
	w, q := testWatcher(t, dir)
	statusPath := filepath.Join(dir, "status.txt")

	w.pollOnce(context.Background())
	if got := q.Drain(); len(got) != 0 {
		t.Fatalf("missing status marker must not emit, got %d", len(got))
	}

	if err := os.WriteFile(statusPath, []byte("running\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.pollOnce(context.Background())
	w.pollOnce(context.Background())
	got := q.Drain()
	if len(got) != 1 {
		t.Fatalf("expected one status update, got %d", len(got))
	}
	if got[0].Status != "running" || got[0].Snapshot != nil {
		t.Errorf("unexpected status update: %+v", got[0])
	}

	if err := os.WriteFile(statusPath, []byte("done"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.pollOnce(context.Background())
	got = q.Drain()
	if len(got) != 1 || got[0].Status != "done" {
		t.Errorf("expected done status update, got %+v", got)
	}
}

func TestVelocityEstimate(t *testing.T) {
	dir := t.TempDir()
	w, q := testWatcher(t, dir)
	path := filepath.Join(dir, "data.con")

	writeArtifact(t, path, 1, 2, 0.0, []string{
		"0 1.0 0 0 0 0 0 0",
		"1 1.0 1 0 0 0 0 0",
	})
	touch(t, path, time.Second)
	w.pollOnce(context.Background())

	writeArtifact(t, path, 2, 2, 0.1, []string{
		"0 1.0 3 4 0 0 0 0",
		"1 1.0 1 0 0 0 0 0",
	})
	touch(t, path, 2*time.Second)
	w.pollOnce(context.Background())

	got := q.Drain()
	if len(got) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(got))
	}
	first, second := got[0].Snapshot, got[1].Snapshot
	if first.Velocities[0] != 0 || first.Velocities[1] != 0 {
		t.Errorf("first snapshot must have zero velocities, got %v", first.Velocities)
	}
	if second.Velocities[0] != 5 || second.Velocities[1] != 0 {
		t.Errorf("expected velocities [5 0], got %v", second.Velocities)
	}

	// Particle count drift: estimate degrades to zeros, no failure.
	writeArtifact(t, path, 3, 1, 0.2, []string{"0 1.0 9 9 9 0 0 0"})
	touch(t, path, 3*time.Second)
	w.pollOnce(context.Background())
	got = q.Drain()
	if len(got) != 1 {
		t.Fatalf("expected 1 update after count drift, got %d", len(got))
	}
	if v := got[0].Snapshot.Velocities; len(v) != 1 || v[0] != 0 {
		t.Errorf("count drift must yield zero velocities, got %v", v)
	}
}

func TestWatcher_RunStopsOnCancel(t *testing.T) {
	w, _ := testWatcher(t, t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

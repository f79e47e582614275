package render

import (
	"testing"

	"nbodywatch/internal/scene"
	"nbodywatch/internal/view"
)

type singleSceneWriter struct{ scenes []scene.Scene }

func (w *singleSceneWriter) WriteScene(s scene.Scene) error {
	w.scenes = append(w.scenes, s)
	return nil
}

type batchingSceneWriter struct {
	singleSceneWriter
	batches int
}

func (w *batchingSceneWriter) WriteScenes(scenes []scene.Scene) error {
	w.batches++
	w.scenes = append(w.scenes, scenes...)
	return nil
}

type batchingMetricsWriter struct {
	collectMetricsWriter
	batches int
}

func (w *batchingMetricsWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	w.batches++
	w.rows = append(w.rows, rows...)
	return nil
}

func TestMultiWriterFanOut(t *testing.T) {
	single := &singleSceneWriter{}
	batch := &batchingSceneWriter{}
	mw := NewMultiWriter([]view.SceneWriter{single, batch}, nil)

	scenes := []scene.Scene{
		{InstanceID: "P1", Sequence: 1},
		{InstanceID: "P2", Sequence: 1},
	}
	if err := mw.WriteScenes(scenes); err != nil {
		t.Fatalf("WriteScenes: %v", err)
	}
	if len(single.scenes) != 2 {
		t.Fatalf("single writer got %d scenes, want 2", len(single.scenes))
	}
	if batch.batches != 1 || len(batch.scenes) != 2 {
		t.Fatalf("batch writer: batches=%d scenes=%d", batch.batches, len(batch.scenes))
	}
}

func TestMultiWriterMetricsBatchDetection(t *testing.T) {
	plain := &collectMetricsWriter{}
	batch := &batchingMetricsWriter{}
	mw := NewMultiWriter(nil, []view.MetricsWriter{plain, batch})

	rows := []scene.MetricsRow{{InstanceID: "P1"}, {InstanceID: "P2"}, {InstanceID: "P4"}}
	if err := mw.WriteMetricsBatch(rows); err != nil {
		t.Fatalf("WriteMetricsBatch: %v", err)
	}
	if len(plain.rows) != 3 {
		t.Fatalf("plain writer got %d rows, want 3", len(plain.rows))
	}
	if batch.batches != 1 || len(batch.rows) != 3 {
		t.Fatalf("batch writer: batches=%d rows=%d", batch.batches, len(batch.rows))
	}
}

package render

import (
	"nbodywatch/internal/scene"
	"nbodywatch/internal/view"
)

// MultiWriter fans scenes and metric rows out to multiple writers.
type MultiWriter struct {
	sceneWriters   []view.SceneWriter
	metricsWriters []view.MetricsWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(sws []view.SceneWriter, mws []view.MetricsWriter) *MultiWriter {
	return &MultiWriter{sceneWriters: sws, metricsWriters: mws}
}

type batchSceneWriter interface {
	WriteScenes([]scene.Scene) error
}

type batchMetricsWriter interface {
	WriteMetricsBatch([]scene.MetricsRow) error
}

// WriteScene sends a scene to all scene writers.
func (mw *MultiWriter) WriteScene(s scene.Scene) error {
	for _, w := range mw.sceneWriters {
		if err := w.WriteScene(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteScenes sends a tick's scenes to all scene writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteScenes(scenes []scene.Scene) error {
	for _, w := range mw.sceneWriters {
		if bw, ok := w.(batchSceneWriter); ok {
			if err := bw.WriteScenes(scenes); err != nil {
				return err
			}
			continue
		}
		for _, s := range scenes {
			if err := w.WriteScene(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteMetrics sends a metric row to all metrics writers.
func (mw *MultiWriter) WriteMetrics(r scene.MetricsRow) error {
	for _, w := range mw.metricsWriters {
		if err := w.WriteMetrics(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetricsBatch sends multiple metric rows to all metrics writers,
// using batch mode where supported.
func (mw *MultiWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	for _, w := range mw.metricsWriters {
		if bw, ok := w.(batchMetricsWriter); ok {
			if err := bw.WriteMetricsBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteMetrics(r); err != nil {
				return err
			}
		}
	}
	return nil
}

package view

import "nbodywatch/internal/scene"

// SceneWriter consumes the per-tick scene stream. Implementations live in
// internal/render; the TUI is the usual one.
type SceneWriter interface {
	WriteScene(scene.Scene) error
}

// Optional: scene writers may support batch mode, one call per tick.
type batchSceneWriter interface {
	WriteScenes([]scene.Scene) error
}

// MetricsWriter consumes per-snapshot ingest metric rows.
type MetricsWriter interface {
	WriteMetrics(scene.MetricsRow) error
}

// Optional: metrics writers may support batch mode.
type batchMetricsWriter interface {
	WriteMetricsBatch([]scene.MetricsRow) error
}

// Writer implementations printing monitor output to STDOUT
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"nbodywatch/internal/scene"
)

// sceneRecord is the compact JSONL projection of a Scene. Full point clouds
// are display data and are not logged.
type sceneRecord struct {
	InstanceID  string  `json:"instance_id"`
	Status      string  `json:"status"`
	Stalled     bool    `json:"stalled,omitempty"`
	Sequence    int     `json:"sequence"`
	Particles   int     `json:"particles"`
	CurrentTime float64 `json:"sim_time"`
	Progress    float64 `json:"progress"`
	HUD         string  `json:"hud"`
}

func newSceneRecord(s scene.Scene) sceneRecord {
	return sceneRecord{
		InstanceID:  s.InstanceID,
		Status:      s.Status,
		Stalled:     s.Stalled,
		Sequence:    s.Sequence,
		Particles:   len(s.Points),
		CurrentTime: s.CurrentTime,
		Progress:    s.Progress,
		HUD:         s.HUD,
	}
}

// JSONStdoutWriter prints metric rows and scene summaries as JSON lines.
// Scenes are only printed when an instance's sequence advances, so a quiet
// instance does not flood the stream at tick cadence.
type JSONStdoutWriter struct {
	out      io.Writer
	lastSeen map[string]int
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout, lastSeen: make(map[string]int)}
}

// WriteMetrics outputs a metric row in JSON format.
func (w *JSONStdoutWriter) WriteMetrics(row scene.MetricsRow) error {
	data, _ := json.Marshal(row)
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteMetricsBatch outputs multiple metric rows in JSON format.
func (w *JSONStdoutWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	for _, r := range rows {
		_ = w.WriteMetrics(r)
	}
	return nil
}

// WriteScene outputs a scene summary when the instance has new data.
func (w *JSONStdoutWriter) WriteScene(s scene.Scene) error {
	if s.Sequence == 0 || s.Sequence == w.lastSeen[s.InstanceID] {
		return nil
	}
	w.lastSeen[s.InstanceID] = s.Sequence
	data, _ := json.Marshal(newSceneRecord(s))
	fmt.Fprintln(w.out, string(data))
	return nil
}

// WriteScenes outputs summaries for every updated instance.
func (w *JSONStdoutWriter) WriteScenes(scenes []scene.Scene) error {
	for _, s := range scenes {
		_ = w.WriteScene(s)
	}
	return nil
}

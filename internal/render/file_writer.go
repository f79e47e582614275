package render

import (
	"encoding/json"
	"os"

	"nbodywatch/internal/scene"
)

// FileWriter logs metric rows, and optionally scene summaries, to JSONL
// files. The metrics log is the input format accepted by ReplayLog.
type FileWriter struct {
	metricsFile *os.File
	sceneFile   *os.File
	metricsEnc  *json.Encoder
	sceneEnc    *json.Encoder
	lastSeen    map[string]int
}

// NewFileWriter creates a FileWriter. scenePath may be empty to skip the
// scene summary log.
func NewFileWriter(metricsPath, scenePath string) (*FileWriter, error) {
	mf, err := os.Create(metricsPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{
		metricsFile: mf,
		metricsEnc:  json.NewEncoder(mf),
		lastSeen:    make(map[string]int),
	}
	if scenePath != "" {
		sf, err := os.Create(scenePath)
		if err != nil {
			mf.Close()
			return nil, err
		}
		fw.sceneFile = sf
		fw.sceneEnc = json.NewEncoder(sf)
	}
	return fw, nil
}

// WriteMetrics logs a single metric row.
func (f *FileWriter) WriteMetrics(r scene.MetricsRow) error {
	return f.metricsEnc.Encode(r)
}

// WriteMetricsBatch logs multiple metric rows.
func (f *FileWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	for _, r := range rows {
		if err := f.WriteMetrics(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteScene logs a scene summary when the instance has new data, if the
// scene log is enabled.
func (f *FileWriter) WriteScene(s scene.Scene) error {
	if f.sceneEnc == nil {
		return nil
	}
	if s.Sequence == 0 || s.Sequence == f.lastSeen[s.InstanceID] {
		return nil
	}
	f.lastSeen[s.InstanceID] = s.Sequence
	return f.sceneEnc.Encode(newSceneRecord(s))
}

// WriteScenes logs summaries for every updated instance.
func (f *FileWriter) WriteScenes(scenes []scene.Scene) error {
	for _, s := range scenes {
		if err := f.WriteScene(s); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying files.
func (f *FileWriter) Close() error {
	var err error
	if f.metricsFile != nil {
		if e := f.metricsFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	if f.sceneFile != nil {
		if e := f.sceneFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

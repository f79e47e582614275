package main

import (
	"os"

	"golang.org/x/term"

	"nbodywatch/internal/render"
	"nbodywatch/internal/view"
)

// newWriters sets up scene and metrics writers based on flags and env
// vars. It returns the writers and a cleanup function to close any
// resources.
func newWriters(controls *view.Controls, plain bool, logFile string) (view.SceneWriter, view.MetricsWriter, func(), error) {
	sceneW, metricsW, err := baseWriters(controls, plain)
	if err != nil {
		return nil, nil, nil, err
	}
	closers := []interface{ Close() error }{}
	if c, ok := sceneW.(interface{ Close() error }); ok {
		closers = append(closers, c)
	}
	cleanup := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	sceneWriters := []view.SceneWriter{sceneW}
	metricsWriters := []view.MetricsWriter{metricsW}

	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		gw, err := render.NewGreptimeWriter(endpoint, database)
		if err != nil {
			return nil, nil, nil, err
		}
		metricsWriters = append(metricsWriters, gw)
	}

	if logFile != "" {
		fw, err := render.NewFileWriter(logFile, logFile+".scenes")
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		closers = append(closers, fw)
		sceneWriters = append(sceneWriters, fw)
		metricsWriters = append(metricsWriters, fw)
	}

	if len(sceneWriters) == 1 && len(metricsWriters) == 1 {
		return sceneW, metricsW, cleanup, nil
	}
	mw := render.NewMultiWriter(sceneWriters, metricsWriters)
	return mw, mw, cleanup, nil
}

// baseWriters chooses the primary writer pair. A terminal gets the TUI
// unless --plain asked for colored lines; piped output gets JSONL.
func baseWriters(controls *view.Controls, plain bool) (view.SceneWriter, view.MetricsWriter, error) {
	if isTerminal() {
		if plain {
			cw := render.NewColorWriter()
			return cw, cw, nil
		}
		tw := render.NewTUIWriter(controls)
		return tw, tw, nil
	}
	jw := render.NewJSONStdoutWriter()
	return jw, jw, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newMetricsWriter creates a metrics-only writer for replay.
func newMetricsWriter(plain bool) (view.MetricsWriter, error) {
	if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" && !plain {
		database := os.Getenv("GREPTIMEDB_DATABASE")
		if database == "" {
			database = "public"
		}
		return render.NewGreptimeWriter(endpoint, database)
	}
	if isTerminal() {
		return render.NewColorWriter(), nil
	}
	return render.NewJSONStdoutWriter(), nil
}

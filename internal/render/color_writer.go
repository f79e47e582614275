// ColorWriter prints human-friendly, colorized monitor lines to STDOUT.
package render

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"nbodywatch/internal/scene"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var instancePalette = []string{colorRed, colorCyan, colorGreen, colorMagenta, colorYellow, colorBlue}

// ColorWriter prints one colored line per accepted snapshot and per metric
// row. Each instance keeps a stable color, assigned on first sight.
type ColorWriter struct {
	out            io.Writer
	instanceColors map[string]string
	colorIdx       int
	lastSeen       map[string]int
}

// NewColorWriter creates a ColorWriter writing to os.Stdout.
func NewColorWriter() *ColorWriter {
	return &ColorWriter{
		out:            os.Stdout,
		instanceColors: make(map[string]string),
		lastSeen:       make(map[string]int),
	}
}

func (w *ColorWriter) getInstanceColor(id string) string {
	if c, ok := w.instanceColors[id]; ok {
		return c
	}
	c := instancePalette[w.colorIdx%len(instancePalette)]
	w.instanceColors[id] = c
	w.colorIdx++
	return c
}

func statusColor(status string, stalled bool) string {
	if stalled {
		return colorYellow
	}
	switch strings.ToLower(status) {
	case scene.StatusWaiting:
		return colorGray
	case scene.StatusDone:
		return colorGreen
	default:
		return colorCyan
	}
}

// WriteScene prints a scene line when the instance has new data.
func (w *ColorWriter) WriteScene(s scene.Scene) error {
	if s.Sequence == 0 || s.Sequence == w.lastSeen[s.InstanceID] {
		return nil
	}
	w.lastSeen[s.InstanceID] = s.Sequence
	ic := w.getInstanceColor(s.InstanceID)
	status := s.Status
	if s.Stalled {
		status += " (stalled)"
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s %ssnap=%04d%s %st=%.2f/%.0f%s %sprogress=%3.0f%%%s %sparticles=%d%s %sstatus=%s%s\n",
		colorGray, time.Now().Format(time.RFC3339), colorReset,
		ic, s.InstanceID, colorReset,
		colorBlue, s.Sequence, colorReset,
		colorMagenta, s.CurrentTime, s.EndTime, colorReset,
		colorGreen, s.Progress*100, colorReset,
		colorYellow, len(s.Points), colorReset,
		statusColor(status, s.Stalled), status, colorReset,
	)
	return nil
}

// WriteScenes prints lines for every updated instance.
func (w *ColorWriter) WriteScenes(scenes []scene.Scene) error {
	for _, s := range scenes {
		_ = w.WriteScene(s)
	}
	return nil
}

// WriteMetrics prints a colored metric line.
func (w *ColorWriter) WriteMetrics(r scene.MetricsRow) error {
	ic := w.getInstanceColor(r.InstanceID)
	fmt.Fprintf(w.out, "%s[%s]%s %sMETRIC%s %s%s%s %sseq=%04d%s %sdecode=%.2fms%s %sfps=%.1f%s %sspeedup=%.1fx%s\n",
		colorGray, r.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset,
		ic, r.InstanceID, colorReset,
		colorGray, r.Sequence, colorReset,
		colorCyan, r.DecodeMS, colorReset,
		colorGreen, r.FPS, colorReset,
		colorMagenta, r.Speedup, colorReset,
	)
	return nil
}

// WriteMetricsBatch prints multiple metric lines.
func (w *ColorWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	for _, r := range rows {
		_ = w.WriteMetrics(r)
	}
	return nil
}

package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"nbodywatch/internal/scene"
)

type collectMetricsWriter struct{ rows []scene.MetricsRow }

func (c *collectMetricsWriter) WriteMetrics(r scene.MetricsRow) error {
	c.rows = append(c.rows, r)
	return nil
}

func TestReplayLog(t *testing.T) {
	rows := []scene.MetricsRow{
		{InstanceID: "P1", Sequence: 1, Timestamp: time.Unix(0, 0)},
		{InstanceID: "P2", Sequence: 1, Timestamp: time.Unix(1, 0)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectMetricsWriter{}
	if err := ReplayLog(&buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	if len(cw.rows) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(cw.rows))
	}
	for i, r := range rows {
		if cw.rows[i].InstanceID != r.InstanceID {
			t.Fatalf("row %d mismatch: %+v vs %+v", i, cw.rows[i], r)
		}
	}
}

func TestReplayLogHonorsGaps(t *testing.T) {
	rows := []scene.MetricsRow{
		{InstanceID: "P1", Sequence: 1, Timestamp: time.Unix(0, 0)},
		{InstanceID: "P1", Sequence: 2, Timestamp: time.Unix(0, 40_000_000)},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	cw := &collectMetricsWriter{}
	start := time.Now()
	// 40ms gap at 2x should take about 20ms.
	if err := ReplayLog(&buf, cw, 2); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 15*time.Millisecond {
		t.Fatalf("replay too fast: %v", elapsed)
	}
	if elapsed > 200*time.Millisecond {
		t.Fatalf("replay too slow: %v", elapsed)
	}
}

func TestReplayLogBadInput(t *testing.T) {
	cw := &collectMetricsWriter{}
	if err := ReplayLog(bytes.NewBufferString("{not json"), cw, 0); err == nil {
		t.Fatalf("expected error on malformed log")
	}
}

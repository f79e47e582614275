package render

import (
	"context"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"nbodywatch/internal/scene"
)

type mockGreptimeClient struct {
	table *table.Table
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterMetricsBatch(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []scene.MetricsRow{
		{
			SessionID:  "s1",
			InstanceID: "P4",
			Units:      4,
			Sequence:   12,
			SimTime:    3.5,
			Particles:  1024,
			DecodeMS:   1.25,
			FPS:        18.0,
			Speedup:    3.6,
			Progress:   0.035,
			Timestamp:  ts,
		},
	}

	m := &mockGreptimeClient{}
	w := &GreptimeWriter{client: m, table: "nbody_ingest_metrics"}

	if err := w.WriteMetricsBatch(rows); err != nil {
		t.Fatalf("WriteMetricsBatch: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}

	schema := m.table.GetRows().Schema
	if len(schema) != 11 {
		t.Fatalf("unexpected schema length: %d", len(schema))
	}
	if schema[0].ColumnName != "session_id" || schema[1].ColumnName != "instance_id" {
		t.Fatalf("tag columns = %s, %s", schema[0].ColumnName, schema[1].ColumnName)
	}
	if schema[4].Datatype != gpb.ColumnDataType_FLOAT64 {
		t.Fatalf("sim_time column type = %v, want FLOAT64", schema[4].Datatype)
	}

	values := m.table.GetRows().Rows[0].Values
	if got := values[1].GetStringValue(); got != "P4" {
		t.Fatalf("instance_id = %s, want P4", got)
	}
	if got := values[3].GetI64Value(); got != 12 {
		t.Fatalf("sequence = %d, want 12", got)
	}
}

func TestGreptimeWriterEmptyBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeWriter{client: m, table: "nbody_ingest_metrics"}
	if err := w.WriteMetricsBatch(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if m.table != nil {
		t.Fatalf("expected no write for empty batch")
	}
}

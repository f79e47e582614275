package render

import (
	"context"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"nbodywatch/internal/scene"
)

// ingestClient abstracts the ingester client for testing.
type ingestClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeWriter exports ingest metric rows to GreptimeDB.
type GreptimeWriter struct {
	client ingestClient
	table  string
}

// NewGreptimeWriter connects to a GreptimeDB endpoint ("host" or
// "host:port") and returns a metrics writer targeting the configured
// metrics table.
func NewGreptimeWriter(endpoint, database string) (*GreptimeWriter, error) {
	host := endpoint
	cfg := greptime.NewConfig(host)
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		cfg = greptime.NewConfig(h)
		if port, err := strconv.Atoi(p); err == nil {
			cfg.WithPort(port)
		}
	}
	cfg.WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeWriter{client: client, table: scene.MetricsTableName}, nil
}

// WriteMetrics inserts a single metric row.
func (w *GreptimeWriter) WriteMetrics(row scene.MetricsRow) error {
	return w.WriteMetricsBatch([]scene.MetricsRow{row})
}

// WriteMetricsBatch inserts multiple metric rows.
func (w *GreptimeWriter) WriteMetricsBatch(rows []scene.MetricsRow) error {
	if len(rows) == 0 {
		return nil
	}

	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("session_id", types.STRING)
	tbl.AddTagColumn("instance_id", types.STRING)
	tbl.AddFieldColumn("units", types.INT64)
	tbl.AddFieldColumn("sequence", types.INT64)
	tbl.AddFieldColumn("sim_time", types.FLOAT64)
	tbl.AddFieldColumn("particles", types.INT64)
	tbl.AddFieldColumn("decode_ms", types.FLOAT64)
	tbl.AddFieldColumn("fps", types.FLOAT64)
	tbl.AddFieldColumn("speedup", types.FLOAT64)
	tbl.AddFieldColumn("progress", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.SessionID, r.InstanceID,
			int64(r.Units), int64(r.Sequence), r.SimTime, int64(r.Particles),
			r.DecodeMS, r.FPS, r.Speedup, r.Progress,
			r.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		slog.Error("greptime write failed", "rows", len(rows), "err", err)
		return err
	}
	return nil
}

// Scene and metric row types emitted by the render tick
package scene

import (
	"os"
	"time"
)

// Instance status tokens. The marker file may carry arbitrary text; anything
// unrecognized is passed through for display while the state machine treats
// it as running.
const (
	StatusWaiting = "waiting"
	StatusRunning = "running"
	StatusDone    = "done"
)

// Point is one rendered particle: a position plus display scalars. Scalar is
// the normalized velocity magnitude in [0,1] and drives color; Size is the
// mass-derived marker size, already scaled by the particle-size knob.
type Point struct {
	X, Y, Z float64
	Size    float64
	Scalar  float64
}

// Trail is a short fading polyline following one tracked particle through
// the recent snapshot history, oldest point first.
type Trail struct {
	ParticleID int
	Points     [][3]float64
}

// Scene is the abstract per-tick visual description of one instance. It is
// produced fresh every tick, handed to the scene writer, and never retained.
type Scene struct {
	InstanceID  string
	Label       string
	Status      string
	Stalled     bool
	HUD         string
	Progress    float64
	Rotation    float64
	CurrentTime float64
	EndTime     float64
	Sequence    int
	Points      []Point
	Trails      []Trail
}

// MetricsRow is one per-accepted-snapshot ingest record for export.
type MetricsRow struct {
	SessionID  string    `json:"session_id"`  // TAG
	InstanceID string    `json:"instance_id"` // TAG
	Units      int       `json:"units"`       // FIELD
	Sequence   int       `json:"sequence"`    // FIELD
	SimTime    float64   `json:"sim_time"`    // FIELD
	Particles  int       `json:"particles"`   // FIELD
	DecodeMS   float64   `json:"decode_ms"`   // FIELD
	FPS        float64   `json:"fps"`         // FIELD
	Speedup    float64   `json:"speedup"`     // FIELD
	Progress   float64   `json:"progress"`    // FIELD
	Timestamp  time.Time `json:"ts"`          // TIME INDEX
}

// MetricsTableName holds the table name used when writing to GreptimeDB.
// It defaults to "nbody_ingest_metrics" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var MetricsTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "nbody_ingest_metrics"
}()

func (MetricsRow) TableName() string {
	return MetricsTableName
}

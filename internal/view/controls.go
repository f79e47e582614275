package view

import (
	"math"
	"sync/atomic"
)

// atomicFloat64 stores a float64 behind an atomic word. The knobs are
// written by the UI or the admin server and read once per tick; a plain
// atomic load keeps the tick free of locks.
type atomicFloat64 struct{ bits atomic.Uint64 }

func (f *atomicFloat64) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat64) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// Controls is the mutable control surface exposed to the renderer and the
// admin server. The render tick only ever reads it.
type Controls struct {
	rotationSpeed atomicFloat64
	particleScale atomicFloat64
	playbackSpeed atomicFloat64
	trails        atomic.Bool
	paused        atomic.Bool
}

// NewControls returns controls with the display defaults.
func NewControls() *Controls {
	c := &Controls{}
	c.rotationSpeed.Store(0.5)
	c.particleScale.Store(1.0)
	c.playbackSpeed.Store(1.0)
	c.trails.Store(true)
	return c
}

// RotationSpeed is the display-only rotation advance per tick, in degrees.
func (c *Controls) RotationSpeed() float64 { return c.rotationSpeed.Load() }

// SetRotationSpeed clamps the speed into [0, 2].
func (c *Controls) SetRotationSpeed(v float64) {
	c.rotationSpeed.Store(math.Min(math.Max(v, 0), 2))
}

// ParticleScale scales marker sizes; never negative.
func (c *Controls) ParticleScale() float64 { return c.particleScale.Load() }

func (c *Controls) SetParticleScale(v float64) {
	c.particleScale.Store(math.Max(v, 0))
}

// PlaybackSpeed multiplies display animation cadence.
func (c *Controls) PlaybackSpeed() float64 { return c.playbackSpeed.Load() }

func (c *Controls) SetPlaybackSpeed(v float64) {
	c.playbackSpeed.Store(math.Max(v, 0))
}

// TrailsEnabled reports whether trail polylines are emitted.
func (c *Controls) TrailsEnabled() bool { return c.trails.Load() }

func (c *Controls) SetTrails(on bool) { c.trails.Store(on) }

// ToggleTrails flips the trail switch and returns the new state.
func (c *Controls) ToggleTrails() bool {
	next := !c.trails.Load()
	c.trails.Store(next)
	return next
}

// Paused reports whether folding and animation are suspended.
func (c *Controls) Paused() bool { return c.paused.Load() }

func (c *Controls) SetPaused(on bool) { c.paused.Store(on) }

// TogglePause flips pause and returns the new state.
func (c *Controls) TogglePause() bool {
	next := !c.paused.Load()
	c.paused.Store(next)
	return next
}

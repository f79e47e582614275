// Package snapshot decodes N-body snapshot artifacts written by the
// external simulation engine.
package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Decode failure classes. Callers treat every decode failure as "artifact
// not ready yet": the engine overwrites the file in place and a rejected
// read is naturally retried once new bytes arrive.
var (
	ErrTooShort      = errors.New("snapshot: too few lines")
	ErrHeader        = errors.New("snapshot: malformed header")
	ErrParticleCount = errors.New("snapshot: particle count mismatch")
	ErrFieldCount    = errors.New("snapshot: short particle line")
)

const headerLines = 3

// Snapshot is one decoded, consistent point-in-time state of all particles.
// Positions and Masses are index-parallel and always of length Particles.
// Velocities is filled in later by the watcher (see watch.velocityEstimate)
// and may be nil.
type Snapshot struct {
	Step       int
	Time       float64
	Particles  int
	Positions  [][3]float64
	Masses     []float64
	Velocities []float64
}

// Decode parses one raw artifact into a Snapshot. It is a pure transform:
// same bytes in, same value out, no retries and no I/O.
//
// Artifact layout (whitespace line format of the engine):
//
//	line 0: step index
//	line 1: particle count
//	line 2: simulation time
//	line 3..: "<id> <mass> <x> <y> <z> <vx> <vy> <vz> ..."
//
// A particle line with unparsable numeric fields is skipped; the snapshot is
// accepted only if the number of well-formed lines still equals the declared
// count.
func Decode(raw []byte) (*Snapshot, error) {
	lines := splitLines(raw)
	if len(lines) < headerLines+1 {
		return nil, fmt.Errorf("%w: got %d lines", ErrTooShort, len(lines))
	}

	// Line 0 is a plain step counter in the current engine output. Some
	// legacy runs omit it and start with the particle count; tolerate that
	// by treating an unparsable line 0 as step 0.
	step, _ := strconv.Atoi(strings.TrimSpace(lines[0]))

	count, err := strconv.Atoi(strings.TrimSpace(lines[1]))
	if err != nil || count <= 0 {
		return nil, fmt.Errorf("%w: particle count %q", ErrHeader, strings.TrimSpace(lines[1]))
	}
	simTime, err := strconv.ParseFloat(strings.TrimSpace(lines[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: time %q", ErrHeader, strings.TrimSpace(lines[2]))
	}

	if len(lines) < headerLines+count {
		return nil, fmt.Errorf("%w: want %d particle lines, have %d",
			ErrTooShort, count, len(lines)-headerLines)
	}

	positions := make([][3]float64, 0, count)
	masses := make([]float64, 0, count)
	short := false
	for _, line := range lines[headerLines : headerLines+count] {
		fields := strings.Fields(line)
		if len(fields) < 8 {
			short = true
			continue
		}
		mass, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		var pos [3]float64
		ok := true
		for i := 0; i < 3; i++ {
			pos[i], err = strconv.ParseFloat(fields[2+i], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		masses = append(masses, mass)
		positions = append(positions, pos)
	}

	if len(positions) != count {
		if short {
			return nil, fmt.Errorf("%w: parsed %d of %d", ErrFieldCount, len(positions), count)
		}
		return nil, fmt.Errorf("%w: parsed %d of %d", ErrParticleCount, len(positions), count)
	}

	return &Snapshot{
		Step:      step,
		Time:      simTime,
		Particles: count,
		Positions: positions,
		Masses:    masses,
	}, nil
}

func splitLines(raw []byte) []string {
	s := strings.ReplaceAll(string(raw), "\r\n", "\n")
	lines := strings.Split(s, "\n")
	// A trailing newline is the normal case, not an extra empty line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

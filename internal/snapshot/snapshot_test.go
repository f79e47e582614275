package snapshot

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func artifact(step, count int, time float64, particleLines []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n%d\n%g\n", step, count, time)
	for _, l := range particleLines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func TestDecode_WellFormed(t *testing.T) {
	raw := artifact(7, 2, 1.5, []string{
		"0 1.0 0.1 0.2 0.3 0 0 0",
		"1 2.0 -1.0 -2.0 -3.0 0.5 0.5 0.5 extra tokens ignored",
	})
	snap, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() returned error: %v", err)
	}
	if snap.Step != 7 || snap.Time != 1.5 || snap.Particles != 2 {
		t.Errorf("unexpected header: %+v", snap)
	}
	wantPos := [][3]float64{{0.1, 0.2, 0.3}, {-1.0, -2.0, -3.0}}
	if !reflect.DeepEqual(snap.Positions, wantPos) {
		t.Errorf("positions = %v, want %v", snap.Positions, wantPos)
	}
	if !reflect.DeepEqual(snap.Masses, []float64{1.0, 2.0}) {
		t.Errorf("masses = %v", snap.Masses)
	}
	if snap.Velocities != nil {
		t.Errorf("decoder must not invent velocities, got %v", snap.Velocities)
	}
}

func TestDecode_Deterministic(t *testing.T) {
	raw := artifact(3, 1, 0.25, []string{"0 1.5 1 2 3 0 0 0"})
	a, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	b, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("same bytes decoded to different snapshots: %+v vs %+v", a, b)
	}
}

func TestDecode_Failures(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrTooShort},
		{"header only", []byte("0\n4\n1.0\n"), ErrTooShort},
		{"truncated particles", artifact(0, 3, 1, []string{"0 1 1 1 1 0 0 0"}), ErrTooShort},
		{"bad count", []byte("0\nfour\n1.0\n0 1 1 1 1 0 0 0\n"), ErrHeader},
		{"zero count", []byte("0\n0\n1.0\n0 1 1 1 1 0 0 0\n"), ErrHeader},
		{"bad time", []byte("0\n1\nsoon\n0 1 1 1 1 0 0 0\n"), ErrHeader},
		{"short field line", artifact(0, 1, 1, []string{"0 1 1 1"}), ErrFieldCount},
		{"bad numeric line", artifact(0, 2, 1, []string{
			"0 1 1 1 1 0 0 0",
			"1 mass x y z 0 0 0",
		}), ErrParticleCount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := Decode(tc.raw)
			if snap != nil {
				t.Fatalf("expected nil snapshot, got %+v", snap)
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecode_SkipsBadLineWhenCountStillMatches(t *testing.T) {
	// One garbage line beyond the declared count must not matter; one
	// garbage line inside it must reject the snapshot. Here the declared
	// count is satisfied by the remaining well-formed lines.
	raw := artifact(0, 2, 2.0, []string{
		"0 1.0 1 2 3 0 0 0",
		"1 2.0 4 5 6 0 0 0",
		"junk line beyond declared count",
	})
	snap, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if snap.Particles != 2 || len(snap.Positions) != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestDecode_MissingStepLineRejected(t *testing.T) {
	// Legacy artifacts without a step line shift the header up by one; the
	// decoder then sees a float where the count belongs.
	raw := []byte("4\n1.0\n0 1 1 1 1 0 0 0\n")
	if _, err := Decode(raw); err == nil {
		t.Fatal("expected error for shifted header")
	}
}

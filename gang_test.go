package main

import (
	"math"
	"testing"
)

// moveLeader models a leader repositioned by the pipeline before
// propagation (a restore or a resolved sample) and runs one tick.
func moveLeader(e *Engine, ch int, v float64) {
	e.Channel(ch).Value = v
	e.Tick(nil)
}

func TestRelativeCenterReproducesReference(t *testing.T) {
	for _, ref := range []float64{0, 0.1, 0.3, 0.8, 1} {
		e := NewEngine()
		e.SetConfig(0, ChannelConfig{GangSpan: 1, GangMode: GangRelative})
		e.Channel(1).Reference = ref
		e.Channel(1).Value = ref

		moveLeader(e, 0, 0.5)

		if e.Channel(1).Value != ref {
			t.Errorf("ref %v: centered leader produced %v", ref, e.Channel(1).Value)
		}
	}
}

func TestRelativeScaling(t *testing.T) {
	e := NewEngine()
	e.SetConfig(0, ChannelConfig{GangSpan: 2, GangMode: GangRelative})
	e.Channel(1).Reference = 0.4
	e.Channel(2).Reference = 0.8

	moveLeader(e, 0, 0.25)
	if got := e.Channel(1).Value; got != 0.2 {
		t.Errorf("leader 0.25: follower ref 0.4 = %v, want 0.2", got)
	}
	if got := e.Channel(2).Value; got != 0.4 {
		t.Errorf("leader 0.25: follower ref 0.8 = %v, want 0.4", got)
	}

	moveLeader(e, 0, 0.75)
	if got := e.Channel(1).Value; got != 0.7 {
		t.Errorf("leader 0.75: follower ref 0.4 = %v, want 0.7", got)
	}
	if got := e.Channel(2).Value; got != 0.9 {
		t.Errorf("leader 0.75: follower ref 0.8 = %v, want 0.9", got)
	}

	// Extremes drive every follower to the endpoint.
	moveLeader(e, 0, 0)
	if e.Channel(1).Value != 0 || e.Channel(2).Value != 0 {
		t.Errorf("leader 0: followers %v %v, want 0 0",
			e.Channel(1).Value, e.Channel(2).Value)
	}
	moveLeader(e, 0, 1)
	if e.Channel(1).Value != 1 || e.Channel(2).Value != 1 {
		t.Errorf("leader 1: followers %v %v, want 1 1",
			e.Channel(1).Value, e.Channel(2).Value)
	}
}

func TestAbsoluteRangeExact(t *testing.T) {
	e := NewEngine()
	e.SetConfig(0, ChannelConfig{GangSpan: 2, GangMode: GangAbsolute})
	e.Channel(1).Reference = 0.3
	e.Channel(2).Reference = 0.8

	// Full upward excursion: the highest reference lands exactly on 1.
	moveLeader(e, 0, 1)
	if got := e.Channel(2).Value; got != 1 {
		t.Errorf("leader 1: follower ref 0.8 = %v, want exactly 1", got)
	}
	if got := e.Channel(1).Value; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("leader 1: follower ref 0.3 = %v, want 0.5", got)
	}

	// Full downward excursion: the lowest reference lands exactly on 0.
	moveLeader(e, 0, 0)
	if got := e.Channel(1).Value; got != 0 {
		t.Errorf("leader 0: follower ref 0.3 = %v, want exactly 0", got)
	}
	if got := e.Channel(2).Value; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("leader 0: follower ref 0.8 = %v, want 0.5", got)
	}

	// Sweeping the leader never pushes a follower outside 0..1, and the
	// pair keeps its parallel spacing whenever neither end clips.
	for v := 0.0; v <= 1.0; v += 0.01 {
		moveLeader(e, 0, v)
		f1, f2 := e.Channel(1).Value, e.Channel(2).Value
		if f1 < 0 || f1 > 1 || f2 < 0 || f2 > 1 {
			t.Fatalf("leader %v: followers %v %v out of range", v, f1, f2)
		}
		if f1 > 0 && f2 < 1 && math.Abs((f2-f1)-0.5) > 1e-9 {
			t.Fatalf("leader %v: spacing %v, want 0.5", v, f2-f1)
		}
	}
}

func TestGangRangeClipAndNesting(t *testing.T) {
	e := NewEngine()

	// Clipped at the top channel.
	e.SetConfig(30, ChannelConfig{GangSpan: 5})
	got := e.gangRange(30, 5)
	if len(got) != 1 || got[0] != 31 {
		t.Errorf("range for leader 30 span 5 = %v, want [31]", got)
	}

	// Truncated before a nested leader; the nested leader itself is
	// never a follower.
	e.SetConfig(0, ChannelConfig{GangSpan: 4})
	e.SetConfig(2, ChannelConfig{GangSpan: 1})
	got = e.gangRange(0, 4)
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("range for leader 0 with nested leader at 2 = %v, want [1]", got)
	}

	// The nested group still works on its own.
	got = e.gangRange(2, 1)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("range for nested leader 2 = %v, want [3]", got)
	}
}

func TestParkedRelativeLeaderReanchors(t *testing.T) {
	e := NewEngine()
	e.SetConfig(0, ChannelConfig{GangSpan: 1, GangMode: GangRelative})
	e.Channel(0).Value = 0.5
	e.Channel(0).lastGangValue = 0.5
	e.Channel(1).Reference = 0.4
	e.Channel(1).Value = 0.4

	// Follower repositioned while the leader is parked: the new position
	// becomes the anchor.
	e.Channel(1).Value = 0.66
	e.Tick(nil)
	if e.Channel(1).Reference != 0.66 {
		t.Fatalf("parked leader did not re-anchor, reference %v", e.Channel(1).Reference)
	}

	// Subsequent leader movement scales from the new anchor.
	moveLeader(e, 0, 0.25)
	if got := e.Channel(1).Value; math.Abs(got-0.33) > 1e-12 {
		t.Errorf("follower = %v, want 0.33 from re-anchored 0.66", got)
	}
}

func TestManualEditReanchorsReference(t *testing.T) {
	e := NewEngine()
	e.SetConfig(0, ChannelConfig{GangSpan: 1})
	f := e.Channel(1)
	f.Value = 0.5
	f.physical = 0.5
	f.Reference = 0.5

	// A resolved physical edit on the follower moves its anchor with it.
	tickOne(e, 1, 0.505)
	if f.Value != 0.505 {
		t.Fatalf("edit did not track, value %v (state %v)", f.Value, f.state)
	}
	if f.Reference != 0.505 {
		t.Errorf("reference %v did not follow the manual edit", f.Reference)
	}

	// Gang writes are not edits: driving the leader must leave the
	// follower's reference alone.
	moveLeader(e, 0, 0.75)
	if f.Reference != 0.505 {
		t.Errorf("gang write moved the reference to %v", f.Reference)
	}
}

package main

import "math"

// Resolver tuning. Mismatches are compared on the coarse grid so that
// jitter below one grid step never triggers a transition.
const (
	coarseSteps = 500

	snapLow  = 0.03 // absolute-mode endpoint snap
	snapHigh = 0.97

	enterThreshold = 0.01 // minimum mismatch to consider pickup
	jumpThreshold  = 0.10 // mismatch that always forces pickup

	scaledExitBand = 0.02 // scaled mode snaps out within this of the target

	catchBand        = 0.05   // catch mode starts slewing inside this
	catchSlewPerTick = 0.0053 // ~0.5 s full range
	catchSnapBand    = 0.002
	settleTicks      = 5

	// A sustained sweep: this many consecutive same-direction moves of
	// at least this size per tick.
	sweepMinRun   = 3
	sweepMinDelta = 0.004

	driftLowBand  = 0.005
	driftHighBand = 0.01
)

// driftGate passes raw through and re-locks when it escapes the
// dead-band, otherwise repeats the locked value. With DriftOff every
// sample passes.
func (f *Fader) driftGate(raw float64, level DriftLevel) float64 {
	var band float64
	switch level {
	case DriftLow:
		band = driftLowBand
	case DriftHigh:
		band = driftHighBand
	default:
		f.driftLock = someFloat(raw)
		return raw
	}
	if !f.driftLock.valid || math.Abs(raw-f.driftLock.value) > band {
		f.driftLock = someFloat(raw)
		return raw
	}
	return f.driftLock.value
}

// snapEndpoints keeps the hardware extremes reachable: the outer 3%
// of physical travel reads as exactly 0 or 1.
func snapEndpoints(v float64) float64 {
	if v < snapLow {
		return 0
	}
	if v > snapHigh {
		return 1
	}
	return v
}

// resolve advances the pickup state machine with one physical sample.
// It is the only place Value changes in response to physical input;
// any change it makes flags the channel as manually edited.
func (f *Fader) resolve(v float64, policy PickupPolicy) {
	f.trackDirection(v)

	switch f.state {
	case StatePickup, StateCatching:
		if policy == PolicyCatch {
			f.resolveCatch(v)
		} else {
			f.resolveScaled(v)
		}
	default:
		f.resolveAbsolute(v)
	}
}

func (f *Fader) trackDirection(v float64) {
	delta := v - f.physical
	f.lastPhysical = f.physical
	f.physical = v

	switch {
	case delta >= sweepMinDelta:
		if f.dirStreak > 0 {
			f.dirStreak++
		} else {
			f.dirStreak = 1
		}
	case delta <= -sweepMinDelta:
		if f.dirStreak < 0 {
			f.dirStreak--
		} else {
			f.dirStreak = -1
		}
	default:
		f.dirStreak = 0
	}
}

func (f *Fader) sweeping() bool {
	return f.dirStreak >= sweepMinRun || f.dirStreak <= -sweepMinRun
}

func (f *Fader) resolveAbsolute(v float64) {
	p := snapEndpoints(v)
	mismatch := math.Abs(coarse(p) - coarse(f.Value))

	// While settling, track absolutely; pickup re-entry is suppressed
	// so residual jitter after an exit cannot flip the state back.
	if f.settleFrames > 0 {
		f.settleFrames--
		f.setValue(p)
		return
	}

	if mismatch > enterThreshold && (mismatch >= jumpThreshold || !f.sweeping()) {
		f.state = StatePickup
		f.pivot = someFloat(v)
		f.pickupStart = f.Value
		// Value is untouched on the entering tick.
		return
	}

	// Small mismatch, or a fast fling that carries the control through:
	// absolute tracking.
	f.setValue(p)
}

// scaledTarget maps the physical sample through the affine function
// anchored at the pivot: travel between the pivot and an endpoint is
// scaled onto travel between the start value and that endpoint.
func (f *Fader) scaledTarget(v float64) float64 {
	assertf(f.pivot.valid, "channel in %v with unset pivot", f.state)
	if !f.pivot.valid {
		return f.Value
	}
	p := f.pivot.value
	s := f.pickupStart
	if v >= p {
		if p >= 1 {
			return s
		}
		return clamp01(s + (1-s)*(v-p)/(1-p))
	}
	if p <= 0 {
		return s
	}
	return clamp01(s * (v / p))
}

func (f *Fader) resolveScaled(v float64) {
	target := f.scaledTarget(v)
	if math.Abs(v-target) < scaledExitBand {
		f.exitPickup(v, 0)
		return
	}
	// Still catching up: the scaled target is what gets transmitted.
	f.setValue(target)
}

func (f *Fader) resolveCatch(v float64) {
	mismatch := math.Abs(coarse(v) - coarse(f.Value))

	// An active same-direction gesture that is already close takes the
	// channel over immediately, without a settle delay.
	if f.sweeping() && mismatch < jumpThreshold {
		f.exitPickup(v, 0)
		return
	}

	if mismatch < catchBand {
		f.state = StateCatching
		f.slewToward(v)
		return
	}

	// Far away. Moving away from the held value behaves like scaled
	// pickup so the channel still responds toward the extremes; moving
	// toward the held value keeps it parked until the catch band
	// engages.
	if f.movingAway(v) {
		f.resolveScaled(v)
		return
	}
}

// movingAway reports whether the latest physical movement widens the
// gap to the held value.
func (f *Fader) movingAway(v float64) bool {
	prev := math.Abs(f.lastPhysical - f.Value)
	cur := math.Abs(v - f.Value)
	return cur > prev
}

func (f *Fader) slewToward(v float64) {
	if math.Abs(v-f.Value) < catchSnapBand {
		f.exitPickup(v, settleTicks)
		return
	}
	if v > f.Value {
		f.setValue(math.Min(f.Value+catchSlewPerTick, v))
	} else {
		f.setValue(math.Max(f.Value-catchSlewPerTick, v))
	}
}

func (f *Fader) exitPickup(v float64, settle uint8) {
	f.state = StateAbsolute
	f.pivot = optFloat{}
	f.settleFrames = settle
	f.setValue(v)
}

func (f *Fader) setValue(v float64) {
	v = clamp01(v)
	if v != f.Value {
		f.Value = v
		f.edited = true
	}
}

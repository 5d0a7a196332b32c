package main

import (
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"
)

const NumFaders = 32

// PickupPolicy selects how a channel re-synchronizes with a physical
// control that no longer matches its held value.
type PickupPolicy int

const (
	PolicyScaled PickupPolicy = iota // affine scaling anchored at the pivot
	PolicyCatch                      // hold, then slew once the control is close
)

// DriftLevel selects the dead-band of the drift lock in front of the
// pickup resolver.
type DriftLevel int

const (
	DriftOff DriftLevel = iota
	DriftLow            // 0.5%
	DriftHigh           // 1%
)

// PickupState is the per-channel resolver state.
type PickupState int

const (
	StateAbsolute PickupState = iota
	StatePickup
	StateCatching
)

func (s PickupState) String() string {
	switch s {
	case StateAbsolute:
		return "absolute"
	case StatePickup:
		return "pickup"
	case StateCatching:
		return "catching"
	default:
		return fmt.Sprintf("PickupState(%d)", int(s))
	}
}

// GangMode selects how a leader channel drives its followers.
type GangMode int

const (
	GangAbsolute GangMode = iota // parallel offset against the reference band
	GangRelative                 // each follower scales from its own reference
)

// Encoding selects the wire width of a channel.
type Encoding int

const (
	Encode7Bit  Encoding = iota // single CC, 0-127
	Encode14Bit                 // CC pair: MSB on index, LSB on index+32
)

// optFloat is a float with an explicit validity flag, replacing the
// usual -1 sentinels ("no pivot yet", "never sent").
type optFloat struct {
	value float64
	valid bool
}

func someFloat(v float64) optFloat { return optFloat{value: v, valid: true} }

// Fader is the state record of one virtual channel. Value is the only
// quantity ever transmitted; everything else is resolver, gang and
// encoder memory.
type Fader struct {
	Value float64 // authoritative logical position, 0..1

	physical     float64 // most recent raw sample
	lastPhysical float64
	state        PickupState
	pivot        optFloat // physical position when pickup was entered
	pickupStart  float64  // Value when pickup was entered
	settleFrames uint8    // re-entry suppression countdown
	dirStreak    int      // signed run length of same-direction movement

	// Gang anchor: for a follower, the value it had when its leader
	// was centered.
	Reference     float64
	lastGangValue float64 // leader value at the last propagation
	edited        bool    // resolver moved Value from physical input this tick

	// Encoder memory.
	lastSent     optFloat
	endpointHold uint8
	msbSent      bool
	msbPending   optFloat // value the in-flight MSB half carried
	driven       bool     // a physical sample has reached this channel

	driftLock optFloat
}

// ChannelConfig is the externally owned configuration the engine reads.
// A channel with GangSpan > 0 is a group leader driving the GangSpan
// channels above it.
type ChannelConfig struct {
	Policy   PickupPolicy `json:"policy"`
	Drift    DriftLevel   `json:"drift"`
	Encoding Encoding     `json:"encoding"`
	GangSpan int          `json:"gang_span"`
	GangMode GangMode     `json:"gang_mode"`
	Quant    Quantizer    `json:"quant"`
}

// Sample is one normalized physical reading, tagged with its channel.
type Sample struct {
	Channel int     `json:"channel"`
	Value   float64 `json:"value"`
}

// Engine owns the 32 channel records and runs the per-tick pipeline:
// drift lock, pickup resolution, gang propagation, encoding. Tick is
// the only mutation entry point, which keeps the stage ordering fixed.
type Engine struct {
	faders  [NumFaders]Fader
	configs [NumFaders]ChannelConfig
	lsbTick bool // global MSB/LSB alternation for 14-bit channels
}

func NewEngine() *Engine {
	e := &Engine{}
	for i := range e.faders {
		e.faders[i].state = StateAbsolute
	}
	return e
}

// Channel returns a pointer to a channel's state for inspection and
// test injection. Mutating it between ticks models a state restore.
func (e *Engine) Channel(i int) *Fader {
	return &e.faders[clampIndex(i)]
}

func (e *Engine) Config(i int) ChannelConfig {
	return e.configs[clampIndex(i)]
}

func (e *Engine) SetConfig(i int, cfg ChannelConfig) {
	if cfg.GangSpan < 0 {
		cfg.GangSpan = 0
	}
	if cfg.GangSpan > NumFaders-1 {
		cfg.GangSpan = NumFaders - 1
	}
	e.configs[clampIndex(i)] = cfg
}

// Tick consumes at most one sample per channel and returns the wire
// messages for this control tick. Stage order is an invariant:
// propagation must see post-pickup values and encoding must see
// post-propagation values.
func (e *Engine) Tick(samples []Sample) []midi.Message {
	for _, s := range samples {
		if s.Channel < 0 || s.Channel >= NumFaders {
			continue
		}
		f := &e.faders[s.Channel]
		cfg := &e.configs[s.Channel]
		f.driven = true
		v := f.driftGate(clamp01(s.Value), cfg.Drift)
		f.resolve(v, cfg.Policy)
	}

	// Manual edits re-anchor the gang relationship before propagation.
	for i := range e.faders {
		if e.faders[i].edited {
			e.faders[i].Reference = e.faders[i].Value
		}
	}

	e.propagate()

	msgs := e.encodeAll()
	e.lsbTick = !e.lsbTick
	for i := range e.faders {
		e.faders[i].edited = false
	}
	return msgs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampIndex(i int) int {
	if i < 0 {
		return 0
	}
	if i >= NumFaders {
		return NumFaders - 1
	}
	return i
}

// coarse reduces a value to a 500-step grid so mismatch comparisons
// ignore sub-percent jitter.
func coarse(v float64) float64 {
	return math.Round(v*coarseSteps) / coarseSteps
}

// strictInvariants enables assertion panics for conditions that are
// programming errors (unset pivot in a pickup state, overlapping gang
// ranges). Production builds keep it off: the host has no crash
// recovery at this layer.
var strictInvariants = false

func assertf(cond bool, format string, args ...any) {
	if !cond && strictInvariants {
		panic(fmt.Sprintf(format, args...))
	}
}

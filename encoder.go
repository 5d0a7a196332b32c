package main

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

const (
	sendThreshold     = 0.001 // change suppression band
	endpointHoldTicks = 3     // extra transmissions of a 0/1 value
	quantEdgeZone     = 0.05  // outer zones that always hit the extremes
	lsbControlOffset  = 32    // LSB half lands on cc = index + 32
	max14             = 16383
)

// QuantMode selects the optional re-quantization in front of the wire
// conversion. The raw channel value is never touched, only what gets
// transmitted.
type QuantMode int

const (
	QuantOff   QuantMode = iota
	QuantNotes           // snap to a configured note set
	QuantRange           // snap to an integer sub-range
)

// Quantizer maps a 0..1 value onto a discrete note set or numeric
// sub-range. The outer 5% of travel on each side always selects the
// extreme entry; the interior 90% divides linearly.
type Quantizer struct {
	Mode  QuantMode `json:"mode"`
	Notes []uint8   `json:"notes,omitempty"`
	Lo    int       `json:"lo,omitempty"`
	Hi    int       `json:"hi,omitempty"`
}

func (q Quantizer) apply(v float64) float64 {
	switch q.Mode {
	case QuantNotes:
		if len(q.Notes) == 0 {
			return v
		}
		n := q.Notes[quantIndex(v, len(q.Notes))]
		return float64(n&0x7F) / 127
	case QuantRange:
		lo, hi := q.Lo, q.Hi
		if lo < 0 {
			lo = 0
		}
		if hi > 127 {
			hi = 127
		}
		if hi < lo {
			return v
		}
		return float64(lo+quantIndex(v, hi-lo+1)) / 127
	default:
		return v
	}
}

func quantIndex(v float64, n int) int {
	if n <= 1 {
		return 0
	}
	if v <= quantEdgeZone {
		return 0
	}
	if v >= 1-quantEdgeZone {
		return n - 1
	}
	t := (v - quantEdgeZone) / (1 - 2*quantEdgeZone)
	idx := int(t * float64(n))
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

func (e *Engine) encodeAll() []midi.Message {
	var msgs []midi.Message
	for i := range e.faders {
		msgs = e.encodeChannel(i, msgs)
	}
	return msgs
}

// encodeChannel converts one channel's held value into wire messages.
// Unchanged values are suppressed, except while an endpoint hold is
// live: a value that snapped to exactly 0 or 1 keeps going out for a
// few ticks so a receiver that dropped one message still lands on the
// true extreme.
func (e *Engine) encodeChannel(i int, msgs []midi.Message) []midi.Message {
	f := &e.faders[i]
	cfg := &e.configs[i]
	v := cfg.Quant.apply(f.Value)

	var changed bool
	if f.lastSent.valid {
		changed = math.Abs(v-f.lastSent.value) > sendThreshold
	} else {
		// A cold channel transmits only once it has been driven or
		// restored away from the line's assumed reset state.
		changed = f.driven || v != 0
	}
	holding := !changed && f.lastSent.valid && f.endpointHold > 0

	if cfg.Encoding == Encode14Bit {
		return e.encode14(f, uint8(i), v, changed, holding, msgs)
	}

	if !changed && !holding {
		return msgs
	}
	out := v
	if holding {
		out = f.lastSent.value
		f.endpointHold--
	} else {
		f.endpointHold = holdFor(v, f.lastSent.valid)
		f.lastSent = someFloat(v)
	}
	return append(msgs, controlChange(uint8(i), uint8(i), to7bit(out)))
}

// encode14 emits one half of the CC pair per tick, on the globally
// alternating phase. The LSB half always completes the pair its MSB
// opened, with the value that MSB carried: a mid-pair change is not
// folded in, it waits for the next pair. lastSent commits only once a
// pair is whole, so the receiver always holds two halves of the same
// value.
func (e *Engine) encode14(f *Fader, ch uint8, v float64, changed, holding bool, msgs []midi.Message) []midi.Message {
	if e.lsbTick {
		switch {
		case f.msbSent:
			n := to14bit(f.msbPending.value)
			msgs = append(msgs, controlChange(ch, ch+lsbControlOffset, uint8(n&0x7F)))
			f.msbSent = false
			f.endpointHold = holdFor(f.msbPending.value, f.lastSent.valid)
			f.lastSent = f.msbPending
			f.msbPending = optFloat{}
		case holding:
			n := to14bit(f.lastSent.value)
			msgs = append(msgs, controlChange(ch, ch+lsbControlOffset, uint8(n&0x7F)))
			f.endpointHold--
		}
		return msgs
	}

	switch {
	case changed:
		f.msbSent = true
		f.msbPending = someFloat(v)
		n := to14bit(v)
		msgs = append(msgs, controlChange(ch, ch, uint8(n>>7)))
	case holding:
		n := to14bit(f.lastSent.value)
		msgs = append(msgs, controlChange(ch, ch, uint8(n>>7)))
		f.endpointHold--
	}
	return msgs
}

// holdFor arms the endpoint hold only when a previously transmitted
// value snapped to an extreme; the very first transmission is not a
// snap.
func holdFor(v float64, sentBefore bool) uint8 {
	if sentBefore && (v == 0 || v == 1) {
		return endpointHoldTicks
	}
	return 0
}

func to7bit(v float64) uint8 {
	n := int(math.Round(clamp01(v) * 127))
	if n > 127 {
		n = 127
	}
	if n < 0 {
		n = 0
	}
	return uint8(n)
}

func to14bit(v float64) int {
	n := int(math.Round(clamp01(v) * max14))
	if n > max14 {
		n = max14
	}
	if n < 0 {
		n = 0
	}
	return n
}

// controlChange builds the 3-byte wire message: status 0xB0 on the
// channel nibble, then controller and value. Channel indices above 15
// wrap into the 4-bit field.
func controlChange(ch, cc, val uint8) midi.Message {
	return midi.ControlChange(ch&0x0F, cc&0x7F, val&0x7F)
}

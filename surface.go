package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// TickInterval is the fixed control-tick rate driving the engine.
const TickInterval = 10 * time.Millisecond

// Surface wraps the MIDI output port the encoded values are sent to,
// and translates the incoming control stream into physical samples.
type Surface struct {
	out drivers.Out
}

func OpenSurface(portIndex int) (*Surface, func(), error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}

	if portIndex < 0 || portIndex >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", portIndex)
	}

	out := outs[portIndex]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	closer := func() {
		_ = out.Close()
		drivers.Close()
	}
	log.Println("Opened surface MIDI output port", out.String())
	return &Surface{out: out}, closer, nil
}

// Send transmits one wire message to the output port.
func (s *Surface) Send(msg midi.Message) error {
	if !s.out.IsOpen() {
		if err := s.out.Open(); err != nil {
			return err
		}
	}
	return s.out.Send(msg.Bytes())
}

// Listen subscribes to the input port and forwards incoming control
// changes as physical samples: controller number selects the channel,
// the 7-bit value normalizes to 0..1.
func (s *Surface) Listen(inPort drivers.In, push func(Sample)) (func(), error) {
	stop, err := midi.ListenTo(inPort, func(msg midi.Message, _ int32) {
		var ch, cc, val uint8
		if !msg.GetControlChange(&ch, &cc, &val) {
			return
		}
		if int(cc) >= NumFaders {
			return
		}
		push(Sample{Channel: int(cc), Value: float64(val) / 127})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for surface input: %w", err)
	}
	return stop, nil
}

// Bank couples an engine with a surface and serializes access between
// the tick loop and external callers (surface listener, MCP handlers).
// The engine itself stays single-threaded: everything funnels through
// the mutex and the tick.
type Bank struct {
	mu      sync.Mutex
	eng     *Engine
	surface *Surface

	pending [NumFaders]optFloat
}

func NewBank(eng *Engine, surface *Surface) *Bank {
	return &Bank{eng: eng, surface: surface}
}

// Push queues a physical sample for the next tick. At most one sample
// per channel per tick reaches the engine; the latest wins.
func (b *Bank) Push(s Sample) {
	if s.Channel < 0 || s.Channel >= NumFaders {
		return
	}
	b.mu.Lock()
	b.pending[s.Channel] = someFloat(clamp01(s.Value))
	b.mu.Unlock()
}

func (b *Bank) Configure(i int, cfg ChannelConfig) {
	b.mu.Lock()
	b.eng.SetConfig(i, cfg)
	b.mu.Unlock()
}

// ChannelStatus is the externally visible view of one channel.
type ChannelStatus struct {
	Channel   int           `json:"channel"`
	Value     float64       `json:"value"`
	State     string        `json:"state"`
	Reference float64       `json:"reference"`
	Config    ChannelConfig `json:"config"`
}

func (b *Bank) Snapshot() []ChannelStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]ChannelStatus, NumFaders)
	for i := range out {
		f := &b.eng.faders[i]
		out[i] = ChannelStatus{
			Channel:   i,
			Value:     f.Value,
			State:     f.state.String(),
			Reference: f.Reference,
			Config:    b.eng.configs[i],
		}
	}
	return out
}

// tickOnce drains the pending samples through one engine tick and
// returns the encoded messages.
func (b *Bank) tickOnce() []midi.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var samples []Sample
	for i := range b.pending {
		if b.pending[i].valid {
			samples = append(samples, Sample{Channel: i, Value: b.pending[i].value})
			b.pending[i] = optFloat{}
		}
	}
	return b.eng.Tick(samples)
}

// Run drives the fixed-rate tick loop, transmitting every encoded
// message. It blocks until the context is cancelled or a transmit
// fails.
func (b *Bank) Run(ctx context.Context) error {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	log.Printf("Fader bank running, %d channels, tick %v", NumFaders, TickInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, msg := range b.tickOnce() {
				if err := b.surface.Send(msg); err != nil {
					return fmt.Errorf("failed to transmit: %w", err)
				}
			}
		}
	}
}

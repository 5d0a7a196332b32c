package main

import (
	"context"
	"testing"
	"time"
)

func TestBankPushLatestWins(t *testing.T) {
	b := NewBank(NewEngine(), nil)

	b.Push(Sample{Channel: 0, Value: 0.2})
	b.Push(Sample{Channel: 0, Value: 0.9})
	b.Push(Sample{Channel: -1, Value: 0.5})
	b.Push(Sample{Channel: NumFaders, Value: 0.5})

	b.tickOnce()
	if got := b.eng.Channel(0).physical; got != 0.9 {
		t.Errorf("engine saw %v, want the latest push 0.9", got)
	}

	// Drained: the next tick carries nothing.
	b.tickOnce()
	if got := b.eng.Channel(0).physical; got != 0.9 {
		t.Errorf("physical moved to %v on an empty tick", got)
	}
}

func TestBankPushClamps(t *testing.T) {
	b := NewBank(NewEngine(), nil)
	b.Push(Sample{Channel: 2, Value: 3.5})
	b.tickOnce()
	if got := b.eng.Channel(2).physical; got != 1 {
		t.Errorf("over-range push recorded as %v", got)
	}
}

func TestBankRunStopsOnCancel(t *testing.T) {
	b := NewBank(NewEngine(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(3 * TickInterval)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(time.Second):
		t.Fatal("tick loop did not stop on cancellation")
	}
}

func TestBankSnapshot(t *testing.T) {
	b := NewBank(NewEngine(), nil)
	b.Configure(5, ChannelConfig{Policy: PolicyCatch, Encoding: Encode14Bit})
	b.eng.Channel(5).Value = 0.75

	snap := b.Snapshot()
	if len(snap) != NumFaders {
		t.Fatalf("snapshot has %d entries", len(snap))
	}
	s := snap[5]
	if s.Channel != 5 || s.Value != 0.75 || s.State != "absolute" {
		t.Errorf("channel 5 status = %+v", s)
	}
	if s.Config.Policy != PolicyCatch || s.Config.Encoding != Encode14Bit {
		t.Errorf("channel 5 config = %+v", s.Config)
	}
}

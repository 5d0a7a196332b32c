package main

import (
	"fmt"
	"log"
)

// runSim drives the engine through a scripted session without any MIDI
// hardware, printing every emitted wire message. Useful for eyeballing
// the pickup and gang behavior against a real receiver trace.
func runSim() {
	eng := NewEngine()
	eng.SetConfig(0, ChannelConfig{Policy: PolicyCatch, Drift: DriftLow})
	eng.SetConfig(1, ChannelConfig{Encoding: Encode14Bit})
	eng.SetConfig(4, ChannelConfig{GangSpan: 3, GangMode: GangRelative})

	// Seed the gang followers away from zero so the leader has
	// something to scale.
	for i, v := range []float64{0.3, 0.5, 0.8} {
		eng.Channel(5 + i).Value = v
		eng.Channel(5 + i).Reference = v
	}

	tick := 0
	feed := func(samples ...Sample) {
		for _, msg := range eng.Tick(samples) {
			log.Printf("tick %3d  % X", tick, msg.Bytes())
		}
		tick++
	}

	log.Println("-- channel 0: jump to 0.9, then sweep back toward the held value")
	feed(Sample{Channel: 0, Value: 0.9})
	for v := 0.9; v > 0.0; v -= 0.02 {
		feed(Sample{Channel: 0, Value: v})
	}
	log.Printf("channel 0 state=%v value=%.3f", eng.Channel(0).state, eng.Channel(0).Value)

	log.Println("-- channel 1: 14-bit ramp 0 -> 1")
	for v := 0.0; v <= 1.0; v += 0.25 {
		feed(Sample{Channel: 1, Value: v})
	}

	log.Println("-- channel 4: gang leader sweep around center")
	for _, v := range []float64{0.5, 0.6, 0.75, 1.0, 0.5, 0.25, 0.0} {
		feed(Sample{Channel: 4, Value: v})
	}
	for i := 5; i <= 7; i++ {
		log.Printf("follower %d value=%.3f reference=%.3f", i, eng.Channel(i).Value, eng.Channel(i).Reference)
	}

	fmt.Println("Done.")
}

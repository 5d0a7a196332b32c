package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		log.Println("usage: faderbank <ports|run|sim|mcp> [port-fragment] [config.json]")
		return
	}

	switch os.Args[1] {
	case "ports":
		log.Println("Available MIDI inputs:")
		log.Print(midi.GetInPorts().String())
		log.Println("Available MIDI outputs:")
		log.Print(midi.GetOutPorts().String())
	case "run":
		runSurface(arg(2), arg(3))
	case "sim":
		runSim()
	case "mcp":
		runMCPCommand(arg(2), arg(3))
	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}

func arg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

// runSurface wires the full pipeline to real ports: surface input in,
// encoded CC out, at the fixed tick rate.
func runSurface(hint, cfgPath string) {
	bank, closer := openBank(hint, cfgPath)
	defer closer()

	if err := bank.Run(context.Background()); err != nil {
		log.Fatalf("tick loop failed: %v", err)
	}
}

func runMCPCommand(hint, cfgPath string) {
	bank, closer := openBank(hint, cfgPath)
	defer closer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := bank.Run(ctx); err != nil {
			log.Fatalf("tick loop failed: %v", err)
		}
	}()
	runMCP(bank)
}

func openBank(hint, cfgPath string) (*Bank, func()) {
	outIdx, err := findOutPort(hint)
	if err != nil {
		log.Fatalf("could not find surface MIDI out port: %v", err)
	}

	inIdx, err := findInPort(hint)
	if err != nil {
		log.Fatalf("could not find surface MIDI in port: %v", err)
	}

	surface, closeSurface, err := OpenSurface(outIdx)
	if err != nil {
		log.Fatalf("failed to open surface output: %v", err)
	}

	eng := NewEngine()
	if cfgPath != "" {
		if err := loadBankConfig(cfgPath, eng); err != nil {
			closeSurface()
			log.Fatalf("failed to load configuration: %v", err)
		}
		log.Println("Loaded channel configuration from", cfgPath)
	}

	bank := NewBank(eng, surface)
	stopListen, err := surface.Listen(midi.GetInPorts()[inIdx], bank.Push)
	if err != nil {
		closeSurface()
		log.Fatalf("failed to listen on surface input: %v", err)
	}

	return bank, func() {
		stopListen()
		closeSurface()
	}
}

// findOutPort locates a MIDI output whose name contains the fragment.
// An empty fragment selects the first available port.
func findOutPort(nameFragment string) (int, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return -1, fmt.Errorf("no MIDI outputs available")
	}
	if nameFragment == "" {
		return outs[0].Number(), nil
	}

	lower := strings.ToLower(nameFragment)
	for _, out := range outs {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI output contains %q", nameFragment)
}

func findInPort(nameFragment string) (int, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return -1, fmt.Errorf("no MIDI inputs available")
	}
	if nameFragment == "" {
		return ins[0].Number(), nil
	}

	lower := strings.ToLower(nameFragment)
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), lower) {
			return in.Number(), nil
		}
	}

	return -1, fmt.Errorf("no MIDI input contains %q", nameFragment)
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// channelSetting binds a configuration block to a channel index inside
// a bank configuration document.
type channelSetting struct {
	Channel int `json:"channel"`
	ChannelConfig
}

// BankConfig is the JSON document applied at startup. Channels not
// mentioned keep their defaults (absolute pickup, drift off, 7-bit,
// no gang, no quantization).
type BankConfig struct {
	Channels []channelSetting `json:"channels"`
}

func ReadBankConfig(r io.Reader) (*BankConfig, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	cfg := &BankConfig{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration JSON: %w", err)
	}
	return cfg, nil
}

func (c *BankConfig) Apply(e *Engine) error {
	for i, ch := range c.Channels {
		if ch.Channel < 0 || ch.Channel >= NumFaders {
			return fmt.Errorf("entry %d: channel %d out of range 0-%d", i, ch.Channel, NumFaders-1)
		}
		e.SetConfig(ch.Channel, ch.ChannelConfig)
	}
	return nil
}

func loadBankConfig(path string, e *Engine) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := ReadBankConfig(f)
	if err != nil {
		return err
	}
	return cfg.Apply(e)
}

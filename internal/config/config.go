// Package config loads the bridge configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/example/ledbridge/internal/color"
	"github.com/example/ledbridge/internal/pulse"
)

type UDPCfg struct {
	Addr    string `yaml:"addr"`    // e.g. ":5568"
	Channel string `yaml:"channel"` // channel receiving lighting frames
}

type HTTPCfg struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int    `yaml:"max_body_bytes"`
}

// TimingCfg overrides a chip preset, widths in nanoseconds.
type TimingCfg struct {
	T0H int `yaml:"t0h"`
	T0L int `yaml:"t0l"`
	T1H int `yaml:"t1h"`
	T1L int `yaml:"t1l"`
}

type ChannelCfg struct {
	Name         string     `yaml:"name"`
	Count        int        `yaml:"count"`
	Chip         string     `yaml:"chip"` // "ws2812" | "ws2812b"
	Timing       *TimingCfg `yaml:"timing,omitempty"`
	Driver       string     `yaml:"driver"`  // "spi" | "sim"
	SPIDev       string     `yaml:"spi_dev"` // e.g. /dev/spidev0.0
	ClockHz      int64      `yaml:"clock_hz"`
	LatchUs      int        `yaml:"latch_us"`
	DefaultColor string     `yaml:"default_color"` // hex, e.g. "#002110"
}

type Config struct {
	UDP           UDPCfg       `yaml:"udp"`
	HTTP          HTTPCfg      `yaml:"http"`
	FrameMs       int          `yaml:"frame_ms"`
	StatusChannel string       `yaml:"status_channel"`
	Channels      []ChannelCfg `yaml:"channels"`
}

// Default mirrors the original device: a one-pixel onboard WS2812 indicator
// and a 50-pixel WS2812B strip booting cyan at low brightness.
func Default() *Config {
	return &Config{
		UDP:           UDPCfg{Addr: ":5568", Channel: "strip"},
		HTTP:          HTTPCfg{Addr: ":8080", MaxBodyBytes: 768},
		FrameMs:       50,
		StatusChannel: "onboard",
		Channels: []ChannelCfg{
			{
				Name:         "onboard",
				Count:        1,
				Chip:         "ws2812",
				Driver:       "sim",
				DefaultColor: "#080000",
			},
			{
				Name:         "strip",
				Count:        50,
				Chip:         "ws2812b",
				Driver:       "sim",
				DefaultColor: "#002110",
			},
		},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// Channel returns the channel config with the given name, or nil.
func (c *Config) Channel(name string) *ChannelCfg {
	for i := range c.Channels {
		if c.Channels[i].Name == name {
			return &c.Channels[i]
		}
	}
	return nil
}

// FrameInterval returns the render cadence.
func (c *Config) FrameInterval() time.Duration {
	if c.FrameMs <= 0 {
		return 0
	}
	return time.Duration(c.FrameMs) * time.Millisecond
}

// Profile resolves the channel's timing profile: an explicit timing block
// wins, otherwise the chip preset.
func (cc *ChannelCfg) Profile() (pulse.Profile, error) {
	if t := cc.Timing; t != nil {
		return pulse.Profile{
			T0H: time.Duration(t.T0H) * time.Nanosecond,
			T0L: time.Duration(t.T0L) * time.Nanosecond,
			T1H: time.Duration(t.T1H) * time.Nanosecond,
			T1L: time.Duration(t.T1L) * time.Nanosecond,
		}, nil
	}
	switch cc.Chip {
	case "", "ws2812b":
		return pulse.WS2812B, nil
	case "ws2812":
		return pulse.WS2812, nil
	default:
		return pulse.Profile{}, fmt.Errorf("channel %s: unknown chip %q", cc.Name, cc.Chip)
	}
}

// Clock returns the transmitter clock. Unset picks a driver-appropriate
// default: SPI ports run at 8MHz (125ns ticks, fine enough for WS2812
// widths), the sim sink models the original 80MHz transmit peripheral.
func (cc *ChannelCfg) Clock() physic.Frequency {
	if cc.ClockHz > 0 {
		return physic.Frequency(cc.ClockHz) * physic.Hertz
	}
	if cc.Driver == "spi" {
		return 8 * physic.MegaHertz
	}
	return 80 * physic.MegaHertz
}

// Latch returns the configured post-frame quiet period, zero meaning the
// transmit layer's default.
func (cc *ChannelCfg) Latch() time.Duration {
	return time.Duration(cc.LatchUs) * time.Microsecond
}

// Default returns the boot color for every pixel of the channel.
func (cc *ChannelCfg) Default() (color.Color, error) {
	if cc.DefaultColor == "" {
		return color.Color{}, nil
	}
	c, err := colorful.Hex(cc.DefaultColor)
	if err != nil {
		return color.Color{}, fmt.Errorf("channel %s: default color %q: %w", cc.Name, cc.DefaultColor, err)
	}
	r, g, b := c.RGB255()
	return color.RGB(r, g, b), nil
}

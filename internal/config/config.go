// Package config loads the build-time Configuration block (spec.md §6)
// from a YAML file: port count, table sizing, default VLAN, and the
// AVB1722 packet rate used by the bandwidth accountant. This is the
// direct analogue of the teacher's direwolf.conf loader in config.go,
// minus the line-oriented command parser — the Go ecosystem's way of
// doing structured config is a typed struct and a YAML decoder, not a
// hand-rolled tokenizer, so that's what this package uses.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// minSlack is the minimum slack (spec.md §3 invariant 5) the stream
// table must carry above max_sources+max_sinks to absorb the race
// between host-side teardown and MRP's slower attribute aging.
const minSlack = 4

// extraSlackPerPort is the additional slack required for each port
// beyond the first, since bridge mode doubles the propagated-attribute
// population that can be mid-teardown at once.
const extraSlackPerPort = 8

// Config is the build-time Configuration block (spec.md §6).
type Config struct {
	MRPNumPorts           int    `yaml:"mrp_num_ports"`
	AVBNumSources         int    `yaml:"avb_num_sources"`
	AVBNumSinks           int    `yaml:"avb_num_sinks"`
	AVBStreamTableEntries int    `yaml:"avb_stream_table_entries"`
	AVBDefaultVLAN        uint16 `yaml:"avb_default_vlan"`
	AVB1722PacketRate     int    `yaml:"avb1722_packet_rate"`
}

// Default returns the values the teacher's config_init applies before
// a file is read: a single-port endpoint sized for the original
// XMOS reference deployment.
func Default() Config {
	return Config{
		MRPNumPorts:           1,
		AVBNumSources:         2,
		AVBNumSinks:           2,
		AVBStreamTableEntries: 16,
		AVBDefaultVLAN:        2,
		AVB1722PacketRate:     8000,
	}
}

// Load reads and validates a Configuration block from a YAML file,
// applying Default() for any field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the constraints spec.md places on the
// Configuration block: a 1- or 2-port endpoint, and a stream table
// sized with enough slack (invariant 5) above the sources+sinks it
// must hold concurrently.
func (c Config) Validate() error {
	if c.MRPNumPorts != 1 && c.MRPNumPorts != 2 {
		return fmt.Errorf("config: mrp_num_ports must be 1 or 2, got %d", c.MRPNumPorts)
	}
	if c.AVBNumSources < 0 || c.AVBNumSinks < 0 {
		return fmt.Errorf("config: avb_num_sources and avb_num_sinks must be non-negative")
	}
	if c.AVB1722PacketRate <= 0 {
		return fmt.Errorf("config: avb1722_packet_rate must be positive, got %d", c.AVB1722PacketRate)
	}

	slack := minSlack + extraSlackPerPort*(c.MRPNumPorts-1)
	required := c.AVBNumSources + c.AVBNumSinks + slack
	if c.AVBStreamTableEntries < required {
		return fmt.Errorf("config: avb_stream_table_entries (%d) must be at least "+
			"avb_num_sources+avb_num_sinks+slack = %d+%d+%d = %d",
			c.AVBStreamTableEntries, c.AVBNumSources, c.AVBNumSinks, slack, required)
	}
	return nil
}

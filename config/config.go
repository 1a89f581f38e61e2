// Package config describes where devices sit on the bus and how a run is
// bounded. Configurations are JSON files whose address fields are Starlark
// integer expressions.
package config

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"

	"github.com/sarchlab/rv32vm/bus"
)

// MemoryConfig places the main memory.
type MemoryConfig struct {
	// Start is the base address expression. Default: "0".
	Start string `json:"start"`

	// Width is log2 of the memory size in bytes. Default: 16 (64 KiB).
	Width uint8 `json:"width"`

	// Watch is an optional address expression. Stores to that word are
	// logged.
	Watch string `json:"watch,omitempty"`
}

// CacheConfig puts a write-back cache in front of the main memory.
type CacheConfig struct {
	Enabled       bool `json:"enabled"`
	Size          int  `json:"size"`
	Associativity int  `json:"associativity"`
	BlockSize     int  `json:"block_size"`
}

// Config holds the machine layout and run policy.
type Config struct {
	Memory MemoryConfig `json:"memory"`

	// OutputStart places the output device. Empty leaves it detached.
	// Default: "0x00100000".
	OutputStart string `json:"output_start"`

	// InputStart places the input device. Empty leaves it detached.
	// Default: "0x00100004".
	InputStart string `json:"input_start"`

	// TrapVector is written to mtvec after reset. Default: "0x10".
	TrapVector string `json:"trap_vector"`

	Cache CacheConfig `json:"cache"`

	// TickLimit bounds a run. Zero is unbounded. Default: 100.
	TickLimit uint32 `json:"tick_limit"`

	// DieOnException stops the run at the first exception.
	DieOnException bool `json:"die_on_exception"`

	// Syscalls services ECALL with read, write and exit.
	Syscalls bool `json:"syscalls"`

	// Equates are named expressions available to every address field.
	Equates map[string]string `json:"equates,omitempty"`
}

// Default returns the stock machine layout.
func Default() *Config {
	cache := bus.DefaultCacheConfig()

	return &Config{
		Memory: MemoryConfig{
			Start: "0",
			Width: 16,
		},
		OutputStart: "0x00100000",
		InputStart:  "0x00100004",
		TrapVector:  "0x10",
		Cache: CacheConfig{
			Size:          cache.Size,
			Associativity: cache.Associativity,
			BlockSize:     cache.BlockSize,
		},
		TickLimit: 100,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

// Validate checks the memory width, the cache geometry and every address
// expression.
func (c *Config) Validate() error {
	if c.Memory.Width < 2 || c.Memory.Width > bus.MaxMemoryWidth {
		return fmt.Errorf("memory width must be between 2 and %d, got %d",
			bus.MaxMemoryWidth, c.Memory.Width)
	}

	if c.Cache.Enabled {
		if err := c.cacheGeometry().Validate(); err != nil {
			return err
		}
	}

	_, err := c.Resolve()
	return err
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Equates = maps.Clone(c.Equates)
	return &clone
}

func (c *Config) cacheGeometry() bus.CacheConfig {
	return bus.CacheConfig{
		Size:          c.Cache.Size,
		Associativity: c.Cache.Associativity,
		BlockSize:     c.Cache.BlockSize,
	}
}

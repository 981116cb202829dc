// Package config handles simulator configuration and setup.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"

	"github.com/aravk2005/ARMsimulator/cache"
	"github.com/aravk2005/ARMsimulator/emu"
	"github.com/aravk2005/ARMsimulator/timing/latency"
)

// AutoARMBytes asks the loader to detect the ARM/Thumb boundary.
const AutoARMBytes = -1

// Log levels accepted in log_level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelError = "error"
)

// SimConfig holds the settings of one simulation run.
type SimConfig struct {
	// MaxCycles is the cycle budget of the run loop. Default: 100.
	MaxCycles uint64 `json:"max_cycles"`

	// ARMBytes is the length of the leading ARM region in bytes.
	// -1 detects it from the image. Default: -1.
	ARMBytes int `json:"arm_bytes"`

	// LogLevel is one of "debug", "info" or "error". Default: "info".
	LogLevel string `json:"log_level"`

	// Trace prints every executed instruction with its cycle and PC.
	Trace bool `json:"trace"`

	// DumpMemory is the number of leading memory bytes to print after
	// the run. Default: 0.
	DumpMemory int `json:"dump_memory"`

	// Cache enables the data cache model when set.
	Cache *cache.Config `json:"cache,omitempty"`

	// Timing enables execution time estimates when set.
	Timing *latency.TimingConfig `json:"timing,omitempty"`
}

// DefaultConfig returns the default simulation configuration.
func DefaultConfig() *SimConfig {
	return &SimConfig{
		MaxCycles: emu.DefaultMaxCycles,
		ARMBytes:  AutoARMBytes,
		LogLevel:  LevelInfo,
	}
}

// LoadConfig reads a JSON configuration file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration as indented JSON.
func (c *SimConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are within their allowed ranges.
func (c *SimConfig) Validate() error {
	if c.MaxCycles == 0 {
		return fmt.Errorf("max_cycles must be > 0")
	}
	if c.ARMBytes < AutoARMBytes {
		return fmt.Errorf("arm_bytes must be >= -1")
	}
	switch c.LogLevel {
	case LevelDebug, LevelInfo, LevelError:
	default:
		return fmt.Errorf("log_level must be one of debug, info, error")
	}
	if c.DumpMemory < 0 || c.DumpMemory > emu.MemorySize {
		return fmt.Errorf("dump_memory must be in [0, %d]", emu.MemorySize)
	}
	if c.Cache != nil {
		if err := c.Cache.Validate(); err != nil {
			return err
		}
	}
	if c.Timing != nil {
		if err := c.Timing.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *SimConfig) Clone() *SimConfig {
	clone := *c
	if c.Cache != nil {
		cacheConfig := *c.Cache
		clone.Cache = &cacheConfig
	}
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	return &clone
}

// Logger creates a logger for the configured level.
func (c *SimConfig) Logger() *log.Logger {
	return CreateLogger(c.LogLevel == LevelDebug, c.LogLevel == LevelError)
}

// EmulatorOptions returns the emulator options the configuration implies.
func (c *SimConfig) EmulatorOptions(logger *log.Logger) []emu.EmulatorOption {
	opts := []emu.EmulatorOption{
		emu.WithMaxCycles(c.MaxCycles),
		emu.WithLogger(logger),
	}
	if c.Cache != nil {
		opts = append(opts, emu.WithDataCache(cache.New(*c.Cache)))
	}
	if c.Timing != nil {
		opts = append(opts, emu.WithLatencyTable(latency.NewTableWithConfig(c.Timing.Clone())))
	}
	return opts
}

// CreateLogger creates a logger with appropriate settings.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

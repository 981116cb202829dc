package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different instruction types.
type TimingConfig struct {
	// ALULatency is the execution latency for data-processing operations
	// (ADD, SUB, AND, ORR, EOR, MOV, CMP). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the latency for B, BL and BX. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// LoadLatency is the latency for LDR when no data cache is attached.
	// Default: 4 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for STR when no data cache is attached.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// UnknownLatency is charged for encodings that only advance the PC.
	// Default: 1 cycle.
	UnknownLatency uint64 `json:"unknown_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:     1,
		BranchLatency:  1,
		LoadLatency:    4,
		StoreLatency:   1,
		UnknownLatency: 1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.UnknownLatency == 0 {
		return fmt.Errorf("unknown_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}

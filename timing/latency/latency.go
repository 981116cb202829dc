// Package latency provides a per-instruction cost model. The emulator
// sums these costs into an estimated execution time alongside its
// one-instruction-per-cycle count.
package latency

import (
	"github.com/aravk2005/ARMsimulator/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the latency in cycles for the given instruction.
func (t *Table) GetLatency(inst insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op() {
	case insts.OpADD, insts.OpADDS, insts.OpSUB, insts.OpSUBS,
		insts.OpAND, insts.OpORR, insts.OpEOR,
		insts.OpMOV, insts.OpMOVS, insts.OpCMP:
		return t.config.ALULatency

	case insts.OpB, insts.OpBL, insts.OpBX:
		return t.config.BranchLatency

	case insts.OpLDR:
		return t.config.LoadLatency

	case insts.OpSTR:
		return t.config.StoreLatency

	default:
		return t.config.UnknownLatency
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load.
func (t *Table) IsLoadOp(inst insts.Instruction) bool {
	return inst != nil && inst.Op() == insts.OpLDR
}

// IsStoreOp returns true if the instruction is a store.
func (t *Table) IsStoreOp(inst insts.Instruction) bool {
	return inst != nil && inst.Op() == insts.OpSTR
}

// IsBranchOp returns true if the instruction changes the PC directly.
func (t *Table) IsBranchOp(inst insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op() {
	case insts.OpB, insts.OpBL, insts.OpBX:
		return true
	}
	return false
}

// Config returns the timing configuration used by this table.
func (t *Table) Config() *TimingConfig {
	return t.config
}

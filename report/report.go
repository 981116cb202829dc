// Package report formats simulator output: instruction listings,
// register state, run summaries and memory dumps.
package report

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aravk2005/ARMsimulator/cache"
	"github.com/aravk2005/ARMsimulator/emu"
	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/translate"
)

var f = translate.From

const rule = "============================"

// WriteListing prints every decoded instruction with its index, byte
// offset and raw encoding.
func WriteListing(w io.Writer, list []insts.Instruction) error {
	ew := &errWriter{w: w}

	ew.printf("=== Decoded Instructions ===\n")
	offset := uint32(0)
	for i, inst := range list {
		ew.printf("%3d: %04X  %s  %-5s %s\n", i, offset, raw(inst), inst.ISA(), inst)
		offset += inst.Size()
	}
	ew.printf("%s\n", rule)

	return ew.err
}

// raw renders the encoding at its natural width.
func raw(inst insts.Instruction) string {
	if inst.Size() == 2 {
		return fmt.Sprintf("    %04X", inst.Raw())
	}
	return fmt.Sprintf("%08X", inst.Raw())
}

// WriteState prints the register file: R0-R15 in decimal and hex, the PC
// and the flags as 0 or 1.
func WriteState(w io.Writer, rf *emu.RegFile) error {
	ew := &errWriter{w: w}

	ew.printf("=== CPU State ===\n")
	for i := range emu.NumRegs {
		ew.printf("R%-2d: %11d  0x%08X\n", i, rf.R[i], rf.R[i])
	}
	ew.printf("PC : %11d  0x%08X\n", rf.PC, rf.PC)
	ew.printf("Flags: Z=%d N=%d C=%d V=%d\n",
		bit(rf.Flags.Z), bit(rf.Flags.N), bit(rf.Flags.C), bit(rf.Flags.V))

	return ew.err
}

// WriteTrace prints one executed cycle.
func WriteTrace(w io.Writer, cycle uint64, pc uint32, inst insts.Instruction) error {
	_, err := fmt.Fprintf(w, "Cycle %d: PC=%d, Executing: %s\n", cycle, pc, inst)
	return err
}

// WriteSummary prints why the run stopped and, if a data cache was
// attached, its statistics.
func WriteSummary(w io.Writer, result emu.RunResult, dcache *cache.Cache) error {
	ew := &errWriter{w: w}

	ew.printf("%s\n", f("Halted: %v", result.Reason))
	ew.printf("%s\n", f("Cycles: %d", result.Cycles))
	ew.printf("%s\n", f("PC: 0x%08X", result.PC))
	ew.printf("%s\n", f("Unknown instructions: %d", result.UnknownOps))
	if result.Err != nil {
		ew.printf("%s\n", f("Fault: %v", result.Err))
	}
	if result.Latency > 0 {
		ew.printf("%s\n", f("Estimated latency: %d cycles", result.Latency))
	}

	if dcache != nil {
		stats := dcache.Stats()
		ew.printf("\n%s\n", f("Data cache:"))
		ew.printf("  %s\n", f("Reads: %d  Writes: %d", stats.Reads, stats.Writes))
		ew.printf("  %s\n", f("Hits: %d  Misses: %d", stats.Hits, stats.Misses))
		ew.printf("  %s\n", f("Evictions: %d  Writebacks: %d", stats.Evictions, stats.Writebacks))
		ew.printf("  %s\n", f("Hit rate: %.2f%%", 100*stats.HitRate()))
		ew.printf("  %s\n", f("Latency: %d cycles", stats.Latency))
	}

	return ew.err
}

// WriteMemory prints a hex dump of the first n bytes of memory.
func WriteMemory(w io.Writer, mem *emu.Memory, n int) error {
	ew := &errWriter{w: w}

	ew.printf("=== Memory [0, %d) ===\n", n)
	if data := mem.Bytes(n); len(data) > 0 {
		ew.printf("%s", hex.Dump(data))
	}

	return ew.err
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// errWriter keeps the first write error so callers can check once.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

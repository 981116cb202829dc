package report_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aravk2005/ARMsimulator/cache"
	"github.com/aravk2005/ARMsimulator/emu"
	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/report"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

var _ = Describe("Report", func() {
	var buf *bytes.Buffer

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	Describe("WriteListing", func() {
		It("should list instructions with offsets and raw encodings", func() {
			dec := insts.NewDecoder()
			list := []insts.Instruction{dec.DecodeARM(0xE3A00004), dec.DecodeThumb(0x2304)}

			Expect(report.WriteListing(buf, list)).To(Succeed())

			out := buf.String()
			Expect(out).To(HavePrefix("=== Decoded Instructions ===\n"))
			Expect(out).To(ContainSubstring("  0: 0000  E3A00004  ARM   MOV R0, #4"))
			Expect(out).To(ContainSubstring("  1: 0004      2304  Thumb MOVS R3, #4"))
		})

		It("should return the first write error", func() {
			Expect(report.WriteListing(failWriter{}, nil)).To(MatchError("disk full"))
		})
	})

	Describe("WriteState", func() {
		It("should print registers, PC and flags", func() {
			rf := &emu.RegFile{}
			rf.R[0] = 4
			rf.R[15] = 0xFFFFFFFF
			rf.PC = 12
			rf.Flags.N = true

			Expect(report.WriteState(buf, rf)).To(Succeed())

			out := buf.String()
			Expect(out).To(HavePrefix("=== CPU State ===\n"))
			Expect(out).To(ContainSubstring("R0 :           4  0x00000004\n"))
			Expect(out).To(ContainSubstring("R15:  4294967295  0xFFFFFFFF\n"))
			Expect(out).To(ContainSubstring("PC :          12  0x0000000C\n"))
			Expect(out).To(ContainSubstring("Flags: Z=0 N=1 C=0 V=0\n"))
		})
	})

	Describe("WriteTrace", func() {
		It("should print the cycle and instruction", func() {
			inst := insts.NewDecoder().DecodeARM(0xE3A00004)
			Expect(report.WriteTrace(buf, 1, 0, inst)).To(Succeed())
			Expect(buf.String()).To(Equal("Cycle 1: PC=0, Executing: MOV R0, #4\n"))
		})
	})

	Describe("WriteSummary", func() {
		It("should print the halt reason and counters", func() {
			result := emu.RunResult{Reason: emu.HaltCycleLimit, Cycles: 100, PC: 8, UnknownOps: 2}

			Expect(report.WriteSummary(buf, result, nil)).To(Succeed())

			out := buf.String()
			Expect(out).To(ContainSubstring("Halted: cycle limit"))
			Expect(out).To(ContainSubstring("Cycles: 100"))
			Expect(out).To(ContainSubstring("PC: 0x00000008"))
			Expect(out).To(ContainSubstring("Unknown instructions: 2"))
			Expect(out).NotTo(ContainSubstring("Data cache"))
		})

		It("should include the fault and cache statistics", func() {
			dcache := cache.New(cache.DefaultConfig())
			dcache.Read(0)
			dcache.Read(0)

			result := emu.RunResult{Reason: emu.HaltMemoryFault, Err: errors.New("bad access")}
			Expect(report.WriteSummary(buf, result, dcache)).To(Succeed())

			out := buf.String()
			Expect(out).To(ContainSubstring("Halted: memory fault"))
			Expect(out).To(ContainSubstring("Fault: bad access"))
			Expect(out).To(ContainSubstring("Data cache:"))
			Expect(out).To(ContainSubstring("Hits: 1  Misses: 1"))
			Expect(out).To(ContainSubstring("Hit rate: 50.00%"))
		})
	})

	Describe("WriteMemory", func() {
		It("should dump the leading bytes", func() {
			mem := emu.NewMemory()
			Expect(mem.Write32(0, 0xE3A00004)).To(Succeed())

			Expect(report.WriteMemory(buf, mem, 4)).To(Succeed())

			out := buf.String()
			Expect(out).To(HavePrefix("=== Memory [0, 4) ===\n"))
			Expect(out).To(ContainSubstring("04 00 a0 e3"))
		})

		It("should print only the header for zero bytes", func() {
			Expect(report.WriteMemory(buf, emu.NewMemory(), 0)).To(Succeed())
			Expect(buf.String()).To(Equal("=== Memory [0, 0) ===\n"))
		})
	})
})

package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should have the default latencies", func() {
			config := table.Config()
			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.LoadLatency).To(Equal(uint64(4)))
			Expect(config.StoreLatency).To(Equal(uint64(1)))
			Expect(config.UnknownLatency).To(Equal(uint64(1)))
		})
	})

	DescribeTable("GetLatency",
		func(word uint32, expected uint64) {
			Expect(table.GetLatency(decoder.DecodeARM(word))).To(Equal(expected))
		},
		Entry("MOV R0, #4", uint32(0xE3A00004), uint64(1)),
		Entry("ADD R0, R1, R2", uint32(0xE0810002), uint64(1)),
		Entry("CMP R0, #4", uint32(0xE3500004), uint64(1)),
		Entry("EOR R0, R1, #4", uint32(0xE2210004), uint64(1)),
		Entry("LDR R0, [R1]", uint32(0xE5910000), uint64(4)),
		Entry("STR R0, [R1, #4]", uint32(0xE5810004), uint64(1)),
		Entry("B", uint32(0xEAFFFFFE), uint64(1)),
		Entry("BX R1", uint32(0xE12FFF11), uint64(1)),
		Entry("unknown", uint32(0xE7F000F0), uint64(1)),
	)

	It("should price Thumb loads like ARM loads", func() {
		Expect(table.GetLatency(decoder.DecodeThumb(0x6848))).To(Equal(uint64(4)))
	})

	Describe("Instruction Type Detection", func() {
		It("should classify memory and branch operations", func() {
			ldr := decoder.DecodeARM(0xE5910000)
			str := decoder.DecodeARM(0xE5810004)
			add := decoder.DecodeARM(0xE0810002)
			bx := decoder.DecodeARM(0xE12FFF11)

			Expect(table.IsMemoryOp(ldr)).To(BeTrue())
			Expect(table.IsMemoryOp(str)).To(BeTrue())
			Expect(table.IsMemoryOp(add)).To(BeFalse())

			Expect(table.IsLoadOp(ldr)).To(BeTrue())
			Expect(table.IsLoadOp(str)).To(BeFalse())
			Expect(table.IsStoreOp(str)).To(BeTrue())

			Expect(table.IsBranchOp(bx)).To(BeTrue())
			Expect(table.IsBranchOp(add)).To(BeFalse())
		})
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should return false for nil instruction checks", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsBranchOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 2
			config.LoadLatency = 7
			custom := latency.NewTableWithConfig(config)

			Expect(custom.GetLatency(decoder.DecodeARM(0xE0810002))).To(Equal(uint64(2)))
			Expect(custom.GetLatency(decoder.DecodeARM(0xE5910000))).To(Equal(uint64(7)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero branch latency", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero load latency", func() {
			config := latency.DefaultTimingConfig()
			config.LoadLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero store latency", func() {
			config := latency.DefaultTimingConfig()
			config.StoreLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero unknown latency", func() {
			config := latency.DefaultTimingConfig()
			config.UnknownLatency = 0
			Expect(config.Validate()).To(MatchError("unknown_latency must be > 0"))
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.ALULatency = 5
			original.LoadLatency = 10

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.ALULatency).To(Equal(uint64(5)))
			Expect(loaded.LoadLatency).To(Equal(uint64(10)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig(filepath.Join(tempDir, "missing.json"))
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})

package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aravk2005/ARMsimulator/emu"
)

var _ = Describe("ALU", func() {
	var (
		regFile *emu.RegFile
		alu     *emu.ALU
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		alu = emu.NewALU(regFile)
	})

	Describe("ADD", func() {
		It("should add without touching flags", func() {
			regFile.R[1] = 10
			regFile.Flags = emu.Flags{Z: true, C: true}

			alu.ADD(0, 1, 5, false)

			Expect(regFile.R[0]).To(Equal(uint32(15)))
			Expect(regFile.Flags).To(Equal(emu.Flags{Z: true, C: true}))
		})

		It("should wrap at 32 bits", func() {
			regFile.R[1] = 0xFFFFFFFF

			alu.ADD(0, 1, 2, false)

			Expect(regFile.R[0]).To(Equal(uint32(1)))
		})

		It("should set C on unsigned overflow", func() {
			regFile.R[1] = 0xFFFFFFFF

			alu.ADD(0, 1, 1, true)

			Expect(regFile.R[0]).To(Equal(uint32(0)))
			Expect(regFile.Flags).To(Equal(emu.Flags{Z: true, C: true}))
		})

		It("should set V on signed overflow", func() {
			regFile.R[1] = 0x7FFFFFFF

			alu.ADD(0, 1, 1, true)

			Expect(regFile.R[0]).To(Equal(uint32(0x80000000)))
			Expect(regFile.Flags).To(Equal(emu.Flags{N: true, V: true}))
		})

		It("should set both C and V when two negatives overflow", func() {
			regFile.R[1] = 0x80000000

			alu.ADD(0, 1, 0x80000000, true)

			Expect(regFile.Flags).To(Equal(emu.Flags{Z: true, C: true, V: true}))
		})
	})

	Describe("SUB", func() {
		It("should subtract without touching flags", func() {
			regFile.R[1] = 10

			alu.SUB(0, 1, 3, false)

			Expect(regFile.R[0]).To(Equal(uint32(7)))
			Expect(regFile.Flags).To(Equal(emu.Flags{}))
		})

		It("should set C when no borrow occurs", func() {
			regFile.R[1] = 5

			alu.SUB(0, 1, 5, true)

			Expect(regFile.Flags).To(Equal(emu.Flags{Z: true, C: true}))
		})

		It("should clear C on borrow", func() {
			regFile.R[1] = 3

			alu.SUB(0, 1, 5, true)

			Expect(regFile.R[0]).To(Equal(uint32(0xFFFFFFFE)))
			Expect(regFile.Flags).To(Equal(emu.Flags{N: true}))
		})

		It("should set V on signed overflow", func() {
			regFile.R[1] = 0x80000000

			alu.SUB(0, 1, 1, true)

			Expect(regFile.R[0]).To(Equal(uint32(0x7FFFFFFF)))
			Expect(regFile.Flags).To(Equal(emu.Flags{C: true, V: true}))
		})
	})

	Describe("Logic", func() {
		BeforeEach(func() {
			regFile.R[1] = 0b1100
		})

		It("should compute AND", func() {
			alu.AND(0, 1, 0b1010)
			Expect(regFile.R[0]).To(Equal(uint32(0b1000)))
		})

		It("should compute ORR", func() {
			alu.ORR(0, 1, 0b1010)
			Expect(regFile.R[0]).To(Equal(uint32(0b1110)))
		})

		It("should compute EOR", func() {
			alu.EOR(0, 1, 0b1010)
			Expect(regFile.R[0]).To(Equal(uint32(0b0110)))
		})
	})

	Describe("MOV", func() {
		It("should set only N and Z with flags", func() {
			regFile.Flags = emu.Flags{C: true, V: true}

			alu.MOV(3, 0x80000000, true)

			Expect(regFile.R[3]).To(Equal(uint32(0x80000000)))
			Expect(regFile.Flags).To(Equal(emu.Flags{N: true, C: true, V: true}))
		})

		It("should set Z for a zero move", func() {
			alu.MOV(3, 0, true)
			Expect(regFile.Flags.Z).To(BeTrue())
		})

		It("should leave flags alone without S", func() {
			alu.MOV(3, 0, false)
			Expect(regFile.Flags).To(Equal(emu.Flags{}))
		})
	})

	Describe("CMP", func() {
		It("should discard the result", func() {
			regFile.R[0] = 9

			alu.CMP(0, 4)

			Expect(regFile.R[0]).To(Equal(uint32(9)))
			Expect(regFile.Flags).To(Equal(emu.Flags{C: true}))
		})

		It("should produce Z=0 N=1 C=0 V=0 for 0 compared to 4", func() {
			alu.CMP(0, 4)

			Expect(regFile.Flags).To(Equal(emu.Flags{Z: false, N: true, C: false, V: false}))
		})
	})
})

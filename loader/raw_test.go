package loader_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/loader"
)

// MOV R0, #4; BX R1 followed by MOVS R3, #4; ADDS R0, R4, R1.
var mixed = []byte{
	0x04, 0x00, 0xA0, 0xE3,
	0x11, 0xFF, 0x2F, 0xE1,
	0x04, 0x23,
	0x60, 0x18,
}

var _ = Describe("Raw Loader", func() {
	var path string

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "program.bin")
		Expect(os.WriteFile(path, mixed, 0o644)).To(Succeed())
	})

	Describe("Load", func() {
		It("should detect the ARM region", func() {
			img, err := loader.Load(path, loader.AutoARMBytes)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.ARMBytes).To(Equal(8))
			Expect(img.ThumbBytes()).To(Equal(4))
			Expect(img.Data).To(Equal(mixed))
		})

		It("should honour an explicit boundary", func() {
			img, err := loader.Load(path, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.ARMBytes).To(Equal(4))
		})

		It("should reject a boundary past the end", func() {
			_, err := loader.Load(path, 16)
			Expect(errors.Is(err, insts.ErrBoundary)).To(BeTrue())
		})

		It("should fail for a missing file", func() {
			_, err := loader.Load(filepath.Join(GinkgoT().TempDir(), "missing.bin"), 0)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to read program file"))
		})

		It("should reject an empty file", func() {
			empty := filepath.Join(GinkgoT().TempDir(), "empty.bin")
			Expect(os.WriteFile(empty, nil, 0o644)).To(Succeed())

			_, err := loader.Load(empty, loader.AutoARMBytes)
			Expect(errors.Is(err, loader.ErrEmptyImage)).To(BeTrue())
		})
	})

	Describe("DetectARMBytes", func() {
		var decoder *insts.Decoder

		BeforeEach(func() {
			decoder = insts.NewDecoder()
		})

		It("should stop at the first non-AL word", func() {
			Expect(loader.DetectARMBytes(decoder, mixed)).To(Equal(8))
		})

		It("should return zero for a pure Thumb image", func() {
			Expect(loader.DetectARMBytes(decoder, []byte{0x04, 0x23, 0x60, 0x18})).To(Equal(0))
		})

		It("should ignore a trailing partial word", func() {
			Expect(loader.DetectARMBytes(decoder, []byte{0x04, 0x00, 0xA0, 0xE3, 0x00, 0xE0})).To(Equal(4))
		})

		It("should not take a Thumb branch for an ARM word", func() {
			// MOV R0, #1 then MOVS R1, #1; B #-2. The Thumb pair reads as
			// the word 0xE7FF2101, which has an AL nibble.
			data := []byte{
				0x01, 0x00, 0xA0, 0xE3,
				0x01, 0x21,
				0xFF, 0xE7,
			}
			Expect(loader.DetectARMBytes(decoder, data)).To(Equal(4))

			img, err := loader.New(data, loader.AutoARMBytes)
			Expect(err).NotTo(HaveOccurred())
			list, err := img.Decode(decoder)
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(3))
			Expect(list[1].String()).To(Equal("MOVS R1, #1"))
			Expect(list[2].String()).To(Equal("B #-2"))
		})
	})

	Describe("Decode", func() {
		It("should decode both regions in order", func() {
			img, err := loader.New(mixed, loader.AutoARMBytes)
			Expect(err).NotTo(HaveOccurred())

			list, err := img.Decode(insts.NewDecoder())
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(4))
			Expect(list[0].String()).To(Equal("MOV R0, #4"))
			Expect(list[1].String()).To(Equal("BX R1"))
			Expect(list[2].String()).To(Equal("MOVS R3, #4"))
			Expect(list[3].String()).To(Equal("ADDS R0, R4, R1"))
		})

		It("should surface a misaligned ARM region", func() {
			img, err := loader.New(mixed, 6)
			Expect(err).NotTo(HaveOccurred())

			_, err = img.Decode(insts.NewDecoder())
			Expect(errors.Is(err, insts.ErrTruncated)).To(BeTrue())
		})
	})
})

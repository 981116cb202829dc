// Package loader reads raw program images for the simulator.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/aravk2005/ARMsimulator/insts"
)

// AutoARMBytes asks Load to find the ARM/Thumb boundary itself.
const AutoARMBytes = -1

// condAL is the "always" condition nibble of an ARM word.
const condAL = 0xE

// ErrEmptyImage is returned for a program file with no bytes.
var ErrEmptyImage = errors.New("program image is empty")

// Image is a raw program: an ARM region of ARMBytes bytes followed by a
// Thumb region holding the rest of Data.
type Image struct {
	Data     []byte
	ARMBytes int
}

// Load reads a raw binary from path. An armBytes of AutoARMBytes detects
// the ARM region with DetectARMBytes.
func Load(path string, armBytes int) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}

	return New(data, armBytes)
}

// New wraps bytes already in memory as an Image.
func New(data []byte, armBytes int) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	if armBytes == AutoARMBytes {
		armBytes = DetectARMBytes(insts.NewDecoder(), data)
	}

	if armBytes < 0 || armBytes > len(data) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", insts.ErrBoundary, armBytes, len(data))
	}

	return &Image{Data: data, ARMBytes: armBytes}, nil
}

// DetectARMBytes counts the leading little-endian words that carry the AL
// condition and decode to a supported ARM instruction. A Thumb B
// halfword (0xE000-0xE7FF) in the upper half of a word also has an AL
// nibble, so the condition alone does not end the region.
func DetectARMBytes(decoder *insts.Decoder, data []byte) int {
	n := 0
	for n+4 <= len(data) {
		word := binary.LittleEndian.Uint32(data[n:])
		if word>>28 != condAL || decoder.DecodeARM(word).Op() == insts.OpUnknown {
			break
		}
		n += 4
	}
	return n
}

// ThumbBytes returns the length of the Thumb region.
func (img *Image) ThumbBytes() int {
	return len(img.Data) - img.ARMBytes
}

// Decode decodes the image into an ordered instruction list.
func (img *Image) Decode(decoder *insts.Decoder) ([]insts.Instruction, error) {
	list, err := decoder.DecodeMixed(img.Data, img.ARMBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	return list, nil
}

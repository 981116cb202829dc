package insts

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// condAL is the ARM "always" condition. Other conditions are not supported.
const condAL = 0xE

// Decoder decodes ARM and Thumb machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// DecodeARM decodes a 32-bit ARM instruction word.
func (d *Decoder) DecodeARM(word uint32) Instruction {
	enc := Encoding{Word: word, Width: 4, Set: SetARM}

	if word>>28 != condAL {
		return Unknown{Encoding: enc}
	}

	switch {
	case d.isBranchExchange(word):
		return BranchExchange{Encoding: enc, Rm: uint8(word & 0xF)}
	case d.isDataProcessing(word):
		return d.decodeDataProcessing(word, enc)
	case d.isLoadStore(word):
		return d.decodeLoadStore(word, enc)
	case d.isBranch(word):
		return d.decodeBranch(word, enc)
	default:
		return Unknown{Encoding: enc}
	}
}

// isBranchExchange checks for BX.
// Format: cond | 0001 0010 1111 1111 1111 0001 | Rm
func (d *Decoder) isBranchExchange(word uint32) bool {
	return word&0x0FFFFFF0 == 0x012FFF10
}

// isDataProcessing checks for the data-processing class.
// bits [27:26] == 0b00
func (d *Decoder) isDataProcessing(word uint32) bool {
	return (word>>26)&0x3 == 0b00
}

// decodeDataProcessing decodes AND, EOR, SUB, ADD, CMP, ORR and MOV.
// Format: cond | 00 | I | opcode | S | Rn | Rd | operand2
func (d *Decoder) decodeDataProcessing(word uint32, enc Encoding) Instruction {
	i := (word >> 25) & 0x1      // bit 25: immediate operand
	opcode := (word >> 21) & 0xF // bits [24:21]
	s := (word >> 20) & 0x1      // bit 20: set flags
	rn := uint8((word >> 16) & 0xF)
	rd := uint8((word >> 12) & 0xF)

	var operand Operand
	if i == 1 {
		rot := (word >> 8) & 0xF // bits [11:8]
		imm8 := word & 0xFF      // bits [7:0]
		operand = Imm(int32(bits.RotateLeft32(imm8, -int(2*rot))))
	} else {
		// Shifted register operands are outside the supported set.
		if (word>>4)&0xFF != 0 {
			return Unknown{Encoding: enc}
		}
		operand = Reg(uint8(word & 0xF))
	}

	setFlags := s == 1

	switch opcode {
	case 0x0, 0x1, 0xC:
		if setFlags {
			return Unknown{Encoding: enc}
		}
		op := OpAND
		switch opcode {
		case 0x1:
			op = OpEOR
		case 0xC:
			op = OpORR
		}
		return DataProc{Encoding: enc, Opcode: op, Rd: rd, Rn: rn, Operand: operand}
	case 0x2:
		op := OpSUB
		if setFlags {
			op = OpSUBS
		}
		return DataProc{Encoding: enc, Opcode: op, Rd: rd, Rn: rn, Operand: operand}
	case 0x4:
		op := OpADD
		if setFlags {
			op = OpADDS
		}
		return DataProc{Encoding: enc, Opcode: op, Rd: rd, Rn: rn, Operand: operand}
	case 0xA:
		// S=0 in the compare space is MRS and friends.
		if !setFlags {
			return Unknown{Encoding: enc}
		}
		return Compare{Encoding: enc, Rn: rn, Operand: operand}
	case 0xD:
		return Move{Encoding: enc, SetFlags: setFlags, Rd: rd, Operand: operand}
	default:
		return Unknown{Encoding: enc}
	}
}

// isLoadStore checks for a single word transfer with an immediate,
// pre-indexed, non-writeback offset.
// Format: cond | 01 | I=0 | P=1 | U | B=0 | W=0 | L | Rn | Rd | imm12
func (d *Decoder) isLoadStore(word uint32) bool {
	return (word>>26)&0x3 == 0b01 &&
		(word>>25)&0x1 == 0 &&
		(word>>24)&0x1 == 1 &&
		(word>>22)&0x1 == 0 &&
		(word>>21)&0x1 == 0
}

// decodeLoadStore decodes LDR and STR.
func (d *Decoder) decodeLoadStore(word uint32, enc Encoding) Instruction {
	u := (word >> 23) & 0x1 // bit 23: 1=add offset, 0=subtract
	l := (word >> 20) & 0x1 // bit 20: 1=load
	rn := uint8((word >> 16) & 0xF)
	rd := uint8((word >> 12) & 0xF)
	imm12 := int32(word & 0xFFF)

	if u == 0 {
		imm12 = -imm12
	}

	return Transfer{Encoding: enc, Load: l == 1, Rd: rd, Rn: rn, Offset: imm12}
}

// isBranch checks for B and BL.
// bits [27:25] == 0b101
func (d *Decoder) isBranch(word uint32) bool {
	return (word>>25)&0x7 == 0b101
}

// decodeBranch decodes B and BL.
// Format: cond | 101 | L | imm24
func (d *Decoder) decodeBranch(word uint32, enc Encoding) Instruction {
	link := (word >> 24) & 0x1
	imm24 := word & 0xFFFFFF

	return Branch{Encoding: enc, Link: link == 1, Offset: signExtend(imm24, 24) * 4}
}

// DecodeThumb decodes a single 16-bit Thumb halfword. A BL prefix or
// suffix on its own decodes to Unknown; use DecodeThumbPair or
// DecodeThumbStream to combine the two halves.
func (d *Decoder) DecodeThumb(half uint16) Instruction {
	enc := Encoding{Word: uint32(half), Width: 2, Set: SetThumb}
	h := uint32(half)

	switch {
	case h>>11 == 0b00000:
		// LSL Rd, Rs, #0 is the flag-setting register move.
		if (h>>6)&0x1F != 0 {
			return Unknown{Encoding: enc}
		}
		return Move{Encoding: enc, SetFlags: true, Rd: uint8(h & 0x7), Operand: Reg(uint8((h >> 3) & 0x7))}
	case h>>11 == 0b00011:
		return d.decodeThumbAddSub(h, enc)
	case h>>13 == 0b001:
		return d.decodeThumbImm8(h, enc)
	case h>>10 == 0b010000:
		// ALU operations; only CMP is in the supported set.
		if (h>>6)&0xF != 0b1010 {
			return Unknown{Encoding: enc}
		}
		return Compare{Encoding: enc, Rn: uint8(h & 0x7), Operand: Reg(uint8((h >> 3) & 0x7))}
	case h>>10 == 0b010001:
		return d.decodeThumbHiReg(h, enc)
	case h>>12 == 0b0110:
		// Format: 011 | B=0 | L | imm5 | Rb | Rd
		return Transfer{
			Encoding: enc,
			Load:     (h>>11)&0x1 == 1,
			Rd:       uint8(h & 0x7),
			Rn:       uint8((h >> 3) & 0x7),
			Offset:   int32((h>>6)&0x1F) * 4,
		}
	case h>>11 == 0b11100:
		return Branch{Encoding: enc, Offset: signExtend(h&0x7FF, 11) * 2}
	default:
		return Unknown{Encoding: enc}
	}
}

// decodeThumbAddSub decodes format 2.
// Format: 00011 | I | op | Rn/imm3 | Rs | Rd
func (d *Decoder) decodeThumbAddSub(h uint32, enc Encoding) Instruction {
	i := (h >> 10) & 0x1
	sub := (h >> 9) & 0x1
	field := uint8((h >> 6) & 0x7)

	operand := Reg(field)
	if i == 1 {
		operand = Imm(int32(field))
	}

	op := OpADDS
	if sub == 1 {
		op = OpSUBS
	}

	return DataProc{Encoding: enc, Opcode: op, Rd: uint8(h & 0x7), Rn: uint8((h >> 3) & 0x7), Operand: operand}
}

// decodeThumbImm8 decodes format 3.
// Format: 001 | op | Rd | imm8
func (d *Decoder) decodeThumbImm8(h uint32, enc Encoding) Instruction {
	rd := uint8((h >> 8) & 0x7)
	operand := Imm(int32(h & 0xFF))

	switch (h >> 11) & 0x3 {
	case 0b00:
		return Move{Encoding: enc, SetFlags: true, Rd: rd, Operand: operand}
	case 0b01:
		return Compare{Encoding: enc, Rn: rd, Operand: operand}
	case 0b10:
		return DataProc{Encoding: enc, Opcode: OpADDS, Rd: rd, Rn: rd, Operand: operand}
	default:
		return DataProc{Encoding: enc, Opcode: OpSUBS, Rd: rd, Rn: rd, Operand: operand}
	}
}

// decodeThumbHiReg decodes format 5.
// Format: 010001 | op | H1 | H2 | Rs/Hs | Rd/Hd
func (d *Decoder) decodeThumbHiReg(h uint32, enc Encoding) Instruction {
	h1 := (h >> 7) & 0x1
	h2 := (h >> 6) & 0x1
	rs := uint8(h2<<3 | (h>>3)&0x7)
	rd := uint8(h1<<3 | h&0x7)

	switch (h >> 8) & 0x3 {
	case 0b00:
		return DataProc{Encoding: enc, Opcode: OpADD, Rd: rd, Rn: rd, Operand: Reg(rs)}
	case 0b01:
		return Compare{Encoding: enc, Rn: rd, Operand: Reg(rs)}
	case 0b10:
		return Move{Encoding: enc, Rd: rd, Operand: Reg(rs)}
	default:
		// H1 set is BLX, which is not supported.
		if h1 == 1 || h&0x7 != 0 {
			return Unknown{Encoding: enc}
		}
		return BranchExchange{Encoding: enc, Rm: rs}
	}
}

// IsThumbBLPrefix reports whether a halfword is the first half of a BL pair.
func IsThumbBLPrefix(half uint16) bool {
	return half>>11 == 0b11110
}

// IsThumbBLSuffix reports whether a halfword is the second half of a BL pair.
func IsThumbBLSuffix(half uint16) bool {
	return half>>11 == 0b11111
}

// DecodeThumbPair decodes a Thumb BL prefix/suffix pair into one
// 4-byte BL. It returns false if the halfwords do not form a pair.
func (d *Decoder) DecodeThumbPair(hi, lo uint16) (Instruction, bool) {
	if !IsThumbBLPrefix(hi) || !IsThumbBLSuffix(lo) {
		return nil, false
	}

	enc := Encoding{Word: uint32(hi) | uint32(lo)<<16, Width: 4, Set: SetThumb}
	offset := uint32(hi&0x7FF)<<12 | uint32(lo&0x7FF)<<1

	return Branch{Encoding: enc, Link: true, Offset: signExtend(offset, 23)}, true
}

// DecodeARMStream decodes a buffer of little-endian ARM words.
func (d *Decoder) DecodeARMStream(data []byte) ([]Instruction, error) {
	if r := len(data) % 4; r != 0 {
		return nil, &TruncatedError{Set: SetARM, Length: len(data), Residual: r}
	}

	out := make([]Instruction, 0, len(data)/4)
	for off := 0; off < len(data); off += 4 {
		out = append(out, d.DecodeARM(binary.LittleEndian.Uint32(data[off:])))
	}

	return out, nil
}

// DecodeThumbStream decodes a buffer of little-endian Thumb halfwords.
// Adjacent BL prefix/suffix halfwords are combined into one record.
func (d *Decoder) DecodeThumbStream(data []byte) ([]Instruction, error) {
	if r := len(data) % 2; r != 0 {
		return nil, &TruncatedError{Set: SetThumb, Length: len(data), Residual: r}
	}

	out := make([]Instruction, 0, len(data)/2)
	for off := 0; off < len(data); {
		half := binary.LittleEndian.Uint16(data[off:])

		if off+4 <= len(data) {
			next := binary.LittleEndian.Uint16(data[off+2:])
			if inst, ok := d.DecodeThumbPair(half, next); ok {
				out = append(out, inst)
				off += 4
				continue
			}
		}

		out = append(out, d.DecodeThumb(half))
		off += 2
	}

	return out, nil
}

// DecodeMixed decodes an ARM region of armBytes bytes followed by a
// Thumb region holding the rest of the buffer.
func (d *Decoder) DecodeMixed(data []byte, armBytes int) ([]Instruction, error) {
	if armBytes < 0 || armBytes > len(data) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrBoundary, armBytes, len(data))
	}

	arm, err := d.DecodeARMStream(data[:armBytes])
	if err != nil {
		return nil, err
	}

	thumb, err := d.DecodeThumbStream(data[armBytes:])
	if err != nil {
		return nil, err
	}

	return append(arm, thumb...), nil
}

// signExtend sign-extends the low n bits of v.
func signExtend(v uint32, n uint) int32 {
	shift := 32 - n
	return int32(v<<shift) >> shift
}

package insts

import (
	"fmt"
	"math/bits"
)

// Encoder turns instruction records back into machine code. Decoding the
// result reproduces the record's operation and operand fields.
type Encoder struct{}

// NewEncoder creates a new instruction encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// EncodeARMImm finds the rotated 8-bit form of v.
// It returns the 12-bit operand2 field (rot<<8 | imm8).
func EncodeARMImm(v uint32) (uint32, bool) {
	for rot := uint32(0); rot < 16; rot++ {
		imm8 := bits.RotateLeft32(v, int(2*rot))
		if imm8 <= 0xFF {
			return rot<<8 | imm8, true
		}
	}
	return 0, false
}

var armDPOpcode = map[Op]uint32{
	OpAND:  0x0,
	OpEOR:  0x1,
	OpSUB:  0x2,
	OpSUBS: 0x2,
	OpADD:  0x4,
	OpADDS: 0x4,
	OpORR:  0xC,
}

// EncodeARM encodes an instruction as a 32-bit ARM word with the AL
// condition.
func (e *Encoder) EncodeARM(inst Instruction) (uint32, error) {
	fail := func(reason string, args ...any) (uint32, error) {
		return 0, &EncodeError{Set: SetARM, Inst: inst.String(), Reason: fmt.Sprintf(reason, args...)}
	}

	const al = uint32(condAL) << 28

	switch i := inst.(type) {
	case DataProc:
		opcode, ok := armDPOpcode[i.Opcode]
		if !ok {
			return fail("%s is not a two-source operation", i.Opcode)
		}
		if i.Rd > 15 || i.Rn > 15 {
			return fail("register out of range")
		}
		op2, imm, err := e.armOperand2(i.Operand)
		if err != nil {
			return fail("%v", err)
		}
		return al | imm<<25 | opcode<<21 | boolBit(i.Opcode.SetsFlags())<<20 |
			uint32(i.Rn)<<16 | uint32(i.Rd)<<12 | op2, nil
	case Move:
		if i.Rd > 15 {
			return fail("register out of range")
		}
		op2, imm, err := e.armOperand2(i.Operand)
		if err != nil {
			return fail("%v", err)
		}
		return al | imm<<25 | 0xD<<21 | boolBit(i.SetFlags)<<20 | uint32(i.Rd)<<12 | op2, nil
	case Compare:
		if i.Rn > 15 {
			return fail("register out of range")
		}
		op2, imm, err := e.armOperand2(i.Operand)
		if err != nil {
			return fail("%v", err)
		}
		return al | imm<<25 | 0xA<<21 | 1<<20 | uint32(i.Rn)<<16 | op2, nil
	case Transfer:
		if i.Rd > 15 || i.Rn > 15 {
			return fail("register out of range")
		}
		up, offset := uint32(1), int64(i.Offset)
		if offset < 0 {
			up, offset = 0, -offset
		}
		if offset > 0xFFF {
			return fail("offset %d exceeds 12 bits", i.Offset)
		}
		return al | 0x05000000 | up<<23 | boolBit(i.Load)<<20 |
			uint32(i.Rn)<<16 | uint32(i.Rd)<<12 | uint32(offset), nil
	case Branch:
		if i.Offset%4 != 0 {
			return fail("offset %d is not word aligned", i.Offset)
		}
		if i.Offset < -(1<<25) || i.Offset >= 1<<25 {
			return fail("offset %d out of range", i.Offset)
		}
		return al | 0x0A000000 | boolBit(i.Link)<<24 | uint32(i.Offset>>2)&0xFFFFFF, nil
	case BranchExchange:
		if i.Rm > 15 {
			return fail("register out of range")
		}
		return al | 0x012FFF10 | uint32(i.Rm), nil
	case Unknown:
		if i.Set != SetARM {
			return fail("raw encoding is %s", i.Set)
		}
		return i.Word, nil
	default:
		return fail("unsupported instruction type %T", inst)
	}
}

// armOperand2 returns the operand2 field and the I bit.
func (e *Encoder) armOperand2(o Operand) (uint32, uint32, error) {
	if !o.IsImm {
		if o.Reg > 15 {
			return 0, 0, fmt.Errorf("register R%d out of range", o.Reg)
		}
		return uint32(o.Reg), 0, nil
	}

	field, ok := EncodeARMImm(uint32(o.Imm))
	if !ok {
		return 0, 0, fmt.Errorf("immediate %d is not a rotated 8-bit value", o.Imm)
	}
	return field, 1, nil
}

// EncodeThumb encodes an instruction as one Thumb halfword, or two for BL.
func (e *Encoder) EncodeThumb(inst Instruction) ([]uint16, error) {
	fail := func(reason string, args ...any) ([]uint16, error) {
		return nil, &EncodeError{Set: SetThumb, Inst: inst.String(), Reason: fmt.Sprintf(reason, args...)}
	}
	one := func(h uint32) ([]uint16, error) {
		return []uint16{uint16(h)}, nil
	}

	switch i := inst.(type) {
	case Move:
		o := i.Operand
		switch {
		case i.SetFlags && o.IsImm:
			if !low(i.Rd) || o.Imm < 0 || o.Imm > 0xFF {
				return fail("needs a low register and #0-255")
			}
			return one(0x2000 | uint32(i.Rd)<<8 | uint32(o.Imm))
		case i.SetFlags:
			if !low(i.Rd) || !low(o.Reg) {
				return fail("needs low registers")
			}
			return one(uint32(o.Reg)<<3 | uint32(i.Rd))
		case o.IsImm:
			return fail("no non-flag-setting immediate move")
		default:
			return hiReg(0b10, i.Rd, o.Reg, fail)
		}
	case DataProc:
		return e.thumbDataProc(i, fail)
	case Compare:
		o := i.Operand
		switch {
		case o.IsImm:
			if !low(i.Rn) || o.Imm < 0 || o.Imm > 0xFF {
				return fail("needs a low register and #0-255")
			}
			return one(0x2800 | uint32(i.Rn)<<8 | uint32(o.Imm))
		case low(i.Rn) && low(o.Reg):
			return one(0x4280 | uint32(o.Reg)<<3 | uint32(i.Rn))
		default:
			return hiReg(0b01, i.Rn, o.Reg, fail)
		}
	case Transfer:
		if !low(i.Rd) || !low(i.Rn) {
			return fail("needs low registers")
		}
		if i.Offset < 0 || i.Offset > 124 || i.Offset%4 != 0 {
			return fail("offset %d must be a multiple of 4 in [0, 124]", i.Offset)
		}
		return one(0x6000 | boolBit(i.Load)<<11 | uint32(i.Offset/4)<<6 | uint32(i.Rn)<<3 | uint32(i.Rd))
	case Branch:
		if i.Offset%2 != 0 {
			return fail("offset %d is not halfword aligned", i.Offset)
		}
		if !i.Link {
			if i.Offset < -2048 || i.Offset > 2046 {
				return fail("offset %d out of range", i.Offset)
			}
			return one(0xE000 | uint32(i.Offset>>1)&0x7FF)
		}
		if i.Offset < -(1<<22) || i.Offset >= 1<<22 {
			return fail("offset %d out of range", i.Offset)
		}
		off := uint32(i.Offset)
		return []uint16{uint16(0xF000 | (off>>12)&0x7FF), uint16(0xF800 | (off>>1)&0x7FF)}, nil
	case BranchExchange:
		if i.Rm > 15 {
			return fail("register out of range")
		}
		return one(0x4700 | uint32(i.Rm)<<3)
	case Unknown:
		if i.Set != SetThumb || i.Width != 2 {
			return fail("raw encoding is not a Thumb halfword")
		}
		return one(i.Word & 0xFFFF)
	default:
		return fail("unsupported instruction type %T", inst)
	}
}

func (e *Encoder) thumbDataProc(i DataProc, fail func(string, ...any) ([]uint16, error)) ([]uint16, error) {
	o := i.Operand

	switch i.Opcode {
	case OpADDS, OpSUBS:
		sub := uint32(0)
		if i.Opcode == OpSUBS {
			sub = 1
		}
		if !low(i.Rd) || !low(i.Rn) {
			return fail("needs low registers")
		}
		switch {
		case !o.IsImm:
			if !low(o.Reg) {
				return fail("needs low registers")
			}
			return []uint16{uint16(0x1800 | sub<<9 | uint32(o.Reg)<<6 | uint32(i.Rn)<<3 | uint32(i.Rd))}, nil
		case o.Imm >= 0 && o.Imm <= 7:
			return []uint16{uint16(0x1C00 | sub<<9 | uint32(o.Imm)<<6 | uint32(i.Rn)<<3 | uint32(i.Rd))}, nil
		case i.Rd == i.Rn && o.Imm >= 0 && o.Imm <= 0xFF:
			return []uint16{uint16(0x3000 | sub<<11 | uint32(i.Rd)<<8 | uint32(o.Imm))}, nil
		default:
			return fail("immediate %d out of range", o.Imm)
		}
	case OpADD:
		if o.IsImm || i.Rd != i.Rn {
			return fail("only ADD Rd, Rd, Rm is available")
		}
		return hiReg(0b00, i.Rd, o.Reg, fail)
	default:
		return fail("%s has no Thumb encoding", i.Opcode)
	}
}

// hiReg encodes format 5: 010001 | op | H1 | H2 | Rs | Rd.
func hiReg(op uint32, rd, rs uint8, fail func(string, ...any) ([]uint16, error)) ([]uint16, error) {
	if rd > 15 || rs > 15 {
		return fail("register out of range")
	}
	h1 := uint32(rd>>3) & 1
	h2 := uint32(rs>>3) & 1
	return []uint16{uint16(0x4400 | op<<8 | h1<<7 | h2<<6 | uint32(rs&7)<<3 | uint32(rd&7))}, nil
}

func low(r uint8) bool {
	return r < 8
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

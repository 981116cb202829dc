// Package emu provides functional ARM and Thumb emulation.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 16

// LinkRegister is the register BL writes the return address to.
const LinkRegister = 14

// RegFile represents the register file.
// It contains 16 general-purpose registers (R0-R15),
// the program counter (PC), and the condition flags.
type RegFile struct {
	// R holds general-purpose registers R0-R15.
	// R15 is an ordinary register; the PC is tracked separately.
	R [NumRegs]uint32

	// PC is the byte offset of the next instruction.
	PC uint32

	// Flags holds the condition flags.
	Flags Flags
}

// Flags represents the condition flags.
type Flags struct {
	// Z is the zero flag.
	Z bool
	// N is the negative flag.
	N bool
	// C is the carry flag.
	C bool
	// V is the overflow flag.
	V bool
}

// ReadReg reads a register value. Registers >= 16 return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg >= NumRegs {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to registers >= 16 are
// ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg >= NumRegs {
		return
	}
	r.R[reg] = value
}

package emu

// ALU implements 32-bit arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// ADD performs addition: Rd = Rn + op2
func (a *ALU) ADD(rd, rn uint8, op2 uint32, setFlags bool) {
	op1 := a.regFile.ReadReg(rn)
	result := op1 + op2

	a.regFile.WriteReg(rd, result)

	if setFlags {
		a.setAddFlags(op1, op2, result)
	}
}

// SUB performs subtraction: Rd = Rn - op2
func (a *ALU) SUB(rd, rn uint8, op2 uint32, setFlags bool) {
	op1 := a.regFile.ReadReg(rn)
	result := op1 - op2

	a.regFile.WriteReg(rd, result)

	if setFlags {
		a.setSubFlags(op1, op2, result)
	}
}

// AND performs bitwise AND: Rd = Rn & op2
func (a *ALU) AND(rd, rn uint8, op2 uint32) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rn)&op2)
}

// ORR performs bitwise OR: Rd = Rn | op2
func (a *ALU) ORR(rd, rn uint8, op2 uint32) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rn)|op2)
}

// EOR performs bitwise exclusive OR: Rd = Rn ^ op2
func (a *ALU) EOR(rd, rn uint8, op2 uint32) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rn)^op2)
}

// MOV copies a value: Rd = op2
func (a *ALU) MOV(rd uint8, op2 uint32, setFlags bool) {
	a.regFile.WriteReg(rd, op2)

	if setFlags {
		a.setMoveFlags(op2)
	}
}

// CMP compares Rn with op2 and discards the difference.
func (a *ALU) CMP(rn uint8, op2 uint32) {
	op1 := a.regFile.ReadReg(rn)
	a.setSubFlags(op1, op2, op1-op2)
}

// setAddFlags sets NZCV flags for addition.
func (a *ALU) setAddFlags(op1, op2, result uint32) {
	a.regFile.Flags.N = (result >> 31) == 1
	a.regFile.Flags.Z = result == 0
	a.regFile.Flags.C = uint64(op1)+uint64(op2) > 0xFFFFFFFF
	a.regFile.Flags.V = ((op1^result)&(op2^result))>>31 == 1
}

// setSubFlags sets NZCV flags for subtraction.
func (a *ALU) setSubFlags(op1, op2, result uint32) {
	a.regFile.Flags.N = (result >> 31) == 1
	a.regFile.Flags.Z = result == 0

	// C: set if NO borrow occurred
	a.regFile.Flags.C = op1 >= op2

	// V: operands of different sign and the result takes the subtrahend's sign
	a.regFile.Flags.V = ((op1^op2)&(op1^result))>>31 == 1
}

// setMoveFlags sets N and Z. C and V are left untouched.
func (a *ALU) setMoveFlags(result uint32) {
	a.regFile.Flags.N = (result >> 31) == 1
	a.regFile.Flags.Z = result == 0
}

package emu

// BranchUnit implements branch operations.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// B performs an unconditional branch.
// The offset is in bytes and is added to the current PC.
func (b *BranchUnit) B(offset int32) {
	b.regFile.PC += uint32(offset)
}

// BL performs a branch with link.
// Saves PC + 4 to the link register, then branches to PC + offset.
// The return address is PC + 4 for the 2-byte Thumb forms too.
func (b *BranchUnit) BL(offset int32) {
	b.regFile.WriteReg(LinkRegister, b.regFile.PC+4)
	b.regFile.PC += uint32(offset)
}

// BX branches to the absolute address held in Rm.
func (b *BranchUnit) BX(rm uint8) {
	b.regFile.PC = b.regFile.ReadReg(rm)
}

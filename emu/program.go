package emu

import "github.com/aravk2005/ARMsimulator/insts"

// Program is a decoded instruction sequence laid out at consecutive byte
// offsets starting at 0. Fetch resolves a PC to an instruction in
// constant time.
type Program struct {
	insts   []insts.Instruction
	offsets []uint32
	index   map[uint32]int
	size    uint32
}

// NewProgram precomputes the byte offset of every instruction.
func NewProgram(list []insts.Instruction) *Program {
	p := &Program{
		insts:   list,
		offsets: make([]uint32, len(list)),
		index:   make(map[uint32]int, len(list)),
	}

	offset := uint32(0)
	for i, inst := range list {
		p.offsets[i] = offset
		p.index[offset] = i
		offset += inst.Size()
	}
	p.size = offset

	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.insts)
}

// Size returns the total encoded size in bytes.
func (p *Program) Size() uint32 {
	return p.size
}

// Instructions returns the instruction sequence.
func (p *Program) Instructions() []insts.Instruction {
	return p.insts
}

// Offset returns the byte offset of the i-th instruction.
func (p *Program) Offset(i int) uint32 {
	return p.offsets[i]
}

// Fetch returns the instruction that starts at pc. It returns false when
// pc is not the start of any instruction.
func (p *Program) Fetch(pc uint32) (insts.Instruction, bool) {
	i, ok := p.index[pc]
	if !ok {
		return nil, false
	}
	return p.insts[i], true
}

package insts

import (
	"fmt"
	"strings"
)

// Op represents an operation tag.
type Op uint8

// Supported operations.
const (
	OpUnknown Op = iota
	OpADD
	OpADDS
	OpSUB
	OpSUBS
	OpMOV
	OpMOVS
	OpCMP
	OpAND
	OpORR
	OpEOR
	OpLDR
	OpSTR
	OpB
	OpBL
	OpBX
)

var opNames = [...]string{
	OpUnknown: "UNKNOWN",
	OpADD:     "ADD",
	OpADDS:    "ADDS",
	OpSUB:     "SUB",
	OpSUBS:    "SUBS",
	OpMOV:     "MOV",
	OpMOVS:    "MOVS",
	OpCMP:     "CMP",
	OpAND:     "AND",
	OpORR:     "ORR",
	OpEOR:     "EOR",
	OpLDR:     "LDR",
	OpSTR:     "STR",
	OpB:       "B",
	OpBL:      "BL",
	OpBX:      "BX",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// SetsFlags reports whether the operation updates the condition flags.
func (op Op) SetsFlags() bool {
	switch op {
	case OpADDS, OpSUBS, OpMOVS, OpCMP:
		return true
	default:
		return false
	}
}

// ParseOp looks up an operation by mnemonic, ignoring case.
func ParseOp(name string) (Op, bool) {
	name = strings.ToUpper(name)
	for i, n := range opNames {
		if i != int(OpUnknown) && n == name {
			return Op(i), true
		}
	}
	return OpUnknown, false
}

// Set identifies the instruction set an encoding belongs to.
type Set uint8

// Instruction sets.
const (
	SetARM Set = iota
	SetThumb
)

func (s Set) String() string {
	if s == SetThumb {
		return "Thumb"
	}
	return "ARM"
}

// Unit returns the width in bytes of one encoding unit of the set.
func (s Set) Unit() int {
	if s == SetThumb {
		return 2
	}
	return 4
}

// Encoding records where a decoded instruction came from.
type Encoding struct {
	Word  uint32 // Raw bits; a Thumb BL pair holds the prefix in [15:0]
	Width uint8  // Bytes consumed from the stream
	Set   Set
}

// Size returns the encoded width in bytes.
func (e Encoding) Size() uint32 {
	return uint32(e.Width)
}

// Raw returns the raw encoded bits.
func (e Encoding) Raw() uint32 {
	return e.Word
}

// ISA returns the instruction set of the encoding.
func (e Encoding) ISA() Set {
	return e.Set
}

// Instruction is a decoded instruction record. The concrete type is one
// of DataProc, Move, Compare, Transfer, Branch, BranchExchange or Unknown.
type Instruction interface {
	Op() Op
	Size() uint32
	Raw() uint32
	ISA() Set
	String() string

	instruction()
}

// Operand is the second source of a data-processing instruction: either
// an immediate or a register, never both.
type Operand struct {
	IsImm bool
	Imm   int32
	Reg   uint8
}

// Imm returns an immediate operand.
func Imm(v int32) Operand {
	return Operand{IsImm: true, Imm: v}
}

// Reg returns a register operand.
func Reg(r uint8) Operand {
	return Operand{Reg: r}
}

func (o Operand) String() string {
	if o.IsImm {
		return fmt.Sprintf("#%d", o.Imm)
	}
	return RegName(o.Reg)
}

// RegName returns the assembler name of a register.
func RegName(r uint8) string {
	return fmt.Sprintf("R%d", r)
}

// DataProc is a two-source data-processing instruction:
// ADD, ADDS, SUB, SUBS, AND, ORR or EOR.
type DataProc struct {
	Encoding
	Opcode  Op
	Rd      uint8
	Rn      uint8
	Operand Operand
}

// Op returns the operation tag.
func (i DataProc) Op() Op { return i.Opcode }

func (i DataProc) String() string {
	return fmt.Sprintf("%s %s, %s, %s", i.Opcode, RegName(i.Rd), RegName(i.Rn), i.Operand)
}

func (DataProc) instruction() {}

// Move is MOV or MOVS.
type Move struct {
	Encoding
	SetFlags bool
	Rd       uint8
	Operand  Operand
}

// Op returns the operation tag.
func (i Move) Op() Op {
	if i.SetFlags {
		return OpMOVS
	}
	return OpMOV
}

func (i Move) String() string {
	return fmt.Sprintf("%s %s, %s", i.Op(), RegName(i.Rd), i.Operand)
}

func (Move) instruction() {}

// Compare is CMP. The result is discarded; only flags are written.
type Compare struct {
	Encoding
	Rn      uint8
	Operand Operand
}

// Op returns the operation tag.
func (Compare) Op() Op { return OpCMP }

func (i Compare) String() string {
	return fmt.Sprintf("CMP %s, %s", RegName(i.Rn), i.Operand)
}

func (Compare) instruction() {}

// Transfer is a word load or store: LDR or STR Rd, [Rn, #Offset].
type Transfer struct {
	Encoding
	Load   bool
	Rd     uint8
	Rn     uint8
	Offset int32
}

// Op returns the operation tag.
func (i Transfer) Op() Op {
	if i.Load {
		return OpLDR
	}
	return OpSTR
}

func (i Transfer) String() string {
	if i.Offset == 0 {
		return fmt.Sprintf("%s %s, [%s]", i.Op(), RegName(i.Rd), RegName(i.Rn))
	}
	return fmt.Sprintf("%s %s, [%s, #%d]", i.Op(), RegName(i.Rd), RegName(i.Rn), i.Offset)
}

func (Transfer) instruction() {}

// Branch is B or BL. Offset is a byte displacement applied to the
// address of the branch itself.
type Branch struct {
	Encoding
	Link   bool
	Offset int32
}

// Op returns the operation tag.
func (i Branch) Op() Op {
	if i.Link {
		return OpBL
	}
	return OpB
}

func (i Branch) String() string {
	return fmt.Sprintf("%s #%d", i.Op(), i.Offset)
}

func (Branch) instruction() {}

// BranchExchange is BX Rm.
type BranchExchange struct {
	Encoding
	Rm uint8
}

// Op returns the operation tag.
func (BranchExchange) Op() Op { return OpBX }

func (i BranchExchange) String() string {
	return fmt.Sprintf("BX %s", RegName(i.Rm))
}

func (BranchExchange) instruction() {}

// Unknown is any encoding that matches no supported pattern.
type Unknown struct {
	Encoding
}

// Op returns OpUnknown.
func (Unknown) Op() Op { return OpUnknown }

func (i Unknown) String() string {
	if i.Set == SetThumb && i.Width == 2 {
		return fmt.Sprintf("UNKNOWN 0x%04X", i.Word)
	}
	return fmt.Sprintf("UNKNOWN 0x%08X", i.Word)
}

func (Unknown) instruction() {}

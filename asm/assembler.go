// Package asm assembles ARM and Thumb source text into a mixed binary
// image: an ARM region followed by a Thumb region.
package asm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/aravk2005/ARMsimulator/insts"
)

// Output is the result of assembling a source file.
type Output struct {
	Binary       []byte              // Encoded image
	Instructions []insts.Instruction // Image decoded back into records
	ARMBytes     int                 // Length of the leading ARM region
	Labels       map[string]uint32   // Label byte offsets
}

// statement is one instruction line, placed but not yet encoded.
type statement struct {
	lineno   int
	text     string
	set      insts.Set
	addr     uint32
	op       insts.Op
	operands string
}

// Assembler is a two pass assembler. The first pass places labels and
// instructions, the second pass resolves operands and encodes.
type Assembler struct {
	Logger *log.Logger // If set, logs every assembled statement at debug level.

	Label  map[string]uint32 // Map of labels to byte offsets.
	Equate map[string]string // Map of equates.

	predefine map[string]string
	encoder   *insts.Encoder
	decoder   *insts.Decoder
}

// NewAssembler creates a new assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		encoder: insts.NewEncoder(),
		decoder: insts.NewDecoder(),
	}
}

// Predefine defines an equate visible to every Assemble call.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reLabel = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):`)
	reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	reParen = regexp.MustCompile(`\$\([^\$]*\)`)
	reReg   = regexp.MustCompile(`^r([0-9]|1[0-5])$`)
)

var regAlias = map[string]uint8{
	"sp": 13,
	"lr": 14,
	"pc": 15,
}

// stripComment removes everything after ';' or '@'.
func stripComment(text string) string {
	if i := strings.IndexAny(text, ";@"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// Assemble reads source text and produces the encoded image.
func (asm *Assembler) Assemble(input io.Reader) (*Output, error) {
	asm.Label = make(map[string]uint32)
	asm.Equate = maps.Clone(asm.predefine)
	if asm.Equate == nil {
		asm.Equate = make(map[string]string)
	}

	stmts, armBytes, err := asm.place(input)
	if err != nil {
		return nil, err
	}

	var data []byte
	for _, st := range stmts {
		data, err = asm.emit(data, st)
		if err != nil {
			return nil, &SyntaxError{Line: st.lineno, Text: st.text, Err: err}
		}
	}

	list, err := asm.decoder.DecodeMixed(data, armBytes)
	if err != nil {
		return nil, fmt.Errorf("decode assembled image: %w", err)
	}

	return &Output{
		Binary:       data,
		Instructions: list,
		ARMBytes:     armBytes,
		Labels:       maps.Clone(asm.Label),
	}, nil
}

// place is the first pass.
func (asm *Assembler) place(input io.Reader) ([]statement, int, error) {
	scanner := bufio.NewScanner(input)

	var stmts []statement
	set := insts.SetARM
	addr := uint32(0)
	armBytes := -1
	lineno := 0

	for scanner.Scan() {
		text := scanner.Text()
		lineno++

		fail := func(err error) ([]statement, int, error) {
			return nil, 0, &SyntaxError{Line: lineno, Text: strings.TrimSpace(text), Err: err}
		}

		line := stripComment(text)

		for {
			m := reLabel.FindStringSubmatch(line)
			if m == nil {
				break
			}
			if _, ok := asm.Label[m[1]]; ok {
				return fail(ErrLabelDuplicate)
			}
			asm.Label[m[1]] = addr
			line = strings.TrimSpace(line[len(m[0]):])
		}

		if line == "" {
			continue
		}

		word, operands := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			word, operands = line[:i], strings.TrimSpace(line[i+1:])
		}

		if strings.HasPrefix(word, ".") {
			switch strings.ToLower(word) {
			case ".arm":
				if set == insts.SetThumb {
					return fail(ErrRegionOrder)
				}
			case ".thumb":
				if set == insts.SetARM {
					set = insts.SetThumb
					armBytes = int(addr)
				}
			case ".equ":
				if err := asm.equate(operands); err != nil {
					return fail(err)
				}
			default:
				return fail(ErrDirectiveInvalid)
			}
			continue
		}

		op, ok := insts.ParseOp(word)
		if !ok {
			return fail(ErrMnemonicInvalid)
		}

		stmts = append(stmts, statement{
			lineno:   lineno,
			text:     strings.TrimSpace(text),
			set:      set,
			addr:     addr,
			op:       op,
			operands: operands,
		})

		addr += uint32(set.Unit())
		if set == insts.SetThumb && op == insts.OpBL {
			addr += 2
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read source: %w", err)
	}

	if armBytes < 0 {
		armBytes = int(addr)
	}

	return stmts, armBytes, nil
}

// equate handles ".equ NAME, value". Register values are kept as names,
// everything else is evaluated to a number.
func (asm *Assembler) equate(operands string) error {
	name, value, ok := strings.Cut(operands, ",")
	if !ok {
		fields := strings.Fields(operands)
		if len(fields) != 2 {
			return ErrEquateSyntax
		}
		name, value = fields[0], fields[1]
	}
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)

	if !reIdent.MatchString(name) || value == "" {
		return ErrEquateSyntax
	}
	if _, ok := asm.Equate[name]; ok {
		return ErrEquateDuplicate
	}

	if _, err := register(value); err == nil {
		asm.Equate[name] = value
		return nil
	}

	expanded, err := asm.expand(value)
	if err != nil {
		return err
	}
	v, err := asm.immediate(expanded)
	if err != nil {
		return err
	}

	asm.Equate[name] = strconv.FormatInt(int64(v), 10)
	return nil
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (int64, error) {
	thread := starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v, err := strconv.ParseInt(str, 0, 64)
		if err != nil {
			// Ignore non-integer equates. They may be registers.
			continue
		}
		pred[key] = starlark.MakeInt64(v)
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeUint64(uint64(addr))
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParseExpression(expr), err)
	}

	rc, ok := dict["rc"].(starlark.Int)
	if !ok {
		return 0, ErrParseExpression(expr)
	}
	v, ok := rc.Int64()
	if !ok {
		return 0, ErrParseExpression(expr)
	}
	return v, nil
}

// expand replaces every $(...) in s with its decimal value.
func (asm *Assembler) expand(s string) (string, error) {
	var err error
	s = reParen.ReplaceAllStringFunc(s, func(str string) string {
		v, evalErr := asm.parenEval(str[2 : len(str)-1])
		if evalErr != nil {
			if err == nil {
				err = evalErr
			}
			return str
		}
		return strconv.FormatInt(v, 10)
	})
	return s, err
}

// tokenize splits operands on commas and whitespace and makes the
// brackets of an address their own tokens.
func tokenize(s string) []string {
	s = strings.NewReplacer("[", " [ ", "]", " ] ", ",", " ").Replace(s)
	return strings.Fields(s)
}

// register parses a register name.
func register(word string) (uint8, error) {
	word = strings.ToLower(word)
	if r, ok := regAlias[word]; ok {
		return r, nil
	}
	m := reReg.FindStringSubmatch(word)
	if m == nil {
		return 0, ErrRegisterInvalid
	}
	r, _ := strconv.Atoi(m[1])
	return uint8(r), nil
}

// immediate parses "#value" or "value" as a 32-bit constant. Values up
// to 0xFFFFFFFF are accepted and wrap to their signed form.
func (asm *Assembler) immediate(word string) (int32, error) {
	word = strings.TrimPrefix(word, "#")
	if equ, ok := asm.Equate[word]; ok {
		word = equ
	}

	v, err := strconv.ParseInt(word, 0, 64)
	if err != nil {
		return 0, ErrParseNumber(word)
	}
	if v < -(1<<31) || v > 0xFFFFFFFF {
		return 0, ErrImmediateRange
	}
	return int32(uint32(v)), nil
}

// reg resolves a register operand, following register equates.
func (asm *Assembler) reg(word string) (uint8, error) {
	if equ, ok := asm.Equate[word]; ok {
		word = equ
	}
	return register(word)
}

// operand resolves the flexible second operand.
func (asm *Assembler) operand(word string) (insts.Operand, error) {
	if !strings.HasPrefix(word, "#") {
		if r, err := asm.reg(word); err == nil {
			return insts.Reg(r), nil
		}
	}

	v, err := asm.immediate(word)
	if err != nil {
		return insts.Operand{}, err
	}
	return insts.Imm(v), nil
}

// target resolves a branch target to a byte offset from addr.
func (asm *Assembler) target(word string, addr uint32) (int32, error) {
	if label, ok := asm.Label[word]; ok {
		return int32(label - addr), nil
	}
	if strings.HasPrefix(word, "#") {
		return asm.immediate(word)
	}
	if _, err := strconv.ParseInt(word, 0, 64); err == nil {
		return asm.immediate(word)
	}
	return 0, ErrLabelMissing(word)
}

// build turns a placed statement into an instruction record.
func (asm *Assembler) build(st statement) (insts.Instruction, error) {
	expanded, err := asm.expand(st.operands)
	if err != nil {
		return nil, err
	}
	words := tokenize(expanded)

	switch st.op {
	case insts.OpMOV, insts.OpMOVS:
		if len(words) != 2 {
			return nil, ErrOperandCount
		}
		rd, err := asm.reg(words[0])
		if err != nil {
			return nil, err
		}
		o, err := asm.operand(words[1])
		if err != nil {
			return nil, err
		}
		return insts.Move{SetFlags: st.op == insts.OpMOVS, Rd: rd, Operand: o}, nil

	case insts.OpADD, insts.OpADDS, insts.OpSUB, insts.OpSUBS,
		insts.OpAND, insts.OpORR, insts.OpEOR:
		// "OP Rd, op2" is shorthand for "OP Rd, Rd, op2".
		if len(words) == 2 {
			words = []string{words[0], words[0], words[1]}
		}
		if len(words) != 3 {
			return nil, ErrOperandCount
		}
		rd, err := asm.reg(words[0])
		if err != nil {
			return nil, err
		}
		rn, err := asm.reg(words[1])
		if err != nil {
			return nil, err
		}
		o, err := asm.operand(words[2])
		if err != nil {
			return nil, err
		}
		return insts.DataProc{Opcode: st.op, Rd: rd, Rn: rn, Operand: o}, nil

	case insts.OpCMP:
		if len(words) != 2 {
			return nil, ErrOperandCount
		}
		rn, err := asm.reg(words[0])
		if err != nil {
			return nil, err
		}
		o, err := asm.operand(words[1])
		if err != nil {
			return nil, err
		}
		return insts.Compare{Rn: rn, Operand: o}, nil

	case insts.OpLDR, insts.OpSTR:
		return asm.buildTransfer(st, words)

	case insts.OpB, insts.OpBL:
		if len(words) != 1 {
			return nil, ErrOperandCount
		}
		offset, err := asm.target(words[0], st.addr)
		if err != nil {
			return nil, err
		}
		return insts.Branch{Link: st.op == insts.OpBL, Offset: offset}, nil

	case insts.OpBX:
		if len(words) != 1 {
			return nil, ErrOperandCount
		}
		rm, err := asm.reg(words[0])
		if err != nil {
			return nil, err
		}
		return insts.BranchExchange{Rm: rm}, nil
	}

	return nil, ErrMnemonicInvalid
}

// buildTransfer parses "Rd, [Rn]" or "Rd, [Rn, #imm]".
func (asm *Assembler) buildTransfer(st statement, words []string) (insts.Instruction, error) {
	if len(words) < 4 || words[1] != "[" || words[len(words)-1] != "]" {
		return nil, ErrAddressSyntax
	}

	rd, err := asm.reg(words[0])
	if err != nil {
		return nil, err
	}
	rn, err := asm.reg(words[2])
	if err != nil {
		return nil, err
	}

	var offset int32
	switch len(words) {
	case 4:
	case 5:
		offset, err = asm.immediate(words[3])
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrAddressSyntax
	}

	return insts.Transfer{Load: st.op == insts.OpLDR, Rd: rd, Rn: rn, Offset: offset}, nil
}

// emit encodes a statement and appends it to data.
func (asm *Assembler) emit(data []byte, st statement) ([]byte, error) {
	inst, err := asm.build(st)
	if err != nil {
		return data, err
	}

	if st.set == insts.SetARM {
		word, err := asm.encoder.EncodeARM(inst)
		if err != nil {
			return data, err
		}
		data = binary.LittleEndian.AppendUint32(data, word)
	} else {
		halves, err := asm.encoder.EncodeThumb(inst)
		if err != nil {
			return data, err
		}
		for _, h := range halves {
			data = binary.LittleEndian.AppendUint16(data, h)
		}
	}

	if asm.Logger != nil {
		asm.Logger.Debug("Assembled",
			log.Int("line", st.lineno),
			log.Hex("offset", st.addr),
			log.Stringer("instruction", inst))
	}

	return data, nil
}

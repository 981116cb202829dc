package emu

import (
	"github.com/retroenv/retrogolib/log"

	"github.com/aravk2005/ARMsimulator/cache"
	"github.com/aravk2005/ARMsimulator/insts"
	"github.com/aravk2005/ARMsimulator/timing/latency"
)

// DefaultMaxCycles is the cycle budget used when none is configured.
const DefaultMaxCycles = 100

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Unknown is true if the instruction was not executable and only
	// advanced the PC.
	Unknown bool

	// Err is set if the instruction faulted. The PC is left unchanged.
	Err error
}

// HaltReason says why a run stopped.
type HaltReason uint8

// Halt reasons.
const (
	HaltNone HaltReason = iota
	HaltCycleLimit
	HaltOutOfBounds
	HaltMemoryFault
)

func (r HaltReason) String() string {
	switch r {
	case HaltCycleLimit:
		return "cycle limit"
	case HaltOutOfBounds:
		return "pc out of bounds"
	case HaltMemoryFault:
		return "memory fault"
	default:
		return "none"
	}
}

// State is the run state of the emulator.
type State uint8

// Run states.
const (
	StateRunning State = iota
	StateHalted
)

func (s State) String() string {
	if s == StateHalted {
		return "halted"
	}
	return "running"
}

// RunResult summarizes a finished run.
type RunResult struct {
	Reason     HaltReason
	Cycles     uint64
	PC         uint32 // PC at the time of halting
	UnknownOps uint64

	// Latency is the estimated execution time in cycles. It is zero
	// unless a latency table is attached.
	Latency uint64

	// Err is the fault that stopped the run, if any.
	Err error
}

// Tracer observes the machine after every executed cycle. pc is the
// address the instruction was fetched from.
type Tracer func(cycle uint64, pc uint32, inst insts.Instruction, rf *RegFile)

// Emulator executes ARM and Thumb instructions functionally.
type Emulator struct {
	regFile *RegFile
	memory  *Memory

	// Execution units
	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit

	dcache  *cache.Cache
	latency *latency.Table
	logger  *log.Logger
	tracer  Tracer

	// Execution state
	maxCycles  uint64
	state      State
	cycles     uint64
	unknownOps uint64
	estimated  uint64
	result     RunResult
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithLogger sets the logger for diagnostics and per-cycle tracing.
func WithLogger(logger *log.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithMaxCycles sets the cycle budget of Run. A value of 0 halts
// immediately.
func WithMaxCycles(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxCycles = max
	}
}

// WithTracer sets a per-cycle observer.
func WithTracer(t Tracer) EmulatorOption {
	return func(e *Emulator) {
		e.tracer = t
	}
}

// WithDataCache routes loads and stores through a data cache model.
func WithDataCache(c *cache.Cache) EmulatorOption {
	return func(e *Emulator) {
		e.dcache = c
	}
}

// WithLatencyTable enables execution time estimates. Loads and stores
// are charged the data cache latency when a cache is attached.
func WithLatencyTable(t *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.latency = t
	}
}

// NewEmulator creates a new emulator with zeroed registers, flags and
// memory.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		maxCycles: DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.init()

	return e
}

func (e *Emulator) init() {
	e.regFile = &RegFile{}
	e.memory = NewMemory()

	// Create execution units
	e.alu = NewALU(e.regFile)
	e.lsu = NewLoadStoreUnit(e.regFile, e.memory)
	e.lsu.SetDataCache(e.dcache)
	e.branchUnit = NewBranchUnit(e.regFile)

	e.state = StateRunning
	e.cycles = 0
	e.unknownOps = 0
	e.estimated = 0
	e.result = RunResult{}
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// DataCache returns the attached data cache model, or nil.
func (e *Emulator) DataCache() *cache.Cache {
	return e.dcache
}

// State returns the run state.
func (e *Emulator) State() State {
	return e.state
}

// Cycles returns the number of cycles executed.
func (e *Emulator) Cycles() uint64 {
	return e.cycles
}

// UnknownOps returns the number of unknown instructions encountered.
func (e *Emulator) UnknownOps() uint64 {
	return e.unknownOps
}

// Latency returns the estimated execution time so far.
func (e *Emulator) Latency() uint64 {
	return e.estimated
}

// MaxCycles returns the cycle budget.
func (e *Emulator) MaxCycles() uint64 {
	return e.maxCycles
}

// Reset returns the emulator to its initial state.
func (e *Emulator) Reset() {
	if e.dcache != nil {
		e.dcache.Reset()
	}
	e.init()
}

// Run executes prog from the current PC until the cycle budget is spent,
// the PC leaves the program, or a memory fault occurs. Once halted, Run
// returns the recorded result until Reset is called.
func (e *Emulator) Run(prog *Program) RunResult {
	if e.state == StateHalted {
		return e.result
	}

	for e.cycles < e.maxCycles {
		pc := e.regFile.PC

		inst, ok := prog.Fetch(pc)
		if !ok {
			return e.halt(HaltOutOfBounds, nil)
		}

		var cacheLatency uint64
		if e.dcache != nil {
			cacheLatency = e.dcache.Stats().Latency
		}

		result := e.Execute(inst)
		if result.Err != nil {
			if e.logger != nil {
				e.logger.Error("Memory fault",
					log.Hex("pc", pc),
					log.Stringer("instruction", inst),
					log.Err(result.Err))
			}
			return e.halt(HaltMemoryFault, result.Err)
		}

		e.cycles++
		e.account(inst, cacheLatency)

		if e.logger != nil {
			e.logger.Debug("Executed",
				log.Int("cycle", int(e.cycles)),
				log.Hex("pc", pc),
				log.Stringer("instruction", inst))
		}
		if e.tracer != nil {
			e.tracer(e.cycles, pc, inst, e.regFile)
		}
	}

	return e.halt(HaltCycleLimit, nil)
}

func (e *Emulator) halt(reason HaltReason, err error) RunResult {
	e.state = StateHalted
	e.result = RunResult{
		Reason:     reason,
		Cycles:     e.cycles,
		PC:         e.regFile.PC,
		UnknownOps: e.unknownOps,
		Latency:    e.estimated,
		Err:        err,
	}
	return e.result
}

// account adds the cost of an executed instruction. before is the data
// cache latency total sampled ahead of the instruction.
func (e *Emulator) account(inst insts.Instruction, before uint64) {
	if e.latency == nil {
		return
	}

	if e.dcache != nil && e.latency.IsMemoryOp(inst) {
		e.estimated += e.dcache.Stats().Latency - before
		return
	}

	e.estimated += e.latency.GetLatency(inst)
}

// Execute executes a single decoded instruction against the machine
// state.
func (e *Emulator) Execute(inst insts.Instruction) StepResult {
	switch i := inst.(type) {
	case insts.DataProc:
		if !e.executeDataProc(i) {
			return e.executeUnknown(inst)
		}
	case insts.Move:
		e.alu.MOV(i.Rd, e.operand(i.Operand), i.SetFlags)
	case insts.Compare:
		e.alu.CMP(i.Rn, e.operand(i.Operand))
	case insts.Transfer:
		if err := e.executeTransfer(i); err != nil {
			return StepResult{Err: err}
		}
	case insts.Branch:
		if i.Link {
			e.branchUnit.BL(i.Offset)
		} else {
			e.branchUnit.B(i.Offset)
		}
		return StepResult{} // PC already updated by branch
	case insts.BranchExchange:
		e.branchUnit.BX(i.Rm)
		return StepResult{} // PC already updated by branch
	default:
		return e.executeUnknown(inst)
	}

	e.regFile.PC += inst.Size()

	return StepResult{}
}

// operand resolves the second operand to a value.
func (e *Emulator) operand(o insts.Operand) uint32 {
	if o.IsImm {
		return uint32(o.Imm)
	}
	return e.regFile.ReadReg(o.Reg)
}

func (e *Emulator) executeDataProc(inst insts.DataProc) bool {
	op2 := e.operand(inst.Operand)

	switch inst.Opcode {
	case insts.OpADD, insts.OpADDS:
		e.alu.ADD(inst.Rd, inst.Rn, op2, inst.Opcode == insts.OpADDS)
	case insts.OpSUB, insts.OpSUBS:
		e.alu.SUB(inst.Rd, inst.Rn, op2, inst.Opcode == insts.OpSUBS)
	case insts.OpAND:
		e.alu.AND(inst.Rd, inst.Rn, op2)
	case insts.OpORR:
		e.alu.ORR(inst.Rd, inst.Rn, op2)
	case insts.OpEOR:
		e.alu.EOR(inst.Rd, inst.Rn, op2)
	default:
		return false
	}

	return true
}

func (e *Emulator) executeTransfer(inst insts.Transfer) error {
	if inst.Load {
		return e.lsu.LDR(inst.Rd, inst.Rn, inst.Offset)
	}
	return e.lsu.STR(inst.Rd, inst.Rn, inst.Offset)
}

// executeUnknown skips an instruction that cannot be executed.
func (e *Emulator) executeUnknown(inst insts.Instruction) StepResult {
	e.unknownOps++

	if e.logger != nil {
		e.logger.Error("Unknown instruction",
			log.Hex("pc", e.regFile.PC),
			log.Hex("raw", inst.Raw()),
			log.Stringer("set", inst.ISA()))
	}

	size := inst.Size()
	if size == 0 {
		size = 4
	}
	e.regFile.PC += size

	return StepResult{Unknown: true}
}

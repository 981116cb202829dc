package emu

import "github.com/aravk2005/ARMsimulator/cache"

// LoadStoreUnit implements word load and store operations.
type LoadStoreUnit struct {
	regFile *RegFile
	memory  *Memory

	// dcache, when set, observes every access for statistics.
	dcache *cache.Cache
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and memory.
func NewLoadStoreUnit(regFile *RegFile, memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		memory:  memory,
	}
}

// SetDataCache attaches a data cache model. Pass nil to detach.
func (lsu *LoadStoreUnit) SetDataCache(c *cache.Cache) {
	lsu.dcache = c
}

// Address computes Rn + offset with 32-bit wraparound.
func (lsu *LoadStoreUnit) Address(rn uint8, offset int32) uint32 {
	return lsu.regFile.ReadReg(rn) + uint32(offset)
}

// LDR performs a word load: Rd = mem[Rn + offset]
// On a fault Rd is left unchanged.
func (lsu *LoadStoreUnit) LDR(rd, rn uint8, offset int32) error {
	addr := lsu.Address(rn, offset)

	value, err := lsu.memory.Read32(addr)
	if err != nil {
		return err
	}

	if lsu.dcache != nil {
		lsu.dcache.Read(addr)
	}

	lsu.regFile.WriteReg(rd, value)
	return nil
}

// STR performs a word store: mem[Rn + offset] = Rd
func (lsu *LoadStoreUnit) STR(rd, rn uint8, offset int32) error {
	addr := lsu.Address(rn, offset)

	if err := lsu.memory.Write32(addr, lsu.regFile.ReadReg(rd)); err != nil {
		return err
	}

	if lsu.dcache != nil {
		lsu.dcache.Write(addr)
	}
	return nil
}

package emu

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/mem/mem"
)

// MemorySize is the size of the data memory in bytes.
const MemorySize = 64 * 1024

// ErrMemoryFault is matched by every *MemoryFaultError.
var ErrMemoryFault = errors.New("memory fault")

// MemoryFaultError reports an access that does not fit inside memory.
type MemoryFaultError struct {
	Addr  uint32
	Size  uint32
	Write bool
}

func (e *MemoryFaultError) Error() string {
	kind := "read"
	if e.Write {
		kind = "write"
	}
	return fmt.Sprintf("%s of %d bytes at 0x%08X outside %d-byte memory",
		kind, e.Size, e.Addr, MemorySize)
}

// Is matches ErrMemoryFault.
func (e *MemoryFaultError) Is(target error) bool {
	return target == ErrMemoryFault
}

// Memory is a zero-filled, little-endian, byte-addressable memory backed
// by Akita storage.
type Memory struct {
	storage *mem.Storage
}

// NewMemory creates a zeroed memory of MemorySize bytes.
func NewMemory() *Memory {
	return &Memory{storage: mem.NewStorage(MemorySize)}
}

func (m *Memory) check(addr, size uint32, write bool) error {
	if uint64(addr)+uint64(size) > MemorySize {
		return &MemoryFaultError{Addr: addr, Size: size, Write: write}
	}
	return nil
}

// Read reads size bytes starting at addr.
func (m *Memory) Read(addr, size uint32) ([]byte, error) {
	if err := m.check(addr, size, false); err != nil {
		return nil, err
	}

	data, err := m.storage.Read(uint64(addr), uint64(size))
	if err != nil {
		return nil, fmt.Errorf("storage read at 0x%08X: %w", addr, err)
	}
	return data, nil
}

// Write writes data starting at addr.
func (m *Memory) Write(addr uint32, data []byte) error {
	if err := m.check(addr, uint32(len(data)), true); err != nil {
		return err
	}

	if err := m.storage.Write(uint64(addr), data); err != nil {
		return fmt.Errorf("storage write at 0x%08X: %w", addr, err)
	}
	return nil
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) (byte, error) {
	data, err := m.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value byte) error {
	return m.Write(addr, []byte{value})
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	data, err := m.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(addr uint32, value uint32) error {
	return m.Write(addr, binary.LittleEndian.AppendUint32(nil, value))
}

// Bytes returns a copy of the first n bytes, clamped to MemorySize.
func (m *Memory) Bytes(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > MemorySize {
		n = MemorySize
	}

	data, err := m.Read(0, uint32(n))
	if err != nil {
		return nil
	}
	return append([]byte(nil), data...)
}

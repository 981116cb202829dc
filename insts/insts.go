// Package insts provides ARM and Thumb instruction definitions, decoding
// and encoding.
//
// This package decodes 32-bit ARM words and 16-bit Thumb halfwords into
// structured instruction records. It supports:
//   - Data Processing: ADD, ADDS, SUB, SUBS, MOV, MOVS, CMP, AND, ORR, EOR
//   - Load/Store word: LDR, STR with immediate offset
//   - Branch instructions: B, BL, BX
//
// Anything else decodes to an Unknown record of the correct size, so
// decoding never fails on a well-sized input.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.DecodeARM(0xE2810004) // ADD R0, R1, #4
//	fmt.Printf("Op: %v, Size: %d, Text: %s\n", inst.Op(), inst.Size(), inst)
package insts

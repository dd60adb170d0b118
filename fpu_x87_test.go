package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFPU_NoOpDetection exercises the classic DOS coprocessor-detection
// idiom: prime a memory word with a sentinel, run FNINIT+FNSTSW against
// it, and confirm the sentinel survives untouched — because this core's
// x87 escape opcodes never write anything.
func TestFPU_NoOpDetection(t *testing.T) {
	bus := NewFlatMemoryBus()
	cpu := NewCPU_X86(bus)

	const sentinelAddr = 0x2000
	bus.Write16(sentinelAddr, 0x55AA)

	cpu.CS, cpu.DS = 0, 0
	cpu.IP = 0x100
	// FNINIT (0xDB 0xE3) then FNSTSW [0x2000] (0xDD 0x36 0x00 0x20).
	program := []byte{0xDB, 0xE3, 0xDD, 0x36, 0x00, 0x20}
	for i, b := range program {
		bus.Write8(physical(cpu.CS, cpu.IP)+uint32(i), b)
	}

	require.Equal(t, 1, cpu.Step())
	require.Equal(t, 1, cpu.Step())
	require.Nil(t, cpu.LastFault())
	require.Equal(t, uint16(0x55AA), bus.Read16(sentinelAddr), "FNSTSW must not write: absence of a coprocessor is what software detects")
}

// TestFPU_MemoryOperandConsumesDisplacement checks that an ESC opcode
// with a disp16 memory operand advances IP past the full encoding
// instead of only the opcode and ModR/M byte.
func TestFPU_MemoryOperandConsumesDisplacement(t *testing.T) {
	bus := NewFlatMemoryBus()
	cpu := NewCPU_X86(bus)
	cpu.CS, cpu.IP = 0, 0x100

	// D9 06 34 12 = FLD word ptr [0x1234] (mod=00 rm=110 -> disp16).
	program := []byte{0xD9, 0x06, 0x34, 0x12}
	for i, b := range program {
		bus.Write8(physical(cpu.CS, cpu.IP)+uint32(i), b)
	}

	require.Equal(t, 1, cpu.Step())
	require.Nil(t, cpu.LastFault())
	require.Equal(t, uint16(0x100+len(program)), cpu.IP)
}

// TestFPU_RegisterFormNoOp checks a register-form ESC opcode (mod=11)
// only consumes the ModR/M byte.
func TestFPU_RegisterFormNoOp(t *testing.T) {
	bus := NewFlatMemoryBus()
	cpu := NewCPU_X86(bus)
	cpu.CS, cpu.IP = 0, 0x100

	// D9 C0 = FLD ST(0) (mod=11 reg=000 rm=000).
	bus.Write8(physical(cpu.CS, cpu.IP), 0xD9)
	bus.Write8(physical(cpu.CS, cpu.IP)+1, 0xC0)

	require.Equal(t, 1, cpu.Step())
	require.Nil(t, cpu.LastFault())
	require.Equal(t, uint16(0x102), cpu.IP)
}

// debug_interface.go - DebuggableCPU interface and supporting types
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// RegisterInfo describes a single CPU register for display by an external
// debugger. Rendering the debugger UI itself is out of scope for this
// core — it only exposes the data an external front end would consume.
type RegisterInfo struct {
	Name     string // "IP", "AX", "FLAGS"
	BitWidth int
	Value    uint64
	Group    string // "general", "segment", "flags"
}

// BreakpointEvent is published when a CPU hits a breakpoint during execution.
type BreakpointEvent struct {
	CPUID   int
	Address uint64
}

// DebuggableCPU is the pause/breakpoint observer interface an external
// debugger drives. It never renders disassembly or owns DOS/BIOS
// emulation — those stay on the far side of this interface.
type DebuggableCPU interface {
	CPUName() string
	AddressWidth() int

	GetRegisters() []RegisterInfo
	GetRegister(name string) (uint64, bool)
	SetRegister(name string, value uint64) bool
	GetPC() uint64
	SetPC(addr uint64)

	IsRunning() bool
	Freeze()
	Resume()

	Step() int

	SetBreakpoint(addr uint64) bool
	ClearBreakpoint(addr uint64) bool
	ClearAllBreakpoints()
	ListBreakpoints() []uint64
	HasBreakpoint(addr uint64) bool

	ReadMemory(addr uint64, size int) []byte
	WriteMemory(addr uint64, data []byte)

	SetBreakpointChannel(ch chan<- BreakpointEvent, cpuID int)
}

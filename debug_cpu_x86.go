// debug_cpu_x86.go - X86 adapter implementing DebuggableCPU
//
// Exposes the 16-bit real-mode register file and byte-oriented MemoryBus
// through the DebuggableCPU interface, with breakpoint/watchpoint
// bookkeeping the core itself has no notion of. Disassembly rendering is
// an out-of-scope collaborator, not something this adapter provides.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"strings"
	"sync"
	"sync/atomic"
)

// DebugX86 wraps a CPU_X86 and its runner behind the DebuggableCPU
// interface, adding breakpoint/watchpoint bookkeeping the core itself has
// no notion of.
type DebugX86 struct {
	cpu    *CPU_X86
	runner *CPUX86Runner

	bpMu        sync.RWMutex
	breakpoints map[uint64]*ConditionalBreakpoint
	watchpoints map[uint64]*Watchpoint
	bpChan      chan<- BreakpointEvent
	cpuID       int
	trapRunning atomic.Bool
	trapStop    chan struct{}
}

func NewDebugX86(cpu *CPU_X86, runner *CPUX86Runner) *DebugX86 {
	return &DebugX86{
		cpu:         cpu,
		runner:      runner,
		breakpoints: make(map[uint64]*ConditionalBreakpoint),
		watchpoints: make(map[uint64]*Watchpoint),
	}
}

func (d *DebugX86) CPUName() string   { return "X86" }
func (d *DebugX86) AddressWidth() int { return 20 } // 8086 segmented address space

func (d *DebugX86) GetRegisters() []RegisterInfo {
	c := d.cpu
	return []RegisterInfo{
		{Name: "AX", BitWidth: 16, Value: uint64(c.AX()), Group: "general"},
		{Name: "BX", BitWidth: 16, Value: uint64(c.BX()), Group: "general"},
		{Name: "CX", BitWidth: 16, Value: uint64(c.CX()), Group: "general"},
		{Name: "DX", BitWidth: 16, Value: uint64(c.DX()), Group: "general"},
		{Name: "SI", BitWidth: 16, Value: uint64(c.SI), Group: "general"},
		{Name: "DI", BitWidth: 16, Value: uint64(c.DI), Group: "general"},
		{Name: "BP", BitWidth: 16, Value: uint64(c.BP), Group: "general"},
		{Name: "SP", BitWidth: 16, Value: uint64(c.SP), Group: "general"},
		{Name: "IP", BitWidth: 16, Value: uint64(c.IP), Group: "general"},
		{Name: "FLAGS", BitWidth: 16, Value: uint64(c.Flags), Group: "flags"},
		{Name: "CS", BitWidth: 16, Value: uint64(c.CS), Group: "segment"},
		{Name: "DS", BitWidth: 16, Value: uint64(c.DS), Group: "segment"},
		{Name: "ES", BitWidth: 16, Value: uint64(c.ES), Group: "segment"},
		{Name: "SS", BitWidth: 16, Value: uint64(c.SS), Group: "segment"},
		{Name: "FS", BitWidth: 16, Value: uint64(c.FS), Group: "segment"},
		{Name: "GS", BitWidth: 16, Value: uint64(c.GS), Group: "segment"},
	}
}

func (d *DebugX86) GetRegister(name string) (uint64, bool) {
	c := d.cpu
	switch strings.ToUpper(name) {
	case "AX":
		return uint64(c.AX()), true
	case "BX":
		return uint64(c.BX()), true
	case "CX":
		return uint64(c.CX()), true
	case "DX":
		return uint64(c.DX()), true
	case "SI":
		return uint64(c.SI), true
	case "DI":
		return uint64(c.DI), true
	case "BP":
		return uint64(c.BP), true
	case "SP":
		return uint64(c.SP), true
	case "IP":
		return uint64(c.IP), true
	case "FLAGS":
		return uint64(c.Flags), true
	case "CS":
		return uint64(c.CS), true
	case "DS":
		return uint64(c.DS), true
	case "ES":
		return uint64(c.ES), true
	case "SS":
		return uint64(c.SS), true
	case "FS":
		return uint64(c.FS), true
	case "GS":
		return uint64(c.GS), true
	}
	return 0, false
}

func (d *DebugX86) SetRegister(name string, value uint64) bool {
	c := d.cpu
	switch strings.ToUpper(name) {
	case "AX":
		c.SetAX(uint16(value))
	case "BX":
		c.SetBX(uint16(value))
	case "CX":
		c.SetCX(uint16(value))
	case "DX":
		c.SetDX(uint16(value))
	case "SI":
		c.SI = uint16(value)
	case "DI":
		c.DI = uint16(value)
	case "BP":
		c.BP = uint16(value)
	case "SP":
		c.SP = uint16(value)
	case "IP":
		c.IP = uint16(value)
	case "FLAGS":
		c.Flags = uint16(value)
	case "CS":
		c.CS = uint16(value)
	case "DS":
		c.DS = uint16(value)
	case "ES":
		c.ES = uint16(value)
	case "SS":
		c.SS = uint16(value)
	case "FS":
		c.FS = uint16(value)
	case "GS":
		c.GS = uint16(value)
	default:
		return false
	}
	return true
}

// GetPC/SetPC report the flat CS:IP physical address rather than a bare
// segment offset, so a debugger UI can compare it against other CPUs'
// addresses on the same scale.
func (d *DebugX86) GetPC() uint64 { return uint64(physical(d.cpu.CS, d.cpu.IP)) }
func (d *DebugX86) SetPC(addr uint64) {
	d.cpu.CS = 0
	d.cpu.IP = uint16(addr)
}

func (d *DebugX86) IsRunning() bool {
	return d.cpu.Running() || d.trapRunning.Load()
}

func (d *DebugX86) Freeze() {
	if d.trapRunning.Load() {
		close(d.trapStop)
		for d.trapRunning.Load() {
		}
		return
	}
	_ = d.runner.Stop()
}

func (d *DebugX86) Resume() {
	d.bpMu.RLock()
	hasBP := len(d.breakpoints) > 0 || len(d.watchpoints) > 0
	d.bpMu.RUnlock()
	if hasBP {
		d.trapStop = make(chan struct{})
		d.trapRunning.Store(true)
		go d.trapLoop()
		return
	}
	d.cpu.SetRunning(true)
}

// trapLoop single-steps so breakpoints and watchpoints can be evaluated
// between instructions, at the cost of the throughput a free-running
// Execute loop gets.
func (d *DebugX86) trapLoop() {
	defer d.trapRunning.Store(false)
	d.cpu.SetRunning(true)
	d.cpu.Halted = false
	for {
		select {
		case <-d.trapStop:
			d.cpu.SetRunning(false)
			return
		default:
		}

		pc := d.GetPC()
		d.bpMu.RLock()
		bp := d.breakpoints[pc]
		d.bpMu.RUnlock()
		if bp != nil {
			bp.HitCount++
			if evaluateConditionWithHitCount(bp.Condition, d, bp.HitCount) {
				d.cpu.SetRunning(false)
				d.notify(BreakpointEvent{CPUID: d.cpuID, Address: pc})
				return
			}
		}

		if d.cpu.Step() == 0 {
			d.cpu.SetRunning(false)
			return
		}

		d.bpMu.RLock()
		for addr, wp := range d.watchpoints {
			cur := d.cpu.bus.Read8(uint32(addr))
			if cur != wp.LastValue {
				wp.LastValue = cur
				d.bpMu.RUnlock()
				d.cpu.SetRunning(false)
				d.notify(BreakpointEvent{CPUID: d.cpuID, Address: d.GetPC()})
				return
			}
		}
		d.bpMu.RUnlock()
	}
}

func (d *DebugX86) notify(ev BreakpointEvent) {
	if d.bpChan == nil {
		return
	}
	select {
	case d.bpChan <- ev:
	default:
	}
}

func (d *DebugX86) Step() int { return d.cpu.Step() }

func (d *DebugX86) SetBreakpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints[addr] = &ConditionalBreakpoint{Address: addr}
	return true
}

func (d *DebugX86) SetConditionalBreakpoint(addr uint64, cond *BreakpointCondition) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints[addr] = &ConditionalBreakpoint{Address: addr, Condition: cond}
	return true
}

func (d *DebugX86) ClearBreakpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if _, ok := d.breakpoints[addr]; ok {
		delete(d.breakpoints, addr)
		return true
	}
	return false
}

func (d *DebugX86) ClearAllBreakpoints() {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.breakpoints = make(map[uint64]*ConditionalBreakpoint)
}

func (d *DebugX86) ListBreakpoints() []uint64 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]uint64, 0, len(d.breakpoints))
	for addr := range d.breakpoints {
		result = append(result, addr)
	}
	return result
}

func (d *DebugX86) GetConditionalBreakpoint(addr uint64) *ConditionalBreakpoint {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	return d.breakpoints[addr]
}

func (d *DebugX86) HasBreakpoint(addr uint64) bool {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	_, ok := d.breakpoints[addr]
	return ok
}

func (d *DebugX86) SetWatchpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.watchpoints[addr] = &Watchpoint{Address: addr, LastValue: d.cpu.bus.Read8(uint32(addr))}
	return true
}

func (d *DebugX86) ClearWatchpoint(addr uint64) bool {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	if _, ok := d.watchpoints[addr]; ok {
		delete(d.watchpoints, addr)
		return true
	}
	return false
}

func (d *DebugX86) ClearAllWatchpoints() {
	d.bpMu.Lock()
	defer d.bpMu.Unlock()
	d.watchpoints = make(map[uint64]*Watchpoint)
}

func (d *DebugX86) ListWatchpoints() []uint64 {
	d.bpMu.RLock()
	defer d.bpMu.RUnlock()
	result := make([]uint64, 0, len(d.watchpoints))
	for addr := range d.watchpoints {
		result = append(result, addr)
	}
	return result
}

func (d *DebugX86) ReadMemory(addr uint64, size int) []byte {
	result := make([]byte, size)
	for i := 0; i < size; i++ {
		result[i] = d.cpu.bus.Read8(uint32(addr) + uint32(i))
	}
	return result
}

func (d *DebugX86) WriteMemory(addr uint64, data []byte) {
	for i, b := range data {
		d.cpu.bus.Write8(uint32(addr)+uint32(i), b)
	}
}

func (d *DebugX86) SetBreakpointChannel(ch chan<- BreakpointEvent, cpuID int) {
	d.bpChan = ch
	d.cpuID = cpuID
}

// cpu_x86.go - Intel 8086/80186/80286/80386-class real-mode CPU core
//
// This implements the instruction fetch/decode/execute loop, architectural
// state, ALU, ModR/M effective-address machine and stack discipline for a
// real-mode x86 core sufficient to run DOS binaries. Protected mode beyond a
// handful of 286/386 instructions, paging, a functioning x87 FPU and
// cycle-exact timing are all out of scope; see fpu_x87.go for the FPU stub.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"sync/atomic"
)

// Flag bit positions in the 16-bit FLAGS register.
const (
	x86FlagCF = 1 << 0
	x86FlagPF = 1 << 2
	x86FlagAF = 1 << 4
	x86FlagZF = 1 << 6
	x86FlagSF = 1 << 7
	x86FlagTF = 1 << 8
	x86FlagIF = 1 << 9
	x86FlagDF = 1 << 10
	x86FlagOF = 1 << 11

	x86FlagsFixedOnes = 1 << 1 // bit 1 always reads 1 on an 8086
)

// segOverride identifies an active segment-override prefix, or none.
type segOverride int

const (
	segNone segOverride = iota
	segES
	segCS
	segSS
	segDS
	segFS
	segGS
)

// zfContinue is the tri-state REPNZ/REPZ selector latched by a REP-family
// prefix.
type zfContinue int

const (
	zfUnset zfContinue = iota
	zfFalse
	zfTrue
)

// MemoryBus is the memory-bus abstraction consumed by the core. physAddr is
// always a full 20-bit physical address already combined from segment:offset
// by the caller.
type MemoryBus interface {
	Read8(physAddr uint32) byte
	Write8(physAddr uint32, v byte)
	Read16(physAddr uint32) uint16
	Write16(physAddr uint32, v uint16)
	Read32(physAddr uint32) uint32
	Write32(physAddr uint32, v uint32)
	GetData(physAddr uint32, length int) []byte
}

const x86AddressMask = 0xFFFFF // 1 MiB, 20-bit physical address space

// FlatMemoryBus is the reference MemoryBus implementation: a flat 1 MiB
// byte array with wraparound little-endian accessors.
type FlatMemoryBus struct {
	mem [x86AddressMask + 1]byte
}

func NewFlatMemoryBus() *FlatMemoryBus { return &FlatMemoryBus{} }

func (b *FlatMemoryBus) Read8(addr uint32) byte    { return b.mem[addr&x86AddressMask] }
func (b *FlatMemoryBus) Write8(addr uint32, v byte) { b.mem[addr&x86AddressMask] = v }

func (b *FlatMemoryBus) Read16(addr uint32) uint16 {
	lo := uint16(b.Read8(addr))
	hi := uint16(b.Read8(addr + 1))
	return lo | hi<<8
}

func (b *FlatMemoryBus) Write16(addr uint32, v uint16) {
	b.Write8(addr, byte(v))
	b.Write8(addr+1, byte(v>>8))
}

func (b *FlatMemoryBus) Read32(addr uint32) uint32 {
	lo := uint32(b.Read16(addr))
	hi := uint32(b.Read16(addr + 2))
	return lo | hi<<16
}

func (b *FlatMemoryBus) Write32(addr uint32, v uint32) {
	b.Write16(addr, uint16(v))
	b.Write16(addr+2, uint16(v>>16))
}

func (b *FlatMemoryBus) GetData(addr uint32, length int) []byte {
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = b.Read8(addr + uint32(i))
	}
	return out
}

// IOPort is the I/O-port handler interface consumed by the core.
type IOPort interface {
	ReadByte(port uint16) byte
	WriteByte(port uint16, v byte)
	ReadWord(port uint16) uint16
	WriteWord(port uint16, v uint16)
	ReadDWord(port uint16) uint32
	WriteDWord(port uint16, v uint32)
}

// CallbackHandler lets a host program interpose on the FE 38 <imm16> opcode
// sequence (Group 4, sub-index 7) without patching the IVT: the emulated
// program calls into host code by an arbitrary index instead of triggering
// a real interrupt. See opGrp4_Eb in cpu_x86_grp.go for the dispatch.
type CallbackHandler interface {
	Run(index uint16)
}

// CPUX86Config enumerates the core's configuration options.
type CPUX86Config struct {
	FailOnUnhandledPort                  bool
	ErrorOnUninitializedInterruptHandler bool
	DebugMode                            bool
	ForceLog                             *bool
}

// CPU_X86 is the architectural state aggregate: registers, segments, flags
// and the scratch the fetch/decode/execute loop carries between
// instructions.
type CPU_X86 struct {
	// General-purpose 16-bit registers.
	regAX, regBX, regCX, regDX uint16
	SI, DI, BP, SP             uint16

	// Segment registers.
	CS, DS, ES, SS, FS, GS uint16

	// Instruction pointer and flags.
	IP    uint16
	Flags uint16

	// Cycle count: the core counts instructions executed, not bus cycles.
	Cycles uint64

	// Prefix scratch — instruction-local, cleared at the end of every
	// instruction.
	segOverride      segOverride
	lockPrefix       bool
	continueZeroFlag zfContinue
	prefixBytes      []byte

	// workingIP is the in-flight instruction pointer; IP is only updated
	// from it once the instruction fully commits.
	workingIP    uint16
	instrStartIP uint16

	// Diagnostic scratch, populated only when logging is enabled.
	currentInstructionName string
	prefixLabel            string

	Halted  bool
	running atomic.Bool

	bus       MemoryBus
	ioPorts   *IOPortRegistry
	callbacks CallbackHandler
	config    CPUX86Config

	// externalIRQ is the latched pending external-interrupt vector; -1
	// means none pending. See cpu_x86_interrupt.go for latch policy.
	externalIRQ int32

	funcHandler       *FunctionHandler
	extFuncHandler    *FunctionHandler
	activeFuncHandler *FunctionHandler

	recorder *AddressRecorder

	lastFault error
}

func NewCPU_X86(bus MemoryBus) *CPU_X86 {
	c := &CPU_X86{
		bus:         bus,
		ioPorts:     NewIOPortRegistry(),
		externalIRQ: -1,
		recorder:    NewAddressRecorder(),
	}
	c.funcHandler = NewFunctionHandler()
	c.extFuncHandler = NewFunctionHandler()
	c.activeFuncHandler = c.funcHandler
	c.Reset()
	return c
}

// Reset restores power-on architectural state and points CS:IP at the
// classic DOS COM-style load address 0000:0100, so a freshly constructed
// core is directly useful for the runner's flat-image loader.
func (c *CPU_X86) Reset() {
	c.regAX, c.regBX, c.regCX, c.regDX = 0, 0, 0, 0
	c.SI, c.DI, c.BP, c.SP = 0, 0, 0, 0xFFFE
	c.CS, c.DS, c.ES, c.SS, c.FS, c.GS = 0, 0, 0, 0, 0, 0
	c.IP = 0x100
	c.Flags = x86FlagsFixedOnes
	c.Cycles = 0
	c.Halted = false
	c.externalIRQ = -1
	c.clearPrefixScratch()
}

func (c *CPU_X86) SetConfig(cfg CPUX86Config) { c.config = cfg }

// SetCallbackHandler installs the handler that services the FE 38 <imm16>
// callback opcode (Group 4, sub-index 7). A nil handler makes the opcode a
// silent no-op.
func (c *CPU_X86) SetCallbackHandler(h CallbackHandler) { c.callbacks = h }

func (c *CPU_X86) Running() bool     { return c.running.Load() }
func (c *CPU_X86) SetRunning(v bool) { c.running.Store(v) }

func (c *CPU_X86) debugf(format string, args ...any) {
	if c.config.DebugMode || (c.config.ForceLog != nil && *c.config.ForceLog) {
		fmt.Printf(format, args...)
	}
}

// --- 16/8-bit register views ------------------------------------------

func (c *CPU_X86) AX() uint16 { return c.regAX }
func (c *CPU_X86) BX() uint16 { return c.regBX }
func (c *CPU_X86) CX() uint16 { return c.regCX }
func (c *CPU_X86) DX() uint16 { return c.regDX }

func (c *CPU_X86) SetAX(v uint16) { c.regAX = v }
func (c *CPU_X86) SetBX(v uint16) { c.regBX = v }
func (c *CPU_X86) SetCX(v uint16) { c.regCX = v }
func (c *CPU_X86) SetDX(v uint16) { c.regDX = v }

func (c *CPU_X86) AL() byte { return byte(c.regAX) }
func (c *CPU_X86) AH() byte { return byte(c.regAX >> 8) }
func (c *CPU_X86) BL() byte { return byte(c.regBX) }
func (c *CPU_X86) BH() byte { return byte(c.regBX >> 8) }
func (c *CPU_X86) CL() byte { return byte(c.regCX) }
func (c *CPU_X86) CH() byte { return byte(c.regCX >> 8) }
func (c *CPU_X86) DL() byte { return byte(c.regDX) }
func (c *CPU_X86) DH() byte { return byte(c.regDX >> 8) }

func (c *CPU_X86) SetAL(v byte) { c.regAX = c.regAX&0xFF00 | uint16(v) }
func (c *CPU_X86) SetAH(v byte) { c.regAX = c.regAX&0x00FF | uint16(v)<<8 }
func (c *CPU_X86) SetBL(v byte) { c.regBX = c.regBX&0xFF00 | uint16(v) }
func (c *CPU_X86) SetBH(v byte) { c.regBX = c.regBX&0x00FF | uint16(v)<<8 }
func (c *CPU_X86) SetCL(v byte) { c.regCX = c.regCX&0xFF00 | uint16(v) }
func (c *CPU_X86) SetCH(v byte) { c.regCX = c.regCX&0x00FF | uint16(v)<<8 }
func (c *CPU_X86) SetDL(v byte) { c.regDX = c.regDX&0xFF00 | uint16(v) }
func (c *CPU_X86) SetDH(v byte) { c.regDX = c.regDX&0x00FF | uint16(v)<<8 }

// getReg16/setReg16 index registers the way ModR/M's reg/rm fields do:
// 0=AX 1=CX 2=DX 3=BX 4=SP 5=BP 6=SI 7=DI.
func (c *CPU_X86) getReg16(i byte) uint16 {
	switch i & 7 {
	case 0:
		return c.regAX
	case 1:
		return c.regCX
	case 2:
		return c.regDX
	case 3:
		return c.regBX
	case 4:
		return c.SP
	case 5:
		return c.BP
	case 6:
		return c.SI
	default:
		return c.DI
	}
}

func (c *CPU_X86) setReg16(i byte, v uint16) {
	switch i & 7 {
	case 0:
		c.regAX = v
	case 1:
		c.regCX = v
	case 2:
		c.regDX = v
	case 3:
		c.regBX = v
	case 4:
		c.SP = v
	case 5:
		c.BP = v
	case 6:
		c.SI = v
	default:
		c.DI = v
	}
}

// getReg8/setReg8: 0=AL 1=CL 2=DL 3=BL 4=AH 5=CH 6=DH 7=BH.
func (c *CPU_X86) getReg8(i byte) byte {
	switch i & 7 {
	case 0:
		return c.AL()
	case 1:
		return c.CL()
	case 2:
		return c.DL()
	case 3:
		return c.BL()
	case 4:
		return c.AH()
	case 5:
		return c.CH()
	case 6:
		return c.DH()
	default:
		return c.BH()
	}
}

func (c *CPU_X86) setReg8(i byte, v byte) {
	switch i & 7 {
	case 0:
		c.SetAL(v)
	case 1:
		c.SetCL(v)
	case 2:
		c.SetDL(v)
	case 3:
		c.SetBL(v)
	case 4:
		c.SetAH(v)
	case 5:
		c.SetCH(v)
	case 6:
		c.SetDH(v)
	default:
		c.SetBH(v)
	}
}

func (c *CPU_X86) getSegReg(i byte) uint16 {
	switch i & 3 {
	case 0:
		return c.ES
	case 1:
		return c.CS
	case 2:
		return c.SS
	default:
		return c.DS
	}
}

func (c *CPU_X86) setSegReg(i byte, v uint16) {
	switch i & 3 {
	case 0:
		c.ES = v
	case 1:
		c.CS = v
	case 2:
		c.SS = v
	default:
		c.DS = v
	}
}

// --- Flags ---------------------------------------------------------------

func (c *CPU_X86) setFlag(mask uint16, v bool) {
	if v {
		c.Flags |= mask
	} else {
		c.Flags &^= mask
	}
}

func (c *CPU_X86) getFlag(mask uint16) bool { return c.Flags&mask != 0 }

func (c *CPU_X86) CF() bool { return c.getFlag(x86FlagCF) }
func (c *CPU_X86) PF() bool { return c.getFlag(x86FlagPF) }
func (c *CPU_X86) AF() bool { return c.getFlag(x86FlagAF) }
func (c *CPU_X86) ZF() bool { return c.getFlag(x86FlagZF) }
func (c *CPU_X86) SF() bool { return c.getFlag(x86FlagSF) }
func (c *CPU_X86) TF() bool { return c.getFlag(x86FlagTF) }
func (c *CPU_X86) IF() bool { return c.getFlag(x86FlagIF) }
func (c *CPU_X86) DF() bool { return c.getFlag(x86FlagDF) }
func (c *CPU_X86) OF() bool { return c.getFlag(x86FlagOF) }

func parity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}

// setLogicFlags8/16 implement AND/OR/XOR/TEST's flag contract: CF and OF
// cleared, ZF/SF/PF from the result, AF undefined-but-deterministic — this
// core always clears it.
func (c *CPU_X86) setLogicFlags8(result byte) {
	c.setFlag(x86FlagCF, false)
	c.setFlag(x86FlagOF, false)
	c.setFlag(x86FlagAF, false)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x80 != 0)
	c.setFlag(x86FlagPF, parity(result))
}

func (c *CPU_X86) setLogicFlags16(result uint16) {
	c.setFlag(x86FlagCF, false)
	c.setFlag(x86FlagOF, false)
	c.setFlag(x86FlagAF, false)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x8000 != 0)
	c.setFlag(x86FlagPF, parity(byte(result)))
}

// --- Segmentation ----------------------------------------------------------

// effectiveSegment resolves the active segment for a memory access whose
// architectural default is defaultSeg, honoring an active override prefix
// except where the caller says it can't be overridden: SS for implicit
// stack accesses, ES for string destinations.
func (c *CPU_X86) effectiveSegment(defaultSeg segOverride, overridable bool) uint16 {
	seg := defaultSeg
	if overridable && c.segOverride != segNone {
		seg = c.segOverride
	}
	return c.segRegValue(seg)
}

func (c *CPU_X86) segRegValue(s segOverride) uint16 {
	switch s {
	case segES:
		return c.ES
	case segCS:
		return c.CS
	case segSS:
		return c.SS
	case segDS:
		return c.DS
	case segFS:
		return c.FS
	case segGS:
		return c.GS
	default:
		return c.DS
	}
}

// physical combines segment:offset the classic real-mode way:
// (segment<<4)+offset mod 2^20.
func physical(segment, offset uint16) uint32 {
	return (uint32(segment)<<4 + uint32(offset)) & x86AddressMask
}

// --- Memory helpers routed through the effective segment ------------------

func (c *CPU_X86) readMem8(seg segOverride, overridable bool, offset uint16) byte {
	addr := physical(c.effectiveSegment(seg, overridable), offset)
	c.recorder.record(addr, RecordRead, SizeByte)
	return c.bus.Read8(addr)
}

func (c *CPU_X86) writeMem8(seg segOverride, overridable bool, offset uint16, v byte) {
	addr := physical(c.effectiveSegment(seg, overridable), offset)
	c.recorder.record(addr, RecordWrite, SizeByte)
	c.bus.Write8(addr, v)
}

func (c *CPU_X86) readMem16(seg segOverride, overridable bool, offset uint16) uint16 {
	addr := physical(c.effectiveSegment(seg, overridable), offset)
	c.recorder.record(addr, RecordRead, SizeWord)
	return c.bus.Read16(addr)
}

func (c *CPU_X86) writeMem16(seg segOverride, overridable bool, offset uint16, v uint16) {
	addr := physical(c.effectiveSegment(seg, overridable), offset)
	c.recorder.record(addr, RecordWrite, SizeWord)
	c.bus.Write16(addr, v)
}

// --- Instruction fetch -----------------------------------------------------

// fetch8 reads the next instruction byte at CS:workingIP and advances
// workingIP.
func (c *CPU_X86) fetch8() byte {
	addr := physical(c.CS, c.workingIP)
	v := c.bus.Read8(addr)
	c.workingIP++
	return v
}

func (c *CPU_X86) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

func (c *CPU_X86) fetchSigned8() int8 { return int8(c.fetch8()) }

func (c *CPU_X86) clearPrefixScratch() {
	c.segOverride = segNone
	c.lockPrefix = false
	c.continueZeroFlag = zfUnset
	c.prefixBytes = c.prefixBytes[:0]
	c.prefixLabel = ""
}

// --- Stack -------------------------------------------------------------

func (c *CPU_X86) push16(v uint16) {
	c.SP -= 2
	addr := physical(c.SS, c.SP)
	c.recorder.record(addr, RecordWrite, SizeWord)
	c.bus.Write16(addr, v)
}

func (c *CPU_X86) pop16() uint16 {
	addr := physical(c.SS, c.SP)
	c.recorder.record(addr, RecordRead, SizeWord)
	v := c.bus.Read16(addr)
	c.SP += 2
	return v
}

// --- Top-level step loop -------------------------------------------------

// isPrefixByte reports whether b is one of the recognized prefix bytes.
// 0x66/0x67 operand/address-size overrides are deliberately absent: this
// core targets the fixed-size 286/386 instructions DOS binaries actually
// touch, not full dual-mode 16/32-bit operand-size override machinery.
func isPrefixByte(b byte) bool {
	switch b {
	case 0x26, 0x2E, 0x36, 0x3E, 0x64, 0x65, 0xF0, 0xF2, 0xF3:
		return true
	default:
		return false
	}
}

func isStringOpcode(op byte) bool {
	switch {
	case op >= 0xA4 && op <= 0xA7:
		return true
	case op >= 0xAA && op <= 0xAF:
		return true
	case op >= 0x6C && op <= 0x6F:
		return true
	default:
		return false
	}
}

// Step executes exactly one instruction and returns 1, or 0 if the core
// halted or hit a fatal fault (retrievable via LastFault()). The return
// value counts instructions, not bus cycles; this core has no notion of
// cycle-exact timing.
func (c *CPU_X86) Step() int {
	if c.Halted {
		return 0
	}

	c.workingIP = c.IP
	c.instrStartIP = c.IP
	c.recorder.reset()
	c.clearPrefixScratch()
	c.currentInstructionName = ""

	if err := c.foldPrefixes(); err != nil {
		c.fault(err)
		return 0
	}

	opcode := c.fetch8()
	c.prefixBytes = append(c.prefixBytes, opcode)

	var execErr error
	if c.continueZeroFlag != zfUnset && isStringOpcode(opcode) {
		execErr = c.execRepString(opcode)
	} else {
		execErr = c.dispatch(opcode)
	}

	if execErr != nil {
		if _, ok := execErr.(*DivisionFaultError); ok {
			c.debugf("division fault, restarting instruction and dispatching INT 0\n")
			c.workingIP = c.instrStartIP
			if intErr := c.interrupt(0, false); intErr != nil {
				c.fault(intErr)
				return 0
			}
		} else {
			c.fault(execErr)
			return 0
		}
	}

	c.recorder.commit()
	c.Cycles++
	c.serviceExternalInterrupt()
	c.IP = c.workingIP
	return 1
}

func (c *CPU_X86) fault(err error) {
	c.Halted = true
	c.lastFault = err
	c.debugf("fatal: %v\n", err)
}

// LastFault returns the fatal error that halted the core, if any.
func (c *CPU_X86) LastFault() error { return c.lastFault }

// foldPrefixes consumes every recognized prefix byte silently; only
// exceeding maxPrefixBytes consecutive prefix bytes without reaching an
// opcode is a fault.
const maxPrefixBytes = 16

func (c *CPU_X86) foldPrefixes() error {
	for n := 0; ; n++ {
		addr := physical(c.CS, c.workingIP)
		b := c.bus.Read8(addr)
		if !isPrefixByte(b) {
			return nil
		}
		if n >= maxPrefixBytes {
			return &InvalidOpcodeError{Opcode: b, AfterPrefix: true, State: c.snapshot()}
		}
		c.fetch8()
		c.prefixBytes = append(c.prefixBytes, b)
		switch b {
		case 0x26:
			c.segOverride = segES
		case 0x2E:
			c.segOverride = segCS
		case 0x36:
			c.segOverride = segSS
		case 0x3E:
			c.segOverride = segDS
		case 0x64:
			c.segOverride = segFS
		case 0x65:
			c.segOverride = segGS
		case 0xF0:
			c.lockPrefix = true
		case 0xF2:
			c.continueZeroFlag = zfFalse
		case 0xF3:
			c.continueZeroFlag = zfTrue
		}
	}
}

// cpu_x86_test.go - x86 CPU unit tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "testing"

// testPort is a minimal IOPort used to exercise IN/OUT dispatch.
type testPort struct {
	lastByteOut byte
	byteIn      byte
}

func (p *testPort) ReadByte(uint16) byte        { return p.byteIn }
func (p *testPort) WriteByte(_ uint16, v byte)  { p.lastByteOut = v }
func (p *testPort) ReadWord(uint16) uint16      { return uint16(p.byteIn) }
func (p *testPort) WriteWord(_ uint16, v uint16) { p.lastByteOut = byte(v) }
func (p *testPort) ReadDWord(uint16) uint32     { return uint32(p.byteIn) }
func (p *testPort) WriteDWord(_ uint16, v uint32) { p.lastByteOut = byte(v) }

func newTestCPU() (*CPU_X86, *FlatMemoryBus) {
	bus := NewFlatMemoryBus()
	cpu := NewCPU_X86(bus)
	cpu.CS, cpu.IP = 0, 0
	return cpu, bus
}

func load(bus *FlatMemoryBus, addr uint32, bytes ...byte) {
	for i, b := range bytes {
		bus.Write8(addr+uint32(i), b)
	}
}

func TestX86_RegisterAccess(t *testing.T) {
	cpu, _ := newTestCPU()

	cpu.SetAX(0x5678)
	if cpu.AX() != 0x5678 {
		t.Errorf("AX: got 0x%04X, want 0x5678", cpu.AX())
	}
	if cpu.AL() != 0x78 {
		t.Errorf("AL: got 0x%02X, want 0x78", cpu.AL())
	}
	if cpu.AH() != 0x56 {
		t.Errorf("AH: got 0x%02X, want 0x56", cpu.AH())
	}

	cpu.SetAL(0xAB)
	if cpu.AX() != 0x56AB {
		t.Errorf("SetAL: AX got 0x%04X, want 0x56AB", cpu.AX())
	}

	cpu.SetAH(0xCD)
	if cpu.AX() != 0xCDAB {
		t.Errorf("SetAH: AX got 0x%04X, want 0xCDAB", cpu.AX())
	}

	cpu.SetBX(0xCCDD)
	if cpu.getReg16(3) != 0xCCDD {
		t.Errorf("getReg16(3): got 0x%04X, want 0xCCDD", cpu.getReg16(3))
	}
	if cpu.getReg8(3) != 0xDD { // BL
		t.Errorf("getReg8(3): got 0x%02X, want 0xDD", cpu.getReg8(3))
	}
	if cpu.getReg8(7) != 0xCC { // BH
		t.Errorf("getReg8(7): got 0x%02X, want 0xCC", cpu.getReg8(7))
	}
}

func TestX86_Flags(t *testing.T) {
	cpu, _ := newTestCPU()

	cpu.setFlag(x86FlagCF, true)
	if !cpu.CF() {
		t.Error("CF should be set")
	}
	cpu.setFlag(x86FlagZF, true)
	if !cpu.ZF() {
		t.Error("ZF should be set")
	}
	cpu.setFlag(x86FlagCF, false)
	if cpu.CF() {
		t.Error("CF should be clear")
	}
}

func TestX86_NOP(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0, 0x90, 0xF4) // NOP; HLT

	cpu.Step()
	if cpu.IP != 1 {
		t.Errorf("IP after NOP: got 0x%04X, want 0x0001", cpu.IP)
	}
}

func TestX86_MOV_reg_imm16(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0, 0xB8, 0x78, 0x56) // MOV AX, 0x5678

	cpu.Step()
	if cpu.AX() != 0x5678 {
		t.Errorf("MOV AX, imm16: got 0x%04X, want 0x5678", cpu.AX())
	}
	if cpu.IP != 3 {
		t.Errorf("IP after MOV: got 0x%04X, want 0x0003", cpu.IP)
	}
}

func TestX86_MOV_r8_imm8(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0, 0xB0, 0xAB) // MOV AL, 0xAB

	cpu.Step()
	if cpu.AL() != 0xAB {
		t.Errorf("MOV AL, imm8: got 0x%02X, want 0xAB", cpu.AL())
	}
}

func TestX86_ADD(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x20)
	load(bus, 0, 0x04, 0x10) // ADD AL, 0x10

	cpu.Step()
	if cpu.AL() != 0x30 {
		t.Errorf("ADD AL, imm8: got 0x%02X, want 0x30", cpu.AL())
	}
	if cpu.ZF() || cpu.CF() {
		t.Error("ZF and CF should be clear")
	}
}

func TestX86_ADD_overflow(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0xF0)
	load(bus, 0, 0x04, 0x20) // ADD AL, 0x20

	cpu.Step()
	if cpu.AL() != 0x10 {
		t.Errorf("ADD AL with carry: got 0x%02X, want 0x10", cpu.AL())
	}
	if !cpu.CF() {
		t.Error("CF should be set on unsigned overflow")
	}
}

func TestX86_SUB(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x30)
	load(bus, 0, 0x2C, 0x10) // SUB AL, 0x10

	cpu.Step()
	if cpu.AL() != 0x20 {
		t.Errorf("SUB AL, imm8: got 0x%02X, want 0x20", cpu.AL())
	}
}

func TestX86_CMP_zero(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x42)
	load(bus, 0, 0x3C, 0x42) // CMP AL, 0x42

	cpu.Step()
	if !cpu.ZF() {
		t.Error("ZF should be set when comparing equal values")
	}
	if cpu.CF() {
		t.Error("CF should be clear when comparing equal values")
	}
}

func TestX86_XOR_self(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAX(0x1234)
	load(bus, 0, 0x31, 0xC0) // XOR AX, AX

	cpu.Step()
	if cpu.AX() != 0 {
		t.Errorf("XOR AX, AX: got 0x%04X, want 0", cpu.AX())
	}
	if !cpu.ZF() {
		t.Error("ZF should be set after XOR to zero")
	}
}

func TestX86_PUSH_POP(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SP = 0x1000
	cpu.SetAX(0xBEEF)
	load(bus, 0, 0x50, 0x5B) // PUSH AX; POP BX

	cpu.Step()
	if cpu.SP != 0x0FFE {
		t.Errorf("SP after PUSH: got 0x%04X, want 0x0FFE", cpu.SP)
	}

	cpu.Step()
	if cpu.BX() != 0xBEEF {
		t.Errorf("BX after POP: got 0x%04X, want 0xBEEF", cpu.BX())
	}
	if cpu.SP != 0x1000 {
		t.Errorf("SP after POP: got 0x%04X, want 0x1000", cpu.SP)
	}
}

func TestX86_JMP_rel8(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0, 0xEB, 0x05) // JMP +5

	cpu.Step()
	if cpu.IP != 7 {
		t.Errorf("IP after JMP: got 0x%04X, want 0x0007", cpu.IP)
	}
}

func TestX86_JMP_rel8_backward(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.IP = 0x100
	load(bus, 0x100, 0xEB, 0xFB) // JMP -5

	cpu.Step()
	if cpu.IP != 0xFD {
		t.Errorf("IP after backward JMP: got 0x%04X, want 0x00FD", cpu.IP)
	}
}

func TestX86_JZ_taken(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.setFlag(x86FlagZF, true)
	load(bus, 0, 0x74, 0x10) // JZ +16

	cpu.Step()
	if cpu.IP != 0x12 {
		t.Errorf("IP after JZ (taken): got 0x%04X, want 0x0012", cpu.IP)
	}
}

func TestX86_JZ_not_taken(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.setFlag(x86FlagZF, false)
	load(bus, 0, 0x74, 0x10) // JZ +16

	cpu.Step()
	if cpu.IP != 2 {
		t.Errorf("IP after JZ (not taken): got 0x%04X, want 0x0002", cpu.IP)
	}
}

func TestX86_CALL_RET(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SP = 0x1000
	load(bus, 0, 0xE8, 0x0A, 0x00) // CALL +10 (rel16)

	cpu.Step()
	if cpu.IP != 0x0D { // 3 + 10
		t.Errorf("IP after CALL: got 0x%04X, want 0x000D", cpu.IP)
	}
	if cpu.SP != 0x0FFE {
		t.Errorf("SP after CALL: got 0x%04X, want 0x0FFE", cpu.SP)
	}

	load(bus, 0x0D, 0xC3) // RET
	cpu.Step()
	if cpu.IP != 3 {
		t.Errorf("IP after RET: got 0x%04X, want 0x0003", cpu.IP)
	}
}

func TestX86_LOOP(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetCX(3)
	load(bus, 0, 0xE2, 0xFE) // LOOP -2

	cpu.Step()
	if cpu.CX() != 2 {
		t.Errorf("CX after first LOOP: got %d, want 2", cpu.CX())
	}
	if cpu.IP != 0 {
		t.Errorf("IP after first LOOP: got 0x%04X, want 0", cpu.IP)
	}

	cpu.Step()
	cpu.Step()
	if cpu.CX() != 0 {
		t.Errorf("CX should be 0, got %d", cpu.CX())
	}
	if cpu.IP != 2 {
		t.Errorf("IP after LOOP exit: got 0x%04X, want 0x0002", cpu.IP)
	}
}

func TestX86_IN_OUT(t *testing.T) {
	cpu, bus := newTestCPU()
	port := &testPort{byteIn: 0xAB}
	cpu.RegisterIOPort(0x80, port)

	cpu.SetAL(0x42)
	load(bus, 0, 0xE6, 0x80) // OUT 0x80, AL
	cpu.Step()
	if port.lastByteOut != 0x42 {
		t.Errorf("port 0x80 after OUT: got 0x%02X, want 0x42", port.lastByteOut)
	}

	cpu.SetAL(0)
	load(bus, 2, 0xE4, 0x80) // IN AL, 0x80
	cpu.Step()
	if cpu.AL() != 0xAB {
		t.Errorf("AL after IN: got 0x%02X, want 0xAB", cpu.AL())
	}
}

type testCallbackHandler struct {
	lastIndex uint16
	calls     int
}

func (h *testCallbackHandler) Run(index uint16) {
	h.lastIndex = index
	h.calls++
}

func TestX86_Grp4CallbackTrigger(t *testing.T) {
	cpu, bus := newTestCPU()
	handler := &testCallbackHandler{}
	cpu.SetCallbackHandler(handler)

	load(bus, 0, 0xFE, 0x38, 0x34, 0x12) // FE 38 <imm16>: callback index 0x1234
	cpu.Step()

	if handler.calls != 1 {
		t.Fatalf("callback calls: got %d, want 1", handler.calls)
	}
	if handler.lastIndex != 0x1234 {
		t.Errorf("callback index: got 0x%04X, want 0x1234", handler.lastIndex)
	}
	if cpu.IP != 4 {
		t.Errorf("IP after callback trigger: got 0x%04X, want 0x0004", cpu.IP)
	}
}

func TestX86_Grp4CallbackTriggerWithoutHandler(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0, 0xFE, 0x38, 0x34, 0x12)

	cpu.Step()
	if cpu.LastFault() != nil {
		t.Fatalf("unexpected fault with no callback handler installed: %v", cpu.LastFault())
	}
	if cpu.IP != 4 {
		t.Errorf("IP after callback trigger: got 0x%04X, want 0x0004", cpu.IP)
	}
}

func TestX86_SHL(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x01)
	load(bus, 0, 0xD0, 0xE0) // Grp2 Eb,1: SHL AL

	cpu.Step()
	if cpu.AL() != 0x02 {
		t.Errorf("SHL AL, 1: got 0x%02X, want 0x02", cpu.AL())
	}
}

func TestX86_SHR(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x80)
	load(bus, 0, 0xD0, 0xE8) // Grp2 Eb,1: SHR AL

	cpu.Step()
	if cpu.AL() != 0x40 {
		t.Errorf("SHR AL, 1: got 0x%02X, want 0x40", cpu.AL())
	}
}

func TestX86_LEA(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetBX(0x1000)
	cpu.SI = 0x0100
	load(bus, 0, 0x8D, 0x00) // LEA AX, [BX+SI]

	cpu.Step()
	if cpu.AX() != 0x1100 {
		t.Errorf("LEA AX, [BX+SI]: got 0x%04X, want 0x1100", cpu.AX())
	}
}

func TestX86_INC_DEC(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAX(0x10)
	load(bus, 0, 0x40, 0x48) // INC AX; DEC AX

	cpu.Step()
	if cpu.AX() != 0x11 {
		t.Errorf("INC AX: got 0x%04X, want 0x11", cpu.AX())
	}
	cpu.Step()
	if cpu.AX() != 0x10 {
		t.Errorf("DEC AX: got 0x%04X, want 0x10", cpu.AX())
	}
}

func TestX86_MOVS(t *testing.T) {
	cpu, bus := newTestCPU()
	load(bus, 0x1000, 0x11, 0x22)
	cpu.SI = 0x1000
	cpu.DI = 0x2000
	cpu.setFlag(x86FlagDF, false)
	load(bus, 0, 0xA5) // MOVSW

	cpu.Step()
	if bus.Read8(0x2000) != 0x11 || bus.Read8(0x2001) != 0x22 {
		t.Error("MOVSW: data not copied correctly")
	}
	if cpu.SI != 0x1002 {
		t.Errorf("SI after MOVSW: got 0x%04X, want 0x1002", cpu.SI)
	}
	if cpu.DI != 0x2002 {
		t.Errorf("DI after MOVSW: got 0x%04X, want 0x2002", cpu.DI)
	}
}

func TestX86_STOS(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAX(0xBEEF)
	cpu.DI = 0x2000
	cpu.setFlag(x86FlagDF, false)
	load(bus, 0, 0xAB) // STOSW

	cpu.Step()
	if bus.Read8(0x2000) != 0xEF || bus.Read8(0x2001) != 0xBE {
		t.Error("STOSW: data not stored correctly")
	}
}

func TestX86_REP_STOSB(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0xFF)
	cpu.DI = 0x2000
	cpu.SetCX(4)
	cpu.setFlag(x86FlagDF, false)
	load(bus, 0, 0xF3, 0xAA) // REP STOSB

	cpu.Step()
	for i := uint32(0); i < 4; i++ {
		if bus.Read8(0x2000+i) != 0xFF {
			t.Errorf("REP STOSB: memory[0x%X] = 0x%02X, want 0xFF", 0x2000+i, bus.Read8(0x2000+i))
		}
	}
	if cpu.CX() != 0 {
		t.Errorf("CX after REP STOSB: got %d, want 0", cpu.CX())
	}
}

func TestX86_MUL(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAL(0x10)
	cpu.SetBL(0x10)
	load(bus, 0, 0xF6, 0xE3) // Grp3 Eb: MUL BL

	cpu.Step()
	if cpu.AX() != 0x0100 {
		t.Errorf("MUL BL: AX got 0x%04X, want 0x0100", cpu.AX())
	}
}

func TestX86_DIV(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.SetAX(0x0064) // 100
	cpu.SetCL(0x0A)   // 10
	load(bus, 0, 0xF6, 0xF1) // Grp3 Eb: DIV CL

	cpu.Step()
	if cpu.AL() != 0x0A {
		t.Errorf("DIV CL: AL (quotient) got 0x%02X, want 0x0A", cpu.AL())
	}
	if cpu.AH() != 0x00 {
		t.Errorf("DIV CL: AH (remainder) got 0x%02X, want 0x00", cpu.AH())
	}
}

// TestX86_DIVFaultRestartsAndDispatchesINT0 exercises the DIV-by-zero
// restart path: the faulting DIV must leave IP pointing at its own start so
// that the INT 0 handler's IRET resumes the DIV rather than skipping it.
func TestX86_DIVFaultRestartsAndDispatchesINT0(t *testing.T) {
	cpu, bus := newTestCPU()

	// IVT vector 0 -> handler at 0x0050, a single IRET.
	load(bus, 0, 0x50, 0x00, 0x00, 0x00)
	load(bus, 0x50, 0xCF) // IRET

	const divAddr = 0x0100
	cpu.CS, cpu.IP = 0, divAddr
	cpu.SetAX(0x0064) // 100
	cpu.SetCL(0x00)   // divisor 0 -> fault
	load(bus, divAddr, 0xF6, 0xF1) // Grp3 Eb: DIV CL

	cpu.Step()
	if cpu.LastFault() != nil {
		t.Fatalf("unexpected halt on divide fault: %v", cpu.LastFault())
	}
	if cpu.IP != 0x0050 {
		t.Fatalf("IP after DIV fault: got 0x%04X, want 0x0050 (INT 0 handler)", cpu.IP)
	}

	savedIP := bus.Read16(uint32(cpu.SP))
	if savedIP != divAddr {
		t.Errorf("IP pushed by INT 0: got 0x%04X, want 0x%04X (DIV's own start)", savedIP, divAddr)
	}

	cpu.Step() // IRET
	if cpu.IP != divAddr {
		t.Errorf("IP after IRET: got 0x%04X, want 0x%04X (back at the DIV)", cpu.IP, divAddr)
	}
}

// TestX86_ExternalInterruptServicedAtNextBoundary verifies that an
// interrupt latched mid-instruction is not serviced until the in-flight
// instruction completes.
func TestX86_ExternalInterruptServicedAtNextBoundary(t *testing.T) {
	cpu, bus := newTestCPU()

	// IVT vector 5 -> handler at 0x0060, a single IRET.
	load(bus, 5*4, 0x60, 0x00, 0x00, 0x00)
	load(bus, 0x60, 0xCF) // IRET

	cpu.setFlag(x86FlagIF, true)
	cpu.SetAX(0x0001)
	load(bus, 0, 0xB0, 0x02) // MOV AL, 2

	cpu.ExternalInterrupt(5)

	cpu.Step() // the in-flight MOV must complete untouched
	if cpu.AL() != 0x02 {
		t.Fatalf("MOV AL,2 did not complete before the interrupt was serviced: AL=0x%02X", cpu.AL())
	}
	if cpu.IP != 0x0060 {
		t.Fatalf("interrupt not serviced at the next boundary: IP got 0x%04X, want 0x0060", cpu.IP)
	}

	savedIP := bus.Read16(uint32(cpu.SP))
	if savedIP != 0x0002 {
		t.Errorf("IP pushed by external interrupt: got 0x%04X, want 0x0002 (after the MOV)", savedIP)
	}

	cpu.Step() // IRET
	if cpu.IP != 0x0002 {
		t.Errorf("IP after IRET: got 0x%04X, want 0x0002", cpu.IP)
	}
}

func TestX86_CLC_STC_CMC(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.setFlag(x86FlagCF, true)
	load(bus, 0, 0xF8, 0xF9, 0xF5) // CLC; STC; CMC

	cpu.Step()
	if cpu.CF() {
		t.Error("CLC: CF should be clear")
	}
	cpu.Step()
	if !cpu.CF() {
		t.Error("STC: CF should be set")
	}
	cpu.Step()
	if cpu.CF() {
		t.Error("CMC: CF should be clear (complement)")
	}
}

func TestX86_CLD_STD(t *testing.T) {
	cpu, bus := newTestCPU()
	cpu.setFlag(x86FlagDF, true)
	load(bus, 0, 0xFC, 0xFD) // CLD; STD

	cpu.Step()
	if cpu.DF() {
		t.Error("CLD: DF should be clear")
	}
	cpu.Step()
	if !cpu.DF() {
		t.Error("STD: DF should be set")
	}
}

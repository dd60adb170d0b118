// cpu_x86_ops.go - x86 CPU Instruction Implementations
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// aluGroup identifies which of the eight ADD/OR/ADC/SBB/AND/SUB/XOR/CMP
// operations a 0x00-0x3D opcode or a Grp1 sub-index selects.
type aluGroup byte

const (
	aluADD aluGroup = iota
	aluOR
	aluADC
	aluSBB
	aluAND
	aluSUB
	aluXOR
	aluCMP
)

func (c *CPU_X86) alu8(g aluGroup, a, b byte) byte {
	switch g {
	case aluADD:
		return c.add8(a, b)
	case aluOR:
		return c.or8(a, b)
	case aluADC:
		return c.adc8(a, b)
	case aluSBB:
		return c.sbb8(a, b)
	case aluAND:
		return c.and8(a, b)
	case aluSUB:
		return c.sub8(a, b)
	case aluXOR:
		return c.xor8(a, b)
	default: // aluCMP
		c.cmp8(a, b)
		return a
	}
}

func (c *CPU_X86) alu16(g aluGroup, a, b uint16) uint16 {
	switch g {
	case aluADD:
		return c.add16(a, b)
	case aluOR:
		return c.or16(a, b)
	case aluADC:
		return c.adc16(a, b)
	case aluSBB:
		return c.sbb16(a, b)
	case aluAND:
		return c.and16(a, b)
	case aluSUB:
		return c.sub16(a, b)
	case aluXOR:
		return c.xor16(a, b)
	default:
		c.cmp16(a, b)
		return a
	}
}

// aluEbGb etc. implement the six standard encodings shared by every
// ADD/OR/ADC/SBB/AND/SUB/XOR/CMP opcode block.
func (c *CPU_X86) aluEbGb(g aluGroup) {
	m := c.decodeModRM()
	result := c.alu8(g, c.getRm8(m), c.getRegField8(m))
	if g != aluCMP {
		c.setRm8(m, result)
	}
}

func (c *CPU_X86) aluEvGv(g aluGroup) {
	m := c.decodeModRM()
	result := c.alu16(g, c.getRm16(m), c.getRegField16(m))
	if g != aluCMP {
		c.setRm16(m, result)
	}
}

func (c *CPU_X86) aluGbEb(g aluGroup) {
	m := c.decodeModRM()
	result := c.alu8(g, c.getRegField8(m), c.getRm8(m))
	if g != aluCMP {
		c.setRegField8(m, result)
	}
}

func (c *CPU_X86) aluGvEv(g aluGroup) {
	m := c.decodeModRM()
	result := c.alu16(g, c.getRegField16(m), c.getRm16(m))
	if g != aluCMP {
		c.setRegField16(m, result)
	}
}

func (c *CPU_X86) aluALIb(g aluGroup) {
	b := c.fetch8()
	result := c.alu8(g, c.AL(), b)
	if g != aluCMP {
		c.SetAL(result)
	}
}

func (c *CPU_X86) aluAXIv(g aluGroup) {
	b := c.fetch16()
	result := c.alu16(g, c.AX(), b)
	if g != aluCMP {
		c.SetAX(result)
	}
}

// jccShort/jccNear evaluate a conditional-jump predicate and, if true,
// apply a signed displacement to workingIP.
func (c *CPU_X86) jccShort(taken bool) {
	disp := c.fetchSigned8()
	if taken {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

func (c *CPU_X86) jccNear(taken bool) {
	disp := int16(c.fetch16())
	if taken {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

// dispatch executes the one-byte (or 0x0F-escaped) opcode already fetched
// into opcode. An opcode this core does not recognize returns
// InvalidOpcodeError rather than panicking.
func (c *CPU_X86) dispatch(opcode byte) error {
	if opcode <= 0x3D && opcode&7 <= 5 {
		group := aluGroup(opcode >> 3)
		switch opcode & 7 {
		case 0:
			c.aluEbGb(group)
		case 1:
			c.aluEvGv(group)
		case 2:
			c.aluGbEb(group)
		case 3:
			c.aluGvEv(group)
		case 4:
			c.aluALIb(group)
		case 5:
			c.aluAXIv(group)
		}
		return nil
	}

	switch opcode {
	// --- segment register PUSH/POP (ADD/OR/ADC/SBB blocks' +6/+7 slots) ---
	case 0x06:
		c.push16(c.ES)
	case 0x07:
		c.ES = c.pop16()
	case 0x0E:
		c.push16(c.CS)
	case 0x16:
		c.push16(c.SS)
	case 0x17:
		c.SS = c.pop16()
	case 0x1E:
		c.push16(c.DS)
	case 0x1F:
		c.DS = c.pop16()

	// --- decimal adjust (rare in DOS binaries but single-byte, so kept
	// for completeness) ---
	case 0x27:
		c.opDAA()
	case 0x2F:
		c.opDAS()
	case 0x37:
		c.opAAA()
	case 0x3F:
		c.opAAS()

	case 0x0F:
		return c.dispatch0F()

	// --- INC/DEC reg16 (0x40-0x4F) ---
	case 0x40, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47:
		i := opcode - 0x40
		c.setReg16(i, c.inc16(c.getReg16(i)))
	case 0x48, 0x49, 0x4A, 0x4B, 0x4C, 0x4D, 0x4E, 0x4F:
		i := opcode - 0x48
		c.setReg16(i, c.dec16(c.getReg16(i)))

	// --- PUSH/POP reg16 (0x50-0x5F) ---
	case 0x50, 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57:
		c.push16(c.getReg16(opcode - 0x50))
	case 0x58, 0x59, 0x5A, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F:
		c.setReg16(opcode-0x58, c.pop16())

	// --- PUSHA/POPA (80186+) ---
	case 0x60:
		c.opPUSHA()
	case 0x61:
		c.opPOPA()

	// BOUND/ARPL are protected-mode adjacent and out of scope; they fall
	// through to InvalidOpcodeError below.

	// --- immediate PUSH/IMUL (80186+) ---
	case 0x68:
		c.push16(c.fetch16())
	case 0x6A:
		c.push16(uint16(int16(c.fetchSigned8())))
	case 0x69:
		c.opIMUL_Gv_Ev_Iv()
	case 0x6B:
		c.opIMUL_Gv_Ev_Ib()

	// --- INS/OUTS (0x6C-0x6F): string I/O, part of the REP-able set ---
	case 0x6C:
		return c.strINSB()
	case 0x6D:
		return c.strINSW()
	case 0x6E:
		return c.strOUTSB()
	case 0x6F:
		return c.strOUTSW()

	// --- Jcc short (0x70-0x7F) ---
	case 0x70:
		c.jccShort(c.OF())
	case 0x71:
		c.jccShort(!c.OF())
	case 0x72:
		c.jccShort(c.CF())
	case 0x73:
		c.jccShort(!c.CF())
	case 0x74:
		c.jccShort(c.ZF())
	case 0x75:
		c.jccShort(!c.ZF())
	case 0x76:
		c.jccShort(c.CF() || c.ZF())
	case 0x77:
		c.jccShort(!c.CF() && !c.ZF())
	case 0x78:
		c.jccShort(c.SF())
	case 0x79:
		c.jccShort(!c.SF())
	case 0x7A:
		c.jccShort(c.PF())
	case 0x7B:
		c.jccShort(!c.PF())
	case 0x7C:
		c.jccShort(c.SF() != c.OF())
	case 0x7D:
		c.jccShort(c.SF() == c.OF())
	case 0x7E:
		c.jccShort(c.ZF() || c.SF() != c.OF())
	case 0x7F:
		c.jccShort(!c.ZF() && c.SF() == c.OF())

	// --- Grp1 immediate ALU (0x80-0x83) ---
	case 0x80:
		return c.opGrp1_Eb_Ib()
	case 0x81:
		return c.opGrp1_Ev_Iv()
	case 0x82:
		return c.opGrp1_Eb_Ib() // undocumented alias of 0x80 on real silicon
	case 0x83:
		return c.opGrp1_Ev_Ib()

	// --- TEST/XCHG (0x84-0x87) ---
	case 0x84:
		m := c.decodeModRM()
		c.test8(c.getRm8(m), c.getRegField8(m))
	case 0x85:
		m := c.decodeModRM()
		c.test16(c.getRm16(m), c.getRegField16(m))
	case 0x86:
		m := c.decodeModRM()
		a, b := c.getRm8(m), c.getRegField8(m)
		c.setRm8(m, b)
		c.setRegField8(m, a)
	case 0x87:
		m := c.decodeModRM()
		a, b := c.getRm16(m), c.getRegField16(m)
		c.setRm16(m, b)
		c.setRegField16(m, a)

	// --- MOV family (0x88-0x8E) ---
	case 0x88:
		m := c.decodeModRM()
		c.setRm8(m, c.getRegField8(m))
	case 0x89:
		m := c.decodeModRM()
		c.setRm16(m, c.getRegField16(m))
	case 0x8A:
		m := c.decodeModRM()
		c.setRegField8(m, c.getRm8(m))
	case 0x8B:
		m := c.decodeModRM()
		c.setRegField16(m, c.getRm16(m))
	case 0x8C:
		m := c.decodeModRM()
		c.setRm16(m, c.getSegReg(m.reg))
	case 0x8D:
		m := c.decodeModRM()
		_, offset, ok := c.getMemoryAddress(m)
		if !ok {
			return &InvalidOpcodeError{Opcode: opcode, State: c.snapshot()}
		}
		c.setRegField16(m, offset)
	case 0x8E:
		m := c.decodeModRM()
		c.setSegReg(m.reg, c.getRm16(m))
	case 0x8F:
		return c.opGrp5_pop()

	// --- NOP / XCHG AX,r16 (0x90-0x97) ---
	case 0x90:
		// NOP
	case 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97:
		i := opcode - 0x90
		a, b := c.AX(), c.getReg16(i)
		c.SetAX(b)
		c.setReg16(i, a)

	case 0x98:
		c.SetAX(uint16(int16(int8(c.AL()))))
	case 0x99:
		if c.AX()&0x8000 != 0 {
			c.SetDX(0xFFFF)
		} else {
			c.SetDX(0)
		}
	case 0x9A:
		return c.opCALLF()
	case 0x9B:
		// WAIT: no-op with no x87 present.
	case 0x9C:
		c.push16(c.Flags)
	case 0x9D:
		c.Flags = c.pop16() | x86FlagsFixedOnes
	case 0x9E:
		ah := c.AH()
		c.Flags = c.Flags&0xFF00 | uint16(ah)
	case 0x9F:
		c.SetAH(byte(c.Flags))

	// --- MOV moffs (0xA0-0xA3) ---
	case 0xA0:
		off := c.fetch16()
		c.SetAL(c.readMem8(segDS, true, off))
	case 0xA1:
		off := c.fetch16()
		c.SetAX(c.readMem16(segDS, true, off))
	case 0xA2:
		off := c.fetch16()
		c.writeMem8(segDS, true, off, c.AL())
	case 0xA3:
		off := c.fetch16()
		c.writeMem16(segDS, true, off, c.AX())

	// --- string instructions (0xA4-0xA7, 0xAA-0xAF) ---
	case 0xA4:
		return c.strMOVSB()
	case 0xA5:
		return c.strMOVSW()
	case 0xA6:
		return c.strCMPSB()
	case 0xA7:
		return c.strCMPSW()
	case 0xA8:
		c.test8(c.AL(), c.fetch8())
	case 0xA9:
		c.test16(c.AX(), c.fetch16())
	case 0xAA:
		return c.strSTOSB()
	case 0xAB:
		return c.strSTOSW()
	case 0xAC:
		return c.strLODSB()
	case 0xAD:
		return c.strLODSW()
	case 0xAE:
		return c.strSCASB()
	case 0xAF:
		return c.strSCASW()

	// --- MOV reg, imm (0xB0-0xBF) ---
	case 0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5, 0xB6, 0xB7:
		c.setReg8(opcode-0xB0, c.fetch8())
	case 0xB8, 0xB9, 0xBA, 0xBB, 0xBC, 0xBD, 0xBE, 0xBF:
		c.setReg16(opcode-0xB8, c.fetch16())

	// --- Grp2 shift/rotate by imm8 count (80186+) ---
	case 0xC0:
		return c.opGrp2_Eb_Ib()
	case 0xC1:
		return c.opGrp2_Ev_Ib()

	case 0xC2:
		delta := c.fetch16()
		c.workingIP = c.pop16()
		c.SP += delta
		c.funcHandler.ret(CallNear, c.CS, c.workingIP)
	case 0xC3:
		c.workingIP = c.pop16()
		c.funcHandler.ret(CallNear, c.CS, c.workingIP)
	case 0xC4:
		return c.opLES()
	case 0xC5:
		return c.opLDS()
	case 0xC6:
		return c.opMOV_Eb_Ib()
	case 0xC7:
		return c.opMOV_Ev_Iv()
	case 0xC8:
		return c.opENTER()
	case 0xC9:
		c.SP = c.BP
		c.BP = c.pop16()
	case 0xCA:
		delta := c.fetch16()
		returnIP := c.pop16()
		returnCS := c.pop16()
		c.SP += delta
		c.workingIP, c.CS = returnIP, returnCS
		c.funcHandler.ret(CallFar, c.CS, c.workingIP)
	case 0xCB:
		returnIP := c.pop16()
		returnCS := c.pop16()
		c.workingIP, c.CS = returnIP, returnCS
		c.funcHandler.ret(CallFar, c.CS, c.workingIP)
	case 0xCC:
		return c.interrupt(3, false)
	case 0xCD:
		vector := c.fetch8()
		return c.interrupt(vector, false)
	case 0xCE:
		if c.OF() {
			return c.interrupt(4, false)
		}
	case 0xCF:
		c.iret()

	// --- Grp2 shift/rotate by 1 or CL (0xD0-0xD3) ---
	case 0xD0:
		return c.opGrp2_Eb_1()
	case 0xD1:
		return c.opGrp2_Ev_1()
	case 0xD2:
		return c.opGrp2_Eb_CL()
	case 0xD3:
		return c.opGrp2_Ev_CL()

	case 0xD4:
		return c.opAAM()
	case 0xD5:
		return c.opAAD()
	case 0xD6:
		// SALC: undocumented, single byte, harmless to support.
		if c.CF() {
			c.SetAL(0xFF)
		} else {
			c.SetAL(0x00)
		}
	case 0xD7:
		off := c.BX() + uint16(c.AL())
		c.SetAL(c.readMem8(segDS, true, off))

	case 0xD8, 0xD9, 0xDA, 0xDB, 0xDC, 0xDD, 0xDE, 0xDF:
		return c.dispatchFPU(opcode)

	case 0xE0:
		c.opLOOPNE()
	case 0xE1:
		c.opLOOPE()
	case 0xE2:
		c.opLOOP()
	case 0xE3:
		c.opJCXZ()

	case 0xE4:
		port := uint16(c.fetch8())
		v, err := c.in8(port)
		if err != nil {
			return err
		}
		c.SetAL(v)
	case 0xE5:
		port := uint16(c.fetch8())
		v, err := c.in16(port)
		if err != nil {
			return err
		}
		c.SetAX(v)
	case 0xE6:
		port := uint16(c.fetch8())
		return c.out8(port, c.AL())
	case 0xE7:
		port := uint16(c.fetch8())
		return c.out16(port, c.AX())

	case 0xE8:
		return c.opCALLNear()
	case 0xE9:
		disp := int16(c.fetch16())
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	case 0xEA:
		newIP := c.fetch16()
		newCS := c.fetch16()
		c.workingIP, c.CS = newIP, newCS
	case 0xEB:
		disp := int16(c.fetchSigned8())
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))

	case 0xEC:
		v, err := c.in8(c.DX())
		if err != nil {
			return err
		}
		c.SetAL(v)
	case 0xED:
		v, err := c.in16(c.DX())
		if err != nil {
			return err
		}
		c.SetAX(v)
	case 0xEE:
		return c.out8(c.DX(), c.AL())
	case 0xEF:
		return c.out16(c.DX(), c.AX())

	case 0xF4:
		c.Halted = true
	case 0xF5:
		c.setFlag(x86FlagCF, !c.CF())

	case 0xF6:
		return c.opGrp3_Eb()
	case 0xF7:
		return c.opGrp3_Ev()

	case 0xF8:
		c.setFlag(x86FlagCF, false)
	case 0xF9:
		c.setFlag(x86FlagCF, true)
	case 0xFA:
		c.setFlag(x86FlagIF, false)
	case 0xFB:
		c.setFlag(x86FlagIF, true)
	case 0xFC:
		c.setFlag(x86FlagDF, false)
	case 0xFD:
		c.setFlag(x86FlagDF, true)

	case 0xFE:
		return c.opGrp4_Eb()
	case 0xFF:
		return c.opGrp5_Ev()

	default:
		return &InvalidOpcodeError{Opcode: opcode, AfterPrefix: len(c.prefixBytes) > 1, State: c.snapshot()}
	}
	return nil
}

// --- decimal adjust ---------------------------------------------------------

func (c *CPU_X86) opDAA() {
	al, cf, af := c.AL(), c.CF(), c.AF()
	if al&0x0F > 9 || af {
		al += 6
		c.setFlag(x86FlagCF, cf || al < 6)
		c.setFlag(x86FlagAF, true)
	} else {
		c.setFlag(x86FlagAF, false)
	}
	if c.AL() > 0x99 || cf {
		al += 0x60
		c.setFlag(x86FlagCF, true)
	} else {
		c.setFlag(x86FlagCF, false)
	}
	c.SetAL(al)
	c.setFlag(x86FlagZF, al == 0)
	c.setFlag(x86FlagSF, al&0x80 != 0)
	c.setFlag(x86FlagPF, parity(al))
}

func (c *CPU_X86) opDAS() {
	al, cf, af := c.AL(), c.CF(), c.AF()
	if al&0x0F > 9 || af {
		al -= 6
		c.setFlag(x86FlagCF, cf || c.AL() < 6)
		c.setFlag(x86FlagAF, true)
	} else {
		c.setFlag(x86FlagAF, false)
	}
	if c.AL() > 0x99 || cf {
		al -= 0x60
		c.setFlag(x86FlagCF, true)
	}
	c.SetAL(al)
	c.setFlag(x86FlagZF, al == 0)
	c.setFlag(x86FlagSF, al&0x80 != 0)
	c.setFlag(x86FlagPF, parity(al))
}

func (c *CPU_X86) opAAA() {
	if c.AL()&0x0F > 9 || c.AF() {
		c.SetAX(c.AX() + 0x106)
		c.setFlag(x86FlagAF, true)
		c.setFlag(x86FlagCF, true)
	} else {
		c.setFlag(x86FlagAF, false)
		c.setFlag(x86FlagCF, false)
	}
	c.SetAL(c.AL() & 0x0F)
}

func (c *CPU_X86) opAAS() {
	if c.AL()&0x0F > 9 || c.AF() {
		c.SetAX(c.AX() - 6)
		c.SetAH(c.AH() - 1)
		c.setFlag(x86FlagAF, true)
		c.setFlag(x86FlagCF, true)
	} else {
		c.setFlag(x86FlagAF, false)
		c.setFlag(x86FlagCF, false)
	}
	c.SetAL(c.AL() & 0x0F)
}

func (c *CPU_X86) opAAM() error {
	base := c.fetch8()
	if base == 0 {
		return &DivisionFaultError{State: c.snapshot()}
	}
	al := c.AL()
	c.SetAH(al / base)
	c.SetAL(al % base)
	c.setFlag(x86FlagZF, c.AL() == 0)
	c.setFlag(x86FlagSF, c.AL()&0x80 != 0)
	c.setFlag(x86FlagPF, parity(c.AL()))
	return nil
}

func (c *CPU_X86) opAAD() error {
	base := c.fetch8()
	al := c.AH()*base + c.AL()
	c.SetAL(al)
	c.SetAH(0)
	c.setFlag(x86FlagZF, al == 0)
	c.setFlag(x86FlagSF, al&0x80 != 0)
	c.setFlag(x86FlagPF, parity(al))
	return nil
}

// --- PUSHA/POPA (80186+) ----------------------------------------------------

func (c *CPU_X86) opPUSHA() {
	sp := c.SP
	c.push16(c.AX())
	c.push16(c.CX())
	c.push16(c.DX())
	c.push16(c.BX())
	c.push16(sp)
	c.push16(c.BP)
	c.push16(c.SI)
	c.push16(c.DI)
}

func (c *CPU_X86) opPOPA() {
	c.DI = c.pop16()
	c.SI = c.pop16()
	c.BP = c.pop16()
	c.pop16() // discard saved SP
	c.SetBX(c.pop16())
	c.SetDX(c.pop16())
	c.SetCX(c.pop16())
	c.SetAX(c.pop16())
}

// --- ENTER (80186+) ----------------------------------------------------------

func (c *CPU_X86) opENTER() error {
	size := c.fetch16()
	nesting := c.fetch8() & 0x1F
	c.push16(c.BP)
	frameTemp := c.SP
	if nesting > 0 {
		bp := c.BP
		for i := byte(1); i < nesting; i++ {
			bp -= 2
			c.push16(c.readMem16(segSS, false, bp))
		}
		c.push16(frameTemp)
	}
	c.BP = frameTemp
	c.SP -= size
	return nil
}

// --- far pointer loads --------------------------------------------------

func (c *CPU_X86) opLES() error {
	m := c.decodeModRM()
	seg, offset, ok := c.getMemoryAddress(m)
	if !ok {
		return &InvalidOpcodeError{Opcode: 0xC4, State: c.snapshot()}
	}
	addr := physical(seg, offset)
	c.setRegField16(m, c.bus.Read16(addr))
	c.ES = c.bus.Read16(addr + 2)
	return nil
}

func (c *CPU_X86) opLDS() error {
	m := c.decodeModRM()
	seg, offset, ok := c.getMemoryAddress(m)
	if !ok {
		return &InvalidOpcodeError{Opcode: 0xC5, State: c.snapshot()}
	}
	addr := physical(seg, offset)
	c.setRegField16(m, c.bus.Read16(addr))
	c.DS = c.bus.Read16(addr + 2)
	return nil
}

// --- immediate MOV to r/m ------------------------------------------------

func (c *CPU_X86) opMOV_Eb_Ib() error {
	m := c.decodeModRM()
	c.setRm8(m, c.fetch8())
	return nil
}

func (c *CPU_X86) opMOV_Ev_Iv() error {
	m := c.decodeModRM()
	c.setRm16(m, c.fetch16())
	return nil
}

// --- IMUL with immediate -------------------------------------------------

func (c *CPU_X86) opIMUL_Gv_Ev_Iv() {
	m := c.decodeModRM()
	rm := int16(c.getRm16(m))
	imm := int16(c.fetch16())
	result := int32(rm) * int32(imm)
	c.setRegField16(m, uint16(result))
	overflow := int32(int16(uint16(result))) != result
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
}

func (c *CPU_X86) opIMUL_Gv_Ev_Ib() {
	m := c.decodeModRM()
	rm := int16(c.getRm16(m))
	imm := int16(c.fetchSigned8())
	result := int32(rm) * int32(imm)
	c.setRegField16(m, uint16(result))
	overflow := int32(int16(uint16(result))) != result
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
}

// --- CALL variants, integrated with the function-tracking subsystem -------

func (c *CPU_X86) opCALLNear() error {
	disp := int16(c.fetch16())
	target := uint16(int32(c.workingIP) + int32(disp))
	c.push16(c.workingIP)
	if !c.recordCallAndMaybeOverride(CallNear, c.CS, target) {
		c.workingIP = target
	}
	return nil
}

func (c *CPU_X86) opCALLF() error {
	targetIP := c.fetch16()
	targetCS := c.fetch16()
	c.push16(c.CS)
	c.push16(c.workingIP)
	if !c.recordCallAndMaybeOverride(CallFar, targetCS, targetIP) {
		c.CS, c.workingIP = targetCS, targetIP
	}
	return nil
}

// --- LOOP family -----------------------------------------------------------

func (c *CPU_X86) opLOOP() {
	disp := c.fetchSigned8()
	c.SetCX(c.CX() - 1)
	if c.CX() != 0 {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

func (c *CPU_X86) opLOOPE() {
	disp := c.fetchSigned8()
	c.SetCX(c.CX() - 1)
	if c.CX() != 0 && c.ZF() {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

func (c *CPU_X86) opLOOPNE() {
	disp := c.fetchSigned8()
	c.SetCX(c.CX() - 1)
	if c.CX() != 0 && !c.ZF() {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

func (c *CPU_X86) opJCXZ() {
	disp := c.fetchSigned8()
	if c.CX() == 0 {
		c.workingIP = uint16(int32(c.workingIP) + int32(disp))
	}
}

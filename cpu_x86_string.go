// cpu_x86_string.go - string instruction primitives and REP restart/loop
// semantics
//
// Destination writes route through ES unconditionally (not overridable)
// and source reads route through DS (overridable). REP looping is handed
// off to a dedicated execRepString that Step() calls on a REPNZ/REPZ
// restart instead of letting each string op loop internally.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func (c *CPU_X86) stringStep() int16 {
	if c.DF() {
		return -1
	}
	return 1
}

func (c *CPU_X86) strMOVSB() error {
	step := c.stringStep()
	v := c.readMem8(segDS, true, c.SI)
	c.writeMem8(segES, false, c.DI, v)
	c.SI = uint16(int32(c.SI) + int32(step))
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strMOVSW() error {
	step := c.stringStep() * 2
	v := c.readMem16(segDS, true, c.SI)
	c.writeMem16(segES, false, c.DI, v)
	c.SI = uint16(int32(c.SI) + int32(step))
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strSTOSB() error {
	step := c.stringStep()
	c.writeMem8(segES, false, c.DI, c.AL())
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strSTOSW() error {
	step := c.stringStep() * 2
	c.writeMem16(segES, false, c.DI, c.AX())
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strLODSB() error {
	step := c.stringStep()
	c.SetAL(c.readMem8(segDS, true, c.SI))
	c.SI = uint16(int32(c.SI) + int32(step))
	return nil
}

func (c *CPU_X86) strLODSW() error {
	step := c.stringStep() * 2
	c.SetAX(c.readMem16(segDS, true, c.SI))
	c.SI = uint16(int32(c.SI) + int32(step))
	return nil
}

// strCMPSB/strCMPSW/strSCASB/strSCASW compare and additionally report the
// resulting ZF via continueZeroFlag, so execRepString's early-exit check
// can see it without re-reading FLAGS through a second path.
func (c *CPU_X86) strCMPSB() error {
	step := c.stringStep()
	a := c.readMem8(segDS, true, c.SI)
	b := c.readMem8(segES, false, c.DI)
	c.cmp8(a, b)
	c.SI = uint16(int32(c.SI) + int32(step))
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strCMPSW() error {
	step := c.stringStep() * 2
	a := c.readMem16(segDS, true, c.SI)
	b := c.readMem16(segES, false, c.DI)
	c.cmp16(a, b)
	c.SI = uint16(int32(c.SI) + int32(step))
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strSCASB() error {
	step := c.stringStep()
	b := c.readMem8(segES, false, c.DI)
	c.cmp8(c.AL(), b)
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strSCASW() error {
	step := c.stringStep() * 2
	b := c.readMem16(segES, false, c.DI)
	c.cmp16(c.AX(), b)
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strINSB() error {
	step := c.stringStep()
	v, err := c.in8(c.DX())
	if err != nil {
		return err
	}
	c.writeMem8(segES, false, c.DI, v)
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strINSW() error {
	step := c.stringStep() * 2
	v, err := c.in16(c.DX())
	if err != nil {
		return err
	}
	c.writeMem16(segES, false, c.DI, v)
	c.DI = uint16(int32(c.DI) + int32(step))
	return nil
}

func (c *CPU_X86) strOUTSB() error {
	step := c.stringStep()
	v := c.readMem8(segDS, true, c.SI)
	if err := c.out8(c.DX(), v); err != nil {
		return err
	}
	c.SI = uint16(int32(c.SI) + int32(step))
	return nil
}

func (c *CPU_X86) strOUTSW() error {
	step := c.stringStep() * 2
	v := c.readMem16(segDS, true, c.SI)
	if err := c.out16(c.DX(), v); err != nil {
		return err
	}
	c.SI = uint16(int32(c.SI) + int32(step))
	return nil
}

// isCompareStringOpcode reports whether opcode is CMPS or SCAS, the only
// two string opcodes whose REP loop can exit early on a ZF mismatch.
func isCompareStringOpcode(op byte) bool {
	switch op {
	case 0xA6, 0xA7, 0xAE, 0xAF:
		return true
	default:
		return false
	}
}

// execRepString implements the REP/REPNZ/REPZ restart-and-loop semantics:
// while CX != 0, execute one string primitive, decrement CX, and — for
// CMPS/SCAS only — stop as soon as ZF no longer matches the tri-state
// continueZeroFlag the active prefix selected. Every iteration is
// dispatched through the normal opcode handler so its memory accesses go
// through the recorder exactly like an unprefixed string instruction
// would.
func (c *CPU_X86) execRepString(opcode byte) error {
	for {
		if c.CX() == 0 {
			return nil
		}
		if err := c.execStringPrimitive(opcode); err != nil {
			return err
		}
		c.SetCX(c.CX() - 1)

		if isCompareStringOpcode(opcode) {
			want := c.continueZeroFlag == zfTrue
			if c.ZF() != want {
				return nil
			}
		}
	}
}

func (c *CPU_X86) execStringPrimitive(opcode byte) error {
	switch opcode {
	case 0xA4:
		return c.strMOVSB()
	case 0xA5:
		return c.strMOVSW()
	case 0xA6:
		return c.strCMPSB()
	case 0xA7:
		return c.strCMPSW()
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
	case 0x6C:
		return c.strINSB()
	case 0x6D:
		return c.strINSW()
	case 0x6E:
		return c.strOUTSB()
	case 0x6F:
		return c.strOUTSW()
	default:
		return &InvalidOpcodeError{Opcode: opcode, AfterPrefix: true, State: c.snapshot()}
	}
}

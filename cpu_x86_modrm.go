// cpu_x86_modrm.go - ModR/M effective-address decoder
//
// Combines segment:offset properly rather than treating the machine as
// flat-addressed.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// modrm holds a decoded ModR/M byte and, for memory operands, the resolved
// offset and the segment it should be read through.
type modrm struct {
	mod, reg, rm byte
	isMemory     bool
	offset       uint16
	segDefault   segOverride
	overridable  bool
}

// decodeModRM consumes the ModR/M byte (and any displacement) from the
// instruction stream using the classic 16-bit addressing table.
func (c *CPU_X86) decodeModRM() modrm {
	b := c.fetch8()
	m := modrm{mod: b >> 6, reg: (b >> 3) & 7, rm: b & 7}

	if m.mod == 3 {
		return m // register-direct: no memory operand
	}
	m.isMemory = true
	m.segDefault = segDS
	m.overridable = true

	var base uint16
	switch m.rm {
	case 0:
		base = c.BX() + c.SI
	case 1:
		base = c.BX() + c.DI
	case 2:
		base = c.BP + c.SI
		m.segDefault = segSS
	case 3:
		base = c.BP + c.DI
		m.segDefault = segSS
	case 4:
		base = c.SI
	case 5:
		base = c.DI
	case 6:
		if m.mod == 0 {
			base = c.fetch16() // disp16, no base register
			m.segDefault = segDS
			m.offset = base
			return m
		}
		base = c.BP
		m.segDefault = segSS
	case 7:
		base = c.BX()
	}

	switch m.mod {
	case 1:
		base += uint16(int16(c.fetchSigned8()))
	case 2:
		base += c.fetch16()
	}
	m.offset = base
	return m
}

// getRm8/setRm8/getRm16/setRm16 read or write the r/m operand a decoded
// ModR/M byte selects, honoring an active segment-override prefix for
// memory operands.
func (c *CPU_X86) getRm8(m modrm) byte {
	if !m.isMemory {
		return c.getReg8(m.rm)
	}
	return c.readMem8(m.segDefault, m.overridable, m.offset)
}

func (c *CPU_X86) setRm8(m modrm, v byte) {
	if !m.isMemory {
		c.setReg8(m.rm, v)
		return
	}
	c.writeMem8(m.segDefault, m.overridable, m.offset, v)
}

func (c *CPU_X86) getRm16(m modrm) uint16 {
	if !m.isMemory {
		return c.getReg16(m.rm)
	}
	return c.readMem16(m.segDefault, m.overridable, m.offset)
}

func (c *CPU_X86) setRm16(m modrm, v uint16) {
	if !m.isMemory {
		c.setReg16(m.rm, v)
		return
	}
	c.writeMem16(m.segDefault, m.overridable, m.offset, v)
}

// getMemoryAddress returns the resolved (segment, offset) for a memory
// operand, or ok=false when the ModR/M byte selected a register directly.
func (c *CPU_X86) getMemoryAddress(m modrm) (segment, offset uint16, ok bool) {
	if !m.isMemory {
		return 0, 0, false
	}
	return c.effectiveSegment(m.segDefault, m.overridable), m.offset, true
}

func (c *CPU_X86) getRegField8(m modrm) byte     { return c.getReg8(m.reg) }
func (c *CPU_X86) setRegField8(m modrm, v byte)  { c.setReg8(m.reg, v) }
func (c *CPU_X86) getRegField16(m modrm) uint16  { return c.getReg16(m.reg) }
func (c *CPU_X86) setRegField16(m modrm, v uint16) { c.setReg16(m.reg, v) }

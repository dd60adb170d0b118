// cpu_x86_alu.go - arithmetic/logic primitives with exact flag side effects
//
// ADD/ADC/SUB/SBB/CMP/MUL/IMUL/DIV/IDIV all share one flag contract:
// auxiliary-carry via a nibble chain, XOR-based signed-overflow detection,
// and undefined-but-deterministic AF on logic ops.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

func addSubOverflow8(a, b, result byte, isSub bool) bool {
	signA, signB, signR := a&0x80 != 0, b&0x80 != 0, result&0x80 != 0
	if isSub {
		return signA != signB && signR != signA
	}
	return signA == signB && signR != signA
}

func addSubOverflow16(a, b, result uint16, isSub bool) bool {
	signA, signB, signR := a&0x8000 != 0, b&0x8000 != 0, result&0x8000 != 0
	if isSub {
		return signA != signB && signR != signA
	}
	return signA == signB && signR != signA
}

func (c *CPU_X86) setArithFlags8(a, b, result byte, carry, isSub bool) {
	c.setFlag(x86FlagCF, carry)
	c.setFlag(x86FlagAF, (a^b^result)&0x10 != 0)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x80 != 0)
	c.setFlag(x86FlagPF, parity(result))
	c.setFlag(x86FlagOF, addSubOverflow8(a, b, result, isSub))
}

func (c *CPU_X86) setArithFlags16(a, b, result uint16, carry, isSub bool) {
	c.setFlag(x86FlagCF, carry)
	c.setFlag(x86FlagAF, (a^b^result)&0x10 != 0)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x8000 != 0)
	c.setFlag(x86FlagPF, parity(byte(result)))
	c.setFlag(x86FlagOF, addSubOverflow16(a, b, result, isSub))
}

func (c *CPU_X86) add8(a, b byte) byte {
	result := a + b
	c.setArithFlags8(a, b, result, uint16(a)+uint16(b) > 0xFF, false)
	return result
}

func (c *CPU_X86) add16(a, b uint16) uint16 {
	result := a + b
	c.setArithFlags16(a, b, result, uint32(a)+uint32(b) > 0xFFFF, false)
	return result
}

func (c *CPU_X86) adc8(a, b byte) byte {
	carryIn := byte(0)
	if c.CF() {
		carryIn = 1
	}
	result := a + b + carryIn
	c.setArithFlags8(a, b, result, uint16(a)+uint16(b)+uint16(carryIn) > 0xFF, false)
	return result
}

func (c *CPU_X86) adc16(a, b uint16) uint16 {
	carryIn := uint16(0)
	if c.CF() {
		carryIn = 1
	}
	result := a + b + carryIn
	c.setArithFlags16(a, b, result, uint32(a)+uint32(b)+uint32(carryIn) > 0xFFFF, false)
	return result
}

func (c *CPU_X86) sub8(a, b byte) byte {
	result := a - b
	c.setArithFlags8(a, b, result, a < b, true)
	return result
}

func (c *CPU_X86) sub16(a, b uint16) uint16 {
	result := a - b
	c.setArithFlags16(a, b, result, a < b, true)
	return result
}

func (c *CPU_X86) sbb8(a, b byte) byte {
	borrowIn := byte(0)
	if c.CF() {
		borrowIn = 1
	}
	result := a - b - borrowIn
	c.setArithFlags8(a, b, result, uint16(a) < uint16(b)+uint16(borrowIn), true)
	return result
}

func (c *CPU_X86) sbb16(a, b uint16) uint16 {
	borrowIn := uint16(0)
	if c.CF() {
		borrowIn = 1
	}
	result := a - b - borrowIn
	c.setArithFlags16(a, b, result, uint32(a) < uint32(b)+uint32(borrowIn), true)
	return result
}

// cmp8/16 perform a subtraction for flags only — no write-back.
func (c *CPU_X86) cmp8(a, b byte)   { c.sub8(a, b) }
func (c *CPU_X86) cmp16(a, b uint16) { c.sub16(a, b) }

// inc/dec behave like add/sub of 1 but must not modify CF.
func (c *CPU_X86) inc8(a byte) byte {
	saved := c.CF()
	result := c.add8(a, 1)
	c.setFlag(x86FlagCF, saved)
	return result
}

func (c *CPU_X86) inc16(a uint16) uint16 {
	saved := c.CF()
	result := c.add16(a, 1)
	c.setFlag(x86FlagCF, saved)
	return result
}

func (c *CPU_X86) dec8(a byte) byte {
	saved := c.CF()
	result := c.sub8(a, 1)
	c.setFlag(x86FlagCF, saved)
	return result
}

func (c *CPU_X86) dec16(a uint16) uint16 {
	saved := c.CF()
	result := c.sub16(a, 1)
	c.setFlag(x86FlagCF, saved)
	return result
}

func (c *CPU_X86) and8(a, b byte) byte   { r := a & b; c.setLogicFlags8(r); return r }
func (c *CPU_X86) and16(a, b uint16) uint16 { r := a & b; c.setLogicFlags16(r); return r }
func (c *CPU_X86) or8(a, b byte) byte    { r := a | b; c.setLogicFlags8(r); return r }
func (c *CPU_X86) or16(a, b uint16) uint16  { r := a | b; c.setLogicFlags16(r); return r }
func (c *CPU_X86) xor8(a, b byte) byte   { r := a ^ b; c.setLogicFlags8(r); return r }
func (c *CPU_X86) xor16(a, b uint16) uint16 { r := a ^ b; c.setLogicFlags16(r); return r }
func (c *CPU_X86) test8(a, b byte)       { c.setLogicFlags8(a & b) }
func (c *CPU_X86) test16(a, b uint16)    { c.setLogicFlags16(a & b) }

// neg: CF ← (operand ≠ 0); other flags as if subtracting from 0.
func (c *CPU_X86) neg8(a byte) byte {
	result := c.sub8(0, a)
	c.setFlag(x86FlagCF, a != 0)
	return result
}

func (c *CPU_X86) neg16(a uint16) uint16 {
	result := c.sub16(0, a)
	c.setFlag(x86FlagCF, a != 0)
	return result
}

// mul8/16: unsigned; CF/OF set iff the upper half is nonzero.
func (c *CPU_X86) mul8(a byte) {
	result := uint16(c.AL()) * uint16(a)
	c.SetAX(result)
	overflow := result > 0xFF
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x8000 != 0)
	c.setFlag(x86FlagPF, parity(byte(result)))
}

func (c *CPU_X86) mul16(a uint16) {
	result := uint32(c.AX()) * uint32(a)
	c.SetAX(uint16(result))
	c.SetDX(uint16(result >> 16))
	overflow := result > 0xFFFF
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
	c.setFlag(x86FlagZF, result == 0)
	c.setFlag(x86FlagSF, result&0x80000000 != 0)
	c.setFlag(x86FlagPF, parity(byte(result)))
}

// imul8/16: signed; CF=OF=1 iff sign-extension of the low half != full result.
func (c *CPU_X86) imul8(a byte) {
	result := int16(int8(c.AL())) * int16(int8(a))
	c.SetAX(uint16(result))
	signExtLow := int16(int8(byte(result)))
	overflow := signExtLow != result
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
}

func (c *CPU_X86) imul16(a uint16) {
	result := int32(int16(c.AX())) * int32(int16(a))
	c.SetAX(uint16(result))
	c.SetDX(uint16(result >> 16))
	signExtLow := int32(int16(uint16(result)))
	overflow := signExtLow != result
	c.setFlag(x86FlagCF, overflow)
	c.setFlag(x86FlagOF, overflow)
}

// div8/idiv8/div16/idiv16 return (quotient, remainder, ok). ok=false on
// divide-by-zero or quotient overflow; the caller (Grp3 handler) turns
// that into a *DivisionFaultError which Step()'s restart logic handles.
func (c *CPU_X86) div8(dividend uint16, divisor byte) (q, r byte, ok bool) {
	if divisor == 0 {
		return 0, 0, false
	}
	quotient := dividend / uint16(divisor)
	if quotient > 0xFF {
		return 0, 0, false
	}
	return byte(quotient), byte(dividend % uint16(divisor)), true
}

func (c *CPU_X86) idiv8(dividend int16, divisor int8) (q, r byte, ok bool) {
	if divisor == 0 {
		return 0, 0, false
	}
	quotient := dividend / int16(divisor)
	if quotient > 127 || quotient < -128 {
		return 0, 0, false
	}
	return byte(quotient), byte(dividend % int16(divisor)), true
}

func (c *CPU_X86) div16(dividend uint32, divisor uint16) (q, r uint16, ok bool) {
	if divisor == 0 {
		return 0, 0, false
	}
	quotient := dividend / uint32(divisor)
	if quotient > 0xFFFF {
		return 0, 0, false
	}
	return uint16(quotient), uint16(dividend % uint32(divisor)), true
}

func (c *CPU_X86) idiv16(dividend int32, divisor int16) (q, r uint16, ok bool) {
	if divisor == 0 {
		return 0, 0, false
	}
	quotient := dividend / int32(divisor)
	if quotient > 32767 || quotient < -32768 {
		return 0, 0, false
	}
	return uint16(quotient), uint16(dividend % int32(divisor)), true
}

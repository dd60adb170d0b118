// fpu_x87.go - x87 coprocessor escape opcodes (0xD8-0xDF), stubbed
//
// This core has no functioning FPU: a program must be able to detect the
// absence of a coprocessor and fall back to software floating point, but
// no ESC opcode may actually compute anything. dispatchFPU decodes the
// ModR/M byte and consumes whatever displacement or memory operand it
// names, then does nothing. This mirrors real 8086-without-8087 behavior
// closely enough for the classic FNINIT+FNSTSW/test-AL detection idiom
// DOS programs use — FNSTSW never actually writes, so the sentinel value
// software primed AX with beforehand survives and reads as "no FPU".
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

// dispatchFPU consumes an x87 escape opcode's full encoding without
// performing any floating-point computation.
func (c *CPU_X86) dispatchFPU(opcode byte) error {
	c.decodeModRM() // discards the operand: register-form needs no more
	// bytes; memory-form has already consumed its displacement inside
	// decodeModRM, matching the byte length real hardware would fetch.
	return nil
}

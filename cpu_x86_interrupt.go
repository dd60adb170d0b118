// cpu_x86_interrupt.go - interrupt/call framework
//
// A division fault restores workingIP to the failing instruction's own
// start before dispatching INT 0, so the INT 0 handler's IRET resumes the
// DIV rather than skipping it. A latched keyboard vector (9) is never
// overwritten by a later timer vector. An external interrupt's call frame
// is marked non-return-recorded before the handler swap, so IRET never
// warns about a frame that was never a real CALL.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import "sync/atomic"

const keyboardVector = 9

// interrupt reads the vector's IVT entry, pushes FLAGS/CS/IP, clears
// IF/TF and transfers control to the handler. If external, the call frame
// it records is marked non-return-recorded and the active function
// handler is swapped to the external-interrupt instance.
func (c *CPU_X86) interrupt(vector byte, external bool) error {
	vectorAddr := uint32(vector) * 4
	targetIP := c.bus.Read16(vectorAddr)
	targetCS := c.bus.Read16(vectorAddr + 2)

	if targetIP == 0 && targetCS == 0 && c.config.ErrorOnUninitializedInterruptHandler {
		return &UnhandledOperationError{
			Detail: "interrupt to uninitialized vector",
			State:  c.snapshot(),
		}
	}

	c.push16(c.Flags)
	c.push16(c.CS)
	c.push16(c.workingIP)
	c.setFlag(x86FlagIF, false)
	c.setFlag(x86FlagTF, false)

	returnCS, returnIP := c.CS, c.workingIP
	c.workingIP = targetIP
	c.CS = targetCS

	handler := c.activeFuncHandler
	handler.call(CallInterrupt, targetCS, targetIP, returnCS, returnIP)
	if external {
		handler.markTopNoReturnRecord()
		c.activeFuncHandler = c.extFuncHandler
	}
	return nil
}

// iret implements RETF-with-flags: pop IP, pop CS, pop FLAGS, restore the
// primary function handler.
func (c *CPU_X86) iret() {
	c.workingIP = c.pop16()
	c.CS = c.pop16()
	c.Flags = c.pop16() | x86FlagsFixedOnes
	c.activeFuncHandler = c.funcHandler
	c.funcHandler.ret(CallInterrupt, c.CS, c.workingIP)
}

// ExternalInterrupt latches a pending vector from any goroutine: a plain
// atomic write with no queueing. If a vector is already pending and it is
// the keyboard vector, it is never overwritten.
func (c *CPU_X86) ExternalInterrupt(vector byte) {
	for {
		cur := atomic.LoadInt32(&c.externalIRQ)
		if cur == keyboardVector {
			return
		}
		if atomic.CompareAndSwapInt32(&c.externalIRQ, cur, int32(vector)) {
			return
		}
	}
}

// serviceExternalInterrupt is invoked once per instruction boundary. It
// services the latch only when IF=1, clearing it on service.
func (c *CPU_X86) serviceExternalInterrupt() {
	if !c.IF() {
		return
	}
	pending := atomic.LoadInt32(&c.externalIRQ)
	if pending < 0 {
		return
	}
	if !atomic.CompareAndSwapInt32(&c.externalIRQ, pending, -1) {
		return
	}
	if err := c.interrupt(byte(pending), true); err != nil {
		c.fault(err)
	}
}

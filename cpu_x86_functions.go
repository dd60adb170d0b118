// cpu_x86_functions.go - function-tracking subsystem
//
// Shadows every CALL/RET pair with a discovered-function map keyed by
// segmented address, so a post-run report can list every function this
// core ever transferred control to, along with its callers and call
// counts. Built in the map-keyed, mutex-free bookkeeping style the rest
// of this codebase uses for single-threaded CPU-owned state.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"sort"
)

type CallKind int

const (
	CallNear CallKind = iota
	CallFar
	CallInterrupt
)

func (k CallKind) String() string {
	switch k {
	case CallNear:
		return "NEAR"
	case CallFar:
		return "FAR"
	default:
		return "INTERRUPT"
	}
}

// segmentedAddr is the CS:offset key FunctionInformation is identified by.
type segmentedAddr struct {
	Segment, Offset uint16
}

func (a segmentedAddr) String() string { return fmt.Sprintf("%04X:%04X", a.Segment, a.Offset) }

// OverrideFunc is a host-language substitute for emulated code at a call
// target. It receives the CPU so it can read/mutate registers exactly as
// the callee it replaces would, and returns nothing — the function
// handler synthesizes the RET.
type OverrideFunc func(cpu *CPU_X86)

// FunctionInformation tracks one discovered function.
type FunctionInformation struct {
	Address      segmentedAddr
	Name         string
	Callers      map[segmentedAddr]*FunctionInformation
	ReturnCounts map[segmentedAddr]int
	Override     OverrideFunc
}

func newFunctionInformation(addr segmentedAddr) *FunctionInformation {
	return &FunctionInformation{
		Address:      addr,
		Name:         fmt.Sprintf("sub_%s", addr),
		Callers:      make(map[segmentedAddr]*FunctionInformation),
		ReturnCounts: make(map[segmentedAddr]int),
	}
}

// callFrame is one entry in the shadow call stack.
type callFrame struct {
	Kind       CallKind
	Target     segmentedAddr
	ReturnAddr segmentedAddr
	NoReturnRecord bool
}

// FunctionHandler is the bookkeeping subsystem that tracks call/return
// pairs. Two independent instances exist on a CPU_X86 — one for normal
// flow, one for external-interrupt flow — and they never share frames.
type FunctionHandler struct {
	functions map[segmentedAddr]*FunctionInformation
	stack     []callFrame
	warnings  []string
}

func NewFunctionHandler() *FunctionHandler {
	return &FunctionHandler{functions: make(map[segmentedAddr]*FunctionInformation)}
}

// RegisterOverride installs a Native override at addr: the next call()
// targeting addr transfers control to fn instead of the emulated code and
// synthesizes an immediate RET of the call's kind.
func (h *FunctionHandler) RegisterOverride(addr segmentedAddr, fn OverrideFunc) {
	info, ok := h.functions[addr]
	if !ok {
		info = newFunctionInformation(addr)
		h.functions[addr] = info
	}
	info.Override = fn
}

// call pushes a shadow frame for a call of kind from returnCS:returnIP to
// targetCS:targetIP. It returns the override to invoke, if any; the
// caller (CPU_X86) is responsible for actually running it and
// synthesizing the RET, since only the CPU has the register file the
// override mutates.
func (h *FunctionHandler) call(kind CallKind, targetCS, targetIP, returnCS, returnIP uint16) OverrideFunc {
	target := segmentedAddr{targetCS, targetIP}
	ret := segmentedAddr{returnCS, returnIP}

	info, ok := h.functions[target]
	if !ok {
		info = newFunctionInformation(target)
		h.functions[target] = info
	}

	callerAddr := ret
	if caller, ok := h.functions[callerAddr]; ok {
		info.Callers[callerAddr] = caller
	} else {
		info.Callers[callerAddr] = nil
	}
	info.ReturnCounts[ret]++

	h.stack = append(h.stack, callFrame{Kind: kind, Target: target, ReturnAddr: ret})
	return info.Override
}

// ret pops the shadow frame and verifies kind matches and the
// architectural return address equals the expected one. On mismatch, it
// logs a warning and continues — function-handler inconsistencies never
// abort the run.
func (h *FunctionHandler) ret(kind CallKind, actualCS, actualIP uint16) {
	if len(h.stack) == 0 {
		h.warnings = append(h.warnings, fmt.Sprintf("RET %s with empty shadow stack at %04X:%04X", kind, actualCS, actualIP))
		return
	}
	top := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]

	if top.NoReturnRecord {
		return
	}
	if top.Kind != kind {
		h.warnings = append(h.warnings, fmt.Sprintf("RET kind mismatch: expected %s got %s at %s", top.Kind, kind, top.ReturnAddr))
	}
	actual := segmentedAddr{actualCS, actualIP}
	if actual != top.ReturnAddr {
		h.warnings = append(h.warnings, fmt.Sprintf("RET address mismatch: expected %s got %s", top.ReturnAddr, actual))
	}
}

// markTopNoReturnRecord marks the top frame as one IRET will not find a
// matching entry for — external-interrupt calls are non-return-recorded.
func (h *FunctionHandler) markTopNoReturnRecord() {
	if len(h.stack) == 0 {
		return
	}
	h.stack[len(h.stack)-1].NoReturnRecord = true
}

// Backtrace returns up to depth active call targets, innermost first.
func (h *FunctionHandler) Backtrace(depth int) []segmentedAddr {
	n := len(h.stack)
	if depth > n {
		depth = n
	}
	out := make([]segmentedAddr, depth)
	for i := 0; i < depth; i++ {
		out[i] = h.stack[n-1-i].Target
	}
	return out
}

// WriteReport serializes the shadow call graph as a header of observed
// globals, one entry per discovered function with its callers and call
// sites, and a footer.
func (h *FunctionHandler) WriteReport(w io.Writer) error {
	addrs := make([]segmentedAddr, 0, len(h.functions))
	for a := range h.functions {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].Segment != addrs[j].Segment {
			return addrs[i].Segment < addrs[j].Segment
		}
		return addrs[i].Offset < addrs[j].Offset
	})

	if _, err := fmt.Fprintf(w, "; function dump: %d observed globals\n", len(addrs)); err != nil {
		return err
	}
	for _, addr := range addrs {
		info := h.functions[addr]
		override := ""
		if info.Override != nil {
			override = " (override)"
		}
		if _, err := fmt.Fprintf(w, "\n%s %s%s\n", addr, info.Name, override); err != nil {
			return err
		}
		callers := make([]segmentedAddr, 0, len(info.Callers))
		for c := range info.Callers {
			callers = append(callers, c)
		}
		sort.Slice(callers, func(i, j int) bool { return callers[i].Offset < callers[j].Offset })
		for _, caller := range callers {
			if _, err := fmt.Fprintf(w, "  called from %s (%d times)\n", caller, info.ReturnCounts[caller]); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "\n; %d warnings\n", len(h.warnings)); err != nil {
		return err
	}
	for _, warning := range h.warnings {
		if _, err := fmt.Fprintf(w, "; %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}

// --- CPU_X86 integration ---------------------------------------------------

// recordCallAndMaybeOverride pushes architectural state for a CALL and,
// via the active function handler's call(), either dispatches to a Native
// override (returning true, having already restored CS:workingIP to the
// caller so the emulated CALL opcode must not jump into the target) or
// lets emulated execution continue at the target (returning false, so the
// caller is responsible for setting CS:workingIP to targetCS:targetIP).
func (c *CPU_X86) recordCallAndMaybeOverride(kind CallKind, targetCS, targetIP uint16) bool {
	returnCS, returnIP := c.CS, c.workingIP
	override := c.activeFuncHandler.call(kind, targetCS, targetIP, returnCS, returnIP)
	if override == nil {
		return false
	}
	override(c)
	// Synthesize the RET the emulated caller expects: pop back to the
	// caller without ever transferring control into the target's bytes.
	c.activeFuncHandler.ret(kind, returnCS, returnIP)
	c.CS, c.workingIP = returnCS, returnIP
	return true
}

// RegisterOverride installs a Native override function at a segmented
// address. It applies to the normal-flow function handler; interrupt-flow
// overrides can be installed on ExternalFunctionHandler() separately.
func (c *CPU_X86) RegisterOverride(segment, offset uint16, fn OverrideFunc) {
	c.funcHandler.RegisterOverride(segmentedAddr{segment, offset}, fn)
}

func (c *CPU_X86) FunctionHandlerReport() *FunctionHandler    { return c.funcHandler }
func (c *CPU_X86) ExternalFunctionHandler() *FunctionHandler  { return c.extFuncHandler }
func (c *CPU_X86) Backtrace(depth int) []segmentedAddr        { return c.activeFuncHandler.Backtrace(depth) }

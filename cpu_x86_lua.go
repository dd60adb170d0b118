// cpu_x86_lua.go - Lua-scripted function overrides
//
// The Native variant of the {Emulated, Native} override tagged union
// (cpu_x86_functions.go) need not be Go code at all: this backs it with a
// github.com/yuin/gopher-lua script exposing a register(cs, ip, fn) API,
// so a reverse-engineering session can patch in a host-language substitute
// for a discovered library routine without a recompile.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LuaOverrideScript owns a Lua VM whose registered functions back Native
// call overrides on a CPU_X86.
type LuaOverrideScript struct {
	state *lua.LState
}

// LoadLuaOverrides runs path in a fresh Lua VM and installs every
// register(cs, ip, fn) call the script makes as a Native override on cpu.
// The returned script must outlive any registered override; closing it
// invalidates them.
func LoadLuaOverrides(cpu *CPU_X86, path string) (*LuaOverrideScript, error) {
	state := lua.NewState()
	script := &LuaOverrideScript{state: state}

	state.SetGlobal("register", state.NewFunction(func(L *lua.LState) int {
		cs := uint16(L.CheckInt(1))
		ip := uint16(L.CheckInt(2))
		fn := L.CheckFunction(3)
		cpu.RegisterOverride(cs, ip, script.callback(fn))
		return 0
	}))

	if err := state.DoFile(path); err != nil {
		state.Close()
		return nil, fmt.Errorf("loading override script %s: %w", path, err)
	}
	return script, nil
}

// callback wraps a Lua function as an OverrideFunc: the CPU's
// general-purpose registers are marshaled into a Lua table, the script
// runs, and any fields it mutated are written back.
func (s *LuaOverrideScript) callback(fn *lua.LFunction) OverrideFunc {
	return func(cpu *CPU_X86) {
		regs := s.state.NewTable()
		regs.RawSetString("ax", lua.LNumber(cpu.AX()))
		regs.RawSetString("bx", lua.LNumber(cpu.BX()))
		regs.RawSetString("cx", lua.LNumber(cpu.CX()))
		regs.RawSetString("dx", lua.LNumber(cpu.DX()))
		regs.RawSetString("si", lua.LNumber(cpu.SI))
		regs.RawSetString("di", lua.LNumber(cpu.DI))
		regs.RawSetString("bp", lua.LNumber(cpu.BP))
		regs.RawSetString("cf", lua.LBool(cpu.CF()))

		if err := s.state.CallByParam(lua.P{
			Fn:      fn,
			NRet:    0,
			Protect: true,
		}, regs); err != nil {
			cpu.debugf("lua override error: %v", err)
			return
		}

		cpu.SetAX(uint16(lua.LVAsNumber(regs.RawGetString("ax"))))
		cpu.SetBX(uint16(lua.LVAsNumber(regs.RawGetString("bx"))))
		cpu.SetCX(uint16(lua.LVAsNumber(regs.RawGetString("cx"))))
		cpu.SetDX(uint16(lua.LVAsNumber(regs.RawGetString("dx"))))
		cpu.SI = uint16(lua.LVAsNumber(regs.RawGetString("si")))
		cpu.DI = uint16(lua.LVAsNumber(regs.RawGetString("di")))
		cpu.BP = uint16(lua.LVAsNumber(regs.RawGetString("bp")))
		cpu.setFlag(x86FlagCF, lua.LVAsBool(regs.RawGetString("cf")))
	}
}

// Close releases the Lua VM backing this script's overrides.
func (s *LuaOverrideScript) Close() { s.state.Close() }
